package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tetherapp/tether-api/internal/domain/graph"
	"github.com/tetherapp/tether-api/internal/domain/notification"
	"github.com/tetherapp/tether-api/internal/domain/user"
	"github.com/tetherapp/tether-api/internal/middleware"
	"github.com/tetherapp/tether-api/internal/pkg/jwt"
)

func TestAPIRouteRegistration_NoConflicts(t *testing.T) {
	jwtService := jwt.NewService("test-secret", time.Minute)
	authMiddleware := middleware.Auth(jwtService)

	graphHandler := graph.NewHandler(nil, nil)
	userHandler := user.NewHandler(nil)
	notificationHandler := notification.NewHandler(nil, nil)

	root := chi.NewRouter()

	func() {
		defer func() {
			if rec := recover(); rec != nil {
				t.Fatalf("route registration panicked: %v", rec)
			}
		}()
		root.Route("/api/v1", func(r chi.Router) {
			graphHandler.Register(r, authMiddleware)
			userHandler.Register(r, authMiddleware)
			r.Mount("/notifications", notificationHandler.Routes(authMiddleware))
		})
	}()

	// Unauthenticated requests must be rejected before any handler runs,
	// which also proves the paths resolve to registered routes.
	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/users/123/follow"},
		{http.MethodGet, "/api/v1/users/me/follow-requests"},
		{http.MethodGet, "/api/v1/users/123/followers"},
		{http.MethodGet, "/api/v1/users/me"},
		{http.MethodPatch, "/api/v1/users/me/privacy"},
		{http.MethodGet, "/api/v1/notifications/unread-count"},
		{http.MethodPost, "/api/v1/relationships/lookup"},
	}

	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			req := httptest.NewRequest(p.method, p.path, nil)
			rr := httptest.NewRecorder()
			root.ServeHTTP(rr, req)
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected status 401, got %d", rr.Code)
			}
		})
	}
}

package user_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tetherapp/tether-api/internal/domain/user"
	"github.com/tetherapp/tether-api/internal/middleware"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*user.User)}
}

func (f *fakeUserRepo) Ensure(ctx context.Context, u *user.User) error {
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, ok := f.users[id]
	return ok, nil
}

func (f *fakeUserRepo) IsPrivate(ctx context.Context, id uuid.UUID) (bool, error) {
	u, ok := f.users[id]
	if !ok {
		return false, user.ErrUserNotFound
	}
	return u.IsPrivate, nil
}

func (f *fakeUserRepo) SetPrivacy(ctx context.Context, id uuid.UUID, private bool) error {
	u, ok := f.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	u.IsPrivate = private
	return nil
}

func (f *fakeUserRepo) GetSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]user.Summary, error) {
	out := make(map[uuid.UUID]user.Summary)
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out[id] = user.Summary{ID: u.ID, Username: u.Username}
		}
	}
	return out, nil
}

func stubAuth(userID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func TestGetMe(t *testing.T) {
	repo := newFakeUserRepo()
	me := uuid.New()
	repo.Ensure(context.Background(), &user.User{ID: me, Username: "me_user", CreatedAt: time.Now()})

	r := chi.NewRouter()
	user.NewHandler(repo).Register(r, stubAuth(me))

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var env struct {
		Data user.User `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if env.Data.Username != "me_user" {
		t.Fatalf("unexpected user %+v", env.Data)
	}
}

func TestUpdatePrivacy(t *testing.T) {
	repo := newFakeUserRepo()
	me := uuid.New()
	repo.Ensure(context.Background(), &user.User{ID: me, Username: "me_user"})

	r := chi.NewRouter()
	user.NewHandler(repo).Register(r, stubAuth(me))

	body := bytes.NewBufferString(`{"is_private": true}`)
	req := httptest.NewRequest(http.MethodPatch, "/users/me/privacy", body)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if private, _ := repo.IsPrivate(context.Background(), me); !private {
		t.Fatal("expected privacy flag persisted")
	}
}

func TestUpdatePrivacyRequiresField(t *testing.T) {
	repo := newFakeUserRepo()
	me := uuid.New()
	repo.Ensure(context.Background(), &user.User{ID: me, Username: "me_user"})

	r := chi.NewRouter()
	user.NewHandler(repo).Register(r, stubAuth(me))

	req := httptest.NewRequest(http.MethodPatch, "/users/me/privacy", bytes.NewBufferString(`{}`))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
}

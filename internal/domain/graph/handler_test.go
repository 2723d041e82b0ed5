package graph_test

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

	"github.com/tetherapp/tether-api/internal/domain/graph"
	"github.com/tetherapp/tether-api/internal/middleware"
)

// fakeRelationshipService implements graph.RelationshipService with
// overridable funcs so each test wires only what it needs.
type fakeRelationshipService struct {
	followFn    func(ctx context.Context, actorID, targetID uuid.UUID) (*graph.Relationship, error)
	blockFn     func(ctx context.Context, actorID, targetID uuid.UUID) (*graph.Relationship, error)
	batchFn     func(ctx context.Context, actorID uuid.UUID, otherIDs []uuid.UUID) ([]*graph.Relationship, error)
	statsFn     func(ctx context.Context, userID uuid.UUID) (*graph.Stats, error)
	followersFn func(ctx context.Context, subjectID uuid.UUID, cursor string, pageSize int) (*graph.Page, error)
}

func noRelation(ctx context.Context, actorID, targetID uuid.UUID) (*graph.Relationship, error) {
	return &graph.Relationship{UserID: targetID, FollowState: graph.StateNone, FriendState: graph.StateNone, BlockState: graph.StateNone}, nil
}

func noPage(ctx context.Context, subjectID uuid.UUID, cursor string, pageSize int) (*graph.Page, error) {
	return &graph.Page{}, nil
}

func (f *fakeRelationshipService) Follow(ctx context.Context, a, t uuid.UUID) (*graph.Relationship, error) {
	if f.followFn != nil {
		return f.followFn(ctx, a, t)
	}
	return noRelation(ctx, a, t)
}
func (f *fakeRelationshipService) Unfollow(ctx context.Context, a, t uuid.UUID) (*graph.Relationship, error) {
	return noRelation(ctx, a, t)
}
func (f *fakeRelationshipService) CancelFollowRequest(ctx context.Context, a, t uuid.UUID) (*graph.Relationship, error) {
	return noRelation(ctx, a, t)
}
func (f *fakeRelationshipService) AcceptFollowRequest(ctx context.Context, a, t uuid.UUID) (*graph.Relationship, error) {
	return noRelation(ctx, a, t)
}
func (f *fakeRelationshipService) RejectFollowRequest(ctx context.Context, a, t uuid.UUID) (*graph.Relationship, error) {
	return noRelation(ctx, a, t)
}
func (f *fakeRelationshipService) RequestFriend(ctx context.Context, a, t uuid.UUID) (*graph.Relationship, error) {
	return noRelation(ctx, a, t)
}
func (f *fakeRelationshipService) CancelFriendRequest(ctx context.Context, a, t uuid.UUID) (*graph.Relationship, error) {
	return noRelation(ctx, a, t)
}
func (f *fakeRelationshipService) AcceptFriendRequest(ctx context.Context, a, t uuid.UUID) (*graph.Relationship, error) {
	return noRelation(ctx, a, t)
}
func (f *fakeRelationshipService) RejectFriendRequest(ctx context.Context, a, t uuid.UUID) (*graph.Relationship, error) {
	return noRelation(ctx, a, t)
}
func (f *fakeRelationshipService) RemoveFriend(ctx context.Context, a, t uuid.UUID) (*graph.Relationship, error) {
	return noRelation(ctx, a, t)
}
func (f *fakeRelationshipService) Block(ctx context.Context, a, t uuid.UUID) (*graph.Relationship, error) {
	if f.blockFn != nil {
		return f.blockFn(ctx, a, t)
	}
	return noRelation(ctx, a, t)
}
func (f *fakeRelationshipService) Unblock(ctx context.Context, a, t uuid.UUID) (*graph.Relationship, error) {
	return noRelation(ctx, a, t)
}
func (f *fakeRelationshipService) Relationship(ctx context.Context, a, t uuid.UUID) (*graph.Relationship, error) {
	return noRelation(ctx, a, t)
}
func (f *fakeRelationshipService) RelationshipBatch(ctx context.Context, a uuid.UUID, ids []uuid.UUID) ([]*graph.Relationship, error) {
	if f.batchFn != nil {
		return f.batchFn(ctx, a, ids)
	}
	return nil, nil
}
func (f *fakeRelationshipService) Stats(ctx context.Context, userID uuid.UUID) (*graph.Stats, error) {
	if f.statsFn != nil {
		return f.statsFn(ctx, userID)
	}
	return &graph.Stats{UserID: userID}, nil
}
func (f *fakeRelationshipService) Followers(ctx context.Context, s uuid.UUID, c string, n int) (*graph.Page, error) {
	if f.followersFn != nil {
		return f.followersFn(ctx, s, c, n)
	}
	return noPage(ctx, s, c, n)
}
func (f *fakeRelationshipService) Following(ctx context.Context, s uuid.UUID, c string, n int) (*graph.Page, error) {
	return noPage(ctx, s, c, n)
}
func (f *fakeRelationshipService) Friends(ctx context.Context, s uuid.UUID, c string, n int) (*graph.Page, error) {
	return noPage(ctx, s, c, n)
}
func (f *fakeRelationshipService) FollowRequests(ctx context.Context, s uuid.UUID, c string, n int) (*graph.Page, error) {
	return noPage(ctx, s, c, n)
}
func (f *fakeRelationshipService) FriendRequests(ctx context.Context, s uuid.UUID, c string, n int) (*graph.Page, error) {
	return noPage(ctx, s, c, n)
}
func (f *fakeRelationshipService) Blocked(ctx context.Context, s uuid.UUID, c string, n int) (*graph.Page, error) {
	return noPage(ctx, s, c, n)
}

type fakeProfiles struct {
	summaries map[uuid.UUID]graph.UserSummary
	err       error
}

func (f *fakeProfiles) GetSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]graph.UserSummary, error) {
	return f.summaries, f.err
}

// stubAuth injects a fixed user id instead of validating a real token.
func stubAuth(userID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestRouter(svc graph.RelationshipService, profiles graph.ProfileFetcher, actorID uuid.UUID) chi.Router {
	h := graph.NewHandler(svc, profiles)
	r := chi.NewRouter()
	h.Register(r, stubAuth(actorID))
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doRequest(t *testing.T, r chi.Router, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body failed: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response failed: %v (body: %s)", err, rr.Body.String())
	}
	return rr, env
}

func TestFollowEndpoint(t *testing.T) {
	actor := uuid.New()
	target := uuid.New()

	svc := &fakeRelationshipService{
		followFn: func(ctx context.Context, actorID, targetID uuid.UUID) (*graph.Relationship, error) {
			if actorID != actor || targetID != target {
				t.Fatalf("unexpected pair (%s, %s)", actorID, targetID)
			}
			return &graph.Relationship{UserID: targetID, FollowState: graph.StateFollowing}, nil
		},
	}
	r := newTestRouter(svc, nil, actor)

	rr, env := doRequest(t, r, http.MethodPost, "/users/"+target.String()+"/follow", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var rel graph.Relationship
	if err := json.Unmarshal(env.Data, &rel); err != nil {
		t.Fatalf("decode relationship failed: %v", err)
	}
	if rel.FollowState != graph.StateFollowing {
		t.Fatalf("expected following, got %s", rel.FollowState)
	}
}

func TestFollowEndpointInvalidUserID(t *testing.T) {
	r := newTestRouter(&fakeRelationshipService{}, nil, uuid.New())

	rr, env := doRequest(t, r, http.MethodPost, "/users/not-a-uuid/follow", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if env.Success {
		t.Fatal("expected success=false")
	}
}

func TestErrorTaxonomyMapping(t *testing.T) {
	target := uuid.New()
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"blocked", graph.ErrBlocked, http.StatusForbidden, "BLOCKED"},
		{"not found", graph.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"invalid", graph.ErrInvalidOperation, http.StatusBadRequest, "BAD_REQUEST"},
		{"conflict", graph.ErrConflict, http.StatusConflict, "CONFLICT"},
		{"store down", graph.ErrStoreUnavailable, http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeRelationshipService{
				followFn: func(ctx context.Context, actorID, targetID uuid.UUID) (*graph.Relationship, error) {
					return nil, tc.err
				},
			}
			r := newTestRouter(svc, nil, uuid.New())

			rr, env := doRequest(t, r, http.MethodPost, "/users/"+target.String()+"/follow", nil)
			if rr.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rr.Code)
			}
			if env.Error == nil || env.Error.Code != tc.wantCode {
				t.Fatalf("expected error code %s, got %+v", tc.wantCode, env.Error)
			}
		})
	}
}

func TestLookupEndpointValidation(t *testing.T) {
	r := newTestRouter(&fakeRelationshipService{}, nil, uuid.New())

	rr, _ := doRequest(t, r, http.MethodPost, "/relationships/lookup", map[string]interface{}{
		"user_ids": []string{},
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for empty user_ids, got %d", rr.Code)
	}
}

func TestLookupEndpoint(t *testing.T) {
	actor := uuid.New()
	other := uuid.New()

	svc := &fakeRelationshipService{
		batchFn: func(ctx context.Context, actorID uuid.UUID, ids []uuid.UUID) ([]*graph.Relationship, error) {
			if len(ids) != 1 || ids[0] != other {
				t.Fatalf("unexpected ids %v", ids)
			}
			return []*graph.Relationship{{UserID: other, FollowState: graph.StateFollowing}}, nil
		},
	}
	r := newTestRouter(svc, nil, actor)

	rr, env := doRequest(t, r, http.MethodPost, "/relationships/lookup", map[string]interface{}{
		"user_ids": []string{other.String()},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var body graph.LookupResponse
	if err := json.Unmarshal(env.Data, &body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(body.Relationships) != 1 || body.Relationships[0].UserID != other {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestListFollowersEnrichment(t *testing.T) {
	subject := uuid.New()
	follower := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)
	next := graph.Cursor{CreatedAt: now, ID: follower}.Encode()

	svc := &fakeRelationshipService{
		followersFn: func(ctx context.Context, subjectID uuid.UUID, cursor string, pageSize int) (*graph.Page, error) {
			return &graph.Page{
				Items:       []graph.Entry{{UserID: follower, CreatedAt: now}},
				NextCursor:  next,
				HasNextPage: true,
			}, nil
		},
	}
	display := "Follower One"
	profiles := &fakeProfiles{summaries: map[uuid.UUID]graph.UserSummary{
		follower: {Username: "follower_one", DisplayName: &display},
	}}
	r := newTestRouter(svc, profiles, uuid.New())

	rr, env := doRequest(t, r, http.MethodGet, "/users/"+subject.String()+"/followers?limit=10", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var page graph.PageResponse
	if err := json.Unmarshal(env.Data, &page); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(page.Items))
	}
	if page.Items[0].Username != "follower_one" {
		t.Fatalf("expected enriched username, got %q", page.Items[0].Username)
	}
	if !page.HasNextPage || page.NextCursor == nil || *page.NextCursor != next {
		t.Fatalf("pagination fields wrong: %+v", page)
	}
}

func TestListFollowersEnrichmentFailureDegrades(t *testing.T) {
	subject := uuid.New()
	follower := uuid.New()

	svc := &fakeRelationshipService{
		followersFn: func(ctx context.Context, subjectID uuid.UUID, cursor string, pageSize int) (*graph.Page, error) {
			return &graph.Page{Items: []graph.Entry{{UserID: follower, CreatedAt: time.Now()}}}, nil
		},
	}
	profiles := &fakeProfiles{err: context.DeadlineExceeded}
	r := newTestRouter(svc, profiles, uuid.New())

	rr, env := doRequest(t, r, http.MethodGet, "/users/"+subject.String()+"/followers", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 despite enrichment failure, got %d", rr.Code)
	}

	var page graph.PageResponse
	if err := json.Unmarshal(env.Data, &page); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].UserID != follower {
		t.Fatalf("expected bare entry, got %+v", page.Items)
	}
	if page.Items[0].Username != "" {
		t.Fatalf("expected no username, got %q", page.Items[0].Username)
	}
}

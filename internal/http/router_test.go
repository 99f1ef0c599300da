package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"societysync/internal/auth"
	"societysync/internal/domain"
	"societysync/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "router-test-secret"

func newTestRouter() *Router {
	tokens := auth.NewTokenManager(testSecret, time.Hour)
	return NewRouter(NewAuthenticator(tokens, zap.NewNop()), zap.NewNop())
}

func issueToken(t *testing.T, ttl time.Duration, p domain.Principal) string {
	t.Helper()
	tok, _, err := auth.NewTokenManager(testSecret, ttl).Issue(p)
	require.NoError(t, err)
	return tok
}

var (
	testAdmin    = domain.Principal{UserID: 1, Username: "admin", Role: domain.RoleAdmin, Name: "Administrator", PasswordChanged: true}
	testOwner    = domain.Principal{UserID: 2, Username: "oravikumar", Role: domain.RoleOwner, FlatNumber: "A101", Name: "Ravi Kumar", PasswordChanged: true}
	testNewOwner = domain.Principal{UserID: 3, Username: "oanitadesai", Role: domain.RoleOwner, FlatNumber: "A102", Name: "Anita Desai"}
)

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) Result[json.RawMessage] {
	t.Helper()
	var res Result[json.RawMessage]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func echoPrincipal(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	writeJSON(w, http.StatusOK, Ok(p))
}

func do(h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := do(newTestRouter(), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ResultSuccess, decodeResult(t, rec).Code)
}

func TestRequireAuth(t *testing.T) {
	r := newTestRouter()
	r.initial("GET /api/v1/whoami", echoPrincipal)

	t.Run("missing header", func(t *testing.T) {
		rec := do(r, http.MethodGet, "/api/v1/whoami", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, ResultError, decodeResult(t, rec).Code)
	})

	t.Run("bad signature", func(t *testing.T) {
		tok, _, err := auth.NewTokenManager("other-secret", time.Hour).Issue(testOwner)
		require.NoError(t, err)
		rec := do(r, http.MethodGet, "/api/v1/whoami", tok, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, ResultError, decodeResult(t, rec).Code)
	})

	t.Run("expired", func(t *testing.T) {
		rec := do(r, http.MethodGet, "/api/v1/whoami", issueToken(t, -time.Minute, testOwner), nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, ResultTokenExpired, decodeResult(t, rec).Code)
	})

	t.Run("valid", func(t *testing.T) {
		rec := do(r, http.MethodGet, "/api/v1/whoami", issueToken(t, time.Hour, testOwner), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var p domain.Principal
		require.NoError(t, json.Unmarshal(decodeResult(t, rec).Result, &p))
		assert.Equal(t, int64(2), p.UserID)
		assert.Equal(t, "A101", p.FlatNumber)
		assert.Equal(t, domain.RoleOwner, p.Role)
	})
}

func TestRequireAuth_DeletedUser(t *testing.T) {
	lookupErr := errors.New("pq: connection refused")
	existing := map[int64]bool{testAdmin.UserID: true}
	authn := NewAuthenticator(auth.NewTokenManager(testSecret, time.Hour), zap.NewNop()).
		WithUserLookup(func(_ context.Context, userID int64) error {
			if userID == 99 {
				return lookupErr
			}
			if !existing[userID] {
				return domain.NewNotFoundError("user", userID)
			}
			return nil
		})
	r := NewRouter(authn, zap.NewNop())
	r.initial("GET /api/v1/whoami", echoPrincipal)

	rec := do(r, http.MethodGet, "/api/v1/whoami", issueToken(t, time.Hour, testAdmin), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(r, http.MethodGet, "/api/v1/whoami", issueToken(t, time.Hour, testOwner), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "account no longer exists", decodeResult(t, rec).Message)

	broken := testOwner
	broken.UserID = 99
	rec = do(r, http.MethodGet, "/api/v1/whoami", issueToken(t, time.Hour, broken), nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPasswordChangeGate(t *testing.T) {
	r := newTestRouter()
	r.initial("GET /api/v1/profile", echoPrincipal)
	r.user("GET /api/v1/things", echoPrincipal)

	tok := issueToken(t, time.Hour, testNewOwner)

	rec := do(r, http.MethodGet, "/api/v1/profile", tok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(r, http.MethodGet, "/api/v1/things", tok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "password change required", decodeResult(t, rec).Message)

	rec = do(r, http.MethodGet, "/api/v1/things", issueToken(t, time.Hour, testOwner), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminGate(t *testing.T) {
	r := newTestRouter()
	r.admin("GET /admin/api/v1/things", echoPrincipal)

	rec := do(r, http.MethodGet, "/admin/api/v1/things", issueToken(t, time.Hour, testOwner), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(r, http.MethodGet, "/admin/api/v1/things", issueToken(t, time.Hour, testAdmin), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(r, http.MethodGet, "/admin/api/v1/things", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", domain.NewValidationError("amount", "must be positive"), http.StatusBadRequest, ""},
		{"credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid username or password"},
		{"forbidden", domain.NewForbiddenError("admin role required"), http.StatusForbidden, "admin role required"},
		{"not found", domain.NewNotFoundError("bill", 7), http.StatusNotFound, "bill not found: 7"},
		{"duplicate", domain.ErrDuplicateVote, http.StatusConflict, ""},
		{"wrapped not found", errors.Join(errors.New("lookup"), domain.NewNotFoundError("poll", 3)), http.StatusNotFound, ""},
		{"internal", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			writeError(rec, req, zap.NewNop(), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			res := decodeResult(t, rec)
			assert.Equal(t, ResultError, res.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, res.Message)
			}
		})
	}
}

type fakeAuthService struct {
	service.AuthService
	got service.LoginRequest
}

func (f *fakeAuthService) Login(_ context.Context, req service.LoginRequest) (*service.LoginResponse, error) {
	f.got = req
	if req.Password != "secret" {
		return nil, domain.ErrInvalidCredentials
	}
	return &service.LoginResponse{AccessToken: "tok", PasswordChanged: true}, nil
}

func TestLogin(t *testing.T) {
	svc := &fakeAuthService{}
	r := newTestRouter()
	r.RegisterAuthRoutes(NewAuthHandler(svc, nil, zap.NewNop()))

	rec := do(r, http.MethodPost, "/auth/api/v1/login", "", map[string]string{"username": "admin", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp service.LoginResponse
	require.NoError(t, json.Unmarshal(decodeResult(t, rec).Result, &resp))
	assert.Equal(t, "tok", resp.AccessToken)
	assert.Equal(t, "admin", svc.got.Username)
	assert.NotEmpty(t, svc.got.IPAddress)

	rec = do(r, http.MethodPost, "/auth/api/v1/login", "", map[string]string{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(r, http.MethodGet, "/auth/api/v1/login", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

type fakePollService struct {
	service.PollService
	voted [][2]int64
}

func (f *fakePollService) Vote(_ context.Context, actor domain.Principal, pollID, optionID int64) error {
	for _, v := range f.voted {
		if v[0] == pollID {
			return domain.ErrDuplicateVote
		}
	}
	f.voted = append(f.voted, [2]int64{pollID, optionID})
	return nil
}

func (f *fakePollService) HasVoted(_ context.Context, _ domain.Principal, pollID int64) (*int64, error) {
	if pollID == 404 {
		return nil, domain.NewNotFoundError("poll", pollID)
	}
	for _, v := range f.voted {
		if v[0] == pollID {
			optionID := v[1]
			return &optionID, nil
		}
	}
	return nil, nil
}

func TestMyVoteRoute(t *testing.T) {
	svc := &fakePollService{voted: [][2]int64{{4, 9}}}
	r := newTestRouter()
	r.RegisterPollRoutes(NewPollHandler(svc, zap.NewNop()))
	tok := issueToken(t, time.Hour, testOwner)

	type myVote struct {
		PollID   int64  `json:"poll_id"`
		Voted    bool   `json:"voted"`
		OptionID *int64 `json:"option_id"`
	}

	rec := do(r, http.MethodGet, "/api/v1/polls/4/vote", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got myVote
	require.NoError(t, json.Unmarshal(decodeResult(t, rec).Result, &got))
	assert.True(t, got.Voted)
	require.NotNil(t, got.OptionID)
	assert.Equal(t, int64(9), *got.OptionID)

	rec = do(r, http.MethodGet, "/api/v1/polls/5/vote", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got = myVote{}
	require.NoError(t, json.Unmarshal(decodeResult(t, rec).Result, &got))
	assert.Equal(t, int64(5), got.PollID)
	assert.False(t, got.Voted)
	assert.Nil(t, got.OptionID)

	rec = do(r, http.MethodGet, "/api/v1/polls/404/vote", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(r, http.MethodGet, "/api/v1/polls/4/vote", issueToken(t, time.Hour, testNewOwner), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

type fakeBillingService struct {
	service.BillingService
	gotFlat string
}

func (f *fakeBillingService) ListFlatBills(_ context.Context, _ domain.Principal, flat string) ([]*domain.Bill, error) {
	f.gotFlat = flat
	return []*domain.Bill{{BillID: 1, FlatNumber: flat}, {BillID: 2, FlatNumber: flat}}, nil
}

func TestFlatBillsRoute(t *testing.T) {
	svc := &fakeBillingService{}
	r := newTestRouter()
	r.RegisterBillRoutes(NewBillHandler(svc, zap.NewNop()))

	rec := do(r, http.MethodGet, "/admin/api/v1/flats/b204/bills", issueToken(t, time.Hour, testAdmin), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "B204", svc.gotFlat)

	var body struct {
		FlatNumber string `json:"flat_number"`
		Total      int    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(decodeResult(t, rec).Result, &body))
	assert.Equal(t, "B204", body.FlatNumber)
	assert.Equal(t, 2, body.Total)

	rec = do(r, http.MethodGet, "/admin/api/v1/flats/B204/bills", issueToken(t, time.Hour, testOwner), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestVoteRoute(t *testing.T) {
	svc := &fakePollService{}
	r := newTestRouter()
	r.RegisterPollRoutes(NewPollHandler(svc, zap.NewNop()))
	tok := issueToken(t, time.Hour, testOwner)

	rec := do(r, http.MethodPost, "/api/v1/polls/4/vote", tok, map[string]int64{"option_id": 9})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [][2]int64{{4, 9}}, svc.voted)

	rec = do(r, http.MethodPost, "/api/v1/polls/4/vote", tok, map[string]int64{"option_id": 10})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, svc.voted, 1)

	rec = do(r, http.MethodPost, "/api/v1/polls/abc/vote", tok, map[string]int64{"option_id": 9})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPost, "/admin/api/v1/polls", tok, map[string]any{"title": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequestLogger(t *testing.T) {
	h := RequestLogger(zap.NewNop(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			panic("boom")
		}
		writeJSON(w, http.StatusOK, Ok(requestIDFrom(r.Context())))
	}))

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))
	assert.JSONEq(t, `"req-1"`, string(decodeResult(t, rec).Result))

	rec = do(h, http.MethodGet, "/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

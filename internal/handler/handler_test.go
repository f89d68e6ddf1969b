package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendtrack/internal/apperr"
	"attendtrack/internal/attendance"
	"attendtrack/internal/auth"
	"attendtrack/internal/media"
	"attendtrack/internal/user"
)

const (
	testKey    = "test-signing-key"
	testIssuer = "attendtrack-test"
)

// memLedger enforces one active session per user, like the partial index.
type memLedger struct {
	sessions []attendance.Session
}

func (m *memLedger) Insert(_ context.Context, s attendance.Session) (attendance.Session, error) {
	for _, e := range m.sessions {
		if e.UserID == s.UserID && e.Status == attendance.StatusCheckedIn {
			return attendance.Session{}, apperr.Conflict("already checked in")
		}
	}
	s.ID = "sess-1"
	s.Status = attendance.StatusCheckedIn
	m.sessions = append(m.sessions, s)
	return s, nil
}

func (m *memLedger) CompleteActive(_ context.Context, userID string, upd attendance.CheckoutUpdate) (attendance.Session, error) {
	for i, s := range m.sessions {
		if s.UserID == userID && s.Status == attendance.StatusCheckedIn {
			t := upd.Time
			s.CheckOutTime = &t
			s.Status = attendance.StatusCheckedOut
			m.sessions[i] = s
			return s, nil
		}
	}
	return attendance.Session{}, apperr.NotFound("not checked in")
}

func (m *memLedger) Active(_ context.Context, userID string) (*attendance.Session, error) {
	for _, s := range m.sessions {
		if s.UserID == userID && s.Status == attendance.StatusCheckedIn {
			out := s
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memLedger) ListByUser(_ context.Context, userID string, _ int) ([]attendance.Session, error) {
	var out []attendance.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memLedger) ListJoined(_ context.Context) ([]attendance.Session, error) {
	return append([]attendance.Session(nil), m.sessions...), nil
}

func (m *memLedger) DeleteAll(_ context.Context) (int64, error) {
	n := int64(len(m.sessions))
	m.sessions = nil
	return n, nil
}

type memPhotos struct{}

func (memPhotos) Save(direction, camera, userID, _ string) (string, error) {
	return direction + "_" + camera + "_" + userID + ".jpg", nil
}
func (memPhotos) PurgeAll() media.PurgeResult { return media.PurgeResult{} }

type memDirectory struct{}

func (memDirectory) LocationEnabled(_ context.Context, _ string) (bool, error) { return true, nil }

type memUserStore struct{ users map[string]user.User }

func (m *memUserStore) Create(_ context.Context, u user.User) error {
	for _, e := range m.users {
		if e.Username == u.Username || e.Email == u.Email {
			return apperr.Conflict("username or email already exists")
		}
	}
	m.users[u.ID] = u
	return nil
}
func (m *memUserStore) GetByUsername(_ context.Context, username string) (*user.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}
func (m *memUserStore) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}
func (m *memUserStore) List(_ context.Context) ([]user.User, error) { return nil, nil }
func (m *memUserStore) ToggleLocation(_ context.Context, id string) (bool, error) {
	u, ok := m.users[id]
	if !ok {
		return false, apperr.NotFound("user not found")
	}
	u.LocationEnabled = !u.LocationEnabled
	m.users[id] = u
	return u.LocationEnabled, nil
}
func (m *memUserStore) LocationEnabled(_ context.Context, id string) (bool, error) {
	u, ok := m.users[id]
	if !ok {
		return false, apperr.NotFound("user not found")
	}
	return u.LocationEnabled, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *memLedger) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ledger := &memLedger{}
	users := user.NewService(&memUserStore{users: map[string]user.User{}})
	sessions := attendance.NewService(ledger, memPhotos{}, memDirectory{})
	h := New(users, sessions, nil, AuthConfig{
		Issuer: testIssuer, SigningKey: testKey,
		AccessTTL: time.Minute, RefreshTTL: time.Hour,
	})

	r := gin.New()
	authed := r.Group("/v1", auth.RequireUser(testKey, testIssuer))
	authed.POST("/checkin", h.CheckIn)
	authed.POST("/checkout", h.CheckOut)
	authed.GET("/attendance/active", h.ActiveSession)
	admin := authed.Group("/admin", auth.RequireRole(user.RoleAdmin))
	admin.POST("/purge", h.Purge)
	return r, ledger
}

func bearerFor(t *testing.T, userID, role string) string {
	t.Helper()
	pair, err := auth.Issue(userID, "tester", role, testIssuer, testKey, time.Minute, time.Hour)
	require.NoError(t, err)
	return "Bearer " + pair.AccessToken
}

func do(r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCheckIn_RequiresToken(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(r, http.MethodPost, "/v1/checkin", "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckIn_ThenDoubleCheckInConflicts(t *testing.T) {
	r, _ := newTestRouter(t)
	token := bearerFor(t, "u1", user.RoleUser)

	w := do(r, http.MethodPost, "/v1/checkin", token, `{"front_image":"Zm9v"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)

	w = do(r, http.MethodPost, "/v1/checkin", token, `{}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already checked in")
}

func TestCheckOut_WithoutActiveSessionIs404(t *testing.T) {
	r, _ := newTestRouter(t)
	token := bearerFor(t, "u1", user.RoleUser)

	w := do(r, http.MethodPost, "/v1/checkout", token, `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not checked in")
}

func TestCheckInCheckOutRoundTrip(t *testing.T) {
	r, ledger := newTestRouter(t)
	token := bearerFor(t, "u1", user.RoleUser)

	w := do(r, http.MethodPost, "/v1/checkin", token, `{}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodGet, "/v1/attendance/active", token, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/v1/checkout", token, `{}`)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, ledger.sessions, 1)
	assert.Equal(t, attendance.StatusCheckedOut, ledger.sessions[0].Status)

	w = do(r, http.MethodGet, "/v1/attendance/active", token, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPurge_RequiresAdminRole(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodPost, "/v1/admin/purge", bearerFor(t, "u1", user.RoleUser), `{}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPost, "/v1/admin/purge", bearerFor(t, "a1", user.RoleAdmin), `{}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planmyoutings/backend/internal/apperrors"
	"github.com/planmyoutings/backend/internal/auth"
	"github.com/planmyoutings/backend/internal/middleware"
	"github.com/planmyoutings/backend/internal/models"
)

type fakeStore struct {
	since   time.Time
	kept    string
	limit   int
	err     error
	cleared Cleared
}

func (f *fakeStore) Stats(_ context.Context, since time.Time) (*Stats, error) {
	f.since = since
	return &Stats{Totals: Counts{Users: 3}}, f.err
}

func (f *fakeStore) RecentUsers(_ context.Context, limit int) ([]RecentUser, error) {
	f.limit = limit
	return []RecentUser{{ID: 1, Username: "alice"}}, f.err
}

func (f *fakeStore) Activity(_ context.Context, limit int) (*Activity, error) {
	f.limit = limit
	return &Activity{}, f.err
}

func (f *fakeStore) ClearDemoData(_ context.Context, keep string) (Cleared, error) {
	f.kept = keep
	return f.cleared, f.err
}

type fakeResetter struct {
	userID int64
	err    error
}

func (f *fakeResetter) ResetCredentials(_ context.Context, userID int64) (*auth.ContactResult, error) {
	f.userID = userID
	if f.err != nil {
		return nil, f.err
	}
	return &auth.ContactResult{User: models.UserPublic{ID: userID}, Username: "bob.smith.1990", Password: "n3wPass!"}, nil
}

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, int64(1))
		c.Set(middleware.ContextUserRole, string(models.RoleAdmin))
	})
	r.GET("/admin/stats", h.Stats)
	r.GET("/admin/recent-users", h.RecentUsers)
	r.GET("/admin/system-activity", h.Activity)
	r.POST("/admin/clear-demo-data", h.ClearDemoData)
	r.POST("/admin/resend-email", h.ResendCredentials)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestStatsUsesSevenDayWindow(t *testing.T) {
	store := &fakeStore{}
	h := NewHandler(store, &fakeResetter{}, "superadmin", nil)
	now := time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	w := do(newRouter(h), http.MethodGet, "/admin/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), store.since)
	assert.Contains(t, w.Body.String(), `"users":3`)
}

func TestLimits(t *testing.T) {
	store := &fakeStore{}
	r := newRouter(NewHandler(store, &fakeResetter{}, "superadmin", nil))

	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/admin/recent-users", "").Code)
	assert.Equal(t, 10, store.limit)
	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/admin/system-activity", "").Code)
	assert.Equal(t, 5, store.limit)
}

func TestClearDemoData(t *testing.T) {
	store := &fakeStore{cleared: Cleared{{Table: "users", Rows: 4}}}
	w := do(newRouter(NewHandler(store, &fakeResetter{}, "superadmin", nil)), http.MethodPost, "/admin/clear-demo-data", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "superadmin", store.kept)
	var body struct {
		Data struct {
			Deleted Cleared `json:"deleted_counts"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, store.cleared, body.Data.Deleted)
}

func TestStorageFailureIs503(t *testing.T) {
	store := &fakeStore{err: apperrors.TransientStorage(context.DeadlineExceeded)}
	w := do(newRouter(NewHandler(store, &fakeResetter{}, "superadmin", nil)), http.MethodPost, "/admin/clear-demo-data", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestResendCredentials(t *testing.T) {
	resetter := &fakeResetter{}
	r := newRouter(NewHandler(&fakeStore{}, resetter, "superadmin", nil))

	w := do(r, http.MethodPost, "/admin/resend-email", `{"user_id":7}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(7), resetter.userID)
	assert.Contains(t, w.Body.String(), `"password":"n3wPass!"`)

	w = do(r, http.MethodPost, "/admin/resend-email", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	resetter.err = apperrors.NotFound("user")
	w = do(r, http.MethodPost, "/admin/resend-email", `{"user_id":99}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

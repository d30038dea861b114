package view

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Sternrassler/artic-browser/internal/testutil"
	"github.com/Sternrassler/artic-browser/pkg/client"
	"github.com/Sternrassler/artic-browser/pkg/pagination"
	"github.com/Sternrassler/artic-browser/pkg/session"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, items int) (*httptest.Server, *testutil.MockArtic) {
	t.Helper()

	mock := testutil.NewMockArtic(items)
	t.Cleanup(mock.Close)

	cfg := client.DefaultConfig(nil, "ArticBrowser/test (test@example.com)")
	cfg.BaseURL = mock.URL()
	c, err := client.New(cfg)
	require.NoError(t, err)

	svc := NewService(c, session.NewMemoryStore(16, time.Minute), Config{PageSize: 12})
	srv := httptest.NewServer(NewHandler(svc))
	t.Cleanup(srv.Close)

	return srv, mock
}

func do(t *testing.T, method, url, body string, out any) int {
	t.Helper()

	req, err := http.NewRequest(method, url, bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHandler_SessionLifecycle(t *testing.T) {
	srv, mock := newTestServer(t, 100)
	base := srv.URL + "/api/sessions"

	var v View
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, base, "", &v))
	require.Len(t, v.Items, 12)
	require.Equal(t, 100, v.Total)
	sessionURL := base + "/" + v.SessionID

	require.Equal(t, http.StatusOK, do(t, http.MethodPost, sessionURL+"/page", `{"first":36,"rows":12}`, &v))
	require.Equal(t, 3, v.PageIndex)
	require.Equal(t, int64(37), v.Items[0].ID)
	require.Equal(t, []int{1, 4}, mock.RequestedPages())

	require.Equal(t, http.StatusOK, do(t, http.MethodPut, sessionURL+"/selection",
		`{"value":[{"id":7,"title":"Seven"}]}`, &v))
	require.Equal(t, []int64{7}, v.Selection.IDs())

	require.Equal(t, http.StatusOK, do(t, http.MethodPut, sessionURL+"/pending", `{"count":5}`, &v))
	require.Equal(t, 5, v.PendingCount)

	var auto AutoSelectResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, sessionURL+"/autoselect", "", &auto))
	require.Equal(t, []int64{7, 37, 38, 39, 40}, auto.View.Selection.IDs())
	require.Equal(t, 1, auto.View.PendingCount)
	require.Equal(t, pagination.StopSatisfied, auto.Run.Stop)
	require.Equal(t, []int{3}, auto.Run.Pages)

	require.Equal(t, http.StatusOK, do(t, http.MethodPost, sessionURL+"/autoselect", `{"count":8}`, &auto))
	require.Len(t, auto.View.Selection, 8)

	require.Equal(t, http.StatusOK, do(t, http.MethodGet, sessionURL, "", &v))
	require.Len(t, v.Selection, 8)
	require.Equal(t, 36, v.First)

	require.Equal(t, http.StatusOK, do(t, http.MethodPost, sessionURL+"/reset", "", &v))
	require.Empty(t, v.Selection)
	require.Equal(t, 0, v.PageIndex)

	require.Equal(t, http.StatusNoContent, do(t, http.MethodDelete, sessionURL, "", nil))

	var e errorResponse
	require.Equal(t, http.StatusNotFound, do(t, http.MethodGet, sessionURL, "", &e))
	require.Contains(t, e.Error, "session not found")
}

func TestHandler_BadRequests(t *testing.T) {
	srv, _ := newTestServer(t, 30)
	base := srv.URL + "/api/sessions"

	var v View
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, base, "", &v))
	sessionURL := base + "/" + v.SessionID

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"page without body", http.MethodPost, "/page", "", http.StatusBadRequest},
		{"page missing rows", http.MethodPost, "/page", `{"first":0}`, http.StatusBadRequest},
		{"page zero rows", http.MethodPost, "/page", `{"first":0,"rows":0}`, http.StatusBadRequest},
		{"page unknown field", http.MethodPost, "/page", `{"first":0,"rows":12,"x":1}`, http.StatusBadRequest},
		{"pending zero", http.MethodPut, "/pending", `{"count":0}`, http.StatusBadRequest},
		{"selection not json", http.MethodPut, "/selection", `[`, http.StatusBadRequest},
		{"autoselect negative", http.MethodPost, "/autoselect", `{"count":-3}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e errorResponse
			require.Equal(t, tt.want, do(t, tt.method, sessionURL+tt.path, tt.body, &e))
			require.NotEmpty(t, e.Error)
		})
	}
}

func TestHandler_UpstreamFailureIsSoft(t *testing.T) {
	srv, mock := newTestServer(t, 30)
	mock.FailPage(1, http.StatusServiceUnavailable)

	var v View
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/api/sessions", "", &v))
	require.Equal(t, pagination.StatusFailed, v.Status)
	require.Empty(t, v.Items)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("get: %w", session.ErrNotFound), http.StatusNotFound},
		{session.ErrInvalidPageChange, http.StatusBadRequest},
		{session.ErrInvalidPendingCount, http.StatusBadRequest},
		{ErrAutoSelectAborted, http.StatusConflict},
		{fmt.Errorf("auto-select: %w", context.Canceled), StatusClientClosedRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("redis down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestHandler_CancelledAutoSelectIsNotAServerError(t *testing.T) {
	svc := NewService(newStubFetcher(30), session.NewMemoryStore(16, time.Minute), Config{PageSize: 12})
	v, err := svc.Open(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+v.SessionID+"/autoselect", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	NewHandler(svc).ServeHTTP(rec, req)

	require.Equal(t, StatusClientClosedRequest, rec.Code)

	after, err := svc.Load(context.Background(), v.SessionID)
	require.NoError(t, err)
	require.Empty(t, after.Selection)
}

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/fdsync/internal/api/ws"
	"github.com/your-org/fdsync/internal/groups"
	"github.com/your-org/fdsync/internal/models"
	"github.com/your-org/fdsync/internal/reconcile"
	"github.com/your-org/fdsync/pkg/dto"
)

type fakeChecker struct {
	checks  map[string]string
	healthy bool
}

func (f fakeChecker) Ready(context.Context) (map[string]string, bool) { return f.checks, f.healthy }

type fakeGroups struct {
	groups []models.TenantGroup
	added  []groups.Type
}

func (f *fakeGroups) List(context.Context) ([]models.TenantGroup, error) { return f.groups, nil }

func (f *fakeGroups) Add(_ context.Context, name string, t groups.Type) (models.TenantGroup, error) {
	for _, g := range f.groups {
		if g.Name == name {
			return models.TenantGroup{}, fmt.Errorf("%w: %q", groups.ErrExists, name)
		}
	}
	g := models.TenantGroup{ID: int64(len(f.groups) + 1), Name: name, AuthToken: uuid.New()}
	f.groups = append(f.groups, g)
	f.added = append(f.added, t)
	return g, nil
}

func (f *fakeGroups) Remove(_ context.Context, id int64) error {
	for i, g := range f.groups {
		if g.ID == id {
			f.groups = append(f.groups[:i], f.groups[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: id %d", reconcile.ErrTenantGroupNotFound, id)
}

type fakeRunner struct {
	busy    bool
	started []reconcile.Options
	last    *reconcile.RunReport
}

func (f *fakeRunner) Options(req dto.SyncRequest) reconcile.Options {
	return reconcile.Options{GroupName: "default", Workers: 2, DryRun: req.DryRun, Import: req.Import}
}

func (f *fakeRunner) StartAsync(_ context.Context, opts reconcile.Options) (string, error) {
	if f.busy {
		return "", reconcile.ErrRunInProgress
	}
	f.started = append(f.started, opts)
	return "run-1", nil
}

func (f *fakeRunner) LastReport() (*reconcile.RunReport, bool) { return f.last, f.last != nil }

type harness struct {
	groups *fakeGroups
	runner *fakeRunner
	router http.Handler
}

func newHarness(apiKey string) *harness {
	h := &harness{
		groups: &fakeGroups{groups: []models.TenantGroup{{ID: 1, Name: "default", AuthToken: uuid.New()}}},
		runner: &fakeRunner{},
	}
	h.router = NewRouter(RouterConfig{
		APIKey:  apiKey,
		Checker: fakeChecker{checks: map[string]string{"postgres": "ok"}, healthy: true},
		Groups:  h.groups,
		Runner:  h.runner,
		Hub:     ws.NewHub(),
	})
	return h
}

func (h *harness) do(method, path, body string, header ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func TestSystemEndpoints(t *testing.T) {
	h := newHarness("secret")

	w := h.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ready"`)

	w = h.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadyz_Unhealthy(t *testing.T) {
	r := NewRouter(RouterConfig{
		Checker: fakeChecker{checks: map[string]string{"mysql": "connection refused"}},
		Groups:  &fakeGroups{},
		Runner:  &fakeRunner{},
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestAPIKey(t *testing.T) {
	h := newHarness("secret")

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/v1/groups", "").Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/v1/groups", "", "X-API-Key", "wrong").Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/v1/groups", "", "X-API-Key", "secret").Code)

	open := newHarness("")
	assert.Equal(t, http.StatusOK, open.do(http.MethodGet, "/v1/groups", "").Code)
}

func TestGroups(t *testing.T) {
	h := newHarness("")

	w := h.do(http.MethodPost, "/v1/groups", `{"name":"lobby","type":"lprs"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created dto.GroupResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "lobby", created.Name)
	assert.Equal(t, []groups.Type{groups.TypeLPRS}, h.groups.added)

	w = h.do(http.MethodPost, "/v1/groups", `{"name":"plain"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, groups.TypeFRS, h.groups.added[1])

	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/v1/groups", `{"name":"lobby"}`).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/v1/groups", `{"name":"x","type":"ocr"}`).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/v1/groups", `{}`).Code)

	w = h.do(http.MethodGet, "/v1/groups", "")
	var list dto.GroupListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 3, list.Total)

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, fmt.Sprintf("/v1/groups/%d", created.ID), "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/v1/groups/99", "").Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodDelete, "/v1/groups/abc", "").Code)
}

func TestSync(t *testing.T) {
	h := newHarness("")

	w := h.do(http.MethodPost, "/v1/sync", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	var acc dto.SyncAccepted
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &acc))
	assert.Equal(t, "run-1", acc.RunID)
	assert.Equal(t, string(reconcile.ModeSync), acc.Mode)

	w = h.do(http.MethodPost, "/v1/sync", `{"dry_run":true}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, h.runner.started[1].DryRun)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/v1/sync", `{"dry_run":true,"import":true}`).Code)

	h.runner.busy = true
	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/v1/sync", "").Code)
}

func TestSyncLast(t *testing.T) {
	h := newHarness("")

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/v1/sync/last", "").Code)

	h.runner.last = &reconcile.RunReport{ID: "run-7", Mode: reconcile.ModeSync, State: reconcile.StateDone}
	w := h.do(http.MethodGet, "/v1/sync/last", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"run-7"`)
	assert.Contains(t, w.Body.String(), `"state":"Done"`)
}

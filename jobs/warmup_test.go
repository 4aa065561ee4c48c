package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlink/medlink/internal/dashboard"
)

type stubWarmer struct {
	scopes []dashboard.Scope
	err    error
}

func (s *stubWarmer) Stats(_ context.Context, scope dashboard.Scope) (dashboard.StatsResult, error) {
	s.scopes = append(s.scopes, scope)
	return dashboard.StatsResult{Source: dashboard.SourceEndpoint}, s.err
}

func (s *stubWarmer) Cache() *dashboard.Cache { return nil }

type outcomes struct{ errs []error }

func (o *outcomes) ObserveJob(task string, err error) { o.errs = append(o.errs, err) }

func TestDashboardWarmupDefaultsToSharedScope(t *testing.T) {
	warmer := &stubWarmer{}
	observed := &outcomes{}
	job := NewDashboardWarmupJob(warmer, nil, observed)

	task, err := NewDashboardWarmupTask(WarmupPayload{Bump: true})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, []dashboard.Scope{dashboard.ScopeAll}, warmer.scopes)
	assert.Equal(t, []error{nil}, observed.errs)
}

func TestDashboardWarmupReportsFailure(t *testing.T) {
	boom := errors.New("backend down")
	warmer := &stubWarmer{err: boom}
	observed := &outcomes{}
	job := NewDashboardWarmupJob(warmer, nil, observed)

	task, err := NewDashboardWarmupTask(WarmupPayload{Scopes: []string{"all"}})
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), boom)
	assert.Equal(t, []dashboard.Scope{dashboard.ScopeAll}, warmer.scopes)
	require.Len(t, observed.errs, 1)
	assert.ErrorIs(t, observed.errs[0], boom)
}

func TestDashboardWarmupSkipsRetryOnBadPayload(t *testing.T) {
	job := NewDashboardWarmupJob(&stubWarmer{}, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskDashboardWarmup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	for _, scope := range []string{"everyone", "mine"} {
		task, err := NewDashboardWarmupTask(WarmupPayload{Scopes: []string{scope}})
		require.NoError(t, err)
		assert.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry, scope)
	}
}

func TestJobsHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, nil, nil).MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0}`, rec.Body.String())
}

type stubEnqueuer struct {
	payloads []WarmupPayload
	err      error
}

func (s *stubEnqueuer) EnqueueWarmup(_ context.Context, payload WarmupPayload) (*asynq.TaskInfo, error) {
	s.payloads = append(s.payloads, payload)
	return &asynq.TaskInfo{}, s.err
}

func TestWarmupEndpoint(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, enqueuer, nil).MountProtectedRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/warmup", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []WarmupPayload{{Bump: true}}, enqueuer.payloads)

	enqueuer.err = asynq.ErrDuplicateTask
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/warmup", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	enqueuer.err = errors.New("redis down")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/warmup", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

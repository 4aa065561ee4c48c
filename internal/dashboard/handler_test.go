package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlink/medlink/internal/shared"
)

func newTestRouter(f *fixture, sess *shared.Session) (http.Handler, *Boards) {
	boards := NewBoards()
	h := NewHandler(f.svc.logger, f.svc, boards)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(shared.ContextWithSession(r.Context(), sess)))
		})
	})
	r.Route("/api", func(r chi.Router) {
		h.MountPublicRoutes(r)
		h.MountRoutes(r)
	})
	return r, boards
}

func TestApproverDashboardRevealsJustApproved(t *testing.T) {
	f := newFixture(t)
	f.backend.handle("GET /purchases/requests/pending/", http.StatusOK, `[{"id":1,"status":"pending","amount":"1,500"}]`)
	f.backend.handle("GET /approvals/mine/", http.StatusOK, `[]`)
	f.backend.handle("GET /approvals/mine/rejected/", http.StatusOK, `{"rejected_requests":[{"id":4}]}`)
	f.backend.handle("GET /purchases/requests/stats/", http.StatusOK, `{"total":3}`)
	f.backend.handle("GET /purchases/requests/9/", http.StatusOK, `{"id":9,"status":"approved","approved_at":"2024-01-01","amount":2000}`)

	router, boards := newTestRouter(f, &shared.Session{ID: "s1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard/approver?justApproved=9", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Pending      []map[string]any  `json:"pending"`
		MyApproved   []map[string]any  `json:"my_approved"`
		MyRejected   []map[string]any  `json:"my_rejected"`
		Labels       map[string]string `json:"labels"`
		CanonicalURL string            `json:"canonical_url"`
		Stats        StatsResult       `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	require.Len(t, body.Pending, 1)
	assert.Equal(t, "Frw 1,500", body.Pending[0]["amount_label"])
	require.Len(t, body.MyApproved, 1)
	assert.Equal(t, "9", body.MyApproved[0]["id"])
	assert.Len(t, body.MyRejected, 1)
	assert.Equal(t, "/api/dashboard/approver", body.CanonicalURL)
	assert.Equal(t, "2", body.Labels["total"])
	assert.Equal(t, SourceEndpoint, body.Stats.Source)

	snapshot, ok := boards.For("s1").Approver.Snapshot()
	require.True(t, ok)
	assert.Len(t, snapshot.MyApproved, 1)
}

func TestApproveEndpointUpdatesBoardAndQueuesNotice(t *testing.T) {
	f := newFixture(t)
	f.backend.handle("POST /purchases/requests/1/approve/", http.StatusOK, `{}`)
	sess := &shared.Session{ID: "s1"}
	f.svc.notifier = shared.NewNotifier(nil)

	router, boards := newTestRouter(f, sess)
	approver := &boards.For("s1").Approver
	require.True(t, approver.Commit(approver.Begin(), ApproverOverview{}))
	boards.For("s1").Approver.Update(func(ov ApproverOverview) ApproverOverview {
		ov.Pending = append(ov.Pending, f.svc.lists.List(decodeJSON(t, `[{"id":1},{"id":2}]`))...)
		return ov
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/requests/1/approve", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp transitionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "/api/dashboard/approver?justApproved=1", resp.Next)

	snapshot, _ := approver.Snapshot()
	require.Len(t, snapshot.Pending, 1)
	assert.Equal(t, "2", snapshot.Pending[0].ID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/notifications", nil))
	var notices []shared.FlashMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notices))
	assert.Equal(t, []shared.FlashMessage{{Kind: shared.NoticeSuccess, Message: "Request approved"}}, notices)
}

func TestRejectEndpointReportsFailure(t *testing.T) {
	f := newFixture(t)
	f.backend.handle("POST /purchases/requests/3/reject/", http.StatusBadRequest, `{"detail":"Already rejected."}`)

	router, _ := newTestRouter(f, &shared.Session{ID: "s1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/requests/3/reject", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Already rejected.", f.notifier.last().message)
}

func TestGetRequestMapsBackend404(t *testing.T) {
	f := newFixture(t)
	router, _ := newTestRouter(f, &shared.Session{ID: "s1"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/requests/404", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

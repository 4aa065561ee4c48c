package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/medlink/medlink/internal/platform/httpx"
	"github.com/medlink/medlink/internal/requests"
	"github.com/medlink/medlink/internal/shared"
)

// Handler serves the dashboard JSON API.
type Handler struct {
	logger  *slog.Logger
	service *Service
	boards  *Boards
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, boards *Boards) *Handler {
	return &Handler{logger: logger, service: service, boards: boards}
}

// MountPublicRoutes registers routes that work without a signed-in session.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/notifications", h.notifications)
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard/approver", h.approverDashboard)
	r.Get("/dashboard/staff", h.staffDashboard)
	r.Get("/dashboard/finance", h.financeDashboard)

	r.Get("/approvals/mine", h.listFrom(h.service.MyApprovals, "Failed to load approvals"))
	r.Get("/approvals/approved", h.listFrom(h.service.MyApproved, "Failed to load approved requests"))
	r.Get("/approvals/rejected", h.listFrom(h.service.MyRejected, "Failed to load rejected requests"))

	r.Get("/requests", h.listRequests)
	r.Get("/requests/pending", h.listFrom(h.service.Pending, "Failed to load pending requests"))
	r.Get("/requests/{id}", h.getRequest)
	r.Patch("/requests/{id}", h.updateRequest)
	r.Delete("/requests/{id}", h.deleteRequest)
	r.Post("/requests/{id}/approve", h.approve)
	r.Post("/requests/{id}/reject", h.reject)
}

// Row is a request with its display labels.
type Row struct {
	requests.RequestView
	AmountLabel   string `json:"amount_label"`
	ProgressLabel string `json:"progress_label"`
}

func rows(views []requests.RequestView) []Row {
	out := make([]Row, 0, len(views))
	for _, v := range views {
		out = append(out, Row{RequestView: v, AmountLabel: v.AmountLabel(), ProgressLabel: v.ProgressLabel()})
	}
	return out
}

type approverResponse struct {
	Pending       []Row                   `json:"pending"`
	MyApproved    []Row                   `json:"my_approved"`
	MyRejected    []Row                   `json:"my_rejected"`
	Counts        requests.ApproverCounts `json:"counts"`
	Stats         StatsResult             `json:"stats"`
	Labels        map[string]string       `json:"labels"`
	Failed        []string                `json:"failed,omitempty"`
	CanonicalURL  string                  `json:"canonical_url,omitempty"`
	ApprovedSpend float64                 `json:"approved_spend"`
}

func (h *Handler) approverDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	board := &h.boardsFor(r).Approver
	ticket := board.Begin()

	ov, err := h.service.ApproverOverview(ctx)
	if err != nil {
		h.fail(w, r, err, "Failed to load dashboard")
		return
	}
	h.reportPartial(r, ov.Failed)

	resp := approverResponse{}
	if id := r.URL.Query().Get(JustApprovedParam); id != "" {
		ov.MyApproved, _ = h.service.RevealJustApproved(ctx, id, ov.MyApproved)
		resp.CanonicalURL = StripJustApproved(r.URL)
	}
	if !board.Commit(ticket, ov) {
		h.superseded(w)
		return
	}

	resp.Pending = rows(ov.Pending)
	resp.MyApproved = rows(ov.MyApproved)
	resp.MyRejected = rows(ov.MyRejected)
	resp.Counts = ov.Counts
	resp.Stats = ov.Stats
	resp.Failed = ov.Failed
	resp.ApprovedSpend = ov.ApprovedSpend
	resp.Labels = map[string]string{
		"total":          requests.FormatCompactNumber(float64(ov.Counts.Total)),
		"pending":        requests.FormatCompactNumber(float64(ov.Counts.Pending)),
		"my_approved":    requests.FormatCompactNumber(float64(ov.Counts.MyApproved)),
		"my_rejected":    requests.FormatCompactNumber(float64(ov.Counts.MyRejected)),
		"approved_spend": requests.FormatMoneyCompact(ov.ApprovedSpend, true),
	}
	httpx.JSON(w, http.StatusOK, resp)
}

type staffResponse struct {
	Requests []Row             `json:"requests"`
	Stats    StatsResult       `json:"stats"`
	Labels   map[string]string `json:"labels"`
	Failed   []string          `json:"failed,omitempty"`
}

func (h *Handler) staffDashboard(w http.ResponseWriter, r *http.Request) {
	board := &h.boardsFor(r).Staff
	ticket := board.Begin()

	ov, err := h.service.StaffOverview(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to load dashboard")
		return
	}
	h.reportPartial(r, ov.Failed)
	if !board.Commit(ticket, ov) {
		h.superseded(w)
		return
	}
	httpx.JSON(w, http.StatusOK, staffResponse{
		Requests: rows(ov.Requests),
		Stats:    ov.Stats,
		Labels:   statLabels(ov.Stats.Stats),
		Failed:   ov.Failed,
	})
}

type financeResponse struct {
	Requests []Row                   `json:"requests"`
	Stats    requests.DashboardStats `json:"stats"`
	Labels   map[string]string       `json:"labels"`
}

func (h *Handler) financeDashboard(w http.ResponseWriter, r *http.Request) {
	board := &h.boardsFor(r).Finance
	ticket := board.Begin()

	ov, err := h.service.FinanceOverview(r.Context(), listFilter(r.URL.Query()))
	if err != nil {
		h.fail(w, r, err, "Failed to load approved requests")
		return
	}
	if !board.Commit(ticket, ov) {
		h.superseded(w)
		return
	}
	httpx.JSON(w, http.StatusOK, financeResponse{
		Requests: rows(ov.Requests),
		Stats:    ov.Stats,
		Labels:   statLabels(ov.Stats),
	})
}

func statLabels(stats requests.DashboardStats) map[string]string {
	return map[string]string{
		"total":                 requests.FormatCompactNumber(float64(stats.Total)),
		"pending":               requests.FormatCompactNumber(float64(stats.Pending)),
		"approved":              requests.FormatCompactNumber(float64(stats.Approved)),
		"rejected":              requests.FormatCompactNumber(float64(stats.Rejected)),
		"total_approved_amount": requests.FormatMoney(stats.TotalApprovedAmount, true),
	}
}

func listFilter(q url.Values) ListFilter {
	return ListFilter{
		Status:   q.Get("status"),
		Ordering: q.Get("ordering"),
		Mine:     q.Get("mine") == "true",
	}
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListRequests(r.Context(), listFilter(r.URL.Query()))
	if err != nil {
		h.fail(w, r, err, "Failed to load requests")
		return
	}
	httpx.JSON(w, http.StatusOK, rows(views))
}

func (h *Handler) listFrom(fetch func(context.Context) ([]requests.RequestView, error), failure string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := fetch(r.Context())
		if err != nil {
			h.fail(w, r, err, failure)
			return
		}
		httpx.JSON(w, http.StatusOK, rows(views))
	}
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Request(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "Failed to load request")
		return
	}
	httpx.JSON(w, http.StatusOK, rows([]requests.RequestView{view})[0])
}

func (h *Handler) updateRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var patch map[string]any
	if err := httpx.DecodeJSON(r, &patch); err != nil || len(patch) == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "a JSON object with the fields to change is required")
		return
	}
	boards := h.boardsFor(r)
	snapshot, _ := boards.Staff.Snapshot()
	updated, _, ok := h.service.UpdateRequest(r.Context(), id, patch, snapshot.Requests)
	if !ok {
		httpx.Problem(w, http.StatusBadGateway, "Update Failed", "the request could not be updated")
		return
	}
	boards.Staff.Update(func(ov StaffOverview) StaffOverview {
		ov.Requests, _ = requests.Replace(ov.Requests, updated)
		return ov
	})
	httpx.JSON(w, http.StatusOK, rows([]requests.RequestView{updated})[0])
}

func (h *Handler) deleteRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	boards := h.boardsFor(r)
	snapshot, _ := boards.Staff.Snapshot()
	if _, ok := h.service.DeleteRequest(r.Context(), id, snapshot.Requests); !ok {
		httpx.Problem(w, http.StatusBadGateway, "Delete Failed", "the request could not be deleted")
		return
	}
	boards.Staff.Update(func(ov StaffOverview) StaffOverview {
		ov.Requests = requests.Remove(ov.Requests, id)
		return ov
	})
	boards.Approver.Update(func(ov ApproverOverview) ApproverOverview {
		ov.Pending = requests.Remove(ov.Pending, id)
		return ov
	})
	w.WriteHeader(http.StatusNoContent)
}

type transitionResponse struct {
	ID   string `json:"id"`
	Next string `json:"next,omitempty"`
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.service.Approve(r.Context(), id) {
		httpx.Problem(w, http.StatusBadGateway, "Approval Failed", "the request could not be approved")
		return
	}
	h.dropPending(r, id)
	next := url.URL{Path: "/api/dashboard/approver", RawQuery: url.Values{JustApprovedParam: {id}}.Encode()}
	httpx.JSON(w, http.StatusOK, transitionResponse{ID: id, Next: next.String()})
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.service.Reject(r.Context(), id) {
		httpx.Problem(w, http.StatusBadGateway, "Rejection Failed", "the request could not be rejected")
		return
	}
	h.dropPending(r, id)
	httpx.JSON(w, http.StatusOK, transitionResponse{ID: id})
}

func (h *Handler) dropPending(r *http.Request, id string) {
	h.boardsFor(r).Approver.Update(func(ov ApproverOverview) ApproverOverview {
		ov.Pending = requests.Remove(ov.Pending, id)
		return ov
	})
}

func (h *Handler) notifications(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.JSON(w, http.StatusOK, []shared.FlashMessage{})
		return
	}
	httpx.JSON(w, http.StatusOK, sess.DrainFlashes())
}

func (h *Handler) boardsFor(r *http.Request) *SessionBoards {
	id := ""
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		id = sess.ID
	}
	return h.boards.For(id)
}

func (h *Handler) reportPartial(r *http.Request, failed []string) {
	if len(failed) == 0 {
		return
	}
	h.service.notifier.Notify(r.Context(), shared.NoticeError, "Some dashboard data could not be loaded")
}

func (h *Handler) superseded(w http.ResponseWriter) {
	httpx.Problem(w, http.StatusConflict, "Superseded", "a newer dashboard load replaced this one")
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if errors.Is(err, r.Context().Err()) && r.Context().Err() != nil {
		return
	}
	h.logger.Warn("dashboard request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	h.service.NotifyFailure(r.Context(), err, fallback)
	if errors.Is(err, ErrUnidentifiable) {
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", fallback)
		return
	}
	httpx.RespondError(w, err)
}

package procurement

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/medlink/medlink/internal/gateway"
	"github.com/medlink/medlink/internal/platform/httpx"
	"github.com/medlink/medlink/internal/requests"
	"github.com/medlink/medlink/internal/shared"
)

const maxReceiptSize = 10 << 20

// Notifier surfaces transient notices to the user.
type Notifier interface {
	Notify(ctx context.Context, kind, message string)
}

// Handler serves procurement HTTP endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	source   RequestSource
	updater  Updater
	notifier Notifier
}

// NewHandler creates a new procurement handler. source and updater come
// from the dashboard service.
func NewHandler(logger *slog.Logger, service *Service, source RequestSource, updater Updater, notifier Notifier) *Handler {
	return &Handler{logger: logger, service: service, source: source, updater: updater, notifier: notifier}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/purchase-orders", h.listOrders)
	r.Get("/purchase-orders/{id}", h.getOrder)
	r.Delete("/purchase-orders/{id}", h.deleteOrder)

	r.Post("/requests", h.createRequest)
	r.Get("/requests/form-defaults", h.formDefaults)
	r.Get("/requests/{id}/form", h.editForm)
	r.Put("/requests/{id}", h.saveEditForm)
	r.Get("/requests/{id}/receipts", h.listReceipts)
	r.Post("/requests/{id}/receipts", h.submitReceipt)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to load purchase orders")
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.Order(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "Failed to load purchase order")
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, "Failed to delete purchase order")
		return
	}
	h.notify(r, shared.NoticeSuccess, "Purchase order deleted")
	w.WriteHeader(http.StatusNoContent)
}

type createdResponse struct {
	requests.RequestView
	AmountLabel string `json:"amount_label"`
}

func (h *Handler) createRequest(w http.ResponseWriter, r *http.Request) {
	var form CreateForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed request form")
		return
	}
	view, err := h.service.CreateRequest(r.Context(), form)
	if err != nil {
		h.fail(w, r, err, "Failed to create request")
		return
	}
	h.notify(r, shared.NoticeSuccess, "Request created")
	httpx.JSON(w, http.StatusCreated, createdResponse{RequestView: view, AmountLabel: view.AmountLabel()})
}

func (h *Handler) formDefaults(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, Defaults())
}

func (h *Handler) editForm(w http.ResponseWriter, r *http.Request) {
	form, err := LoadEditForm(r.Context(), h.source, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "Failed to load request")
		return
	}
	httpx.JSON(w, http.StatusOK, form)
}

func (h *Handler) saveEditForm(w http.ResponseWriter, r *http.Request) {
	var form EditForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed request form")
		return
	}
	form.ID = chi.URLParam(r, "id")
	if err := h.service.ValidateEdit(r.Context(), form); err != nil {
		h.fail(w, r, err, "Invalid request form")
		return
	}
	if h.updater == nil {
		h.fail(w, r, ErrSourceUnsupported, "Failed to update request")
		return
	}
	updated, _, ok := h.updater.UpdateRequest(r.Context(), form.ID, form.Patch(), nil)
	if !ok {
		httpx.Problem(w, http.StatusBadGateway, "Update Failed", "the request could not be updated")
		return
	}
	httpx.JSON(w, http.StatusOK, createdResponse{RequestView: updated, AmountLabel: updated.AmountLabel()})
}

func (h *Handler) listReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := h.service.Receipts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "Failed to load receipts")
		return
	}
	httpx.JSON(w, http.StatusOK, receipts)
}

func (h *Handler) submitReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptSize)
	if err := r.ParseMultipartForm(maxReceiptSize); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "a multipart form is required")
		return
	}
	upload := ReceiptUpload{Vendor: r.FormValue("vendor"), Note: r.FormValue("note")}
	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		upload.File = file
		upload.Filename = header.Filename
	}
	receipt, err := h.service.SubmitReceipt(r.Context(), chi.URLParam(r, "id"), upload)
	if err != nil {
		h.fail(w, r, err, "Failed to upload receipt")
		return
	}
	h.notify(r, shared.NoticeSuccess, "Receipt uploaded")
	httpx.JSON(w, http.StatusCreated, receipt)
}

func (h *Handler) notify(r *http.Request, kind, message string) {
	if h.notifier != nil {
		h.notifier.Notify(r.Context(), kind, message)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var fields FieldErrors
	switch {
	case errors.As(err, &fields):
		httpx.JSON(w, http.StatusUnprocessableEntity, map[string]any{
			"title":  "Validation Failed",
			"status": http.StatusUnprocessableEntity,
			"fields": fields,
		})
		return
	case errors.Is(err, ErrMissingFile), errors.Is(err, ErrMissingVendor), errors.Is(err, ErrMissingID):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	case errors.Is(err, ErrOrderNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", fallback)
		return
	}
	h.logger.Warn("procurement request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	h.notify(r, shared.NoticeError, gateway.UserMessage(err, fallback))
	if errors.Is(err, ErrSourceUnsupported) {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", fallback)
		return
	}
	httpx.RespondError(w, err)
}

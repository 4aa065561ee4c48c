// Package procurement serves purchase orders, receipts and the request
// create/edit forms.
package procurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/medlink/medlink/internal/gateway"
	"github.com/medlink/medlink/internal/requests"
)

const (
	pathOrders   = "/purchases/purchase-orders/"
	pathRequests = "/purchases/requests/"
)

var (
	// ErrOrderNotFound is returned when an order body carries no id.
	ErrOrderNotFound = errors.New("procurement: purchase order not found")
	// ErrMissingFile is returned when a receipt is submitted without a file.
	ErrMissingFile = errors.New("procurement: receipt file is required")
	// ErrMissingVendor is returned when a receipt is submitted without a vendor.
	ErrMissingVendor = errors.New("procurement: receipt vendor is required")
)

// Gateway is the subset of the API client the service depends on.
type Gateway interface {
	Get(ctx context.Context, path string, query url.Values) (any, error)
	Do(ctx context.Context, method, path string, body any) (any, error)
	Upload(ctx context.Context, path string, fields map[string]string, file *gateway.FilePart) (any, error)
}

// Invalidator drops cached dashboard data after a write.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Updater applies a request PATCH and keeps dashboard state in sync.
type Updater interface {
	UpdateRequest(ctx context.Context, id string, patch map[string]any, list []requests.RequestView) (requests.RequestView, []requests.RequestView, bool)
}

// Service talks to the procurement endpoints.
type Service struct {
	gw       Gateway
	cache    Invalidator
	logger   *slog.Logger
	validate *validator.Validate
}

// NewService constructs the procurement service. cache may be nil.
func NewService(logger *slog.Logger, gw Gateway, cache Invalidator) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gw: gw, cache: cache, logger: logger, validate: validator.New()}
}

// ListOrders lists purchase orders.
func (s *Service) ListOrders(ctx context.Context) ([]OrderView, error) {
	raw, err := s.gw.Get(ctx, pathOrders, nil)
	if err != nil {
		return nil, err
	}
	return NormalizeOrders(raw), nil
}

// Order loads one purchase order.
func (s *Service) Order(ctx context.Context, id string) (OrderView, error) {
	raw, err := s.gw.Get(ctx, orderPath(id), nil)
	if err != nil {
		return OrderView{}, err
	}
	rec, ok := requests.AsRecord(raw)
	if !ok {
		return OrderView{}, ErrOrderNotFound
	}
	order, ok := NormalizeOrder(rec)
	if !ok {
		return OrderView{}, ErrOrderNotFound
	}
	return order, nil
}

// DeleteOrder removes a purchase order.
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	if _, err := s.gw.Do(ctx, http.MethodDelete, orderPath(id), nil); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Receipts lists receipts uploaded for a request.
func (s *Service) Receipts(ctx context.Context, requestID string) ([]Receipt, error) {
	raw, err := s.gw.Get(ctx, requestPath(requestID)+"receipts/", nil)
	if err != nil {
		return nil, err
	}
	return parseReceipts(raw), nil
}

// SubmitReceipt uploads a receipt for a request.
func (s *Service) SubmitReceipt(ctx context.Context, requestID string, upload ReceiptUpload) (Receipt, error) {
	vendor := strings.TrimSpace(upload.Vendor)
	if vendor == "" {
		return Receipt{}, ErrMissingVendor
	}
	if upload.File == nil {
		return Receipt{}, ErrMissingFile
	}
	fields := map[string]string{"vendor": vendor}
	if note := strings.TrimSpace(upload.Note); note != "" {
		fields["note"] = note
	}
	part := &gateway.FilePart{Field: "file", Filename: upload.Filename, Content: upload.File}
	raw, err := s.gw.Upload(ctx, requestPath(requestID)+"submit-receipt/", fields, part)
	if err != nil {
		return Receipt{}, err
	}
	receipt, ok := parseReceipt(raw)
	if !ok {
		// Some deployments answer with an empty body.
		receipt = Receipt{Vendor: vendor, Note: fields["note"], RequestID: requestID}
	}
	s.invalidate(ctx)
	return receipt, nil
}

// CreateRequest validates form and posts it. The created request is
// returned normalized.
func (s *Service) CreateRequest(ctx context.Context, form CreateForm) (requests.RequestView, error) {
	form.Normalize()
	if err := s.validate.StructCtx(ctx, form); err != nil {
		return requests.RequestView{}, validationErrors(err)
	}
	raw, err := s.gw.Do(ctx, http.MethodPost, pathRequests, form.Payload())
	if err != nil {
		return requests.RequestView{}, err
	}
	s.invalidate(ctx)
	rec, ok := requests.AsRecord(raw)
	if !ok {
		return requests.RequestView{}, nil
	}
	view, _ := requests.Normalize(rec)
	return view, nil
}

// ValidateEdit checks an edit form before it is patched.
func (s *Service) ValidateEdit(ctx context.Context, form EditForm) error {
	if err := s.validate.StructCtx(ctx, form); err != nil {
		return validationErrors(err)
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("dashboard cache bump failed", slog.Any("error", err))
	}
}

func orderPath(id string) string {
	return fmt.Sprintf("%s%s/", pathOrders, url.PathEscape(id))
}

func requestPath(id string) string {
	return fmt.Sprintf("%s%s/", pathRequests, url.PathEscape(id))
}

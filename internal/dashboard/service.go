// Package dashboard loads, aggregates and mutates the purchase requests shown
// on the approver, staff and finance dashboards.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"golang.org/x/sync/singleflight"

	"github.com/medlink/medlink/internal/gateway"
	"github.com/medlink/medlink/internal/requests"
)

// Backend endpoints.
const (
	pathPending      = "/purchases/requests/pending/"
	pathRequests     = "/purchases/requests/"
	pathStats        = "/purchases/requests/stats/"
	pathMyApprovals  = "/approvals/mine/"
	pathMyRejections = "/approvals/mine/rejected/"
)

// ErrUnidentifiable is returned when the backend answers with a record
// that carries no usable id.
var ErrUnidentifiable = errors.New("dashboard: record has no id")

// Gateway is the subset of the API client the service depends on.
type Gateway interface {
	Get(ctx context.Context, path string, query url.Values) (any, error)
	Do(ctx context.Context, method, path string, body any) (any, error)
	Tokens() gateway.TokenStore
}

// Notifier surfaces transient notices to the user.
type Notifier interface {
	Notify(ctx context.Context, kind, message string)
}

type logNotifier struct{ logger *slog.Logger }

func (n logNotifier) Notify(ctx context.Context, kind, message string) {
	n.logger.InfoContext(ctx, "notice", slog.String("kind", kind), slog.String("message", message))
}

// Service coordinates dashboard reads and mutations.
type Service struct {
	gw       Gateway
	cache    *Cache
	notifier Notifier
	logger   *slog.Logger
	lists    *requests.Normalizer
	rejected *requests.Normalizer
	flights  singleflight.Group
}

// NewService constructs the dashboard service. cache and notifier may be nil.
func NewService(logger *slog.Logger, gw Gateway, cache *Cache, notifier Notifier) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = logNotifier{logger: logger}
	}
	lists := requests.NewNormalizer(logger)
	return &Service{
		gw:       gw,
		cache:    cache,
		notifier: notifier,
		logger:   logger,
		lists:    lists,
		rejected: lists.WithShapes(requests.RejectedShapes...),
	}
}

// ListFilter narrows the general request listing.
type ListFilter struct {
	Status   string
	Ordering string
	Mine     bool
}

func (f ListFilter) query() url.Values {
	q := url.Values{}
	if f.Mine {
		q.Set("mine", "true")
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Ordering != "" {
		q.Set("ordering", f.Ordering)
	}
	return q
}

func (s *Service) list(ctx context.Context, path string, query url.Values, n *requests.Normalizer) ([]requests.RequestView, error) {
	raw, err := s.gw.Get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	return n.List(raw), nil
}

// Pending lists requests awaiting the current approver.
func (s *Service) Pending(ctx context.Context) ([]requests.RequestView, error) {
	return s.list(ctx, pathPending, nil, s.lists)
}

// MyApprovals lists approval entries assigned to or made by the current user.
func (s *Service) MyApprovals(ctx context.Context) ([]requests.RequestView, error) {
	return s.list(ctx, pathMyApprovals, nil, s.lists)
}

// MyApproved lists the entries the current user has signed off that ended APPROVED.
func (s *Service) MyApproved(ctx context.Context) ([]requests.RequestView, error) {
	mine, err := s.MyApprovals(ctx)
	if err != nil {
		return nil, err
	}
	return approvedByMe(mine), nil
}

func approvedByMe(mine []requests.RequestView) []requests.RequestView {
	out := make([]requests.RequestView, 0, len(mine))
	for _, v := range mine {
		if v.ApprovedAt != "" && v.Status == requests.StatusApproved {
			out = append(out, v)
		}
	}
	return out
}

// MyRejected lists the entries the current user rejected.
func (s *Service) MyRejected(ctx context.Context) ([]requests.RequestView, error) {
	return s.list(ctx, pathMyRejections, nil, s.rejected)
}

// MyRequests lists the current user's own requests.
func (s *Service) MyRequests(ctx context.Context) ([]requests.RequestView, error) {
	return s.ListRequests(ctx, ListFilter{Mine: true})
}

// ListRequests lists requests with optional backend-side filters.
func (s *Service) ListRequests(ctx context.Context, filter ListFilter) ([]requests.RequestView, error) {
	return s.list(ctx, pathRequests, filter.query(), s.lists)
}

// FinanceRequests lists requests and keeps the APPROVED ones, whatever the
// backend did with the status filter.
func (s *Service) FinanceRequests(ctx context.Context, filter ListFilter) ([]requests.RequestView, error) {
	views, err := s.ListRequests(ctx, filter)
	if err != nil {
		return nil, err
	}
	return requests.FilterStatus(views, requests.StatusApproved), nil
}

// Request fetches a single request by id.
func (s *Service) Request(ctx context.Context, id string) (requests.RequestView, error) {
	raw, err := s.gw.Get(ctx, requestPath(id), nil)
	if err != nil {
		return requests.RequestView{}, err
	}
	rec, ok := requests.AsRecord(raw)
	if !ok {
		return requests.RequestView{}, fmt.Errorf("%w: unexpected payload", ErrUnidentifiable)
	}
	view, ok := requests.Normalize(rec)
	if !ok {
		return requests.RequestView{}, ErrUnidentifiable
	}
	return view, nil
}

func requestPath(id string) string {
	return pathRequests + url.PathEscape(id) + "/"
}

func (s *Service) subject(ctx context.Context) string {
	return subjectKey(gateway.CurrentToken(ctx, s.gw.Tokens()))
}

// Cache exposes the stats cache, nil when caching is disabled.
func (s *Service) Cache() *Cache {
	return s.cache
}

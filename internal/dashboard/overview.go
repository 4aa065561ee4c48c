package dashboard

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/medlink/medlink/internal/gateway"
	"github.com/medlink/medlink/internal/requests"
	"github.com/medlink/medlink/internal/shared"
)

// ApproverOverview is everything the approval dashboard shows on load.
type ApproverOverview struct {
	Pending       []requests.RequestView  `json:"pending"`
	MyApproved    []requests.RequestView  `json:"my_approved"`
	MyRejected    []requests.RequestView  `json:"my_rejected"`
	Counts        requests.ApproverCounts `json:"counts"`
	Stats         StatsResult             `json:"stats"`
	ApprovedSpend float64                 `json:"approved_spend"`
	Failed        []string                `json:"failed,omitempty"`
}

// StaffOverview is the staff dashboard: own requests and their stats.
type StaffOverview struct {
	Requests []requests.RequestView `json:"requests"`
	Stats    StatsResult            `json:"stats"`
	Failed   []string               `json:"failed,omitempty"`
}

// FinanceOverview lists approved requests and summarises them.
type FinanceOverview struct {
	Requests []requests.RequestView  `json:"requests"`
	Stats    requests.DashboardStats `json:"stats"`
}

// section is one independently fetched part of an overview. A failed section
// degrades to an empty list and is named in Failed; the rest still loads.
type section struct {
	name  string
	fetch func(context.Context) ([]requests.RequestView, error)
	dest  *[]requests.RequestView
}

func (s *Service) fetchSections(ctx context.Context, sections []section, extra func(context.Context) error) ([]string, error) {
	failed := make([]bool, len(sections))
	g, gctx := errgroup.WithContext(ctx)
	for i, sec := range sections {
		g.Go(func() error {
			views, err := sec.fetch(gctx)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("dashboard section failed", slog.String("section", sec.name), slog.Any("error", err))
				failed[i] = true
				*sec.dest = []requests.RequestView{}
				return nil
			}
			*sec.dest = views
			return nil
		})
	}
	if extra != nil {
		g.Go(func() error { return extra(gctx) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var names []string
	for i, sec := range sections {
		if failed[i] {
			names = append(names, sec.name)
		}
	}
	return names, nil
}

// ApproverOverview loads pending, approved-by-me and rejected-by-me lists and
// the stats in parallel. Identical concurrent loads for the same user share
// one backend round trip.
func (s *Service) ApproverOverview(ctx context.Context) (ApproverOverview, error) {
	v, err := s.collapse(ctx, "approver:"+s.subject(ctx), func(ctx context.Context) (any, error) {
		return s.loadApproverOverview(ctx)
	})
	if err != nil {
		return ApproverOverview{}, err
	}
	return v.(ApproverOverview), nil
}

func (s *Service) loadApproverOverview(ctx context.Context) (ApproverOverview, error) {
	var ov ApproverOverview
	var mine []requests.RequestView
	failed, err := s.fetchSections(ctx, []section{
		{name: "pending", fetch: s.Pending, dest: &ov.Pending},
		{name: "approvals", fetch: s.MyApprovals, dest: &mine},
		{name: "rejected", fetch: s.MyRejected, dest: &ov.MyRejected},
	}, func(ctx context.Context) error {
		stats, err := s.Stats(ctx, ScopeAll)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("dashboard stats failed", slog.Any("error", err))
			return nil
		}
		ov.Stats = stats
		return nil
	})
	if err != nil {
		return ApproverOverview{}, err
	}
	ov.MyApproved = approvedByMe(mine)
	ov.Counts = requests.ApproverTotals(ov.Pending, mine, ov.MyRejected)
	ov.ApprovedSpend = requests.ApprovedSpend(mine, ov.Pending)
	ov.Failed = failed
	return ov, nil
}

// StaffOverview loads the user's own requests and their stats in parallel.
func (s *Service) StaffOverview(ctx context.Context) (StaffOverview, error) {
	v, err := s.collapse(ctx, "staff:"+s.subject(ctx), func(ctx context.Context) (any, error) {
		var ov StaffOverview
		failed, err := s.fetchSections(ctx, []section{
			{name: "requests", fetch: s.MyRequests, dest: &ov.Requests},
		}, func(ctx context.Context) error {
			stats, err := s.Stats(ctx, ScopeMine)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Warn("dashboard stats failed", slog.Any("error", err))
				return nil
			}
			ov.Stats = stats
			return nil
		})
		if err != nil {
			return StaffOverview{}, err
		}
		if ov.Stats.Source == "" {
			ov.Stats = StatsResult{Stats: requests.Aggregate(ov.Requests), Source: SourceComputed}
		}
		ov.Failed = failed
		return ov, nil
	})
	if err != nil {
		return StaffOverview{}, err
	}
	return v.(StaffOverview), nil
}

// FinanceOverview loads approved requests and aggregates them locally.
func (s *Service) FinanceOverview(ctx context.Context, filter ListFilter) (FinanceOverview, error) {
	views, err := s.FinanceRequests(ctx, filter)
	if err != nil {
		return FinanceOverview{}, err
	}
	return FinanceOverview{Requests: views, Stats: requests.Aggregate(views)}, nil
}

// flight is the shared outcome of a collapsed load.
type flight struct {
	val          any
	unauthorized bool
}

// collapse runs fn once for concurrent callers sharing key. fn runs detached
// from the caller's session with the caller's token pinned, so it never
// changes session state. A 401 seen by fn signs out each caller that is still
// waiting; a cancelled caller only abandons its own wait.
func (s *Service) collapse(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	token := gateway.CurrentToken(ctx, s.gw.Tokens())
	resultChan := s.flights.DoChan(key, func() (any, error) {
		pin := gateway.NewPin(token)
		val, err := fn(gateway.WithPin(shared.DetachSession(ctx), pin))
		return flight{val: val, unauthorized: pin.Unauthorized()}, err
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		out, _ := res.Val.(flight)
		if out.unauthorized && ctx.Err() == nil {
			s.gw.Tokens().ClearToken(ctx)
		}
		return out.val, res.Err
	}
}

// NotifyFailure reports a failed load through the notifier.
func (s *Service) NotifyFailure(ctx context.Context, err error, fallback string) {
	s.notifier.Notify(ctx, shared.NoticeError, gateway.UserMessage(err, fallback))
}

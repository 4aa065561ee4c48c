package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"github.com/medlink/medlink/internal/requests"
)

// Scope selects whose requests the stats describe.
type Scope string

const (
	ScopeAll  Scope = "all"
	ScopeMine Scope = "mine"
)

// Stats sources.
const (
	SourceEndpoint = "endpoint"
	SourceComputed = "computed"
)

// StatsResult carries the stats and the source they were taken from.
type StatsResult struct {
	Stats  requests.DashboardStats `json:"stats"`
	Source string                  `json:"source"`
}

var errStatsShape = errors.New("dashboard: unexpected stats payload")

// Stats returns dashboard statistics for scope. The stats endpoint is tried
// first; any failure falls back to aggregating the request list.
//
// Endpoint stats for ScopeAll are the same for every caller and live under a
// shared key, which is what the warmup job fills. Anything computed from a
// request list depends on what the caller may see and stays per subject.
func (s *Service) Stats(ctx context.Context, scope Scope) (StatsResult, error) {
	sharedKey, ownKey, err := s.statsKeys(ctx, scope)
	if err != nil {
		s.logger.Warn("stats cache key", slog.Any("error", err))
		return s.loadStats(ctx, scope)
	}
	for _, key := range []string{sharedKey, ownKey} {
		if key == "" {
			continue
		}
		var cached StatsResult
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			// Redis is unavailable; serve uncached.
			s.logger.Warn("stats cache", slog.Any("error", err))
			return s.loadStats(ctx, scope)
		}
		if hit {
			return cached, nil
		}
	}

	result, err := s.loadStats(ctx, scope)
	if err != nil {
		return result, err
	}
	key := ownKey
	if sharedKey != "" && result.Source == SourceEndpoint {
		key = sharedKey
	}
	if err := s.cache.SetJSON(ctx, key, result); err != nil {
		s.logger.Warn("stats cache store", slog.Any("error", err))
	}
	return result, nil
}

// statsKeys returns the shared key (ScopeAll only) and the per-subject key.
func (s *Service) statsKeys(ctx context.Context, scope Scope) (string, string, error) {
	subject, err := s.cache.BuildKey(ctx, "stats", string(scope), s.subject(ctx))
	if err != nil {
		return "", "", err
	}
	if scope != ScopeAll {
		return "", subject, nil
	}
	all, err := s.cache.BuildKey(ctx, "stats", string(scope), "shared")
	if err != nil {
		return "", "", err
	}
	return all, subject, nil
}

func (s *Service) loadStats(ctx context.Context, scope Scope) (StatsResult, error) {
	var query url.Values
	if scope == ScopeMine {
		query = url.Values{"mine": {"true"}}
	}
	raw, err := s.gw.Get(ctx, pathStats, query)
	if err == nil {
		if stats, ok := parseStats(raw); ok {
			return StatsResult{Stats: stats, Source: SourceEndpoint}, nil
		}
		err = errStatsShape
	}
	if ctx.Err() != nil {
		return StatsResult{}, ctx.Err()
	}
	s.logger.Debug("stats endpoint unavailable, computing locally", slog.String("scope", string(scope)), slog.Any("error", err))

	views, err := s.ListRequests(ctx, ListFilter{Mine: scope == ScopeMine})
	if err != nil {
		return StatsResult{}, err
	}
	return StatsResult{Stats: requests.Aggregate(views), Source: SourceComputed}, nil
}

// parseStats accepts the stats endpoint payload. A total is mandatory; the
// other fields default to zero.
func parseStats(raw any) (requests.DashboardStats, bool) {
	rec, ok := requests.AsRecord(raw)
	if !ok {
		return requests.DashboardStats{}, false
	}
	if nested, ok := requests.AsRecord(rec["stats"]); ok {
		rec = nested
	}
	total, ok := count(rec, "total", "total_requests")
	if !ok {
		return requests.DashboardStats{}, false
	}
	stats := requests.DashboardStats{Total: total}
	stats.Pending, _ = count(rec, "pending", "pending_requests")
	stats.Approved, _ = count(rec, "approved", "approved_requests")
	stats.Rejected, _ = count(rec, "rejected", "rejected_requests")
	if v, ok := rec.Lookup("total_approved_amount", "approved_amount"); ok {
		stats.TotalApprovedAmount, _ = requests.ParseAmount(v)
	}
	return stats, true
}

func count(rec requests.Record, keys ...string) (int, bool) {
	v, ok := rec.Lookup(keys...)
	if !ok {
		return 0, false
	}
	n, ok := requests.ParseAmount(v)
	if !ok || n < 0 {
		return 0, false
	}
	return int(n), true
}

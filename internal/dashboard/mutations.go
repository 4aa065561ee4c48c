package dashboard

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/medlink/medlink/internal/gateway"
	"github.com/medlink/medlink/internal/requests"
	"github.com/medlink/medlink/internal/shared"
)

// Methods tried in order while the backend answers 405.
var (
	transitionMethods = []string{http.MethodPost, http.MethodPatch, http.MethodPut}
	updateMethods     = []string{http.MethodPatch, http.MethodPut}
)

// JustApprovedParam marks a navigation that should reveal a freshly approved request.
const JustApprovedParam = "justApproved"

// Approve approves request id. Failures are reported through the notifier.
func (s *Service) Approve(ctx context.Context, id string) bool {
	return s.transition(ctx, id, "approve", "Request approved", "Failed to approve request")
}

// Reject rejects request id. Failures are reported through the notifier.
func (s *Service) Reject(ctx context.Context, id string) bool {
	return s.transition(ctx, id, "reject", "Request rejected", "Failed to reject request")
}

func (s *Service) transition(ctx context.Context, id, action, success, failure string) bool {
	path := pathRequests + url.PathEscape(id) + "/" + action + "/"
	if _, err := s.send(ctx, transitionMethods, path, nil); err != nil {
		s.logger.Warn("transition failed", slog.String("action", action), slog.String("id", id), slog.Any("error", err))
		s.notifier.Notify(ctx, shared.NoticeError, gateway.UserMessage(err, failure))
		return false
	}
	s.afterMutation(ctx, success)
	return true
}

// send tries methods in order, moving on only when the backend answers 405.
func (s *Service) send(ctx context.Context, methods []string, path string, body any) (any, error) {
	var err error
	for _, method := range methods {
		var raw any
		raw, err = s.gw.Do(ctx, method, path, body)
		if err == nil {
			return raw, nil
		}
		if !gateway.IsStatus(err, http.StatusMethodNotAllowed) {
			return nil, err
		}
		s.logger.Debug("method rejected", slog.String("path", path), slog.String("method", method))
	}
	return nil, err
}

// DeleteRequest deletes request id and, on success only, drops it from list.
func (s *Service) DeleteRequest(ctx context.Context, id string, list []requests.RequestView) ([]requests.RequestView, bool) {
	if _, err := s.gw.Do(ctx, http.MethodDelete, requestPath(id), nil); err != nil {
		s.logger.Warn("delete request failed", slog.String("id", id), slog.Any("error", err))
		s.notifier.Notify(ctx, shared.NoticeError, gateway.UserMessage(err, "Failed to delete request"))
		return list, false
	}
	s.afterMutation(ctx, "Request deleted")
	return requests.Remove(list, id), true
}

// UpdateRequest patches request id, retrying with PUT on 405, and merges the
// server's answer into the matching entry of list.
func (s *Service) UpdateRequest(ctx context.Context, id string, patch map[string]any, list []requests.RequestView) (requests.RequestView, []requests.RequestView, bool) {
	raw, err := s.send(ctx, updateMethods, requestPath(id), patch)
	if err != nil {
		s.logger.Warn("update request failed", slog.String("id", id), slog.Any("error", err))
		s.notifier.Notify(ctx, shared.NoticeError, gateway.UserMessage(err, "Failed to update request"))
		return requests.RequestView{}, list, false
	}
	s.afterMutation(ctx, "Request updated")

	updated := requests.RequestView{ID: id}
	if rec, ok := requests.AsRecord(raw); ok {
		if view, ok := requests.Normalize(rec); ok {
			updated = view
		}
	}
	merged, found := requests.Replace(list, updated)
	if found {
		updated = merged[requests.IndexOf(merged, updated.ID)]
	}
	return updated, merged, true
}

// RevealJustApproved fetches id and puts it first in mine unless already present.
func (s *Service) RevealJustApproved(ctx context.Context, id string, mine []requests.RequestView) ([]requests.RequestView, bool) {
	if id == "" || requests.IndexOf(mine, id) >= 0 {
		return mine, false
	}
	view, err := s.Request(ctx, id)
	if err != nil {
		s.logger.Warn("reveal approved request failed", slog.String("id", id), slog.Any("error", err))
		return mine, false
	}
	return requests.PrependIfAbsent(mine, view)
}

// StripJustApproved removes the reveal marker and returns the canonical URL.
func StripJustApproved(u *url.URL) string {
	clean := *u
	q := clean.Query()
	q.Del(JustApprovedParam)
	clean.RawQuery = q.Encode()
	return clean.RequestURI()
}

func (s *Service) afterMutation(ctx context.Context, message string) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump dashboard cache", slog.Any("error", err))
	}
	s.notifier.Notify(ctx, shared.NoticeSuccess, message)
}

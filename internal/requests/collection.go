package requests

// Helpers for the locally cached lists a dashboard keeps between fetches.
// All of them return a new slice and leave the input untouched.

// IndexOf returns the position of id in views, or -1.
func IndexOf(views []RequestView, id string) int {
	for i, v := range views {
		if v.ID == id {
			return i
		}
	}
	return -1
}

// FilterStatus keeps the views in the given status.
func FilterStatus(views []RequestView, status Status) []RequestView {
	out := make([]RequestView, 0, len(views))
	for _, v := range views {
		if v.Status == status {
			out = append(out, v)
		}
	}
	return out
}

// Remove drops every view with id.
func Remove(views []RequestView, id string) []RequestView {
	out := make([]RequestView, 0, len(views))
	for _, v := range views {
		if v.ID != id {
			out = append(out, v)
		}
	}
	return out
}

// Replace merges update into the view sharing its id. It reports whether a
// view was found.
func Replace(views []RequestView, update RequestView) ([]RequestView, bool) {
	out := append([]RequestView(nil), views...)
	idx := IndexOf(out, update.ID)
	if idx < 0 {
		return out, false
	}
	out[idx] = Merge(out[idx], update)
	return out, true
}

// PrependIfAbsent puts view first unless a view with the same id exists.
func PrependIfAbsent(views []RequestView, view RequestView) ([]RequestView, bool) {
	if IndexOf(views, view.ID) >= 0 {
		return append([]RequestView(nil), views...), false
	}
	out := make([]RequestView, 0, len(views)+1)
	out = append(out, view)
	return append(out, views...), true
}

// Merge overlays the populated fields of update onto base.
func Merge(base, update RequestView) RequestView {
	out := base
	if update.Title != "" {
		out.Title = update.Title
	}
	if update.Description != "" {
		out.Description = update.Description
	}
	if update.Amount != nil {
		out.Amount = update.Amount
	}
	if update.Status != "" {
		out.Status = update.Status
	}
	if update.CreatedAt != "" {
		out.CreatedAt = update.CreatedAt
	}
	if len(update.Items) > 0 {
		out.Items = update.Items
	}
	if update.CurrentApprovalLevel != nil {
		out.CurrentApprovalLevel = update.CurrentApprovalLevel
	}
	if update.RequiredApprovalLevels != nil {
		out.RequiredApprovalLevels = update.RequiredApprovalLevels
	}
	if update.ApprovedByUser != nil {
		out.ApprovedByUser = update.ApprovedByUser
	}
	if update.Approvals != nil {
		out.Approvals = update.Approvals
	}
	if update.ApprovalID != "" {
		out.ApprovalID = update.ApprovalID
	}
	if update.ApprovalLevel != nil {
		out.ApprovalLevel = update.ApprovalLevel
	}
	if update.ApprovedAt != "" {
		out.ApprovedAt = update.ApprovedAt
	}
	return out
}

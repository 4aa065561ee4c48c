package requests

// Aggregate folds a request list into dashboard statistics. Unknown amounts
// add nothing to the approved total but do not stop the rest from counting.
func Aggregate(views []RequestView) DashboardStats {
	stats := DashboardStats{Total: len(views)}
	for _, v := range views {
		switch v.Status {
		case StatusApproved:
			stats.Approved++
			if amount, ok := v.KnownAmount(); ok {
				stats.TotalApprovedAmount += amount
			}
		case StatusRejected:
			stats.Rejected++
		default:
			stats.Pending++
		}
	}
	return stats
}

// ApproverCounts are the approver overview cards. Total is the sum of three
// independently scoped lists and is not expected to match Aggregate().Total.
type ApproverCounts struct {
	Pending    int `json:"pending"`
	MyApproved int `json:"my_approved"`
	MyRejected int `json:"my_rejected"`
	Total      int `json:"total"`
}

// ApproverTotals counts pending requests awaiting the approver, requests in
// the approver's own list that ended APPROVED, and every rejected-by-me entry.
func ApproverTotals(pending, mine, rejectedMine []RequestView) ApproverCounts {
	counts := ApproverCounts{
		Pending:    CountStatus(pending, StatusPending),
		MyApproved: CountStatus(mine, StatusApproved),
		MyRejected: len(rejectedMine),
	}
	counts.Total = counts.Pending + counts.MyApproved + counts.MyRejected
	return counts
}

// ApprovedSpend sums known amounts of APPROVED requests, using mine when it
// has entries and fallback otherwise.
func ApprovedSpend(mine, fallback []RequestView) float64 {
	list := mine
	if len(list) == 0 {
		list = fallback
	}
	var total float64
	for _, v := range list {
		if v.Status != StatusApproved {
			continue
		}
		if amount, ok := v.KnownAmount(); ok {
			total += amount
		}
	}
	return total
}

// CountStatus counts views in the given status.
func CountStatus(views []RequestView, status Status) int {
	n := 0
	for _, v := range views {
		if v.Status == status {
			n++
		}
	}
	return n
}

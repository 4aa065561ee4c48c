package requests

import "strings"

var statusKeys = []string{"status", "state", "approval_status", "purchase_request_status"}

var (
	currentLevelKeys  = []string{"current_approval_level", "current_level"}
	requiredLevelKeys = []string{"required_approval_levels", "required_approval_level", "required_levels"}
)

// statusAliases maps upper-cased backend values onto canonical statuses.
var statusAliases = map[string]Status{
	"APPROVED":           StatusApproved,
	"APPROVE":            StatusApproved,
	"APPROVED_BY_SYSTEM": StatusApproved,
	"REJECTED":           StatusRejected,
	"DECLINED":           StatusRejected,
	"PENDING":            StatusPending,
}

// ClassifyStatus derives the canonical status of a raw request or approval
// entry. It never fails: records without a recognisable status are PENDING
// unless their approval levels are complete.
func ClassifyStatus(rec Record) Status {
	return classify(sourcesOf(rec))
}

func classify(sources []Record) Status {
	if raw := stringIn(sources, statusKeys...); raw != "" {
		if status, ok := statusAliases[strings.ToUpper(strings.TrimSpace(raw))]; ok {
			return status
		}
	}
	current, okCurrent := numberIn(sources, currentLevelKeys...)
	required, okRequired := numberIn(sources, requiredLevelKeys...)
	if okCurrent && okRequired && current >= required {
		return StatusApproved
	}
	return StatusPending
}

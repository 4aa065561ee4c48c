package requests

// Status is the canonical lifecycle state of a purchase request.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Record is one undecoded JSON object as returned by the backend.
type Record map[string]any

// LineItem is a requested good or service.
type LineItem struct {
	ID        string  `json:"id,omitempty"`
	Name      string  `json:"name,omitempty"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// User identifies the approver shown next to a request.
type User struct {
	Name     string `json:"name,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

// Approval is one sign-off recorded on a request.
type Approval struct {
	Approver   string `json:"approver,omitempty"`
	Level      *int   `json:"level,omitempty"`
	ApprovedAt string `json:"approved_at,omitempty"`
}

// RequestView is the canonical request record rendered by the dashboards.
//
// JSON field names follow the backend so that a marshalled view fed back
// through Normalize yields the same view.
type RequestView struct {
	ID                     string     `json:"id"`
	Title                  string     `json:"title,omitempty"`
	Description            string     `json:"description,omitempty"`
	Amount                 *float64   `json:"amount,omitempty"`
	Status                 Status     `json:"status"`
	CreatedAt              string     `json:"created_at,omitempty"`
	Items                  []LineItem `json:"items"`
	CurrentApprovalLevel   *int       `json:"current_approval_level,omitempty"`
	RequiredApprovalLevels *int       `json:"required_approval_levels,omitempty"`
	ApprovedByUser         *User      `json:"approved_by_user,omitempty"`
	Approvals              []Approval `json:"approvals,omitempty"`

	// Set only when the record came from an approval entry.
	ApprovalID    string `json:"approval_id,omitempty"`
	ApprovalLevel *int   `json:"level,omitempty"`
	ApprovedAt    string `json:"approved_at,omitempty"`
}

// KnownAmount reports the amount and whether it could be derived at all.
func (v RequestView) KnownAmount() (float64, bool) {
	if v.Amount == nil {
		return 0, false
	}
	return *v.Amount, true
}

// AmountLabel renders the amount, or a dash when it is unknown.
func (v RequestView) AmountLabel() string {
	amount, ok := v.KnownAmount()
	return FormatMoney(amount, ok)
}

// ProgressLabel renders the approval progress, e.g. "1 / 2".
func (v RequestView) ProgressLabel() string {
	return FormatApprovalLevels(v.CurrentApprovalLevel, v.RequiredApprovalLevels)
}

// DashboardStats summarises a list of requests.
type DashboardStats struct {
	Total               int     `json:"total"`
	Pending             int     `json:"pending"`
	Approved            int     `json:"approved"`
	Rejected            int     `json:"rejected"`
	TotalApprovedAmount float64 `json:"total_approved_amount"`
}

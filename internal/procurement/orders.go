package procurement

import (
	"strings"

	"github.com/medlink/medlink/internal/requests"
)

// OrderView is a purchase order as listed by finance.
type OrderView struct {
	ID            string              `json:"id"`
	Number        string              `json:"number"`
	Title         string              `json:"title"`
	RequestID     string              `json:"request_id,omitempty"`
	RequestStatus string              `json:"request_status,omitempty"`
	Items         []requests.LineItem `json:"items"`
	Total         *float64            `json:"total,omitempty"`
	TotalLabel    string              `json:"total_label"`
	GeneratedAt   string              `json:"generated_at,omitempty"`
	Approver      string              `json:"approver,omitempty"`
}

// orderShapes finds the order list in paginated or bare responses.
var orderShapes = []requests.Shape{requests.Wrapped("results"), requests.Array()}

// NormalizeOrder converts one raw purchase order. Orders without an id are rejected.
func NormalizeOrder(rec requests.Record) (OrderView, bool) {
	id, ok := requests.Text(rec["id"])
	if !ok {
		return OrderView{}, false
	}
	data, _ := requests.AsRecord(rec["data"])
	if data == nil {
		data = requests.Record{}
	}
	pr, _ := requests.AsRecord(rec["purchase_request"])
	if pr == nil {
		pr = requests.Record{}
	}

	order := OrderView{
		ID:          id,
		Number:      requests.Placeholder,
		Items:       orderItems(data, pr),
		GeneratedAt: firstText(data["created_at"], rec["generated_at"], pr["created_at"]),
		Approver:    requests.DisplayName(rec["approver"]),
	}
	if number := nonBlank(rec["po_number"]); number != "" {
		order.Number = number
	}
	order.RequestID = firstText(pr["id"], data["purchase_request_id"])
	order.RequestStatus = nonBlank(pr["status"])
	order.Title = orderTitle(order, data, pr)

	if total, ok := orderTotal(data, pr, order.Items); ok {
		order.Total = &total
	}
	order.TotalLabel = requests.FormatMoney(derefOr(order.Total))
	return order, true
}

func orderTitle(order OrderView, data, pr requests.Record) string {
	if t := nonBlank(pr["title"]); t != "" {
		return t
	}
	if t := nonBlank(data["title"]); t != "" {
		return t
	}
	if ref := nonBlank(data["purchase_request_id"]); ref != "" {
		return "PR " + ref
	}
	if order.Number != requests.Placeholder {
		return order.Number
	}
	return "PO " + order.ID
}

func orderItems(data, pr requests.Record) []requests.LineItem {
	for _, src := range []requests.Record{data, pr} {
		if raw, ok := src["items"].([]any); ok {
			return requests.ParseItems(raw)
		}
	}
	return []requests.LineItem{}
}

func orderTotal(data, pr requests.Record, items []requests.LineItem) (float64, bool) {
	for _, v := range []any{data["total_amount"], data["total"], pr["total_amount"]} {
		if n, ok := requests.ParseAmount(v); ok {
			return n, true
		}
	}
	if len(items) == 0 {
		return 0, false
	}
	return requests.SumItems(items), true
}

func nonBlank(v any) string {
	s, ok := requests.Text(v)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func firstText(values ...any) string {
	for _, v := range values {
		if s := nonBlank(v); s != "" {
			return s
		}
	}
	return ""
}

func derefOr(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

// NormalizeOrders extracts every identifiable order from a response body.
func NormalizeOrders(raw any) []OrderView {
	entries, _, ok := requests.Extract(raw, orderShapes)
	if !ok {
		return []OrderView{}
	}
	out := make([]OrderView, 0, len(entries))
	for _, entry := range entries {
		rec, ok := requests.AsRecord(entry)
		if !ok {
			continue
		}
		if order, ok := NormalizeOrder(rec); ok {
			out = append(out, order)
		}
	}
	return out
}

package requests

import (
	"log/slog"
)

var (
	idKeys          = []string{"id", "request_id", "purchase_request_id"}
	titleKeys       = []string{"title", "name"}
	descriptionKeys = []string{"description", "details"}
	createdKeys     = []string{"created_at", "createdAt", "created"}

	itemIDKeys   = []string{"id", "item_id", "_id"}
	itemNameKeys = []string{"name", "item_name"}
)

// Normalize converts one raw request or approval entry into a RequestView.
// It reports false when no id can be resolved; such records must not be rendered.
func Normalize(rec Record) (RequestView, bool) {
	if rec == nil {
		return RequestView{}, false
	}
	sources := sourcesOf(rec)
	id, ok := resolveID(rec, sources)
	if !ok {
		return RequestView{}, false
	}

	view := RequestView{
		ID:                     id,
		Title:                  stringIn(sources, titleKeys...),
		Description:            stringIn(sources, descriptionKeys...),
		Status:                 classify(sources),
		CreatedAt:              stringIn(sources, createdKeys...),
		Items:                  normalizeItems(sources),
		CurrentApprovalLevel:   intIn(sources, currentLevelKeys...),
		RequiredApprovalLevels: intIn(sources, requiredLevelKeys...),
		ApprovedByUser:         approvedBy(sources),
		Approvals:              normalizeApprovals(sources),
	}
	if amount, ok := amountFrom(sources); ok {
		view.Amount = &amount
	}

	// Approval specific fields only ever live on the outer entry.
	outer := []Record{rec}
	if s, ok := scalarString(rec["approval_id"]); ok {
		view.ApprovalID = s
	}
	view.ApprovalLevel = intIn(outer, "level")
	if s, ok := scalarString(rec["approved_at"]); ok {
		view.ApprovedAt = s
	}
	return view, true
}

// resolveID reads the request id. On approval entries the outer id is the
// approval's own, so the nested request and the request reference come first.
func resolveID(rec Record, sources []Record) (string, bool) {
	_, isApproval := scalarString(rec["approval_id"])
	if len(sources) == 1 && !isApproval {
		id := stringIn(sources, idKeys...)
		return id, id != ""
	}
	outer := []Record{rec}
	id := ""
	if len(sources) > 1 {
		id = stringIn(sources[:1], idKeys...)
	}
	if id == "" {
		id = stringIn(outer, "purchase_request_id", "request_id")
	}
	if id == "" {
		id = stringIn(outer, "approval_id", "id")
	}
	return id, id != ""
}

func normalizeItems(sources []Record) []LineItem {
	raw, ok := itemsIn(sources)
	if !ok {
		return []LineItem{}
	}
	return ParseItems(raw)
}

// ParseItems normalizes a raw line item array. Entries that are not objects
// are skipped and unparsable factors become zero.
func ParseItems(raw []any) []LineItem {
	items := make([]LineItem, 0, len(raw))
	for _, entry := range raw {
		rec, ok := AsRecord(entry)
		if !ok {
			continue
		}
		one := []Record{rec}
		items = append(items, LineItem{
			ID:        stringIn(one, itemIDKeys...),
			Name:      stringIn(one, itemNameKeys...),
			Quantity:  factor(rec, quantityKeys),
			UnitPrice: factor(rec, unitPriceKeys),
		})
	}
	return items
}

// SumItems totals quantity times unit price over items.
func SumItems(items []LineItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Quantity * it.UnitPrice
	}
	return total
}

// DisplayName renders a user object the way approvers are shown: full name,
// then first and last name, then name or email.
func DisplayName(v any) string {
	rec, ok := AsRecord(v)
	if !ok {
		s, _ := scalarString(v)
		return s
	}
	user := toUser(rec)
	if user.FullName != "" {
		return user.FullName
	}
	return user.Name
}

func approvedBy(sources []Record) *User {
	for _, key := range []string{"approved_by_user", "approved_by"} {
		for _, src := range sources {
			rec, ok := AsRecord(src[key])
			if !ok {
				continue
			}
			user := toUser(rec)
			if user.Name == "" && user.FullName == "" {
				continue
			}
			return &user
		}
	}
	return nil
}

func toUser(rec Record) User {
	one := []Record{rec}
	full := stringIn(one, "full_name")
	if full == "" {
		full = joinName(stringIn(one, "first_name"), stringIn(one, "last_name"))
	}
	name := stringIn(one, "name")
	if name == "" {
		name = full
	}
	if name == "" {
		name = stringIn(one, "email")
	}
	return User{Name: name, FullName: full}
}

func normalizeApprovals(sources []Record) []Approval {
	for _, src := range sources {
		raw, ok := src["approvals"].([]any)
		if !ok {
			continue
		}
		approvals := make([]Approval, 0, len(raw))
		for _, entry := range raw {
			rec, ok := AsRecord(entry)
			if !ok {
				continue
			}
			one := []Record{rec}
			approvals = append(approvals, Approval{
				Approver:   approverName(rec["approver"]),
				Level:      intIn(one, "level"),
				ApprovedAt: stringIn(one, "approved_at"),
			})
		}
		if len(approvals) == 0 {
			return nil
		}
		return approvals
	}
	return nil
}

func approverName(v any) string {
	if rec, ok := AsRecord(v); ok {
		user := toUser(rec)
		if user.FullName != "" {
			return user.FullName
		}
		if user.Name != "" {
			return user.Name
		}
		s, _ := scalarString(rec["id"])
		return s
	}
	s, _ := scalarString(v)
	return s
}

// Normalizer turns whole response bodies into request lists.
type Normalizer struct {
	logger *slog.Logger
	shapes []Shape
}

// NewNormalizer builds a Normalizer. Without shapes DefaultShapes apply.
func NewNormalizer(logger *slog.Logger, shapes ...Shape) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	if len(shapes) == 0 {
		shapes = DefaultShapes
	}
	return &Normalizer{logger: logger, shapes: shapes}
}

// WithShapes returns a copy using a different extraction order.
func (n *Normalizer) WithShapes(shapes ...Shape) *Normalizer {
	return &Normalizer{logger: n.logger, shapes: shapes}
}

// List extracts and normalizes every identifiable record of a response body.
// Malformed bodies yield an empty list and a warning, never a panic.
func (n *Normalizer) List(raw any) []RequestView {
	entries, shape, ok := Extract(raw, n.shapes)
	if !ok {
		n.logger.Warn("unrecognised list payload", slog.String("type", payloadType(raw)))
		return []RequestView{}
	}
	views := make([]RequestView, 0, len(entries))
	dropped := 0
	for _, entry := range entries {
		rec, ok := AsRecord(entry)
		if !ok {
			dropped++
			continue
		}
		view, ok := Normalize(rec)
		if !ok {
			dropped++
			continue
		}
		views = append(views, view)
	}
	if dropped > 0 {
		n.logger.Warn("dropped records without id", slog.String("shape", shape.String()), slog.Int("dropped", dropped), slog.Int("kept", len(views)))
	}
	return views
}

var defaultNormalizer = NewNormalizer(nil)

// NormalizeList normalizes a response body using DefaultShapes.
func NormalizeList(raw any) []RequestView {
	return defaultNormalizer.List(raw)
}

func payloadType(raw any) string {
	switch raw.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case map[string]any, Record:
		return "object"
	case string:
		return "string"
	case bool:
		return "bool"
	default:
		return "number"
	}
}

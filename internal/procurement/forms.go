package procurement

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medlink/medlink/internal/requests"
)

var (
	// ErrSourceUnsupported means the edit form was wired without a way to load requests.
	ErrSourceUnsupported = errors.New("procurement: request source does not support loading requests")
	// ErrMissingID is returned when an edit form is requested without an id.
	ErrMissingID = errors.New("procurement: missing request id")
)

// DefaultRequiredLevels applies when a form carries no usable level.
const DefaultRequiredLevels = 1

// AvailableLevels are the approval depths a request may ask for.
var AvailableLevels = []int{1, 2}

// FormDefaults seeds the create form.
type FormDefaults struct {
	RequiredApprovalLevels int   `json:"required_approval_levels"`
	AvailableLevels        []int `json:"available_levels"`
}

// Defaults returns the create form defaults. No backend call is involved.
func Defaults() FormDefaults {
	return FormDefaults{
		RequiredApprovalLevels: DefaultRequiredLevels,
		AvailableLevels:        append([]int(nil), AvailableLevels...),
	}
}

// ItemInput is one line of a request form.
type ItemInput struct {
	ID        string  `json:"id,omitempty"`
	Name      string  `json:"name" validate:"required"`
	Quantity  float64 `json:"quantity" validate:"gt=0"`
	UnitPrice string  `json:"unit_price"`
}

// CreateForm is the new purchase request form.
type CreateForm struct {
	Title                  string      `json:"title" validate:"required"`
	Description            string      `json:"description"`
	RequiredApprovalLevels int         `json:"required_approval_levels" validate:"omitempty,oneof=1 2"`
	Items                  []ItemInput `json:"items" validate:"min=1,dive"`
}

// Normalize trims free text and applies the default approval depth.
func (f *CreateForm) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	for i := range f.Items {
		f.Items[i].Name = strings.TrimSpace(f.Items[i].Name)
	}
	if f.RequiredApprovalLevels == 0 {
		f.RequiredApprovalLevels = DefaultRequiredLevels
	}
}

// FieldErrors maps form fields to validation messages.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	return "procurement: invalid form"
}

func validationErrors(err error) FieldErrors {
	out := FieldErrors{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["form"] = err.Error()
		return out
	}
	for _, fieldErr := range verrs {
		out[fieldErr.Namespace()] = fieldErr.Error()
	}
	return out
}

// TotalAmount sums quantity times unit price with unparsable prices as zero.
func TotalAmount(items []ItemInput) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(decimal.NewFromFloat(it.Quantity).Mul(parsePrice(it.UnitPrice)))
	}
	return total
}

func parsePrice(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(strings.ReplaceAll(s, ",", "")))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Payload renders the create form as the backend expects it.
func (f CreateForm) Payload() map[string]any {
	items := make([]map[string]any, 0, len(f.Items))
	for _, it := range f.Items {
		items = append(items, map[string]any{
			"name":       it.Name,
			"quantity":   it.Quantity,
			"unit_price": it.UnitPrice,
		})
	}
	return map[string]any{
		"title":                    f.Title,
		"description":              f.Description,
		"total_amount":             TotalAmount(f.Items).StringFixed(2),
		"required_approval_levels": f.RequiredApprovalLevels,
		"items":                    items,
	}
}

// RequestSource loads a request for editing.
type RequestSource interface {
	Request(ctx context.Context, id string) (requests.RequestView, error)
}

// EditItem is a form line that remembers the backend id it came from.
type EditItem struct {
	ItemInput
	APIID string `json:"api_id,omitempty"`
}

// EditForm is an existing request loaded for editing.
type EditForm struct {
	ID                     string     `json:"id"`
	Title                  string     `json:"title" validate:"required"`
	Description            string     `json:"description"`
	Status                 string     `json:"status,omitempty"`
	RequiredApprovalLevels int        `json:"required_approval_levels"`
	Items                  []EditItem `json:"items" validate:"min=1,dive"`
	TotalLabel             string     `json:"total_label,omitempty"`
}

// LoadEditForm fetches id through src and shapes it for editing. A missing
// approval depth falls back to DefaultRequiredLevels.
func LoadEditForm(ctx context.Context, src RequestSource, id string) (EditForm, error) {
	if src == nil {
		return EditForm{}, ErrSourceUnsupported
	}
	if id == "" {
		return EditForm{}, ErrMissingID
	}
	view, err := src.Request(ctx, id)
	if err != nil {
		return EditForm{}, err
	}
	form := EditForm{
		ID:                     view.ID,
		Title:                  view.Title,
		Description:            view.Description,
		Status:                 string(view.Status),
		RequiredApprovalLevels: DefaultRequiredLevels,
		Items:                  make([]EditItem, 0, len(view.Items)),
	}
	if view.RequiredApprovalLevels != nil {
		form.RequiredApprovalLevels = *view.RequiredApprovalLevels
	}
	for _, it := range view.Items {
		local := it.ID
		if local == "" {
			local = uuid.NewString()
		}
		// A missing quantity parses as zero; the form starts it at one.
		quantity := it.Quantity
		if quantity == 0 {
			quantity = 1
		}
		form.Items = append(form.Items, EditItem{
			ItemInput: ItemInput{
				ID:        local,
				Name:      it.Name,
				Quantity:  quantity,
				UnitPrice: decimal.NewFromFloat(it.UnitPrice).String(),
			},
			APIID: it.ID,
		})
	}
	form.TotalLabel = form.totalLabel()
	return form, nil
}

func (f EditForm) inputs() []ItemInput {
	out := make([]ItemInput, 0, len(f.Items))
	for _, it := range f.Items {
		out = append(out, it.ItemInput)
	}
	return out
}

func (f EditForm) totalLabel() string {
	total, _ := TotalAmount(f.inputs()).Float64()
	return requests.FormatMoney(total, true)
}

// Patch renders the edit form as a PATCH body.
func (f EditForm) Patch() map[string]any {
	levels := f.RequiredApprovalLevels
	if levels <= 0 {
		levels = DefaultRequiredLevels
	}
	items := make([]map[string]any, 0, len(f.Items))
	for _, it := range f.Items {
		price, _ := parsePrice(it.UnitPrice).Float64()
		item := map[string]any{
			"name":       strings.TrimSpace(it.Name),
			"quantity":   it.Quantity,
			"unit_price": price,
		}
		if it.APIID != "" {
			item["id"] = it.APIID
		}
		items = append(items, item)
	}
	return map[string]any{
		"title":                    strings.TrimSpace(f.Title),
		"description":              strings.TrimSpace(f.Description),
		"required_approval_levels": levels,
		"items":                    items,
	}
}

package procurement

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlink/medlink/internal/requests"
)

func decode(t *testing.T, body string) any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewBufferString(body))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

func record(t *testing.T, body string) requests.Record {
	t.Helper()
	rec, ok := requests.AsRecord(decode(t, body))
	require.True(t, ok)
	return rec
}

func TestNormalizeOrderFallbackChains(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		number     string
		title      string
		totalLabel string
		generated  string
	}{
		{
			name:       "request fields",
			body:       `{"id":3,"po_number":" PO-0003 ","purchase_request":{"id":9,"title":"Gloves","total_amount":"12,000","created_at":"2024-02-01"}}`,
			number:     "PO-0003",
			title:      "Gloves",
			totalLabel: "Frw 12,000",
			generated:  "2024-02-01",
		},
		{
			name:       "data fields win",
			body:       `{"id":3,"data":{"title":"Masks","total":"500","created_at":"2024-03-01"},"generated_at":"2024-03-02","purchase_request":{"total_amount":1}}`,
			number:     requests.Placeholder,
			title:      "Masks",
			totalLabel: "Frw 500",
			generated:  "2024-03-01",
		},
		{
			name:       "request reference title",
			body:       `{"id":4,"po_number":"","data":{"purchase_request_id":12}}`,
			number:     requests.Placeholder,
			title:      "PR 12",
			totalLabel: requests.Placeholder,
		},
		{
			name:       "number as title",
			body:       `{"id":5,"po_number":"PO-5","generated_at":"2024-04-01"}`,
			number:     "PO-5",
			title:      "PO-5",
			totalLabel: requests.Placeholder,
			generated:  "2024-04-01",
		},
		{
			name:       "id as title and items total",
			body:       `{"id":6,"data":{"items":[{"name":"Syringe","quantity":10,"unit_price":"2.5"}]}}`,
			number:     requests.Placeholder,
			title:      "PO 6",
			totalLabel: "Frw 25",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, ok := NormalizeOrder(record(t, tt.body))
			require.True(t, ok)
			assert.Equal(t, tt.number, order.Number)
			assert.Equal(t, tt.title, order.Title)
			assert.Equal(t, tt.totalLabel, order.TotalLabel)
			assert.Equal(t, tt.generated, order.GeneratedAt)
		})
	}
}

func TestNormalizeOrderItemsAndApprover(t *testing.T) {
	order, ok := NormalizeOrder(record(t, `{
		"id": 8,
		"approver": {"full_name": "Ada Lovelace", "name": "ada"},
		"purchase_request": {"id": 2, "status": "APPROVED", "items": [{"id": 1, "name": "Tape", "quantity": 2, "unit_price": 3}]}
	}`))
	require.True(t, ok)
	assert.Equal(t, "Ada Lovelace", order.Approver)
	assert.Equal(t, "2", order.RequestID)
	assert.Equal(t, "APPROVED", order.RequestStatus)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Tape", order.Items[0].Name)
	require.NotNil(t, order.Total)
	assert.InDelta(t, 6, *order.Total, 0.0001)
}

func TestNormalizeOrdersSkipsUnidentified(t *testing.T) {
	orders := NormalizeOrders(decode(t, `{"results":[{"id":1},{"po_number":"PO-2"},"junk"]}`))
	require.Len(t, orders, 1)
	assert.Equal(t, "1", orders[0].ID)

	assert.Empty(t, NormalizeOrders(decode(t, `{"detail":"nothing"}`)))
	assert.Len(t, NormalizeOrders(decode(t, `[{"id":1},{"id":2}]`)), 2)
}

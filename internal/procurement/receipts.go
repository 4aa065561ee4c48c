package procurement

import (
	"io"

	"github.com/medlink/medlink/internal/requests"
)

// Receipt is a vendor document uploaded against a request.
type Receipt struct {
	ID         string `json:"id"`
	File       string `json:"file,omitempty"`
	Vendor     string `json:"vendor,omitempty"`
	Note       string `json:"note,omitempty"`
	Validated  bool   `json:"validated"`
	UploadedAt string `json:"uploaded_at,omitempty"`
	RequestID  string `json:"purchase_request_id,omitempty"`
}

// ReceiptUpload is the multipart submission for a receipt.
type ReceiptUpload struct {
	Vendor   string
	Note     string
	Filename string
	File     io.Reader
}

var receiptShapes = []requests.Shape{
	requests.Array(),
	requests.Wrapped("results"),
	requests.Wrapped("receipts"),
	requests.Wrapped("data"),
}

func parseReceipt(v any) (Receipt, bool) {
	rec, ok := requests.AsRecord(v)
	if !ok {
		return Receipt{}, false
	}
	id, ok := requests.Text(rec["id"])
	if !ok {
		return Receipt{}, false
	}
	validated, _ := rec["validated"].(bool)
	return Receipt{
		ID:         id,
		File:       nonBlank(rec["file"]),
		Vendor:     nonBlank(rec["vendor"]),
		Note:       nonBlank(rec["note"]),
		Validated:  validated,
		UploadedAt: firstText(rec["uploaded_at"], rec["created_at"]),
		RequestID:  firstText(rec["purchase_request_id"], rec["purchase_request"]),
	}, true
}

func parseReceipts(raw any) []Receipt {
	entries, _, ok := requests.Extract(raw, receiptShapes)
	if !ok {
		return []Receipt{}
	}
	out := make([]Receipt, 0, len(entries))
	for _, entry := range entries {
		if r, ok := parseReceipt(entry); ok {
			out = append(out, r)
		}
	}
	return out
}

package procurement

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlink/medlink/internal/gateway"
	"github.com/medlink/medlink/internal/requests"
)

type capture struct {
	method      string
	path        string
	contentType string
	body        []byte
}

type fakeAPI struct {
	mu       sync.Mutex
	status   map[string]int
	bodies   map[string]string
	captured []capture
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{status: map[string]int{}, bodies: map[string]string{}}
}

func (f *fakeAPI) on(key string, status int, body string) {
	f.status[key] = status
	f.bodies[key] = body
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.captured = append(f.captured, capture{method: r.Method, path: r.URL.Path, contentType: r.Header.Get("Content-Type"), body: body})
	status, ok := f.status[key]
	payload := f.bodies[key]
	f.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Not found."}`)
		return
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, payload)
}

func (f *fakeAPI) last() capture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.captured[len(f.captured)-1]
}

type bumpCounter struct{ n int }

func (b *bumpCounter) Bump(context.Context) error {
	b.n++
	return nil
}

type stubUpdater struct {
	id    string
	patch map[string]any
	ok    bool
}

func (u *stubUpdater) UpdateRequest(_ context.Context, id string, patch map[string]any, list []requests.RequestView) (requests.RequestView, []requests.RequestView, bool) {
	u.id, u.patch = id, patch
	return requests.RequestView{ID: id, Title: "updated"}, list, u.ok
}

type noticeLog struct{ messages []string }

func (n *noticeLog) Notify(_ context.Context, kind, message string) {
	n.messages = append(n.messages, kind+":"+message)
}

type harness struct {
	api     *fakeAPI
	bumps   *bumpCounter
	updater *stubUpdater
	notices *noticeLog
	router  http.Handler
}

func newHarness(t *testing.T, source RequestSource) *harness {
	t.Helper()
	api := newFakeAPI()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client := gateway.NewClient(srv.URL, 5*time.Second, gateway.NewMemoryTokens("token-1"))

	h := &harness{api: api, bumps: &bumpCounter{}, updater: &stubUpdater{ok: true}, notices: &noticeLog{}}
	svc := NewService(nil, client, h.bumps)
	handler := NewHandler(svc.logger, svc, source, h.updater, h.notices)
	r := chi.NewRouter()
	r.Route("/api", handler.MountRoutes)
	h.router = r
	return h
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func TestListAndDeleteOrders(t *testing.T) {
	h := newHarness(t, nil)
	h.api.on("GET /purchases/purchase-orders/", http.StatusOK, `{"results":[{"id":1,"po_number":"PO-1","data":{"total_amount":"2,500"}}]}`)
	h.api.on("DELETE /purchases/purchase-orders/1/", http.StatusNoContent, ``)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/purchase-orders", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var orders []OrderView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, "Frw 2,500", orders[0].TotalLabel)

	rec = h.do(httptest.NewRequest(http.MethodDelete, "/api/purchase-orders/1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, h.bumps.n)
	assert.Equal(t, []string{"success:Purchase order deleted"}, h.notices.messages)
}

func TestGetOrderNotFound(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/purchase-orders/77", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	h.api.on("GET /purchases/purchase-orders/78/", http.StatusOK, `{"po_number":"PO-78"}`)
	rec = h.do(httptest.NewRequest(http.MethodGet, "/api/purchase-orders/78", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateRequestValidatesAndPosts(t *testing.T) {
	h := newHarness(t, nil)
	h.api.on("POST /purchases/requests/", http.StatusCreated, `{"id":42,"title":"Gloves","total_amount":"30.00","status":"pending"}`)

	rec := h.do(httptest.NewRequest(http.MethodPost, "/api/requests", bytes.NewBufferString(`{"title":" ","items":[]}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var invalid struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &invalid))
	assert.Contains(t, invalid.Fields, "CreateForm.Title")
	assert.Contains(t, invalid.Fields, "CreateForm.Items")

	rec = h.do(httptest.NewRequest(http.MethodPost, "/api/requests", bytes.NewBufferString(
		`{"title":"Gloves","items":[{"name":"Gloves","quantity":3,"unit_price":"10"}]}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sent map[string]any
	require.NoError(t, json.Unmarshal(h.api.last().body, &sent))
	assert.Equal(t, "30.00", sent["total_amount"])
	assert.EqualValues(t, 1, sent["required_approval_levels"])

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "42", created["id"])
	assert.Equal(t, "Frw 30", created["amount_label"])
	assert.Equal(t, 1, h.bumps.n)
}

func TestCreateRequestRejectsBadItem(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(httptest.NewRequest(http.MethodPost, "/api/requests", bytes.NewBufferString(
		`{"title":"Gloves","items":[{"name":"","quantity":0}]}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "CreateForm.Items[0].Name")
	assert.Contains(t, rec.Body.String(), "CreateForm.Items[0].Quantity")
}

func TestEditFormRoundTrip(t *testing.T) {
	h := newHarness(t, stubSource{view: requests.RequestView{
		ID:    "5",
		Title: "Beds",
		Items: []requests.LineItem{{ID: "9", Name: "Bed", Quantity: 1, UnitPrice: 100}},
	}})

	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/requests/5/form", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var form EditForm
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &form))
	assert.Equal(t, 1, form.RequiredApprovalLevels)

	payload, err := json.Marshal(form)
	require.NoError(t, err)
	rec = h.do(httptest.NewRequest(http.MethodPut, "/api/requests/5", bytes.NewReader(payload)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "5", h.updater.id)
	items := h.updater.patch["items"].([]map[string]any)
	assert.Equal(t, "9", items[0]["id"])
}

func TestEditFormWithoutSource(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/requests/5/form", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSaveEditFormUpdateFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.updater.ok = false
	rec := h.do(httptest.NewRequest(http.MethodPut, "/api/requests/5", bytes.NewBufferString(
		`{"title":"Beds","items":[{"name":"Bed","quantity":1,"unit_price":"5"}]}`)))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSubmitReceipt(t *testing.T) {
	h := newHarness(t, nil)
	h.api.on("POST /purchases/requests/3/submit-receipt/", http.StatusCreated,
		`{"id":11,"vendor":"Acme","file":"/media/r.pdf","validated":false,"purchase_request_id":3}`)
	h.api.on("GET /purchases/requests/3/receipts/", http.StatusOK, `[{"id":11,"vendor":"Acme"},{"vendor":"no id"}]`)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("vendor", " Acme "))
	part, err := writer.CreateFormFile("file", "r.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/requests/3/receipts", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := h.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var receipt Receipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	assert.Equal(t, "11", receipt.ID)
	assert.Equal(t, "3", receipt.RequestID)

	sent := h.api.last()
	assert.Contains(t, sent.contentType, "multipart/form-data")
	assert.Contains(t, string(sent.body), "%PDF")
	assert.NotContains(t, string(sent.body), `name="note"`)

	rec = h.do(httptest.NewRequest(http.MethodGet, "/api/requests/3/receipts", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var receipts []Receipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipts))
	assert.Len(t, receipts, 1)
}

func TestSubmitReceiptRequiresFileAndVendor(t *testing.T) {
	h := newHarness(t, nil)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("vendor", "Acme"))
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/requests/3/receipts", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := h.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrMissingFile.Error())

	rec = h.do(httptest.NewRequest(http.MethodPost, "/api/requests/3/receipts", bytes.NewBufferString("plain")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReceiptsBackendFailureNotifies(t *testing.T) {
	h := newHarness(t, nil)
	h.api.on("GET /purchases/requests/3/receipts/", http.StatusInternalServerError, `{"detail":"db down"}`)
	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/requests/3/receipts", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	require.NotEmpty(t, h.notices.messages)
	assert.Equal(t, "error:db down", h.notices.messages[0])
}

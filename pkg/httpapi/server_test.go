package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanpawarit/chative-concierge/agent/agents/orchestrator"
	"github.com/tanpawarit/chative-concierge/agent/catalog"
	"github.com/tanpawarit/chative-concierge/agent/intent"
	"github.com/tanpawarit/chative-concierge/agent/outlet"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
	"github.com/tanpawarit/chative-concierge/agent/tool"
)

type downStore struct {
	*outlet.MemoryStore
}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func newTestServer(t *testing.T, outlets outlet.Store) http.Handler {
	t.Helper()

	cat, err := catalog.Load(catalog.Config{})
	require.NoError(t, err)
	if outlets == nil {
		outlets = outlet.NewMemoryStore(outlet.SeedRecords(), 10)
	}
	store, err := statex.NewMemoryStore(statex.Config{HistoryWindow: 5})
	require.NoError(t, err)
	o, err := orchestrator.New(store, intent.Classifier{}, tool.NewConciergeGateway(cat, outlets), orchestrator.Config{})
	require.NoError(t, err)

	srv, err := New(Config{}, o, cat, outlets)
	require.NoError(t, err)
	return srv.Routes()
}

func postChat(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func chatBody(t *testing.T, userID, message string) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(chatRequest{UserID: userID, Message: message}))
	return buf.String()
}

func TestChat(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil)
	rec, out := postChat(t, h, chatBody(t, "u1", "what is 15 + 25 * 2"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "15 + 25 * 2 = 65", out["response"])
	assert.Equal(t, "calculate", out["intent"])
	assert.Equal(t, "answer", out["kind"])
	assert.Equal(t, []any{"calculator"}, out["tools_used"])
}

func TestChatTwoStepOutletSearch(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil)
	_, first := postChat(t, h, chatBody(t, "u1", "do you have outlets"))
	assert.Equal(t, "clarification", first["kind"])
	assert.Equal(t, []any{}, first["tools_used"])

	_, second := postChat(t, h, chatBody(t, "u1", "Klang"))
	assert.Equal(t, "answer", second["kind"])
	assert.Contains(t, second["response"], "Klang Main")
}

func TestChatToolErrorIsStillOK(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil)
	rec, out := postChat(t, h, chatBody(t, "u1", "1/0"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "error", out["kind"])
	assert.Equal(t, "division_by_zero", out["error_code"])
}

func TestChatOverflowIsStructured(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil)
	huge := "1" + strings.Repeat("0", 300)
	rec, out := postChat(t, h, chatBody(t, "u1", huge+" * "+huge))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "error", out["kind"])
	assert.Equal(t, "invalid_expression", out["error_code"])
	assert.NotEmpty(t, out["response"])
}

func TestWriteJSONEncodingFailure(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]any{"result": math.Inf(1)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.NotEmpty(t, out["error"])
}

func TestChatValidation(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil)
	tests := map[string]string{
		"malformed json": `{"user_id": "u1", "message":`,
		"missing user":   chatBody(t, "", "hello"),
		"blank message":  chatBody(t, "u1", "   "),
		"long user id":   chatBody(t, strings.Repeat("u", 101), "hello"),
		"long message":   chatBody(t, "u1", strings.Repeat("a", 1001)),
		"script tag":     chatBody(t, "u1", "hi <SCRIPT>alert(1)</script>"),
		"php tag":        chatBody(t, "u1", "<?php echo 1; ?>"),
	}
	for name, body := range tests {
		rec, out := postChat(t, h, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
		assert.NotEmpty(t, out["error"], name)
	}
}

func TestProducts(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/products?query=show+all+products", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out productsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Results, 5)
	assert.Equal(t, "prod_001", out.Results[0].Item.ID)
	assert.Equal(t, "prod_005", out.Results[4].Item.ID)
}

func TestProductsQueryLimits(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil)
	for _, target := range []string{"/products", "/products?query=" + strings.Repeat("a", 201)} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestOutlets(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/outlets?query=outlets+with+wifi", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var out outletsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, "SS 2", out.Results[0].Name)
}

func TestOutletsUnsupportedShape(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/outlets?query=tell+me+a+joke", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionSnapshotAndReset(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil)
	postChat(t, h, chatBody(t, "u1", "outlets in Klang"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/u1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var conv statex.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.Len(t, conv.History, 2)
	assert.Equal(t, "Klang", conv.Slots["location"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions/u1/reset", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/u1", nil))
	var fresh statex.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fresh))
	assert.Empty(t, fresh.History)
	assert.Empty(t, fresh.Slots)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestServer(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = httptest.NewRecorder()
	down := downStore{outlet.NewMemoryStore(outlet.SeedRecords(), 10)}
	newTestServer(t, down).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"outlets":"unavailable"`)
}

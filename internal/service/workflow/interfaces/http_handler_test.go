package interfaces

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"memberflow/internal/pkg/authctx"
	"memberflow/internal/service/workflow/application"
	"memberflow/internal/service/workflow/infrastructure"
)

const staffEmail = "desk@example.com"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := application.NewWorkflowService(infrastructure.NewMemoryItemRepository(), nil, noop.NewTracerProvider().Tracer("test"), time.Second)

	r := chi.NewRouter()
	r.Use(authctx.Middleware(authctx.NewRoleResolver(nil, []string{staffEmail}), "internal-secret"))
	NewWorkflowHandler(svc).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path string, headers map[string]string, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func customer(id string) map[string]string {
	return map[string]string{authctx.HeaderUserID: id}
}

var staffHeaders = map[string]string{authctx.HeaderUserID: "s-1", authctx.HeaderUserEmail: staffEmail}

func decodeItem(t *testing.T, resp *http.Response) application.ItemResponse {
	t.Helper()
	var v application.ItemResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestOrderFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	resp := call(t, srv, http.MethodPost, "/items", customer("u-1"), `{"kind":"order","label":"Two flat whites"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	order := decodeItem(t, resp)
	assert.Equal(t, "NEW", order.Status)
	assert.Equal(t, "Pending", order.Display.Label)

	resp = call(t, srv, http.MethodPost, "/items/"+order.ID+"/transition", customer("u-1"), `{"status":"Ready"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = call(t, srv, http.MethodPost, "/items/"+order.ID+"/transition", staffHeaders, `{"status":"accepted"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Accepted", decodeItem(t, resp).Display.Label)

	resp = call(t, srv, http.MethodPost, "/items/"+order.ID+"/transition", customer("u-2"), `{"status":"cancelled"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = call(t, srv, http.MethodPost, "/items/"+order.ID+"/transition", customer("u-2"), `{"status":"accepted"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, srv, http.MethodGet, "/items/"+order.ID, customer("u-2"), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = call(t, srv, http.MethodGet, "/items?kind=order", customer("u-1"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var mine []application.ItemResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&mine))
	assert.Len(t, mine, 1)
}

func TestSystemActorViaInternalToken(t *testing.T) {
	srv := newTestServer(t)

	resp := call(t, srv, http.MethodPost, "/items", customer("u-1"), `{"kind":"document","label":"Q3 invoice"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	doc := decodeItem(t, resp)

	resp = call(t, srv, http.MethodPost, "/items/"+doc.ID+"/transition",
		map[string]string{authctx.HeaderInternalToken: "internal-secret"}, `{"status":"archived"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ARCHIVED", decodeItem(t, resp).Status)
}

func TestRecentActivity(t *testing.T) {
	srv := newTestServer(t)

	resp := call(t, srv, http.MethodPost, "/items", customer("u-1"), `{"kind":"ticket","label":"Where is my refund?"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = call(t, srv, http.MethodGet, "/admin/activity", customer("u-1"), "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = call(t, srv, http.MethodGet, "/admin/activity?kind=ticket&limit=5", staffHeaders, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []application.ActivityEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Just now", entries[0].Age)

	resp = call(t, srv, http.MethodGet, "/admin/activity?limit=-1", staffHeaders, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = call(t, srv, http.MethodGet, "/admin/activity?status=shipped", staffHeaders, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitValidation(t *testing.T) {
	srv := newTestServer(t)

	resp := call(t, srv, http.MethodPost, "/items", customer("u-1"), `{"kind":"invoice","label":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = call(t, srv, http.MethodPost, "/items", customer("u-1"), `{"kind":"ticket","label":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

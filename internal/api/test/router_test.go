package test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/coravoice/call-gateway/internal/api"
	"github.com/coravoice/call-gateway/internal/api/handlers"
	"github.com/coravoice/call-gateway/internal/registry"
	"github.com/coravoice/call-gateway/internal/tenant"
	"github.com/coravoice/call-gateway/internal/timeline"
	"github.com/coravoice/call-gateway/internal/tools"
	"github.com/coravoice/call-gateway/pkg/env"
	"github.com/coravoice/call-gateway/pkg/notify"
	"github.com/coravoice/call-gateway/pkg/token"
)

// buildTestRouter wires the full gateway on in-memory repositories, no
// Redis or MongoDB required.
func buildTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	cfg := &env.Config{
		AppEnv:             "test",
		JWTSecret:          "test-secret",
		JWTIssuer:          "test-issuer",
		JWTAudience:        "test-audience",
		TokenTTLMin:        15,
		ToolTimeoutMs:      1000,
		CallRateLimitRPM:   600,
		DefaultTenantID:    "default",
		DefaultTenantName:  "Ray Richards Real Estate",
		DefaultAgentID:     "agt_ray",
		DefaultAgentName:   "Ray Richards",
		BrandName:          "CORA",
		CORSAllowedOrigins: "*",
	}

	tokens := token.NewService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, log)
	registrySvc := registry.NewService(registry.NewMemoryRepository(), log)
	timelineSvc := timeline.NewService(timeline.NewMemoryRepository(), log)
	tenantSvc := tenant.NewService(nil, cfg, log)

	dispatcher := tools.NewDispatcher(
		tools.NewMemoryIdempotencyStore(),
		timelineSvc,
		time.Duration(cfg.ToolTimeoutMs)*time.Millisecond,
		log,
	)
	tools.RegisterDefaults(dispatcher, tools.Stores{
		Listings: &tools.MemoryListingStore{Listings: []map[string]interface{}{
			{"id": "prop_1", "city": "Austin", "price": 450000.0, "beds": 3.0, "baths": 2.0, "status": "active"},
			{"id": "prop_2", "city": "Austin", "price": 675000.0, "beds": 4.0, "baths": 3.0, "status": "active"},
		}},
		Bookings:  &tools.MemoryBookingStore{},
		Leads:     &tools.MemoryLeadStore{},
		Callbacks: &tools.MemoryCallbackStore{},
	}, notify.Noop{}, log)

	handler := handlers.NewHandler(cfg, tokens, registrySvc, timelineSvc, dispatcher, tenantSvc, nil, nil)
	return api.NewRouter(cfg, handler, tokens, nil)
}

func doJSON(t *testing.T, router *gin.Engine, method, path, bearer string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response %q: %v", w.Body.String(), err)
	}
	return result
}

func createCall(t *testing.T, router *gin.Engine, sessionID string) (callID, bearer, tenantID string) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/calls", "", map[string]interface{}{
		"external_session_id": sessionID,
		"caller_number":       "+15125550142",
	})
	if w.Code != http.StatusCreated && w.Code != http.StatusOK {
		t.Fatalf("create call status = %d, body %s", w.Code, w.Body.String())
	}
	res := decode(t, w)
	callID = res["call_id"].(string)
	bearer = res["token"].(string)
	tenantID = res["tenant"].(map[string]interface{})["id"].(string)
	return callID, bearer, tenantID
}

func TestCreateCall_ReturnsTokenAndTenantDefaults(t *testing.T) {
	router := buildTestRouter()

	w := doJSON(t, router, http.MethodPost, "/api/calls", "", map[string]interface{}{
		"external_session_id": "CA-create-1",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", w.Code, w.Body.String())
	}

	res := decode(t, w)
	if res["call_id"] == "" || res["token"] == "" {
		t.Fatalf("missing call_id or token in %v", res)
	}
	tenantRes := res["tenant"].(map[string]interface{})
	if tenantRes["name"] != "Ray Richards Real Estate" {
		t.Errorf("tenant name = %v", tenantRes["name"])
	}
	if tenantRes["brand_name"] != "CORA" {
		t.Errorf("brand = %v", tenantRes["brand_name"])
	}
	agentRes := res["agent"].(map[string]interface{})
	if agentRes["id"] != "agt_ray" {
		t.Errorf("agent id = %v", agentRes["id"])
	}
}

func TestCreateCall_IdempotentOnSessionID(t *testing.T) {
	router := buildTestRouter()

	first := decode(t, doJSON(t, router, http.MethodPost, "/api/calls", "", map[string]interface{}{
		"external_session_id": "CA-idem",
	}))

	w := doJSON(t, router, http.MethodPost, "/api/calls", "", map[string]interface{}{
		"external_session_id": "CA-idem",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("repeat status = %d, want 200", w.Code)
	}
	second := decode(t, w)

	if first["call_id"] != second["call_id"] {
		t.Errorf("call ids differ: %v vs %v", first["call_id"], second["call_id"])
	}
	if first["token"] == second["token"] {
		t.Error("repeat registration did not mint a fresh token")
	}
}

func TestCreateCall_RequiresSessionID(t *testing.T) {
	router := buildTestRouter()

	w := doJSON(t, router, http.MethodPost, "/api/calls", "", map[string]interface{}{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content type = %q, want problem+json", ct)
	}
}

func TestAppendEvent_TurnAndSkip(t *testing.T) {
	router := buildTestRouter()
	callID, bearer, _ := createCall(t, router, "CA-events")

	w := doJSON(t, router, http.MethodPost, "/api/calls/"+callID+"/events", bearer, map[string]interface{}{
		"type":      "turn",
		"role":      "caller",
		"text":      "hello",
		"timestamp": time.Now().Format(time.RFC3339),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	res := decode(t, w)
	if res["seq"].(float64) != 1 {
		t.Errorf("seq = %v, want 1", res["seq"])
	}

	w = doJSON(t, router, http.MethodPost, "/api/calls/"+callID+"/events", bearer, map[string]interface{}{
		"type": "prompt",
		"text": "system instructions",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("skip status = %d", w.Code)
	}
	if res := decode(t, w); res["skipped"] != true {
		t.Errorf("non-turn event not skipped: %v", res)
	}
}

func TestAppendEvent_AuthFailures(t *testing.T) {
	router := buildTestRouter()
	callID, _, _ := createCall(t, router, "CA-auth-1")
	_, otherBearer, _ := createCall(t, router, "CA-auth-2")

	turn := map[string]interface{}{"type": "turn", "text": "hi"}

	if w := doJSON(t, router, http.MethodPost, "/api/calls/"+callID+"/events", "", turn); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", w.Code)
	}
	if w := doJSON(t, router, http.MethodPost, "/api/calls/"+callID+"/events", "garbage", turn); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", w.Code)
	}
	if w := doJSON(t, router, http.MethodPost, "/api/calls/"+callID+"/events", otherBearer, turn); w.Code != http.StatusForbidden {
		t.Errorf("other call's token: status = %d, want 403", w.Code)
	}
}

func TestAppendEvent_BadTimestamp(t *testing.T) {
	router := buildTestRouter()
	callID, bearer, _ := createCall(t, router, "CA-ts")

	w := doJSON(t, router, http.MethodPost, "/api/calls/"+callID+"/events", bearer, map[string]interface{}{
		"type":      "turn",
		"text":      "hi",
		"timestamp": "yesterday",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestExecuteTool_Search(t *testing.T) {
	router := buildTestRouter()
	callID, bearer, tenantID := createCall(t, router, "CA-tool")

	w := doJSON(t, router, http.MethodPost, "/api/tools/execute", bearer, map[string]interface{}{
		"call_id":   callID,
		"tenant_id": tenantID,
		"tool":      "search_properties",
		"args":      map[string]interface{}{"city": "Austin", "beds": 3},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	res := decode(t, w)
	if res["ok"] != true {
		t.Fatalf("envelope not ok: %v", res)
	}
	data := res["data"].(map[string]interface{})
	if data["count"].(float64) != 2 {
		t.Errorf("count = %v, want 2", data["count"])
	}
}

func TestExecuteTool_MismatchedCallForbidden(t *testing.T) {
	router := buildTestRouter()
	_, bearer, tenantID := createCall(t, router, "CA-mismatch-1")
	otherCallID, _, _ := createCall(t, router, "CA-mismatch-2")

	w := doJSON(t, router, http.MethodPost, "/api/tools/execute", bearer, map[string]interface{}{
		"call_id":   otherCallID,
		"tenant_id": tenantID,
		"tool":      "search_properties",
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403; body %s", w.Code, w.Body.String())
	}
}

func TestExecuteTool_UnknownToolEnvelope(t *testing.T) {
	router := buildTestRouter()
	callID, bearer, tenantID := createCall(t, router, "CA-unknown-tool")

	w := doJSON(t, router, http.MethodPost, "/api/tools/execute", bearer, map[string]interface{}{
		"call_id":   callID,
		"tenant_id": tenantID,
		"tool":      "launch_rocket",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 envelope", w.Code)
	}
	res := decode(t, w)
	errObj := res["error"].(map[string]interface{})
	if errObj["kind"] != "NOT_FOUND" {
		t.Errorf("kind = %v, want NOT_FOUND", errObj["kind"])
	}
}

func TestExecuteTool_IdempotentReplay(t *testing.T) {
	router := buildTestRouter()
	callID, bearer, tenantID := createCall(t, router, "CA-replay")

	payload := map[string]interface{}{
		"call_id":         callID,
		"tenant_id":       tenantID,
		"tool":            "book_showing",
		"idempotency_key": "book-1",
		"args": map[string]interface{}{
			"propertyId":  "prop_1",
			"datetimeISO": "2026-09-01T15:00:00Z",
			"contact":     map[string]interface{}{"name": "Dana", "phone": "+15125550142"},
		},
	}

	first := doJSON(t, router, http.MethodPost, "/api/tools/execute", bearer, payload)
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d, body %s", first.Code, first.Body.String())
	}

	second := doJSON(t, router, http.MethodPost, "/api/tools/execute", bearer, payload)
	if second.Code != http.StatusOK {
		t.Fatalf("replay status = %d", second.Code)
	}
	if second.Header().Get("Idempotent-Replay") != "true" {
		t.Error("replay missing Idempotent-Replay header")
	}
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Errorf("replayed body differs:\n%s\n%s", first.Body.String(), second.Body.String())
	}
}

func TestCompleteCall_Idempotent(t *testing.T) {
	router := buildTestRouter()
	callID, bearer, _ := createCall(t, router, "CA-complete")

	w := doJSON(t, router, http.MethodPost, "/api/calls/"+callID+"/complete", bearer, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	first := decode(t, w)
	if first["status"] != "completed" {
		t.Errorf("status = %v, want completed", first["status"])
	}

	w = doJSON(t, router, http.MethodPost, "/api/calls/"+callID+"/complete", bearer, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("repeat status = %d", w.Code)
	}
	second := decode(t, w)
	if second["ended_at"] != first["ended_at"] {
		t.Errorf("repeat completion moved ended_at: %v vs %v", second["ended_at"], first["ended_at"])
	}
}

func TestGetCallDetail_IncludesToolExchange(t *testing.T) {
	router := buildTestRouter()
	callID, bearer, tenantID := createCall(t, router, "CA-detail")

	doJSON(t, router, http.MethodPost, "/api/calls/"+callID+"/events", bearer, map[string]interface{}{
		"type": "turn", "role": "caller", "text": "show me houses",
	})
	doJSON(t, router, http.MethodPost, "/api/tools/execute", bearer, map[string]interface{}{
		"call_id": callID, "tenant_id": tenantID, "tool": "search_properties",
	})

	w := doJSON(t, router, http.MethodGet, "/api/calls/"+callID, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	res := decode(t, w)
	events := res["timeline"].([]interface{})
	if len(events) != 3 {
		t.Fatalf("timeline has %d events, want turn + tool_call + tool_result", len(events))
	}
	types := []string{}
	for _, e := range events {
		types = append(types, e.(map[string]interface{})["type"].(string))
	}
	want := []string{"turn", "tool_call", "tool_result"}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("timeline[%d] = %s, want %s", i, types[i], want[i])
		}
	}
}

func TestListCalls_Paginated(t *testing.T) {
	router := buildTestRouter()
	for _, sid := range []string{"CA-l1", "CA-l2", "CA-l3"} {
		createCall(t, router, sid)
	}

	w := doJSON(t, router, http.MethodGet, "/api/calls?page=1&limit=2", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	res := decode(t, w)
	if res["total"].(float64) != 3 {
		t.Errorf("total = %v, want 3", res["total"])
	}
	if res["count"].(float64) != 2 {
		t.Errorf("count = %v, want 2", res["count"])
	}
}

func TestListCalls_FilteredByStatus(t *testing.T) {
	router := buildTestRouter()
	for _, sid := range []string{"CA-f1", "CA-f2", "CA-f3"} {
		createCall(t, router, sid)
	}
	doneID, doneBearer, _ := createCall(t, router, "CA-f-done")
	if w := doJSON(t, router, http.MethodPost, "/api/calls/"+doneID+"/complete", doneBearer, nil); w.Code != http.StatusOK {
		t.Fatalf("complete status = %d", w.Code)
	}

	w := doJSON(t, router, http.MethodGet, "/api/calls?status=completed", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	res := decode(t, w)
	if res["total"].(float64) != 1 {
		t.Errorf("completed total = %v, want 1", res["total"])
	}
	calls := res["data"].([]interface{})
	if len(calls) != 1 || calls[0].(map[string]interface{})["call_id"] != doneID {
		t.Errorf("completed listing = %v, want only %s", calls, doneID)
	}

	w = doJSON(t, router, http.MethodGet, "/api/calls?status=in_progress", "", nil)
	if res := decode(t, w); res["total"].(float64) != 3 {
		t.Errorf("in_progress total = %v, want 3", res["total"])
	}

	w = doJSON(t, router, http.MethodGet, "/api/calls?tenant_id=no-such-tenant", "", nil)
	if res := decode(t, w); res["count"] != nil && res["count"].(float64) != 0 {
		t.Errorf("unknown tenant count = %v, want 0", res["count"])
	}
}

func TestCompleteCall_CallerSuppliedDuration(t *testing.T) {
	router := buildTestRouter()
	callID, bearer, _ := createCall(t, router, "CA-duration")

	w := doJSON(t, router, http.MethodPost, "/api/calls/"+callID+"/complete", bearer, map[string]interface{}{
		"duration_sec": 42,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if res := decode(t, w); res["duration_sec"].(float64) != 42 {
		t.Errorf("duration_sec = %v, want 42", res["duration_sec"])
	}

	// A late correction overwrites the stored duration.
	w = doJSON(t, router, http.MethodPost, "/api/calls/"+callID+"/complete", bearer, map[string]interface{}{
		"duration_sec": 45,
	})
	if res := decode(t, w); res["duration_sec"].(float64) != 45 {
		t.Errorf("corrected duration_sec = %v, want 45", res["duration_sec"])
	}

	w = doJSON(t, router, http.MethodPost, "/api/calls/"+callID+"/complete", bearer, map[string]interface{}{
		"duration_sec": -1,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative duration status = %d, want 400", w.Code)
	}
}

func TestVoiceStatusWebhook_CompletesWithVendorDuration(t *testing.T) {
	router := buildTestRouter()
	callID, _, _ := createCall(t, router, "CA-webhook")

	form := url.Values{}
	form.Set("CallSid", "CA-webhook")
	form.Set("CallStatus", "completed")
	form.Set("CallDuration", "42")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/voice", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("webhook status = %d, body %s", w.Code, w.Body.String())
	}

	detail := decode(t, doJSON(t, router, http.MethodGet, "/api/calls/"+callID, "", nil))
	call := detail["call"].(map[string]interface{})
	if call["status"] != "completed" {
		t.Errorf("status = %v, want completed", call["status"])
	}
	if call["duration_sec"].(float64) != 42 {
		t.Errorf("duration_sec = %v, want the vendor-reported 42", call["duration_sec"])
	}
}

func TestGetCallDetail_NotFound(t *testing.T) {
	router := buildTestRouter()

	w := doJSON(t, router, http.MethodGet, "/api/calls/no-such-call", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHealth(t *testing.T) {
	router := buildTestRouter()

	w := doJSON(t, router, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	res := decode(t, w)
	if res["status"] == "" {
		t.Error("health response missing status")
	}
}

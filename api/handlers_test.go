package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wyfcoding/fixmonitor/config"
	"github.com/wyfcoding/fixmonitor/ingest"
	"github.com/wyfcoding/fixmonitor/logging"
	"github.com/wyfcoding/fixmonitor/store"

	"github.com/gin-gonic/gin"
)

const validRaw = "8=FIX.4.4\x019=100\x0135=D\x0111=ORDER123\x0155=AAPL\x0154=1\x0138=100\x01"

func testRouter(t *testing.T) (*gin.Engine, store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.NewFromConfig(logging.Config{Service: "test", Module: "api", Level: "error"})
	s := store.NewMemoryStore(100)
	orders := store.NewOrderProjection()
	service := ingest.NewService(s, orders, 0, ingest.Options{}, logger)

	handler := &Handler{
		Service: service,
		Store:   s,
		Orders:  orders,
		Logger:  logger,
	}
	cfg := &config.Config{}

	engine := NewRouter(cfg, RouterOptions{
		Handler: handler,
		Logger:  logger,
	})
	return engine, s
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestIngestMessageJSON(t *testing.T) {
	engine, _ := testRouter(t)

	body, _ := json.Marshal(map[string]string{"raw": validRaw})
	w := doJSON(t, engine, http.MethodPost, "/api/v1/messages", string(body))

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data struct {
			ID      string `json:"id"`
			Summary struct {
				MsgType string `json:"msgType"`
			} `json:"summary"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Bad response: %v", err)
	}
	if resp.Data.ID == "" || resp.Data.Summary.MsgType != "D" {
		t.Errorf("Unexpected payload: %s", w.Body.String())
	}
}

func TestIngestMessagePlainText(t *testing.T) {
	engine, s := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(validRaw))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if n, _ := s.Len(req.Context()); n != 1 {
		t.Errorf("Expected 1 stored message, got %d", n)
	}
}

func TestIngestMessageEmptyBody(t *testing.T) {
	engine, _ := testRouter(t)
	w := doJSON(t, engine, http.MethodPost, "/api/v1/messages", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestValidateFailureEnvelope(t *testing.T) {
	engine, _ := testRouter(t)

	body, _ := json.Marshal(map[string]string{"raw": "8=FIX.4.4|35=D|11=X|"})
	w := doJSON(t, engine, http.MethodPost, "/api/v1/validate", string(body))

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Success     bool             `json:"success"`
		Error       string           `json:"error"`
		Issues      []map[string]any `json:"issues"`
		Suggestions []map[string]any `json:"suggestions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Bad response: %v", err)
	}
	if resp.Success || resp.Error == "" {
		t.Errorf("Expected failure envelope, got %s", w.Body.String())
	}
	if len(resp.Issues) == 0 || len(resp.Suggestions) == 0 {
		t.Errorf("Expected issues and suggestions together: %s", w.Body.String())
	}
}

func TestValidateSuccessEnvelope(t *testing.T) {
	engine, _ := testRouter(t)

	body, _ := json.Marshal(map[string]string{"raw": validRaw})
	w := doJSON(t, engine, http.MethodPost, "/api/v1/validate", string(body))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Success bool `json:"success"`
		Message struct {
			Summary struct {
				ClOrdID string `json:"clOrdId"`
			} `json:"summary"`
		} `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Bad response: %v", err)
	}
	if !resp.Success || resp.Message.Summary.ClOrdID != "ORDER123" {
		t.Errorf("Unexpected payload: %s", w.Body.String())
	}
}

func TestAutoRepairEndpoint(t *testing.T) {
	engine, _ := testRouter(t)

	body, _ := json.Marshal(map[string]string{"raw": " 8=FIX.4.4|35=D| "})
	w := doJSON(t, engine, http.MethodPost, "/api/v1/repair/auto", string(body))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp struct {
		Data struct {
			Repaired *string `json:"repaired"`
			Changed  bool    `json:"changed"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Bad response: %v", err)
	}
	if !resp.Data.Changed || resp.Data.Repaired == nil {
		t.Fatalf("Expected repair, got %s", w.Body.String())
	}
	if strings.Contains(*resp.Data.Repaired, "|") {
		t.Errorf("Pipes should be normalized: %q", *resp.Data.Repaired)
	}

	// 干净输入: repaired 为 null。
	body, _ = json.Marshal(map[string]string{"raw": "8=FIX.4.4\x0135=D\x01"})
	w = doJSON(t, engine, http.MethodPost, "/api/v1/repair/auto", string(body))
	var clean struct {
		Data struct {
			Repaired *string `json:"repaired"`
			Changed  bool    `json:"changed"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &clean); err != nil {
		t.Fatalf("Bad response: %v", err)
	}
	if clean.Data.Changed || clean.Data.Repaired != nil {
		t.Errorf("Expected null repair, got %s", w.Body.String())
	}
}

func TestBulkIngestNewlineBody(t *testing.T) {
	engine, s := testRouter(t)

	bulk := "8=FIX.4.4\x0135=D\x0111=A\x01\n8=FIX.4.4\x0135=D\x0111=B\x01\n"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/bulk", strings.NewReader(bulk))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data struct {
			Total    int `json:"total"`
			Accepted int `json:"accepted"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Bad response: %v", err)
	}
	if resp.Data.Total != 2 || resp.Data.Accepted != 2 {
		t.Errorf("Unexpected bulk result: %s", w.Body.String())
	}
	if n, _ := s.Len(req.Context()); n != 2 {
		t.Errorf("Expected 2 stored messages, got %d", n)
	}
}

func TestListAndGetMessages(t *testing.T) {
	engine, _ := testRouter(t)

	body, _ := json.Marshal(map[string]string{"raw": validRaw})
	created := doJSON(t, engine, http.MethodPost, "/api/v1/messages", string(body))
	var createdResp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(created.Body.Bytes(), &createdResp); err != nil {
		t.Fatalf("Bad create response: %v", err)
	}

	w := doJSON(t, engine, http.MethodGet, "/api/v1/messages?symbol=AAPL", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	w = doJSON(t, engine, http.MethodGet, "/api/v1/messages/"+createdResp.Data.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	w = doJSON(t, engine, http.MethodGet, "/api/v1/messages/missing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown id, got %d", w.Code)
	}
}

func TestOrdersEndpoints(t *testing.T) {
	engine, _ := testRouter(t)

	body, _ := json.Marshal(map[string]string{"raw": validRaw})
	doJSON(t, engine, http.MethodPost, "/api/v1/messages", string(body))

	w := doJSON(t, engine, http.MethodGet, "/api/v1/orders", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	w = doJSON(t, engine, http.MethodGet, "/api/v1/orders/ORDER123", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for known order, got %d", w.Code)
	}

	w = doJSON(t, engine, http.MethodGet, "/api/v1/orders/UNKNOWN", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown order, got %d", w.Code)
	}
}

func TestDictionaryEndpoint(t *testing.T) {
	engine, _ := testRouter(t)

	w := doJSON(t, engine, http.MethodGet, "/api/v1/dictionary", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp struct {
		Data struct {
			Tags     map[string]string `json:"tags"`
			MsgTypes map[string]string `json:"msgTypes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Bad response: %v", err)
	}
	if resp.Data.Tags["35"] != "MsgType" || resp.Data.MsgTypes["D"] == "" {
		t.Errorf("Unexpected dictionary payload: %s", w.Body.String())
	}
}

func TestArchiveDisabled(t *testing.T) {
	engine, _ := testRouter(t)
	w := doJSON(t, engine, http.MethodGet, "/api/v1/archive", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 when archive disabled, got %d", w.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	engine, _ := testRouter(t)

	w := doJSON(t, engine, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 from healthz, got %d", w.Code)
	}
	w = doJSON(t, engine, http.MethodGet, "/readyz", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 from readyz with no checkers, got %d", w.Code)
	}
}

func restrictedRouter(t *testing.T, allowlist []string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.NewFromConfig(logging.Config{Service: "test", Module: "api", Level: "error"})
	s := store.NewMemoryStore(100)
	orders := store.NewOrderProjection()
	service := ingest.NewService(s, orders, 0, ingest.Options{}, logger)

	cfg := &config.Config{}
	cfg.Security.AdminAllowlist = allowlist

	return NewRouter(cfg, RouterOptions{
		Handler: &Handler{Service: service, Store: s, Orders: orders, Logger: logger},
		Logger:  logger,
	})
}

func TestAdminAllowlistBlocksMutatingRoutes(t *testing.T) {
	// httptest 请求来源固定为 192.0.2.1, 白名单选在另一网段。
	engine := restrictedRouter(t, []string{"10.0.0.0/8"})

	body, _ := json.Marshal(map[string]string{"raw": validRaw})
	w := doJSON(t, engine, http.MethodPost, "/api/v1/messages", string(body))
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for write from non-allowlisted ip, got %d", w.Code)
	}

	// 只读接口不受写接口来源限制影响。
	w = doJSON(t, engine, http.MethodGet, "/api/v1/messages", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for read route, got %d", w.Code)
	}
}

func TestAdminAllowlistPermitsAllowedIP(t *testing.T) {
	engine := restrictedRouter(t, []string{"192.0.2.0/24"})

	body, _ := json.Marshal(map[string]string{"raw": validRaw})
	w := doJSON(t, engine, http.MethodPost, "/api/v1/parse", string(body))
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for write from allowlisted ip, got %d", w.Code)
	}
}

package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func serve(t *testing.T, mw gin.HandlerFunc, setup func(*gin.Context)) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	if setup != nil {
		engine.Use(func(c *gin.Context) { setup(c); c.Next() })
	}
	engine.POST("/op", mw, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodPost, "/op", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestIPAllowlistEmptyPassesThrough(t *testing.T) {
	w := serve(t, IPAllowlistMiddleware(nil), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("empty allowlist should pass, got %d", w.Code)
	}
}

func TestIPAllowlistExactMatch(t *testing.T) {
	// httptest 请求的 RemoteAddr 固定为 192.0.2.1。
	w := serve(t, IPAllowlistMiddleware([]string{"192.0.2.1"}), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("allowlisted ip should pass, got %d", w.Code)
	}
}

func TestIPAllowlistCIDRMatch(t *testing.T) {
	w := serve(t, IPAllowlistMiddleware([]string{"192.0.2.0/24"}), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ip inside allowed cidr should pass, got %d", w.Code)
	}
}

func TestIPAllowlistRejectsUnknownIP(t *testing.T) {
	w := serve(t, IPAllowlistMiddleware([]string{"10.0.0.0/8", "172.16.0.1"}), nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("ip outside allowlist should get 403, got %d", w.Code)
	}
}

func TestRequireRolesWithoutAuthContext(t *testing.T) {
	w := serve(t, RequireRoles("admin"), nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing role claims should get 401, got %d", w.Code)
	}
}

func TestRequireRolesAllowed(t *testing.T) {
	w := serve(t, RequireRoles("admin", "operator"), func(c *gin.Context) {
		c.Set(RolesContextKey, []string{"operator"})
	})
	if w.Code != http.StatusOK {
		t.Fatalf("matching role should pass, got %d", w.Code)
	}
}

func TestRequireRolesRejected(t *testing.T) {
	w := serve(t, RequireRoles("admin"), func(c *gin.Context) {
		c.Set(RolesContextKey, []string{"viewer"})
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("role outside allowlist should get 403, got %d", w.Code)
	}
}

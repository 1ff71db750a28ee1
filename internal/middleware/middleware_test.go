package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rcabanilla/lapida/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID(t *testing.T) {
	t.Run("generates an id when none arrives", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, GetRequestID(c))
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		headerID := w.Header().Get(RequestIDHeader)
		if headerID == "" {
			t.Fatal("expected X-Request-ID response header")
		}
		if w.Body.String() != headerID {
			t.Errorf("context id %q and header id %q should match", w.Body.String(), headerID)
		}
	})

	t.Run("reuses the proxy-supplied id", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, GetRequestID(c))
		})

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "proxy-id-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Body.String() != "proxy-id-123" {
			t.Errorf("expected proxy-id-123, got %q", w.Body.String())
		}
	})

	t.Run("empty without the middleware", func(t *testing.T) {
		if got := GetRequestID(&gin.Context{}); got != "" {
			t.Errorf("expected empty request id, got %q", got)
		}
	})
}

func TestCORS(t *testing.T) {
	origins := []string{"http://localhost:3000"}

	newRouter := func() *gin.Engine {
		router := gin.New()
		router.Use(CORS(origins))
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, "OK")
		})
		return router
	}

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("expected allow-origin header, got %q", got)
		}
	})

	t.Run("disallowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "http://evil.example")
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("expected no allow-origin header, got %q", got)
		}
	})

	t.Run("preflight allows the authorization header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/test", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Authorization")
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("expected status 204 for preflight, got %d", w.Code)
		}
	})
}

func TestLogger(t *testing.T) {
	log := logger.New("test")

	t.Run("stores a request-scoped logger", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.Use(Logger(log))

		var got *logger.Logger
		router.GET("/test", func(c *gin.Context) {
			got = GetLogger(c)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		if got == nil {
			t.Error("expected a logger in the request context")
		}
	})

	t.Run("GetLogger is nil without the middleware", func(t *testing.T) {
		if got := GetLogger(&gin.Context{}); got != nil {
			t.Errorf("expected nil logger, got %v", got)
		}
	})
}

func TestRecovery(t *testing.T) {
	log := logger.New("test")

	router := gin.New()
	router.Use(RequestID())
	router.Use(Logger(log))
	router.Use(Recovery(log))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}

	var resp struct {
		Error struct {
			Code      string `json:"code"`
			Message   string `json:"message"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Error.Code != "INTERNAL_SERVER_ERROR" {
		t.Errorf("expected code INTERNAL_SERVER_ERROR, got %q", resp.Error.Code)
	}
	if resp.Error.RequestID == "" {
		t.Error("expected a request id in the error envelope")
	}
}

func TestMiddlewareStack(t *testing.T) {
	// The full chain in production order must not interfere with a normal
	// request.
	log := logger.New("test")

	router := gin.New()
	router.Use(RequestID())
	router.Use(Logger(log))
	router.Use(Recovery(log))
	router.Use(CORS([]string{"http://localhost:3000"}))
	router.Use(BearerToken())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"request_id": GetRequestID(c),
			"token":      GetToken(c),
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Authorization", "Bearer tok-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["request_id"] == "" {
		t.Error("expected a request id")
	}
	if resp["token"] != "tok-123" {
		t.Errorf("expected the bearer token to be extracted, got %q", resp["token"])
	}
}

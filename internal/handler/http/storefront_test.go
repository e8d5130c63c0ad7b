package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crispydelights/storefront/internal/catalog"
	"github.com/crispydelights/storefront/internal/checkout"
	"github.com/crispydelights/storefront/internal/notify"
	"github.com/crispydelights/storefront/internal/repository/memory"
	"github.com/crispydelights/storefront/internal/service"
	"github.com/crispydelights/storefront/pkg/health"
	"github.com/crispydelights/storefront/pkg/logger"
	"github.com/crispydelights/storefront/pkg/middleware"
)

// ============================================================================
// Test helpers
// ============================================================================

type testServer struct {
	handler http.Handler
	svc     *service.Storefront
	fire    chan time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, RouterConfig{
		CORS:       middleware.DefaultCORSConfig(),
		PprofCIDRs: []string{"127.0.0.0/8"},
	})
}

func newTestServerWith(t *testing.T, cfg RouterConfig) *testServer {
	t.Helper()
	l := logger.NewWithWriter("test", "error", io.Discard)
	inbox := notify.NewInboxPublisher(memory.NewInbox(50), l)
	fire := make(chan time.Time, 1)

	orch := checkout.New(l,
		checkout.WithClock(func(time.Duration) <-chan time.Time { return fire }),
		checkout.WithOrderNumbers(func() int { return 1234 }),
	)
	svc := service.NewStorefront(
		catalog.Menu(),
		memory.NewSnapshotStore(),
		nil,
		orch,
		notify.NewDispatcher(l, inbox),
		inbox,
		service.Config{SnapshotKey: "cart", IdleTimeout: time.Hour},
		l,
	)

	return &testServer{
		handler: NewRouter(svc, health.NewHandler(), l, cfg),
		svc:     svc,
		fire:    fire,
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

type cartBody struct {
	Items []struct {
		ID       int    `json:"id"`
		Name     string `json:"name"`
		Price    string `json:"price"`
		Image    string `json:"image"`
		Quantity int    `json:"quantity"`
	} `json:"items"`
	IsOpen        bool   `json:"is_open"`
	CheckoutStep  string `json:"checkout_step"`
	IsCheckingOut bool   `json:"is_checking_out"`
	TotalItems    int    `json:"total_items"`
	TotalPrice    string `json:"total_price"`
}

func (s *testServer) do(t *testing.T, method, path, session, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.Header.Set(middleware.SessionHeader, session)
	}

	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	var env envelope
	if rr.Body.Len() > 0 && strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	}
	return rr, env
}

func decodeCart(t *testing.T, env envelope) cartBody {
	t.Helper()
	var c cartBody
	require.NoError(t, json.Unmarshal(env.Data, &c))
	return c
}

const session = "test-session-0001"

// ============================================================================
// Tests
// ============================================================================

func TestListMenu(t *testing.T) {
	s := newTestServer(t)

	rr, env := s.do(t, http.MethodGet, "/api/v1/menu", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=300", rr.Header().Get("Cache-Control"))

	var menu []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &menu))
	assert.Len(t, menu, 6)
	assert.Equal(t, "Classic Crispy Bucket", menu[0]["name"])
}

func TestGetCart_AssignsSession(t *testing.T) {
	s := newTestServer(t)

	rr, env := s.do(t, http.MethodGet, "/api/v1/cart", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(middleware.SessionHeader))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	c := decodeCart(t, env)
	assert.Empty(t, c.Items)
	assert.Equal(t, "cart", c.CheckoutStep)
	assert.Equal(t, "0.00", c.TotalPrice)
}

func TestAddItem(t *testing.T) {
	s := newTestServer(t)

	s.do(t, http.MethodPost, "/api/v1/cart/items", session, `{"id":1}`)
	rr, env := s.do(t, http.MethodPost, "/api/v1/cart/items", session, `{"id":1}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, session, rr.Header().Get(middleware.SessionHeader))

	c := decodeCart(t, env)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, "/images/crispy-bucket.jpg", c.Items[0].Image)
	assert.Equal(t, "39.98", c.TotalPrice)
	assert.True(t, c.IsOpen)
}

func TestAddItem_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"unknown item", `{"id":99}`, http.StatusNotFound, "NOT_FOUND"},
		{"missing id", `{}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown field", `{"id":1,"price":"$0.01"}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"not json", `{{`, http.StatusBadRequest, "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, env := s.do(t, http.MethodPost, "/api/v1/cart/items", session, tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
		})
	}
}

func TestUpdateAndRemoveItem(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/cart/items", session, `{"id":2}`)
	s.do(t, http.MethodPost, "/api/v1/cart/items", session, `{"id":3}`)

	rr, env := s.do(t, http.MethodPut, "/api/v1/cart/items/2", session, `{"quantity":5}`)
	require.Equal(t, http.StatusOK, rr.Code)
	c := decodeCart(t, env)
	assert.Equal(t, 6, c.TotalItems)

	rr, env = s.do(t, http.MethodPut, "/api/v1/cart/items/3", session, `{"quantity":0}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeCart(t, env).Items, 1)

	rr, env = s.do(t, http.MethodDelete, "/api/v1/cart/items/2", session, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeCart(t, env).Items)

	rr, _ = s.do(t, http.MethodDelete, "/api/v1/cart/items/abc", session, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdateItemQuantity_AboveCap(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/cart/items", session, `{"id":1}`)

	rr, env := s.do(t, http.MethodPut, "/api/v1/cart/items/1", session, `{"quantity":9223372036854775807}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, "must be less than or equal to 999", env.Error.Fields["quantity"])

	s.do(t, http.MethodPut, "/api/v1/cart/items/1", session, `{"quantity":999}`)
	rr, env = s.do(t, http.MethodPost, "/api/v1/cart/items", session, `{"id":1}`)
	require.Equal(t, http.StatusOK, rr.Code)
	c := decodeCart(t, env)
	assert.Equal(t, 999, c.Items[0].Quantity)
	assert.Equal(t, 999, c.TotalItems)
}

func TestRateLimit_HeaderlessClientsShareAddressBucket(t *testing.T) {
	s := newTestServerWith(t, RouterConfig{
		CORS:           middleware.DefaultCORSConfig(),
		RateLimitRPS:   0.001,
		RateLimitBurst: 2,
	})

	var limited int
	for i := 0; i < 30; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
		req.RemoteAddr = "198.51.100.7:5000"
		rr := httptest.NewRecorder()
		s.handler.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			limited++
			assert.Equal(t, "1", rr.Header().Get("Retry-After"))
		}
	}

	assert.Greater(t, limited, 0)
	assert.Equal(t, 30-limited, s.svc.ActiveSessions(), "only admitted requests create sessions")
	assert.LessOrEqual(t, s.svc.ActiveSessions(), 2*4)
}

func TestClearCart(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/cart/items", session, `{"id":5}`)

	rr, env := s.do(t, http.MethodDelete, "/api/v1/cart", session, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeCart(t, env).Items)
}

func TestSetOpenAndStep(t *testing.T) {
	s := newTestServer(t)

	rr, env := s.do(t, http.MethodPut, "/api/v1/cart/step", session, `{"step":"shipping"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "EMPTY_CART", env.Error.Code)

	s.do(t, http.MethodPost, "/api/v1/cart/items", session, `{"id":4}`)
	rr, env = s.do(t, http.MethodPut, "/api/v1/cart/step", session, `{"step":"shipping"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "shipping", decodeCart(t, env).CheckoutStep)

	rr, env = s.do(t, http.MethodPut, "/api/v1/cart/open", session, `{"open":false}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decodeCart(t, env).IsOpen)

	rr, _ = s.do(t, http.MethodPut, "/api/v1/cart/open", session, `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

const shippingBody = `{
	"full_name": "Ada Lovelace",
	"email": "ada@example.com",
	"phone": "5551234567",
	"address": "12 Analytical Way",
	"city": "London",
	"state": "LN",
	"postal_code": "10001",
	"country": "UK"
}`

func TestCheckout_EndToEnd(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/cart/items", session, `{"id":1}`)
	s.do(t, http.MethodPut, "/api/v1/cart/step", session, `{"step":"shipping"}`)

	rr, env := s.do(t, http.MethodPost, "/api/v1/cart/checkout", session, shippingBody)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	var accepted struct {
		Status string   `json:"status"`
		Cart   cartBody `json:"cart"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &accepted))
	assert.Equal(t, "processing", accepted.Status)
	assert.True(t, accepted.Cart.IsCheckingOut)

	rr, _ = s.do(t, http.MethodPost, "/api/v1/cart/checkout", session, shippingBody)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr, _ = s.do(t, http.MethodPut, "/api/v1/cart/step", session, `{"step":"cart"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	s.fire <- time.Now()

	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
		req.Header.Set(middleware.SessionHeader, session)
		rr := httptest.NewRecorder()
		s.handler.ServeHTTP(rr, req)

		var body struct {
			Data cartBody `json:"data"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			return false
		}
		return !body.Data.IsCheckingOut && len(body.Data.Items) == 0
	}, 2*time.Second, 10*time.Millisecond)

	_, env = s.do(t, http.MethodGet, "/api/v1/cart/notifications", session, "")
	var notes []notify.Notification
	require.NoError(t, json.Unmarshal(env.Data, &notes))
	require.Len(t, notes, 2)
	assert.Equal(t, notify.LevelInfo, notes[0].Level)
	assert.Equal(t, notify.LevelSuccess, notes[1].Level)
	assert.Equal(t, "Your order #1234 has been confirmed and will be shipped to Ada Lovelace at 12 Analytical Way, London.", notes[1].Description)
}

func TestCheckout_EmptyCart(t *testing.T) {
	s := newTestServer(t)

	rr, env := s.do(t, http.MethodPost, "/api/v1/cart/checkout", session, shippingBody)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "EMPTY_CART", env.Error.Code)

	_, env = s.do(t, http.MethodGet, "/api/v1/cart/notifications", session, "")
	var notes []notify.Notification
	require.NoError(t, json.Unmarshal(env.Data, &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, "Your cart is empty", notes[0].Title)
}

func TestCheckout_InvalidShipping(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/cart/items", session, `{"id":1}`)

	rr, env := s.do(t, http.MethodPost, "/api/v1/cart/checkout", session, `{"full_name":"A","email":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "full_name")
	assert.Contains(t, env.Error.Fields, "email")
	assert.Contains(t, env.Error.Fields, "city")
}

func TestContentTypeEnforced(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewBufferString(`{"id":1}`))
	req.Header.Set("Content-Type", "text/plain")
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rr, _ := s.do(t, http.MethodGet, "/health/live", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = s.do(t, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mrr := httptest.NewRecorder()
	s.handler.ServeHTTP(mrr, req)
	assert.Equal(t, http.StatusOK, mrr.Code)
}

func TestPprofDenied(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = "203.0.113.9:1234"
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	checkouthttp "github.com/fastcopy/printshop/internal/checkout/adapters/http"
	"github.com/fastcopy/printshop/internal/checkout/adapters/memory"
	"github.com/fastcopy/printshop/internal/checkout/app"
	"github.com/fastcopy/printshop/internal/checkout/domain"
	"github.com/fastcopy/printshop/internal/checkout/metrics"
	"github.com/fastcopy/printshop/internal/checkout/ports"
	"github.com/fastcopy/printshop/internal/coupon"
	"github.com/fastcopy/printshop/internal/delivery"
	idemmemory "github.com/fastcopy/printshop/internal/idempotency/memory"
	"github.com/fastcopy/printshop/internal/pricing"
)

type stubGateway struct {
	createErr error
	verdict   ports.Verdict
	sessions  int
}

func (g *stubGateway) CreateSession(_ context.Context, input ports.CreateSessionInput) (ports.Session, error) {
	if g.createErr != nil {
		return ports.Session{}, g.createErr
	}
	g.sessions++
	return ports.Session{ID: "session-" + input.GatewayOrderID, PaymentLink: "https://pay.example/" + input.GatewayOrderID}, nil
}

func (g *stubGateway) PollStatus(_ context.Context, _ string) (ports.Verdict, error) {
	if g.verdict == "" {
		return ports.VerdictPaid, nil
	}
	return g.verdict, nil
}

type stubNotifier struct{}

func (stubNotifier) OrderResolved(context.Context, domain.Order, bool) error { return nil }

func testRouter(t *testing.T, gateway ports.PaymentGateway, files ports.FileStore) chi.Router {
	return testRouterWithStore(t, gateway, files, idemmemory.NewStore())
}

func testRouterWithStore(t *testing.T, gateway ports.PaymentGateway, files ports.FileStore, idem ports.IdempotencyStore) chi.Router {
	t.Helper()

	d := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }
	card := pricing.RateCard{
		PerPageSingle:     d("2"),
		PerPageDouble:     d("1.5"),
		SpiralTier1Limit:  50,
		SpiralTier2Limit:  100,
		SpiralTier3Limit:  200,
		SpiralTier1Price:  d("30"),
		SpiralTier2Price:  d("40"),
		SpiralTier3Price:  d("50"),
		SpiralExtraPrice:  d("10"),
		SoftBindingPrice:  d("25"),
		DeliverySurcharge: d("20"),
	}

	m, err := metrics.NewMetrics(sdkmetric.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("create metrics: %v", err)
	}

	service := app.NewService(app.Deps{
		Orders:    memory.NewOrderRepository(),
		Staging:   memory.NewStagingStore(),
		Batches:   memory.NewBatchRepository(),
		Coupons:   memory.NewCouponRepository(coupon.Coupon{Code: "SAVE10", Percent: d("10"), Active: true, ValidFrom: time.Now().Add(-time.Hour), ValidUntil: time.Now().Add(time.Hour)}),
		Rates:     memory.NewRateRepository(pricing.Table{Version: 1, Regular: card, Dealer: card}),
		Holidays:  memory.NewHolidayRepository(delivery.HolidaySet{}),
		Gateway:   gateway,
		Files:     files,
		Notifier:  stubNotifier{},
		IdemStore: idem,
		Tx:        memory.NewTransactor(),
		Location:  time.UTC,
		Currency:  "INR",
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:   m,
	})

	r := chi.NewRouter()
	checkouthttp.NewHandler(service).Register(r)
	return r
}

func doJSON(t *testing.T, router chi.Router, method, target, userID string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return payload
}

func cartItemBody(filePath string) map[string]any {
	return map[string]any{
		"service":   "printing",
		"mode":      "bw",
		"sides":     "single",
		"pages":     10,
		"copies":    1,
		"file_path": filePath,
	}
}

func TestCartEndpoints(t *testing.T) {
	t.Run("requires identity header", func(t *testing.T) {
		router := testRouter(t, &stubGateway{}, memory.NewFileStore())

		rec := doJSON(t, router, http.MethodGet, "/v1/cart", "", nil, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("add list count remove flow", func(t *testing.T) {
		router := testRouter(t, &stubGateway{}, memory.NewFileStore())

		rec := doJSON(t, router, http.MethodPost, "/v1/cart", "u1", cartItemBody("staging/a.pdf"), nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("add item: expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		item := decodeBody(t, rec)["item"].(map[string]any)
		itemID := int64(item["id"].(float64))

		rec = doJSON(t, router, http.MethodGet, "/v1/cart", "u1", nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("list cart: expected 200, got %d", rec.Code)
		}
		if items := decodeBody(t, rec)["items"].([]any); len(items) != 1 {
			t.Fatalf("expected 1 cart item, got %d", len(items))
		}

		rec = doJSON(t, router, http.MethodGet, "/v1/cart/count", "u1", nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("cart count: expected 200, got %d", rec.Code)
		}
		if count := decodeBody(t, rec)["count"].(float64); count != 1 {
			t.Fatalf("expected count 1, got %v", count)
		}

		// Another user sees an empty cart.
		rec = doJSON(t, router, http.MethodGet, "/v1/cart", "u2", nil, nil)
		if items := decodeBody(t, rec)["items"].([]any); len(items) != 0 {
			t.Fatalf("expected empty cart for u2, got %d items", len(items))
		}

		rec = doJSON(t, router, http.MethodDelete, "/v1/cart/"+itoa(itemID), "u1", nil, nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("remove item: expected 204, got %d", rec.Code)
		}

		rec = doJSON(t, router, http.MethodDelete, "/v1/cart/"+itoa(itemID), "u1", nil, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("remove missing item: expected 404, got %d", rec.Code)
		}
	})

	t.Run("rejects an invalid item", func(t *testing.T) {
		router := testRouter(t, &stubGateway{}, memory.NewFileStore())

		body := cartItemBody("staging/a.pdf")
		body["pages"] = 0
		rec := doJSON(t, router, http.MethodPost, "/v1/cart", "u1", body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestCheckoutFlow(t *testing.T) {
	t.Run("full cart checkout through callback", func(t *testing.T) {
		files := memory.NewFileStore("staging/a.pdf")
		router := testRouter(t, &stubGateway{}, files)

		rec := doJSON(t, router, http.MethodPost, "/v1/cart", "u1", cartItemBody("staging/a.pdf"), nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("add item: expected 201, got %d", rec.Code)
		}

		rec = doJSON(t, router, http.MethodPost, "/v1/checkout/cart", "u1", map[string]any{"coupon_code": "SAVE10"}, nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("begin checkout: expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		batch := decodeBody(t, rec)["batch"].(map[string]any)
		token := batch["token"].(string)

		rec = doJSON(t, router, http.MethodGet, "/v1/checkout/"+token+"/summary", "u1", nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("summary: expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		summary := decodeBody(t, rec)
		// 20 in pages plus 20 surcharge, 10% off.
		if got := summary["grand_total"].(string); got != "36" {
			t.Errorf("expected grand total 36, got %s", got)
		}

		// The summary is invisible to anyone but its owner.
		rec = doJSON(t, router, http.MethodGet, "/v1/checkout/"+token+"/summary", "u2", nil, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("foreign summary: expected 404, got %d", rec.Code)
		}

		rec = doJSON(t, router, http.MethodPost, "/v1/checkout/"+token+"/pay", "u1", map[string]any{}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("pay without idempotency key: expected 400, got %d", rec.Code)
		}

		headers := map[string]string{"Idempotency-Key": "key-1"}
		rec = doJSON(t, router, http.MethodPost, "/v1/checkout/"+token+"/pay", "u1", map[string]any{}, headers)
		if rec.Code != http.StatusCreated {
			t.Fatalf("pay: expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		firstBody := rec.Body.String()
		pay := decodeBody(t, rec)
		gatewayOrderID := pay["gateway_order_id"].(string)
		if pay["session"].(map[string]any)["id"].(string) == "" {
			t.Error("expected a session id")
		}

		// Replaying the key returns the stored response without a second
		// gateway session.
		rec = doJSON(t, router, http.MethodPost, "/v1/checkout/"+token+"/pay", "u1", map[string]any{}, headers)
		if rec.Code != http.StatusCreated {
			t.Fatalf("replay: expected 201, got %d", rec.Code)
		}
		if rec.Body.String() != firstBody {
			t.Error("expected replay to return the stored response byte for byte")
		}

		// An unknown token never reaches the gateway.
		rec = doJSON(t, router, http.MethodPost, "/v1/checkout/other-token/pay", "u1", map[string]any{}, headers)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("unknown token: expected 404, got %d", rec.Code)
		}

		// The same key on a different checkout is refused.
		doJSON(t, router, http.MethodPost, "/v1/cart", "u2", cartItemBody("staging/a.pdf"), nil)
		rec = doJSON(t, router, http.MethodPost, "/v1/checkout/cart", "u2", map[string]any{}, nil)
		otherToken := decodeBody(t, rec)["batch"].(map[string]any)["token"].(string)
		rec = doJSON(t, router, http.MethodPost, "/v1/checkout/"+otherToken+"/pay", "u2", map[string]any{}, headers)
		if rec.Code != http.StatusConflict {
			t.Fatalf("key reuse: expected 409, got %d", rec.Code)
		}

		rec = doJSON(t, router, http.MethodGet, "/v1/payments/callback?order_id="+gatewayOrderID, "", nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("callback: expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		outcome := decodeBody(t, rec)
		if outcome["outcome"].(string) != string(domain.PaymentSuccess) {
			t.Errorf("expected outcome %s, got %v", domain.PaymentSuccess, outcome["outcome"])
		}

		rec = doJSON(t, router, http.MethodGet, "/v1/payments/callback?order_id="+gatewayOrderID, "", nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("repeat callback: expected 200, got %d", rec.Code)
		}
		if already := decodeBody(t, rec)["already_resolved"].(bool); !already {
			t.Error("expected repeat callback to report already resolved")
		}

		rec = doJSON(t, router, http.MethodGet, "/v1/orders", "u1", nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("list orders: expected 200, got %d", rec.Code)
		}
		orders := decodeBody(t, rec)["orders"].([]any)
		if len(orders) != 1 {
			t.Fatalf("expected 1 order, got %d", len(orders))
		}
		order := orders[0].(map[string]any)
		if order["payment_status"].(string) != string(domain.PaymentSuccess) {
			t.Errorf("expected payment %s, got %v", domain.PaymentSuccess, order["payment_status"])
		}
		code := order["code"].(string)

		rec = doJSON(t, router, http.MethodGet, "/v1/orders/"+code, "u1", nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("get order: expected 200, got %d", rec.Code)
		}

		// Order lookups are owner-scoped.
		rec = doJSON(t, router, http.MethodGet, "/v1/orders/"+code, "u2", nil, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("foreign order: expected 404, got %d", rec.Code)
		}
	})

	t.Run("webhook body resolves the order", func(t *testing.T) {
		files := memory.NewFileStore("staging/a.pdf")
		router := testRouter(t, &stubGateway{}, files)

		doJSON(t, router, http.MethodPost, "/v1/cart", "u1", cartItemBody("staging/a.pdf"), nil)
		rec := doJSON(t, router, http.MethodPost, "/v1/checkout/cart", "u1", map[string]any{}, nil)
		token := decodeBody(t, rec)["batch"].(map[string]any)["token"].(string)

		rec = doJSON(t, router, http.MethodPost, "/v1/checkout/"+token+"/pay", "u1", map[string]any{},
			map[string]string{"Idempotency-Key": "key-1"})
		gatewayOrderID := decodeBody(t, rec)["gateway_order_id"].(string)

		webhook := map[string]any{
			"data": map[string]any{
				"order": map[string]any{"order_id": gatewayOrderID},
			},
		}
		rec = doJSON(t, router, http.MethodPost, "/v1/payments/callback", "", webhook, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("webhook: expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if outcome := decodeBody(t, rec)["outcome"].(string); outcome != string(domain.PaymentSuccess) {
			t.Errorf("expected outcome %s, got %s", domain.PaymentSuccess, outcome)
		}
	})

	t.Run("callback without an order id is refused", func(t *testing.T) {
		router := testRouter(t, &stubGateway{}, memory.NewFileStore())

		rec := doJSON(t, router, http.MethodGet, "/v1/payments/callback", "", nil, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("gateway outage maps to bad gateway", func(t *testing.T) {
		gateway := &stubGateway{createErr: &ports.GatewayError{Op: "create order", Err: io.ErrUnexpectedEOF}}
		router := testRouter(t, gateway, memory.NewFileStore())

		doJSON(t, router, http.MethodPost, "/v1/cart", "u1", cartItemBody("staging/a.pdf"), nil)
		rec := doJSON(t, router, http.MethodPost, "/v1/checkout/cart", "u1", map[string]any{}, nil)
		token := decodeBody(t, rec)["batch"].(map[string]any)["token"].(string)

		rec = doJSON(t, router, http.MethodPost, "/v1/checkout/"+token+"/pay", "u1", map[string]any{},
			map[string]string{"Idempotency-Key": "key-1"})
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("direct checkout snapshots its item", func(t *testing.T) {
		router := testRouter(t, &stubGateway{}, memory.NewFileStore("staging/direct.pdf"))

		rec := doJSON(t, router, http.MethodPost, "/v1/checkout/direct", "u1", map[string]any{
			"item": cartItemBody("staging/direct.pdf"),
		}, nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("direct checkout: expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		batch := decodeBody(t, rec)["batch"].(map[string]any)
		if batch["origin"].(map[string]any)["kind"].(string) != string(domain.OriginDirect) {
			t.Errorf("expected direct origin, got %v", batch["origin"])
		}

		rec = doJSON(t, router, http.MethodPost, "/v1/checkout/direct", "u1", map[string]any{}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("direct checkout without item: expected 400, got %d", rec.Code)
		}
	})

	t.Run("foreign batch token is invisible and creates nothing", func(t *testing.T) {
		gateway := &stubGateway{}
		router := testRouter(t, gateway, memory.NewFileStore("staging/a.pdf"))

		doJSON(t, router, http.MethodPost, "/v1/cart", "u1", cartItemBody("staging/a.pdf"), nil)
		rec := doJSON(t, router, http.MethodPost, "/v1/checkout/cart", "u1", map[string]any{}, nil)
		token := decodeBody(t, rec)["batch"].(map[string]any)["token"].(string)

		rec = doJSON(t, router, http.MethodPost, "/v1/checkout/"+token+"/pay", "u2", map[string]any{},
			map[string]string{"Idempotency-Key": "key-intruder"})
		if rec.Code != http.StatusNotFound {
			t.Fatalf("foreign pay: expected 404, got %d: %s", rec.Code, rec.Body.String())
		}
		if gateway.sessions != 0 {
			t.Errorf("expected no gateway session, got %d", gateway.sessions)
		}
		rec = doJSON(t, router, http.MethodGet, "/v1/orders", "u1", nil, nil)
		if orders := decodeBody(t, rec)["orders"].([]any); len(orders) != 0 {
			t.Errorf("expected no orders for the owner, got %d", len(orders))
		}
	})

	t.Run("a key in flight blocks a second attempt", func(t *testing.T) {
		gateway := &stubGateway{}
		idem := idemmemory.NewStore()
		router := testRouterWithStore(t, gateway, memory.NewFileStore("staging/a.pdf"), idem)

		doJSON(t, router, http.MethodPost, "/v1/cart", "u1", cartItemBody("staging/a.pdf"), nil)
		rec := doJSON(t, router, http.MethodPost, "/v1/checkout/cart", "u1", map[string]any{}, nil)
		token := decodeBody(t, rec)["batch"].(map[string]any)["token"].(string)

		// The first request holds the claim but has not completed yet.
		if _, claimed, err := idem.Claim(context.Background(), "key-1", token); err != nil || !claimed {
			t.Fatalf("claim key: claimed=%v err=%v", claimed, err)
		}

		headers := map[string]string{"Idempotency-Key": "key-1"}
		rec = doJSON(t, router, http.MethodPost, "/v1/checkout/"+token+"/pay", "u1", map[string]any{}, headers)
		if rec.Code != http.StatusConflict {
			t.Fatalf("in-flight key: expected 409, got %d: %s", rec.Code, rec.Body.String())
		}
		if gateway.sessions != 0 {
			t.Errorf("expected no gateway session while the key is held, got %d", gateway.sessions)
		}

		if err := idem.Release(context.Background(), "key-1"); err != nil {
			t.Fatalf("release key: %v", err)
		}
		rec = doJSON(t, router, http.MethodPost, "/v1/checkout/"+token+"/pay", "u1", map[string]any{}, headers)
		if rec.Code != http.StatusCreated {
			t.Fatalf("pay after release: expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("a failed attempt frees its key", func(t *testing.T) {
		gateway := &stubGateway{createErr: &ports.GatewayError{Op: "create order", Err: io.ErrUnexpectedEOF}}
		router := testRouter(t, gateway, memory.NewFileStore("staging/a.pdf"))

		doJSON(t, router, http.MethodPost, "/v1/cart", "u1", cartItemBody("staging/a.pdf"), nil)
		rec := doJSON(t, router, http.MethodPost, "/v1/checkout/cart", "u1", map[string]any{}, nil)
		token := decodeBody(t, rec)["batch"].(map[string]any)["token"].(string)

		headers := map[string]string{"Idempotency-Key": "key-1"}
		rec = doJSON(t, router, http.MethodPost, "/v1/checkout/"+token+"/pay", "u1", map[string]any{}, headers)
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("gateway down: expected 502, got %d", rec.Code)
		}

		// The gateway recovers; the same key must work because the failed
		// attempt released it.
		gateway.createErr = nil
		rec = doJSON(t, router, http.MethodPost, "/v1/checkout/"+token+"/pay", "u1", map[string]any{}, headers)
		if rec.Code != http.StatusCreated {
			t.Fatalf("retry after recovery: expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

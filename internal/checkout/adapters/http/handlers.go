// Package http exposes the checkout service over REST.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fastcopy/printshop/internal/checkout/app"
	"github.com/fastcopy/printshop/internal/checkout/app/commands"
	"github.com/fastcopy/printshop/internal/checkout/domain"
	"github.com/fastcopy/printshop/internal/checkout/ports"
	"github.com/fastcopy/printshop/internal/pricing"
)

// Handler exposes HTTP endpoints for cart, checkout, payment callbacks and
// order history.
type Handler struct {
	service *app.Service
}

func NewHandler(service *app.Service) *Handler {
	return &Handler{service: service}
}

// Register binds the checkout routes. Identity arrives in the X-User-ID
// header; session handling and authentication sit in front of this service.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1/cart", func(r chi.Router) {
		r.Get("/", h.listCart)
		r.Post("/", h.addCartItem)
		r.Delete("/", h.clearCart)
		r.Get("/count", h.cartCount)
		r.Delete("/{itemID}", h.removeCartItem)
	})

	r.Route("/v1/checkout", func(r chi.Router) {
		r.Post("/cart", h.beginCartCheckout)
		r.Post("/direct", h.beginDirectCheckout)
		r.Get("/{token}/summary", h.summary)
		r.Post("/{token}/pay", h.stageForPayment)
	})

	// Cashfree redirects the customer back with GET and posts the webhook;
	// both land on the same reconciliation.
	r.Get("/v1/payments/callback", h.paymentCallback)
	r.Post("/v1/payments/callback", h.paymentCallback)

	r.Route("/v1/orders", func(r chi.Router) {
		r.Get("/", h.listOrders)
		r.Get("/{code}", h.getOrder)
	})
}

type cartItemRequest struct {
	Service    string `json:"service"`
	Mode       string `json:"mode"`
	Sides      string `json:"sides"`
	Layout     int    `json:"layout"`
	Pages      int    `json:"pages"`
	Copies     int    `json:"copies"`
	ColorPages string `json:"color_pages"`
	Location   string `json:"location"`
	FilePath   string `json:"file_path"`
	Tier       string `json:"tier"`
}

func (req cartItemRequest) item(userID string) domain.StagedItem {
	return domain.StagedItem{
		UserID:     userID,
		Service:    pricing.ServiceType(req.Service),
		Mode:       pricing.PrintMode(req.Mode),
		Sides:      pricing.Sides(req.Sides),
		Layout:     req.Layout,
		Pages:      req.Pages,
		Copies:     req.Copies,
		ColorPages: req.ColorPages,
		Location:   req.Location,
		FilePath:   req.FilePath,
	}
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	item, err := h.service.AddCartItem(r.Context(), app.AddCartItemInput{
		Item: req.item(userID),
		Tier: tierOf(req.Tier),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"item": item})
}

func (h *Handler) listCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	items, err := h.service.ListCart(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if items == nil {
		items = []domain.StagedItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) cartCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	count, err := h.service.CartCount(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"count": count})
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := h.service.RemoveCartItem(r.Context(), userID, itemID); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.service.ClearCart(r.Context(), userID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type beginCheckoutRequest struct {
	CouponCode string           `json:"coupon_code"`
	Tier       string           `json:"tier"`
	Item       *cartItemRequest `json:"item"`
}

func (h *Handler) beginCartCheckout(w http.ResponseWriter, r *http.Request) {
	h.beginCheckout(w, r, domain.OriginCart)
}

func (h *Handler) beginDirectCheckout(w http.ResponseWriter, r *http.Request) {
	h.beginCheckout(w, r, domain.OriginDirect)
}

func (h *Handler) beginCheckout(w http.ResponseWriter, r *http.Request, origin domain.OriginKind) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req beginCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	cmd := commands.BeginCheckoutCommand{
		UserID:     userID,
		Origin:     origin,
		CouponCode: req.CouponCode,
		Tier:       tierOf(req.Tier),
	}
	if origin == domain.OriginDirect {
		if req.Item == nil {
			writeError(w, http.StatusBadRequest, "direct checkout requires an item")
			return
		}
		item := req.Item.item(userID)
		cmd.DirectItem = &item
	}

	batch, err := h.service.BeginCheckout(r.Context(), cmd)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"batch": batch})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	token := chi.URLParam(r, "token")
	summary, err := h.service.Summary(r.Context(), token, tierOf(r.URL.Query().Get("tier")))
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			writeError(w, http.StatusNotFound, "batch not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if summary.Batch.UserID != userID {
		writeError(w, http.StatusNotFound, "batch not found")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

type payRequest struct {
	Tier          string `json:"tier"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

func (h *Handler) stageForPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	token := chi.URLParam(r, "token")

	// Ownership is checked before any side effect. A wrong or foreign token
	// must not create order rows or open a gateway session.
	batch, err := h.service.GetBatch(ctx, token)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			writeError(w, http.StatusNotFound, "batch not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if batch.UserID != userID {
		writeError(w, http.StatusNotFound, "batch not found")
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey == "" {
		writeError(w, http.StatusBadRequest, "Idempotency-Key header required")
		return
	}

	// Claiming the key before executing makes concurrent retries with the
	// same key collapse to one gateway session. The loser either replays the
	// stored response or is told the original is still in flight.
	stored, claimed, err := h.service.ClaimIdempotencyKey(ctx, idemKey, token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !claimed {
		if stored == nil || stored.BatchToken != token {
			writeError(w, http.StatusConflict, "Idempotency-Key was used for a different checkout")
			return
		}
		if stored.Pending() {
			writeError(w, http.StatusConflict, "a request with this Idempotency-Key is in flight")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(stored.StatusCode)
		_, _ = w.Write(stored.Body)
		return
	}

	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.releaseKey(ctx, idemKey)
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	result, err := h.service.StageForPayment(ctx, commands.StageForPaymentCommand{
		BatchToken:    token,
		Tier:          tierOf(req.Tier),
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
	})
	if err != nil {
		// A failed attempt frees the key; the client retries the whole
		// checkout with the same one.
		h.releaseKey(ctx, idemKey)
		if errors.Is(err, ports.ErrNotFound) {
			writeError(w, http.StatusNotFound, "batch not found")
			return
		}
		var gwErr *ports.GatewayError
		if errors.As(err, &gwErr) {
			writeError(w, http.StatusBadGateway, "payment gateway unavailable, retry the checkout")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body, err := json.Marshal(result)
	if err != nil {
		h.releaseKey(ctx, idemKey)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	completed := ports.StoredResponse{
		StatusCode: http.StatusCreated,
		Body:       body,
		BatchToken: token,
	}
	if err := h.service.CompleteIdempotencyKey(ctx, idemKey, completed); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

// releaseKey frees a claimed key after a failed attempt. The client is about
// to see the original failure, so a release error is not surfaced on top.
func (h *Handler) releaseKey(ctx context.Context, key string) {
	_ = h.service.ReleaseIdempotencyKey(ctx, key)
}

// paymentCallback reconciles a gateway order. Cashfree sends the id as
// order_id on both the browser return and the webhook. Repeats are no-ops.
func (h *Handler) paymentCallback(w http.ResponseWriter, r *http.Request) {
	gatewayOrderID := r.URL.Query().Get("order_id")
	if gatewayOrderID == "" && r.Method == http.MethodPost {
		var payload struct {
			OrderID string `json:"order_id"`
			Data    struct {
				Order struct {
					OrderID string `json:"order_id"`
				} `json:"order"`
			} `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err == nil {
			gatewayOrderID = payload.OrderID
			if gatewayOrderID == "" {
				gatewayOrderID = payload.Data.Order.OrderID
			}
		}
	}
	if gatewayOrderID == "" {
		writeError(w, http.StatusBadRequest, "order_id is required")
		return
	}

	result, err := h.service.ResolvePayment(r.Context(), gatewayOrderID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"outcome":          result.Outcome,
		"already_resolved": result.AlreadyResolved,
		"orders":           result.Orders,
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if order.UserID != userID {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	orders, err := h.service.ListOrders(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "X-User-ID header required")
		return "", false
	}
	return userID, true
}

func tierOf(s string) pricing.Tier {
	if s == string(pricing.TierDealer) {
		return pricing.TierDealer
	}
	return pricing.TierRegular
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/fastcopy/printshop/internal/checkout/app/commands"
	"github.com/fastcopy/printshop/internal/checkout/app/queries"
	"github.com/fastcopy/printshop/internal/checkout/domain"
	"github.com/fastcopy/printshop/internal/checkout/metrics"
	"github.com/fastcopy/printshop/internal/checkout/ports"
	"github.com/fastcopy/printshop/internal/pricing"
)

// Deps collects everything the checkout service needs. Group wiring here so
// cmd/api stays a list of constructor calls.
type Deps struct {
	Orders    ports.OrderRepository
	Staging   ports.StagingStore
	Batches   ports.BatchRepository
	Coupons   ports.CouponRepository
	Rates     ports.RateRepository
	Holidays  ports.HolidayRepository
	Gateway   ports.PaymentGateway
	Files     ports.FileStore
	Notifier  ports.Notifier
	Mirror    ports.CartMirror
	IdemStore ports.IdempotencyStore
	Tx        ports.Transactor

	Location *time.Location
	Currency string
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// Service bundles the checkout use cases exposed over HTTP.
type Service struct {
	staging ports.StagingStore
	rates   ports.RateRepository
	orders  ports.OrderRepository
	batches ports.BatchRepository
	mirror  ports.CartMirror
	idem    ports.IdempotencyStore
	logger  *slog.Logger
	metrics *metrics.Metrics

	beginCheckout *commands.BeginCheckoutHandler
	stagePayment  *commands.StageForPaymentHandler
	resolve       commands.ResolveCommandHandler
	summaries     *queries.SummaryHandler
	getOrder      *queries.GetOrderHandler
}

// NewService wires the command and query handlers.
func NewService(d Deps) *Service {
	if d.Mirror == nil {
		d.Mirror = NewNoopMirror()
	}

	summaries := queries.NewSummaryHandler(d.Batches, d.Staging, d.Rates, d.Coupons, d.Holidays, d.Location)

	resolveCore := commands.NewResolveHandler(
		d.Orders, d.Staging, d.Batches, d.Coupons, d.Gateway, d.Files, d.Notifier, d.Tx, d.Logger,
	)

	return &Service{
		staging:       d.Staging,
		rates:         d.Rates,
		orders:        d.Orders,
		batches:       d.Batches,
		mirror:        d.Mirror,
		idem:          d.IdemStore,
		logger:        d.Logger,
		metrics:       d.Metrics,
		beginCheckout: commands.NewBeginCheckoutHandler(d.Batches, d.Staging, d.Coupons, d.Rates),
		stagePayment:  commands.NewStageForPaymentHandler(summaries, d.Orders, d.Batches, d.Gateway, d.Tx, d.Currency),
		resolve:       commands.NewObservableResolveHandler(resolveCore, d.Logger, d.Metrics),
		summaries:     summaries,
		getOrder:      queries.NewGetOrderHandler(d.Orders),
	}
}

// BeginCheckout mints a batch token for the user.
func (s *Service) BeginCheckout(ctx context.Context, cmd commands.BeginCheckoutCommand) (*domain.OrderBatch, error) {
	batch, err := s.beginCheckout.Handle(ctx, cmd)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordCheckoutStarted(ctx, string(batch.Origin.Kind))
	if batch.Origin.Kind == domain.OriginDirect {
		// The snapshot row lives alongside cart rows; keep the badge honest.
		s.refreshMirror(ctx, batch.UserID)
	}
	return batch, nil
}

// Summary prices a batch for display.
func (s *Service) Summary(ctx context.Context, token string, tier pricing.Tier) (*queries.Summary, error) {
	summary, err := s.summaries.Handle(ctx, queries.SummaryQuery{BatchToken: token, Tier: tier})
	if err != nil {
		return nil, err
	}
	if summary.CouponRejection != "" {
		s.metrics.RecordCouponRejection(ctx, summary.CouponRejection)
	}
	return summary, nil
}

// StageForPayment pre-records pending orders and opens a gateway session.
func (s *Service) StageForPayment(ctx context.Context, cmd commands.StageForPaymentCommand) (*commands.StageResult, error) {
	result, err := s.stagePayment.Handle(ctx, cmd)
	s.metrics.RecordPaymentSession(ctx, err == nil)
	return result, err
}

// ResolvePayment settles a batch against the gateway verdict. Safe to call
// any number of times per gateway order id.
func (s *Service) ResolvePayment(ctx context.Context, gatewayOrderID string) (*commands.ResolveResult, error) {
	result, err := s.resolve.Handle(ctx, commands.ResolvePaymentCommand{GatewayOrderID: gatewayOrderID})
	if err != nil {
		return nil, err
	}
	if result.Outcome == domain.PaymentSuccess || result.AlreadyResolved {
		s.refreshMirror(ctx, userIDOf(result.Orders))
	}
	return result, nil
}

// GetOrder retrieves an order by its public code.
func (s *Service) GetOrder(ctx context.Context, code string) (*domain.Order, error) {
	return s.getOrder.Handle(ctx, queries.GetOrderQuery{Code: code})
}

// ListOrders returns the user's order history.
func (s *Service) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// GetBatch resolves a batch by its token.
func (s *Service) GetBatch(ctx context.Context, token string) (*domain.OrderBatch, error) {
	return s.batches.GetByToken(ctx, token)
}

// ClaimIdempotencyKey reserves a key before any side effect runs. Exactly one
// caller per key gets claimed=true; the rest receive the winner's record.
func (s *Service) ClaimIdempotencyKey(ctx context.Context, key, batchToken string) (*ports.StoredResponse, bool, error) {
	return s.idem.Claim(ctx, key, batchToken)
}

// CompleteIdempotencyKey records the response to replay for a claimed key.
func (s *Service) CompleteIdempotencyKey(ctx context.Context, key string, response ports.StoredResponse) error {
	return s.idem.Complete(ctx, key, response)
}

// ReleaseIdempotencyKey frees a claimed key after a failed attempt so the
// client can retry with the same key.
func (s *Service) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return s.idem.Release(ctx, key)
}

func userIDOf(orders []domain.Order) string {
	if len(orders) == 0 {
		return ""
	}
	return orders[0].UserID
}

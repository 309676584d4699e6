package commands_test

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fastcopy/printshop/internal/checkout/domain"
	"github.com/fastcopy/printshop/internal/checkout/ports"
	"github.com/fastcopy/printshop/internal/pricing"
)

type fakeGateway struct {
	createFn func(ctx context.Context, input ports.CreateSessionInput) (ports.Session, error)
	pollFn   func(ctx context.Context, gatewayOrderID string) (ports.Verdict, error)
}

func (g *fakeGateway) CreateSession(ctx context.Context, input ports.CreateSessionInput) (ports.Session, error) {
	if g.createFn != nil {
		return g.createFn(ctx, input)
	}
	return ports.Session{ID: "session-" + input.GatewayOrderID}, nil
}

func (g *fakeGateway) PollStatus(ctx context.Context, gatewayOrderID string) (ports.Verdict, error) {
	if g.pollFn != nil {
		return g.pollFn(ctx, gatewayOrderID)
	}
	return ports.VerdictPaid, nil
}

type notification struct {
	order     domain.Order
	succeeded bool
}

// fakeNotifier pushes each dispatch onto a channel so tests can wait for the
// asynchronous fan-out to finish.
type fakeNotifier struct {
	ch chan notification
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{ch: make(chan notification, 16)}
}

func (n *fakeNotifier) OrderResolved(_ context.Context, order domain.Order, succeeded bool) error {
	n.ch <- notification{order: order, succeeded: succeeded}
	return nil
}

func testTable() pricing.Table {
	d := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }
	card := pricing.RateCard{
		PerPageSingle:      d("2"),
		PerPageDouble:      d("1.5"),
		ColorPerPageSingle: d("10"),
		ColorPerPageDouble: d("8"),
		Layout4Rate:        d("3"),
		Layout8Rate:        d("4"),
		Layout9Rate:        d("4.5"),
		SpiralTier1Limit:   50,
		SpiralTier2Limit:   100,
		SpiralTier3Limit:   200,
		SpiralTier1Price:   d("30"),
		SpiralTier2Price:   d("40"),
		SpiralTier3Price:   d("50"),
		SpiralExtraPrice:   d("10"),
		SoftBindingPrice:   d("25"),
		DeliverySurcharge:  d("20"),
	}
	return pricing.Table{Version: 1, Regular: card, Dealer: card}
}

func cartItem(userID, filePath string, pages int) domain.StagedItem {
	return domain.StagedItem{
		UserID:    userID,
		Service:   pricing.ServicePrinting,
		Mode:      pricing.ModeBW,
		Sides:     pricing.SidesSingle,
		Pages:     pages,
		Copies:    1,
		FilePath:  filePath,
		CreatedAt: time.Now().UTC(),
	}
}

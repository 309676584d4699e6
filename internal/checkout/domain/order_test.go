package domain_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fastcopy/printshop/internal/checkout/domain"
	"github.com/fastcopy/printshop/internal/pricing"
)

func TestFormatCode(t *testing.T) {
	tests := []struct {
		id   int64
		want string
	}{
		{1, "FC000001"},
		{42, "FC000042"},
		{999999, "FC999999"},
		{1000000, "FC1000000"},
	}
	for _, tc := range tests {
		if got := domain.FormatCode(tc.id); got != tc.want {
			t.Errorf("FormatCode(%d) = %s, want %s", tc.id, got, tc.want)
		}
	}
}

func TestOrderIsTerminal(t *testing.T) {
	order := domain.Order{PaymentStatus: domain.PaymentPending}
	if order.IsTerminal() {
		t.Error("pending order must not be terminal")
	}

	order.PaymentStatus = domain.PaymentSuccess
	if !order.IsTerminal() {
		t.Error("paid order must be terminal")
	}

	order.PaymentStatus = domain.PaymentFailed
	if !order.IsTerminal() {
		t.Error("failed order must be terminal")
	}
}

func TestOrderNetAmount(t *testing.T) {
	order := domain.Order{
		TotalAmount:    decimal.NewFromInt(500),
		DiscountAmount: decimal.NewFromInt(50),
	}
	if got := order.NetAmount(); !got.Equal(decimal.NewFromInt(450)) {
		t.Errorf("expected net 450, got %s", got)
	}
}

func TestStagedItemValidate(t *testing.T) {
	valid := domain.StagedItem{
		UserID:   "u1",
		Service:  pricing.ServicePrinting,
		Mode:     pricing.ModeBW,
		Sides:    pricing.SidesSingle,
		Pages:    10,
		Copies:   1,
		FilePath: "staging/u1/doc.pdf",
	}

	t.Run("valid item passes", func(t *testing.T) {
		if err := valid.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("rejects missing user", func(t *testing.T) {
		item := valid
		item.UserID = " "
		if err := item.Validate(); err == nil {
			t.Fatal("expected error, got nil")
		}
	})

	t.Run("rejects zero pages", func(t *testing.T) {
		item := valid
		item.Pages = 0
		if err := item.Validate(); err == nil {
			t.Fatal("expected error, got nil")
		}
	})

	t.Run("rejects negative copies", func(t *testing.T) {
		item := valid
		item.Copies = -1
		if err := item.Validate(); err == nil {
			t.Fatal("expected error, got nil")
		}
	})

	t.Run("rejects split mode without color pages", func(t *testing.T) {
		item := valid
		item.Mode = pricing.ModeSplit
		if err := item.Validate(); err == nil {
			t.Fatal("expected error, got nil")
		}
		item.ColorPages = "1-3"
		if err := item.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("custom layout requires a known divisor", func(t *testing.T) {
		item := valid
		item.Service = pricing.ServiceCustomLayout
		item.Layout = 5
		if err := item.Validate(); err == nil {
			t.Fatal("expected error, got nil")
		}
		item.Layout = 9
		if err := item.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestMintToken(t *testing.T) {
	cart := domain.MintToken(domain.OriginCart)
	direct := domain.MintToken(domain.OriginDirect)

	if !strings.HasPrefix(cart, "CART_") {
		t.Errorf("cart token %q missing CART_ prefix", cart)
	}
	if !strings.HasPrefix(direct, "DIRECT_") {
		t.Errorf("direct token %q missing DIRECT_ prefix", direct)
	}
	if cart == domain.MintToken(domain.OriginCart) {
		t.Error("tokens must be unique")
	}
}

func TestMintGatewayOrderID(t *testing.T) {
	token := domain.MintToken(domain.OriginCart)

	first := domain.MintGatewayOrderID(token)
	second := domain.MintGatewayOrderID(token)

	if first == second {
		t.Error("retried checkouts must produce distinct gateway order ids")
	}
	if !strings.HasPrefix(first, token[:16]) {
		t.Errorf("gateway order id %q should derive from the batch token", first)
	}
}

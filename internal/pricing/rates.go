package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tier selects which column of the rate sheet applies to a requester.
type Tier string

const (
	TierRegular Tier = "regular"
	TierDealer  Tier = "dealer"
)

// RateCard holds one tier's rates from the active rate sheet.
type RateCard struct {
	PerPageSingle decimal.Decimal
	PerPageDouble decimal.Decimal

	ColorPerPageSingle decimal.Decimal
	ColorPerPageDouble decimal.Decimal

	Layout4Rate decimal.Decimal
	Layout8Rate decimal.Decimal
	Layout9Rate decimal.Decimal

	SpiralTier1Limit int
	SpiralTier2Limit int
	SpiralTier3Limit int
	SpiralTier1Price decimal.Decimal
	SpiralTier2Price decimal.Decimal
	SpiralTier3Price decimal.Decimal
	// Charged per started block of 20 pages beyond the third tier limit.
	SpiralExtraPrice decimal.Decimal

	SoftBindingPrice decimal.Decimal

	DeliverySurcharge decimal.Decimal
}

// Table is the versioned rate sheet. Exactly one table is active at a time;
// administrators replace it wholesale, pricing computations only read it.
type Table struct {
	Version   int
	Regular   RateCard
	Dealer    RateCard
	UpdatedAt time.Time
}

// Card returns the rate card for the given tier, defaulting to regular.
func (t Table) Card(tier Tier) RateCard {
	if tier == TierDealer {
		return t.Dealer
	}
	return t.Regular
}

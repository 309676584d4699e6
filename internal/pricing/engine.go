package pricing

import (
	"github.com/shopspring/decimal"
)

// ServiceType identifies the kind of print job being priced.
type ServiceType string

const (
	ServicePrinting      ServiceType = "printing"
	ServiceSpiralBinding ServiceType = "spiral_binding"
	ServiceSoftBinding   ServiceType = "soft_binding"
	ServiceCustomLayout  ServiceType = "custom_layout"
)

// PrintMode selects how pages are inked.
type PrintMode string

const (
	ModeBW    PrintMode = "bw"
	ModeColor PrintMode = "color"
	// ModeSplit prints the pages named in ColorPages in color and the rest in
	// monochrome.
	ModeSplit PrintMode = "split"
)

// Sides selects single or double sided printing.
type Sides string

const (
	SidesSingle Sides = "single"
	SidesDouble Sides = "double"
)

// Job carries the print options needed to price one item. Page and copy counts
// are a caller contract: they must already be validated as non-negative.
type Job struct {
	Service    ServiceType
	Mode       PrintMode
	Sides      Sides
	Layout     int // pages per sheet for custom layout: 4, 8 or 9
	Pages      int
	Copies     int
	ColorPages string // split mode page spec, e.g. "1,3,5-7"
}

// Price computes the cost of a job against one tier's rate card, rounded to
// two decimals. Zero pages price to zero. The delivery surcharge is a
// per-batch amount and is deliberately not applied here.
func Price(job Job, card RateCard) decimal.Decimal {
	if job.Pages <= 0 || job.Copies <= 0 {
		return decimal.Zero
	}

	copies := decimal.NewFromInt(int64(job.Copies))
	pages := decimal.NewFromInt(int64(job.Pages))

	var cost decimal.Decimal

	switch {
	case job.Service == ServiceCustomLayout:
		divisor, rate := layoutRate(job.Layout, card)
		sheets := ceilDiv(job.Pages, divisor)
		cost = decimal.NewFromInt(int64(sheets)).Mul(rate).Mul(copies)

	case job.Mode == ModeSplit:
		colorCount := CountColorPages(job.ColorPages, job.Pages)
		monoCount := job.Pages - colorCount
		colorRate, monoRate := card.ColorPerPageSingle, card.PerPageSingle
		if job.Sides == SidesDouble {
			colorRate, monoRate = card.ColorPerPageDouble, card.PerPageDouble
		}
		colorCost := decimal.NewFromInt(int64(colorCount)).Mul(colorRate)
		monoCost := decimal.NewFromInt(int64(monoCount)).Mul(monoRate)
		cost = colorCost.Add(monoCost).Mul(copies)

	case job.Mode == ModeColor:
		// Uniform color pages are priced at the flat color rate, not the
		// monochrome rate plus a surcharge. Split mode keeps the two-rate
		// arithmetic above; the asymmetry is intentional.
		rate := card.ColorPerPageSingle
		if job.Sides == SidesDouble {
			rate = card.ColorPerPageDouble
		}
		cost = pages.Mul(copies).Mul(rate)

	default:
		rate := card.PerPageSingle
		if job.Sides == SidesDouble {
			rate = card.PerPageDouble
		}
		cost = pages.Mul(copies).Mul(rate)
	}

	cost = cost.Add(bindingCost(job, card).Mul(copies))

	if cost.IsNegative() {
		return decimal.Zero
	}
	return cost.Round(2)
}

func bindingCost(job Job, card RateCard) decimal.Decimal {
	switch job.Service {
	case ServiceSpiralBinding:
		switch {
		case job.Pages <= card.SpiralTier1Limit:
			return card.SpiralTier1Price
		case job.Pages <= card.SpiralTier2Limit:
			return card.SpiralTier2Price
		case job.Pages <= card.SpiralTier3Limit:
			return card.SpiralTier3Price
		default:
			extra := ceilDiv(job.Pages-card.SpiralTier3Limit, 20)
			return card.SpiralTier3Price.Add(decimal.NewFromInt(int64(extra)).Mul(card.SpiralExtraPrice))
		}
	case ServiceSoftBinding:
		return card.SoftBindingPrice
	default:
		return decimal.Zero
	}
}

func layoutRate(layout int, card RateCard) (int, decimal.Decimal) {
	switch layout {
	case 8:
		return 8, card.Layout8Rate
	case 9:
		return 9, card.Layout9Rate
	default:
		return 4, card.Layout4Rate
	}
}

// ceilDiv is integer ceiling division; floating rounding would drift for
// large page counts.
func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}

package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fastcopy/printshop/internal/pricing"
)

// StagedItem is one print job waiting to be checked out: the print options
// plus a reference to the uploaded content. Staged items belong to exactly
// one user and are only ever visible to that user.
type StagedItem struct {
	ID         int64               `json:"id"`
	UserID     string              `json:"user_id"`
	Service    pricing.ServiceType `json:"service"`
	Mode       pricing.PrintMode   `json:"mode"`
	Sides      pricing.Sides       `json:"sides"`
	Layout     int                 `json:"layout,omitempty"`
	Pages      int                 `json:"pages"`
	Copies     int                 `json:"copies"`
	ColorPages string              `json:"color_pages,omitempty"`
	Location   string              `json:"location,omitempty"`
	FilePath   string              `json:"file_path"`
	UnitPrice  decimal.Decimal     `json:"unit_price"`
	CreatedAt  time.Time           `json:"created_at"`
}

// Validate enforces the caller contract at the boundary: the pricing engine
// itself assumes counts are already sane.
func (i StagedItem) Validate() error {
	if strings.TrimSpace(i.UserID) == "" {
		return errors.New("user_id is required")
	}
	switch i.Service {
	case pricing.ServicePrinting, pricing.ServiceSpiralBinding, pricing.ServiceSoftBinding:
	case pricing.ServiceCustomLayout:
		if i.Layout != 4 && i.Layout != 8 && i.Layout != 9 {
			return errors.New("layout must be 4, 8 or 9 pages per sheet")
		}
	default:
		return errors.New("unknown service type")
	}
	if i.Service != pricing.ServiceCustomLayout {
		switch i.Mode {
		case pricing.ModeBW, pricing.ModeColor:
		case pricing.ModeSplit:
			if strings.TrimSpace(i.ColorPages) == "" {
				return errors.New("split mode requires color_pages")
			}
		default:
			return errors.New("unknown print mode")
		}
		switch i.Sides {
		case pricing.SidesSingle, pricing.SidesDouble:
		default:
			return errors.New("sides must be single or double")
		}
	}
	if i.Pages <= 0 {
		return errors.New("pages must be positive")
	}
	if i.Copies <= 0 {
		return errors.New("copies must be positive")
	}
	if strings.TrimSpace(i.FilePath) == "" {
		return errors.New("file_path is required")
	}
	return nil
}

// Job maps the item onto the pricing engine's input.
func (i StagedItem) Job() pricing.Job {
	return pricing.Job{
		Service:    i.Service,
		Mode:       i.Mode,
		Sides:      i.Sides,
		Layout:     i.Layout,
		Pages:      i.Pages,
		Copies:     i.Copies,
		ColorPages: i.ColorPages,
	}
}

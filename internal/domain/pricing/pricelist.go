package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bizbooks-backend/internal/domain/values"
)

// RateSource identifies which rule produced an effective rate.
type RateSource int

const (
	SourceCatalog RateSource = iota
	SourceCustomRate
	SourceMarkup
	SourceMarkdown
)

func (s RateSource) String() string {
	switch s {
	case SourceCatalog:
		return "catalog"
	case SourceCustomRate:
		return "custom_rate"
	case SourceMarkup:
		return "markup"
	case SourceMarkdown:
		return "markdown"
	default:
		return "unknown"
	}
}

// RoundOffPolicy rounds a resolved rate before it reaches the line
// computation.
type RoundOffPolicy int

const (
	RoundOffNever RoundOffPolicy = iota
	RoundOffNearestOne
	RoundOffNearestFive
	RoundOffNearestTen
)

func (p RoundOffPolicy) String() string {
	switch p {
	case RoundOffNever:
		return "never"
	case RoundOffNearestOne:
		return "nearest_1"
	case RoundOffNearestFive:
		return "nearest_5"
	case RoundOffNearestTen:
		return "nearest_10"
	default:
		return "unknown"
	}
}

// ParseRoundOffPolicy maps a config string to a policy; unknown values
// fall back to never rounding.
func ParseRoundOffPolicy(s string) RoundOffPolicy {
	switch s {
	case "nearest_1":
		return RoundOffNearestOne
	case "nearest_5":
		return RoundOffNearestFive
	case "nearest_10":
		return RoundOffNearestTen
	default:
		return RoundOffNever
	}
}

// Apply rounds the rate per the policy.
func (p RoundOffPolicy) Apply(rate values.Money) values.Money {
	switch p {
	case RoundOffNearestOne:
		return rate.RoundToNearest(1)
	case RoundOffNearestFive:
		return rate.RoundToNearest(5)
	case RoundOffNearestTen:
		return rate.RoundToNearest(10)
	default:
		return rate
	}
}

// Entry is one item's override inside a price list. A custom rate, when
// present, is authoritative; otherwise a single percentage adjustment
// off the catalog rate applies.
type Entry struct {
	ItemID          uuid.UUID        `json:"item_id"`
	CustomRate      *values.Money    `json:"custom_rate,omitempty"`
	MarkupPercent   *decimal.Decimal `json:"markup_percent,omitempty"`
	MarkdownPercent *decimal.Decimal `json:"markdown_percent,omitempty"`
}

// PriceList is a named set of per-item rate overrides assignable to
// customers.
type PriceList struct {
	ID        uuid.UUID           `json:"id"`
	Name      string              `json:"name"`
	Entries   map[uuid.UUID]Entry `json:"entries"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// NewPriceList creates an empty named price list.
func NewPriceList(name string, now time.Time) *PriceList {
	return &PriceList{
		ID:        uuid.New(),
		Name:      name,
		Entries:   make(map[uuid.UUID]Entry),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Upsert replaces the entry for the item.
func (l *PriceList) Upsert(e Entry, now time.Time) {
	l.Entries[e.ItemID] = e
	l.UpdatedAt = now
}

// Resolution is the outcome of a price lookup.
type Resolution struct {
	EffectiveRate values.Money `json:"effective_rate"`
	Source        RateSource   `json:"source"`
	PriceListName string       `json:"price_list_name,omitempty"`
}

// Resolve computes the effective rate for an item against a price list.
// First match wins: explicit custom rate, then markup, then markdown,
// then the catalog rate as fallback. A nil list or missing entry simply
// resolves to the catalog rate. The round-off policy is applied to the
// final rate, whatever its source.
func Resolve(list *PriceList, itemID uuid.UUID, catalogRate values.Money, policy RoundOffPolicy) Resolution {
	res := Resolution{EffectiveRate: catalogRate, Source: SourceCatalog}

	if list != nil {
		if entry, ok := list.Entries[itemID]; ok {
			switch {
			case entry.CustomRate != nil:
				res = Resolution{EffectiveRate: *entry.CustomRate, Source: SourceCustomRate, PriceListName: list.Name}
			case entry.MarkupPercent != nil:
				rate := catalogRate.Add(catalogRate.Percent(*entry.MarkupPercent)).Round()
				res = Resolution{EffectiveRate: rate, Source: SourceMarkup, PriceListName: list.Name}
			case entry.MarkdownPercent != nil:
				rate := catalogRate.Sub(catalogRate.Percent(*entry.MarkdownPercent)).Round()
				res = Resolution{EffectiveRate: rate, Source: SourceMarkdown, PriceListName: list.Name}
			}
		}
	}

	res.EffectiveRate = policy.Apply(res.EffectiveRate)
	return res
}

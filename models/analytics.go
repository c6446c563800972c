package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The checkout client and the admin charts expect prices as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type BlockRefState string

const (
	BlockRefAbsent       BlockRefState = "absent"
	BlockRefValid        BlockRefState = "valid"
	BlockRefUnresolvable BlockRefState = "unresolvable"
)

// UnknownBlockID is what older checkout builds send when they lost track of the block id.
const UnknownBlockID = "unknown"

// BlockRef is the soft link from an analytics row to the UpsellBlock that rendered the product.
// ID is only meaningful when State is BlockRefValid.
type BlockRef struct {
	State BlockRefState
	ID    string
}

// ParseBlockRef classifies the id supplied by the checkout client.
func ParseBlockRef(raw *string) BlockRef {
	if raw == nil {
		return BlockRef{State: BlockRefAbsent}
	}
	id := strings.TrimSpace(*raw)
	switch {
	case id == "":
		return BlockRef{State: BlockRefAbsent}
	case strings.EqualFold(id, UnknownBlockID):
		return BlockRef{State: BlockRefUnresolvable}
	default:
		return BlockRef{State: BlockRefValid, ID: id}
	}
}

// UpsellAnalytics is one click on a recommended product, possibly converted into a cart addition.
type UpsellAnalytics struct {
	ID            string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Shop          string          `json:"shop" gorm:"not null;index:idx_upsell_analytics_shop_created,priority:1"`
	UpsellBlockID *string         `json:"upsellBlockId" gorm:"type:varchar(36)"`
	BlockRef      BlockRefState   `json:"blockRef" gorm:"column:block_ref;type:varchar(16);not null"`
	ProductID     string          `json:"productId" gorm:"not null"`
	VariantID     string          `json:"variantId" gorm:"not null"`
	ProductName   string          `json:"productName" gorm:"not null"`
	VariantTitle  *string         `json:"variantTitle,omitempty"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Placement     string          `json:"placement" gorm:"type:varchar(32);not null"`
	CustomerHash  *string         `json:"customerHash,omitempty"`
	SessionID     *string         `json:"sessionId,omitempty"`
	AddedToCart   bool            `json:"addedToCart" gorm:"not null"`
	CreatedAt     time.Time       `json:"createdAt" gorm:"index:idx_upsell_analytics_shop_created,priority:2"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (UpsellAnalytics) TableName() string {
	return "upsell_analytics"
}

func (a *UpsellAnalytics) Ref() BlockRef {
	if a.BlockRef == BlockRefValid && a.UpsellBlockID != nil {
		return BlockRef{State: BlockRefValid, ID: *a.UpsellBlockID}
	}
	if a.BlockRef == "" {
		return BlockRef{State: BlockRefAbsent}
	}
	return BlockRef{State: a.BlockRef}
}

func (a *UpsellAnalytics) SetRef(ref BlockRef) {
	a.BlockRef = ref.State
	a.UpsellBlockID = nil
	if ref.State == BlockRefValid {
		id := ref.ID
		a.UpsellBlockID = &id
	}
}

type AnalyticsSummary struct {
	TotalClicks int64           `json:"totalClicks"`
	TotalValue  decimal.Decimal `json:"totalValue"`
}

type ConversionCounts struct {
	Clicked   int64 `json:"clicked"`
	Converted int64 `json:"converted"`
}

type TopProduct struct {
	ProductID   string          `json:"productId" gorm:"column:product_id"`
	ProductName string          `json:"productName" gorm:"column:product_name"`
	Count       int64           `json:"count" gorm:"column:clicks"`
	Total       decimal.Decimal `json:"total" gorm:"column:total"`
}

type DailyPoint struct {
	Date        string          `json:"date"`
	Clicks      int64           `json:"clicks"`
	Conversions int64           `json:"conversions"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type PlacementCount struct {
	Placement string `json:"placement" gorm:"column:placement"`
	Count     int64  `json:"count" gorm:"column:clicks"`
}

// AnalyticsEvent is an analytics row joined with the name of the block it links to.
type AnalyticsEvent struct {
	UpsellAnalytics
	UpsellBlockName *string `json:"upsellBlockName" gorm:"column:upsell_block_name"`
}

// AnalyticsReport is the admin reporting payload.
type AnalyticsReport struct {
	Analytics          []AnalyticsEvent `json:"analytics"`
	Summary            AnalyticsSummary `json:"summary"`
	Conversions        ConversionCounts `json:"conversions"`
	TopProducts        []TopProduct     `json:"topProducts"`
	ChartData          []DailyPoint     `json:"chartData"`
	PlacementBreakdown []PlacementCount `json:"placementBreakdown"`
}

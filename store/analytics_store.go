package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"checkoutupsell/api/models"
)

type AnalyticsStore struct {
	db *gorm.DB
}

// AnalyticsFilter narrows the event set. Start and End are inclusive and only applied together.
type AnalyticsFilter struct {
	Shop      string
	Start     *time.Time
	End       *time.Time
	Placement string
}

// DailyRow is the projection used to build the daily chart.
type DailyRow struct {
	CreatedAt   time.Time       `gorm:"column:created_at"`
	AddedToCart bool            `gorm:"column:added_to_cart"`
	Price       decimal.Decimal `gorm:"column:price"`
}

type Totals struct {
	TotalClicks int64           `gorm:"column:total_clicks"`
	TotalValue  decimal.Decimal `gorm:"column:total_value"`
	Converted   int64           `gorm:"column:converted"`
}

func NewAnalyticsStore(db *gorm.DB) *AnalyticsStore {
	return &AnalyticsStore{db: db}
}

func (s *AnalyticsStore) scoped(ctx context.Context, f AnalyticsFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.UpsellAnalytics{}).Where("upsell_analytics.shop = ?", f.Shop)
	if f.Start != nil && f.End != nil {
		q = q.Where("upsell_analytics.created_at >= ? AND upsell_analytics.created_at <= ?", f.Start.UTC(), f.End.UTC())
	}
	if f.Placement != "" {
		q = q.Where("upsell_analytics.placement = ?", f.Placement)
	}
	return q
}

func (s *AnalyticsStore) Insert(ctx context.Context, row *models.UpsellAnalytics) error {
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	if row.BlockRef == "" {
		row.BlockRef = models.BlockRefAbsent
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to insert analytics event: %w", err)
	}
	return nil
}

// MarkConverted flips added_to_cart on an existing row of the shop and returns the updated row.
func (s *AnalyticsStore) MarkConverted(ctx context.Context, shop, id string) (*models.UpsellAnalytics, error) {
	res := s.db.WithContext(ctx).Model(&models.UpsellAnalytics{}).
		Where("id = ? AND shop = ?", id, shop).
		Update("added_to_cart", true)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to mark analytics event converted: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	var row models.UpsellAnalytics
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to reload analytics event: %w", err)
	}
	return &row, nil
}

// ListEvents returns the newest events of the filter, capped at limit.
func (s *AnalyticsStore) ListEvents(ctx context.Context, f AnalyticsFilter, limit int) ([]models.AnalyticsEvent, error) {
	events := []models.AnalyticsEvent{}
	err := s.scoped(ctx, f).
		Select("upsell_analytics.*, upsell_blocks.name AS upsell_block_name").
		Joins("LEFT JOIN upsell_blocks ON upsell_blocks.id = upsell_analytics.upsell_block_id AND upsell_analytics.block_ref = ?", models.BlockRefValid).
		Order("upsell_analytics.created_at DESC").
		Limit(limit).
		Scan(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list analytics events: %w", err)
	}
	return events, nil
}

func (s *AnalyticsStore) Totals(ctx context.Context, f AnalyticsFilter) (Totals, error) {
	var t Totals
	err := s.scoped(ctx, f).
		Select(`COUNT(*) AS total_clicks,
			COALESCE(SUM(upsell_analytics.price), 0) AS total_value,
			COALESCE(SUM(CASE WHEN upsell_analytics.added_to_cart THEN 1 ELSE 0 END), 0) AS converted`).
		Scan(&t).Error
	if err != nil {
		return Totals{}, fmt.Errorf("failed to query analytics totals: %w", err)
	}
	return t, nil
}

func (s *AnalyticsStore) TopProducts(ctx context.Context, f AnalyticsFilter, limit int) ([]models.TopProduct, error) {
	products := []models.TopProduct{}
	err := s.scoped(ctx, f).
		Select("product_id, product_name, COUNT(*) AS clicks, COALESCE(SUM(price), 0) AS total").
		Group("product_id, product_name").
		Order("clicks DESC").
		Order("product_id ASC").
		Limit(limit).
		Scan(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query top products: %w", err)
	}
	return products, nil
}

func (s *AnalyticsStore) PlacementBreakdown(ctx context.Context, f AnalyticsFilter) ([]models.PlacementCount, error) {
	counts := []models.PlacementCount{}
	err := s.scoped(ctx, f).
		Select("placement, COUNT(*) AS clicks").
		Group("placement").
		Order("clicks DESC").
		Order("placement ASC").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query placement breakdown: %w", err)
	}
	return counts, nil
}

// DailyRows returns the chart projection for rows created at or after since. The date range of
// the filter is ignored; the chart always covers its own fixed window.
func (s *AnalyticsStore) DailyRows(ctx context.Context, f AnalyticsFilter, since time.Time) ([]DailyRow, error) {
	f.Start, f.End = nil, nil
	rows := []DailyRow{}
	err := s.scoped(ctx, f).
		Select("created_at, added_to_cart, price").
		Where("upsell_analytics.created_at >= ?", since.UTC()).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query daily analytics: %w", err)
	}
	return rows, nil
}

func (s *AnalyticsStore) DeleteAllForShop(ctx context.Context, shop string) (int64, error) {
	res := s.db.WithContext(ctx).Where("shop = ?", shop).Delete(&models.UpsellAnalytics{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete analytics for shop: %w", res.Error)
	}
	return res.RowsAffected, nil
}

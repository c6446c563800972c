package analytics

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"checkoutupsell/api/logger"
	"checkoutupsell/api/metrics"
	"checkoutupsell/api/models"
	"checkoutupsell/api/store"
)

var (
	ErrMissingFields = errors.New("missing required fields")
	ErrShopRequired  = errors.New("shop is required")
)

const (
	DefaultEventLimit = 500
	TopProductsLimit  = 10
	ChartDays         = 7
)

// EventStore is the analytics storage the service reads and writes.
type EventStore interface {
	Insert(ctx context.Context, row *models.UpsellAnalytics) error
	MarkConverted(ctx context.Context, shop, id string) (*models.UpsellAnalytics, error)
	ListEvents(ctx context.Context, f store.AnalyticsFilter, limit int) ([]models.AnalyticsEvent, error)
	Totals(ctx context.Context, f store.AnalyticsFilter) (store.Totals, error)
	TopProducts(ctx context.Context, f store.AnalyticsFilter, limit int) ([]models.TopProduct, error)
	PlacementBreakdown(ctx context.Context, f store.AnalyticsFilter) ([]models.PlacementCount, error)
	DailyRows(ctx context.Context, f store.AnalyticsFilter, since time.Time) ([]store.DailyRow, error)
}

// BlockChecker resolves soft block references.
type BlockChecker interface {
	Exists(ctx context.Context, shop, id string) (bool, error)
}

// Result is what the checkout extension gets back for a recorded event.
type Result struct {
	ID      string
	Updated bool
}

// Filter selects the rows of a report. Start and End only apply when both are set.
type Filter struct {
	Shop      string
	Start     *time.Time
	End       *time.Time
	Placement string
	Limit     int
}

type Service struct {
	events     EventStore
	blocks     BlockChecker
	mirror     store.EventMirror
	eventLimit int
	now        func() time.Time
}

type Option func(*Service)

// WithMirror copies every written row to a secondary sink.
func WithMirror(m store.EventMirror) Option {
	return func(s *Service) { s.mirror = m }
}

// WithEventLimit caps the raw rows returned by Summarize.
func WithEventLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.eventLimit = limit
		}
	}
}

func NewService(events EventStore, blocks BlockChecker, opts ...Option) *Service {
	s := &Service{
		events:     events,
		blocks:     blocks,
		eventLimit: DefaultEventLimit,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record stores a click, or flips an earlier click to converted when the event names one.
func (s *Service) Record(ctx context.Context, ev Event) (Result, error) {
	if !ev.complete() {
		return Result{}, ErrMissingFields
	}
	if id := ev.conversionTarget(); id != "" {
		return s.RecordConversion(ctx, id, ev)
	}
	id, err := s.RecordClick(ctx, ev)
	if err != nil {
		return Result{}, err
	}
	return Result{ID: id}, nil
}

// RecordClick inserts one analytics row and returns its id.
func (s *Service) RecordClick(ctx context.Context, ev Event) (string, error) {
	if !ev.complete() {
		return "", ErrMissingFields
	}

	row := &models.UpsellAnalytics{
		Shop:         strings.TrimSpace(ev.Shop),
		ProductID:    ev.ProductID,
		VariantID:    ev.VariantID,
		ProductName:  ev.ProductName,
		VariantTitle: ev.variantTitle(),
		Price:        ev.Price.Decimal.Round(2),
		Placement:    ev.Placement,
		CustomerHash: ev.CustomerHash,
		SessionID:    ev.SessionID,
		AddedToCart:  ev.AddedToCart,
	}
	row.SetRef(s.resolveRef(ctx, row.Shop, ev.UpsellBlockID))

	if err := s.events.Insert(ctx, row); err != nil {
		return "", err
	}

	logger.InfoCtx(ctx, "Analytics tracked",
		zap.String("id", row.ID),
		zap.String("shop", row.Shop),
		zap.String("product_name", row.ProductName),
		zap.String("placement", row.Placement),
		zap.Bool("added_to_cart", row.AddedToCart))

	metrics.Default().AnalyticsEvents.WithLabelValues("click").Inc()
	s.mirrorRow(ctx, row)
	return row.ID, nil
}

// RecordConversion marks row id of the event's shop as added to cart. When that row cannot be
// updated a new converted row is inserted instead, so the conversion is never lost.
func (s *Service) RecordConversion(ctx context.Context, id string, ev Event) (Result, error) {
	shop := strings.TrimSpace(ev.Shop)
	if shop == "" {
		return Result{}, ErrMissingFields
	}

	row, err := s.events.MarkConverted(ctx, shop, id)
	if err == nil {
		logger.InfoCtx(ctx, "Analytics conversion updated", zap.String("id", row.ID), zap.String("shop", shop))
		metrics.Default().AnalyticsEvents.WithLabelValues("conversion").Inc()
		s.mirrorRow(ctx, row)
		return Result{ID: row.ID, Updated: true}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		logger.WarnCtx(ctx, "Error updating analytics conversion", zap.String("id", id), zap.Error(err))
	}

	ev.AddedToCart = true
	newID, err := s.RecordClick(ctx, ev)
	if err != nil {
		return Result{}, err
	}
	return Result{ID: newID}, nil
}

func (s *Service) resolveRef(ctx context.Context, shop string, raw *string) models.BlockRef {
	ref := models.ParseBlockRef(raw)
	if ref.State != models.BlockRefValid || s.blocks == nil {
		return ref
	}
	ok, err := s.blocks.Exists(ctx, shop, ref.ID)
	if err != nil {
		logger.WarnCtx(ctx, "Could not resolve upsell block reference", zap.String("upsell_block_id", ref.ID), zap.Error(err))
		return models.BlockRef{State: models.BlockRefUnresolvable}
	}
	if !ok {
		return models.BlockRef{State: models.BlockRefUnresolvable}
	}
	return ref
}

func (s *Service) mirrorRow(ctx context.Context, row *models.UpsellAnalytics) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.InsertEvents(ctx, []models.UpsellAnalytics{*row}); err != nil {
		metrics.Default().MirrorErrors.Inc()
		logger.WarnCtx(ctx, "Failed to mirror analytics event", zap.String("id", row.ID), zap.Error(err))
	}
}

// Summarize builds the reporting payload for one shop.
func (s *Service) Summarize(ctx context.Context, f Filter) (*models.AnalyticsReport, error) {
	shop := strings.TrimSpace(f.Shop)
	if shop == "" {
		return nil, ErrShopRequired
	}

	sf := store.AnalyticsFilter{Shop: shop}
	if f.Start != nil && f.End != nil {
		sf.Start, sf.End = f.Start, f.End
	}
	if p := strings.TrimSpace(f.Placement); p != "" && p != "all" {
		sf.Placement = p
	}

	limit := f.Limit
	if limit <= 0 || limit > s.eventLimit {
		limit = s.eventLimit
	}

	events, err := s.events.ListEvents(ctx, sf, limit)
	if err != nil {
		return nil, err
	}
	totals, err := s.events.Totals(ctx, sf)
	if err != nil {
		return nil, err
	}
	top, err := s.events.TopProducts(ctx, sf, TopProductsLimit)
	if err != nil {
		return nil, err
	}
	placements, err := s.events.PlacementBreakdown(ctx, sf)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	daily, err := s.events.DailyRows(ctx, sf, ChartStart(now))
	if err != nil {
		return nil, err
	}

	return &models.AnalyticsReport{
		Analytics: events,
		Summary: models.AnalyticsSummary{
			TotalClicks: totals.TotalClicks,
			TotalValue:  totals.TotalValue,
		},
		Conversions: models.ConversionCounts{
			Clicked:   totals.TotalClicks - totals.Converted,
			Converted: totals.Converted,
		},
		TopProducts:        top,
		ChartData:          BuildDailySeries(daily, now),
		PlacementBreakdown: placements,
	}, nil
}

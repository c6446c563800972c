package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkoutupsell/api/database/testdb"
	"checkoutupsell/api/models"
	"checkoutupsell/api/store"
)

type recordingMirror struct {
	events []models.UpsellAnalytics
	err    error
}

func (m *recordingMirror) InsertEvents(_ context.Context, events []models.UpsellAnalytics) error {
	m.events = append(m.events, events...)
	return m.err
}

type fixture struct {
	svc    *Service
	events *store.AnalyticsStore
	blocks *store.UpsellStore
	mirror *recordingMirror
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.Open(t)
	f := &fixture{
		events: store.NewAnalyticsStore(db),
		blocks: store.NewUpsellStore(db),
		mirror: &recordingMirror{},
	}
	f.svc = NewService(f.events, f.blocks, WithMirror(f.mirror))
	return f
}

func strPtr(s string) *string { return &s }

func click(shop, productID string, price int64) Event {
	return Event{
		Shop:        shop,
		ProductID:   productID,
		VariantID:   productID + "-v1",
		ProductName: "Product " + productID,
		Price:       NewPrice(decimal.NewFromInt(price)),
		Placement:   "checkout",
	}
}

func TestRecordRequiresFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mutations := map[string]func(*Event){
		"shop":              func(e *Event) { e.Shop = " " },
		"productId":         func(e *Event) { e.ProductID = "" },
		"variantId":         func(e *Event) { e.VariantID = "" },
		"productName":       func(e *Event) { e.ProductName = "" },
		"placement":         func(e *Event) { e.Placement = "" },
		"blank productId":   func(e *Event) { e.ProductID = "  " },
		"blank variantId":   func(e *Event) { e.VariantID = "\t" },
		"blank productName": func(e *Event) { e.ProductName = "   " },
		"blank placement":   func(e *Event) { e.Placement = " " },
		"price":             func(e *Event) { e.Price = Price{} },
		"zero price":        func(e *Event) { e.Price = NewPrice(decimal.Zero) },
		"negative price":    func(e *Event) { e.Price = NewPrice(decimal.NewFromInt(-5)) },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			ev := click("a.myshopify.com", "p1", 10)
			mutate(&ev)
			_, err := f.svc.Record(ctx, ev)
			assert.ErrorIs(t, err, ErrMissingFields)
		})
	}

	totals, err := f.events.Totals(ctx, store.AnalyticsFilter{Shop: "a.myshopify.com"})
	require.NoError(t, err)
	assert.Zero(t, totals.TotalClicks)
	assert.Empty(t, f.mirror.events)
}

func TestRecordClickResolvesBlockRef(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	block := &models.UpsellBlock{Shop: "a.myshopify.com", Placement: models.PlacementCheckout, Title: "t", ButtonText: "Add", ShowCount: 1, SlideDuration: 1, Layout: "stack", Columns: 1}
	require.NoError(t, f.blocks.Create(ctx, block))

	cases := []struct {
		name  string
		shop  string
		ref   *string
		state models.BlockRefState
	}{
		{"absent", "a.myshopify.com", nil, models.BlockRefAbsent},
		{"sentinel", "a.myshopify.com", strPtr("unknown"), models.BlockRefUnresolvable},
		{"valid", "a.myshopify.com", strPtr(block.ID), models.BlockRefValid},
		{"dangling", "a.myshopify.com", strPtr("no-such-block"), models.BlockRefUnresolvable},
		{"other shop", "b.myshopify.com", strPtr(block.ID), models.BlockRefUnresolvable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := click(tc.shop, "p1", 10)
			ev.UpsellBlockID = tc.ref
			id, err := f.svc.RecordClick(ctx, ev)
			require.NoError(t, err)

			written := f.mirror.events[len(f.mirror.events)-1]
			assert.Equal(t, id, written.ID)
			assert.Equal(t, tc.state, written.BlockRef)
			if tc.state == models.BlockRefValid {
				require.NotNil(t, written.UpsellBlockID)
				assert.Equal(t, block.ID, *written.UpsellBlockID)
			} else {
				assert.Nil(t, written.UpsellBlockID)
			}
		})
	}
}

func TestRecordClickDropsRedundantVariantTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ev := click("a.myshopify.com", "p1", 10)
	ev.VariantTitle = strPtr(ev.ProductName)
	_, err := f.svc.RecordClick(ctx, ev)
	require.NoError(t, err)
	require.Len(t, f.mirror.events, 1)
	assert.Nil(t, f.mirror.events[0].VariantTitle)

	ev.VariantTitle = strPtr("Large")
	_, err = f.svc.RecordClick(ctx, ev)
	require.NoError(t, err)
	require.Len(t, f.mirror.events, 2)
	assert.Equal(t, "Large", *f.mirror.events[1].VariantTitle)
}

func TestRecordConversionUpdatesExistingRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Record(ctx, click("a.myshopify.com", "p1", 10))
	require.NoError(t, err)
	assert.False(t, res.Updated)

	conv := click("a.myshopify.com", "p1", 10)
	conv.AddedToCart = true
	conv.UpdateExisting = strPtr(res.ID)

	updated, err := f.svc.Record(ctx, conv)
	require.NoError(t, err)
	assert.True(t, updated.Updated)
	assert.Equal(t, res.ID, updated.ID)

	again, err := f.svc.Record(ctx, conv)
	require.NoError(t, err)
	assert.True(t, again.Updated)

	totals, err := f.events.Totals(ctx, store.AnalyticsFilter{Shop: "a.myshopify.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), totals.TotalClicks)
	assert.Equal(t, int64(1), totals.Converted)

	require.Len(t, f.mirror.events, 3)
	assert.True(t, f.mirror.events[1].AddedToCart)
}

func TestRecordConversionInsertsWhenRowMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	firstClick, err := f.svc.Record(ctx, click("a.myshopify.com", "p1", 10))
	require.NoError(t, err)

	conv := click("a.myshopify.com", "p1", 10)
	conv.AddedToCart = true
	conv.UpdateExisting = strPtr("does-not-exist")

	res, err := f.svc.Record(ctx, conv)
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.NotEqual(t, firstClick.ID, res.ID)

	// a conversion naming another shop's row never touches it
	foreign := click("b.myshopify.com", "p1", 10)
	foreign.AddedToCart = true
	foreign.UpdateExisting = strPtr(firstClick.ID)
	res, err = f.svc.Record(ctx, foreign)
	require.NoError(t, err)
	assert.False(t, res.Updated)

	totals, err := f.events.Totals(ctx, store.AnalyticsFilter{Shop: "a.myshopify.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), totals.TotalClicks)
	assert.Equal(t, int64(1), totals.Converted)
}

func TestUpdateExistingWithoutAddedToCartIsAClick(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Record(ctx, click("a.myshopify.com", "p1", 10))
	require.NoError(t, err)

	ev := click("a.myshopify.com", "p1", 10)
	ev.UpdateExisting = strPtr(first.ID)
	res, err := f.svc.Record(ctx, ev)
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.NotEqual(t, first.ID, res.ID)
}

func TestMirrorFailureIsNotSurfaced(t *testing.T) {
	f := newFixture(t)
	f.mirror.err = errors.New("clickhouse down")

	_, err := f.svc.Record(context.Background(), click("a.myshopify.com", "p1", 10))
	assert.NoError(t, err)
}

func TestSummarize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Record(ctx, click("a.myshopify.com", "p1", 10))
	require.NoError(t, err)
	_, err = f.svc.Record(ctx, click("a.myshopify.com", "p1", 10))
	require.NoError(t, err)
	conv := click("a.myshopify.com", "p2", 20)
	conv.AddedToCart = true
	_, err = f.svc.Record(ctx, conv)
	require.NoError(t, err)
	_, err = f.svc.Record(ctx, click("b.myshopify.com", "p1", 70))
	require.NoError(t, err)

	report, err := f.svc.Summarize(ctx, Filter{Shop: "a.myshopify.com", Placement: "all"})
	require.NoError(t, err)

	assert.Len(t, report.Analytics, 3)
	assert.Equal(t, int64(3), report.Summary.TotalClicks)
	assert.True(t, decimal.NewFromInt(40).Equal(report.Summary.TotalValue))
	assert.Equal(t, models.ConversionCounts{Clicked: 2, Converted: 1}, report.Conversions)

	require.Len(t, report.TopProducts, 2)
	assert.Equal(t, "p1", report.TopProducts[0].ProductID)
	assert.Equal(t, int64(2), report.TopProducts[0].Count)
	assert.True(t, decimal.NewFromInt(20).Equal(report.TopProducts[0].Total))
	assert.Equal(t, "p2", report.TopProducts[1].ProductID)
	assert.Equal(t, int64(1), report.TopProducts[1].Count)
	assert.True(t, decimal.NewFromInt(20).Equal(report.TopProducts[1].Total))

	require.Len(t, report.ChartData, ChartDays)
	today := report.ChartData[ChartDays-1]
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), today.Date)
	assert.Equal(t, int64(3), today.Clicks)
	assert.Equal(t, int64(1), today.Conversions)
	assert.True(t, decimal.NewFromInt(20).Equal(today.Revenue))

	assert.Equal(t, []models.PlacementCount{{Placement: "checkout", Count: 3}}, report.PlacementBreakdown)
}

func TestSummarizeFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Record(ctx, click("a.myshopify.com", "p1", 10))
	require.NoError(t, err)
	drawer := click("a.myshopify.com", "p2", 10)
	drawer.Placement = "cart_drawer"
	_, err = f.svc.Record(ctx, drawer)
	require.NoError(t, err)

	report, err := f.svc.Summarize(ctx, Filter{Shop: "a.myshopify.com", Placement: "cart_drawer"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Summary.TotalClicks)

	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	pastEnd := past.AddDate(0, 0, 1)
	report, err = f.svc.Summarize(ctx, Filter{Shop: "a.myshopify.com", Start: &past, End: &pastEnd})
	require.NoError(t, err)
	assert.Zero(t, report.Summary.TotalClicks)
	assert.Empty(t, report.Analytics)
	assert.Empty(t, report.TopProducts)
	// the chart keeps its own window
	assert.Equal(t, int64(2), report.ChartData[ChartDays-1].Clicks)

	report, err = f.svc.Summarize(ctx, Filter{Shop: "a.myshopify.com", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, report.Analytics, 1)
	assert.Equal(t, int64(2), report.Summary.TotalClicks)
}

func TestSummarizeRequiresShop(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Summarize(context.Background(), Filter{})
	assert.ErrorIs(t, err, ErrShopRequired)
}

func TestSummarizeEmptyReportJSON(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.Summarize(context.Background(), Filter{Shop: "a.myshopify.com"})
	require.NoError(t, err)

	raw, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, []any{}, decoded["analytics"])
	assert.Equal(t, []any{}, decoded["topProducts"])
	assert.Equal(t, map[string]any{"totalClicks": float64(0), "totalValue": float64(0)}, decoded["summary"])
}

func TestPriceDecoding(t *testing.T) {
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(`{"price": 12.5}`), &ev))
	assert.True(t, ev.Price.Valid)
	assert.Equal(t, "12.5", ev.Price.Decimal.String())

	require.NoError(t, json.Unmarshal([]byte(`{"price": "19"}`), &ev))
	assert.True(t, ev.Price.Valid)
	assert.Equal(t, "19", ev.Price.Decimal.String())

	require.NoError(t, json.Unmarshal([]byte(`{"price": "free"}`), &ev))
	assert.False(t, ev.Price.Valid)

	require.NoError(t, json.Unmarshal([]byte(`{"price": null}`), &ev))
	assert.False(t, ev.Price.Valid)
}

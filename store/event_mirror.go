package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"checkoutupsell/api/database"
	"checkoutupsell/api/logger"
	"checkoutupsell/api/models"
)

// EventMirror receives a copy of every analytics row after it is written to Postgres.
type EventMirror interface {
	InsertEvents(ctx context.Context, events []models.UpsellAnalytics) error
}

// upsell_events keeps one version per row id; a conversion re-inserts the row with a newer
// updated_at and ReplacingMergeTree collapses the two on merge.
const createUpsellEventsTable = `
	CREATE TABLE IF NOT EXISTS upsell_events (
		id              String,
		shop            LowCardinality(String),
		upsell_block_id Nullable(String),
		block_ref       LowCardinality(String),
		product_id      String,
		variant_id      String,
		product_name    String,
		variant_title   Nullable(String),
		price           Decimal(12, 2),
		placement       LowCardinality(String),
		customer_hash   Nullable(String),
		session_id      Nullable(String),
		added_to_cart   Bool,
		created_at      DateTime64(3, 'UTC'),
		updated_at      DateTime64(3, 'UTC')
	)
	ENGINE = ReplacingMergeTree(updated_at)
	ORDER BY (shop, created_at, id)
`

type ClickHouseEventMirror struct {
	DB *database.ClickHouseClient
}

func NewClickHouseEventMirror(chClient *database.ClickHouseClient) *ClickHouseEventMirror {
	return &ClickHouseEventMirror{DB: chClient}
}

// EnsureSchema creates the mirror table when it does not exist yet.
func (m *ClickHouseEventMirror) EnsureSchema(ctx context.Context) error {
	if err := m.DB.Conn.Exec(ctx, createUpsellEventsTable); err != nil {
		return fmt.Errorf("failed to create upsell_events table: %w", err)
	}
	return nil
}

func (m *ClickHouseEventMirror) InsertEvents(ctx context.Context, events []models.UpsellAnalytics) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := m.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO upsell_events (
			id, shop, upsell_block_id, block_ref, product_id, variant_id, product_name, variant_title,
			price, placement, customer_hash, session_id, added_to_cart, created_at, updated_at
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, event := range events {
		err := batch.Append(
			event.ID,
			event.Shop,
			event.UpsellBlockID,
			string(event.BlockRef),
			event.ProductID,
			event.VariantID,
			event.ProductName,
			event.VariantTitle,
			event.Price,
			event.Placement,
			event.CustomerHash,
			event.SessionID,
			event.AddedToCart,
			event.CreatedAt,
			event.UpdatedAt,
		)
		if err != nil {
			logger.Warn("Error appending event to batch", zap.String("event_id", event.ID), zap.Error(err))
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	logger.Debug("Mirrored analytics events to ClickHouse", zap.Int("count", len(events)))
	return nil
}

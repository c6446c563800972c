package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"checkoutupsell/api/models"
)

type UpsellStore struct {
	db *gorm.DB
}

func NewUpsellStore(db *gorm.DB) *UpsellStore {
	return &UpsellStore{db: db}
}

// FindActive returns the newest active block for the shop and placement, or nil when none exists.
func (s *UpsellStore) FindActive(ctx context.Context, shop string, placement models.Placement) (*models.UpsellBlock, error) {
	var blocks []models.UpsellBlock
	err := s.db.WithContext(ctx).
		Where("shop = ? AND placement = ? AND active = ?", shop, placement, true).
		Order("created_at DESC").
		Order("id DESC").
		Limit(1).
		Find(&blocks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query active upsell block: %w", err)
	}
	if len(blocks) == 0 {
		return nil, nil
	}
	return &blocks[0], nil
}

func (s *UpsellStore) ListByShop(ctx context.Context, shop string) ([]models.UpsellBlock, error) {
	blocks := []models.UpsellBlock{}
	err := s.db.WithContext(ctx).
		Where("shop = ?", shop).
		Order("created_at DESC").
		Find(&blocks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list upsell blocks: %w", err)
	}
	return blocks, nil
}

func (s *UpsellStore) GetByID(ctx context.Context, shop, id string) (*models.UpsellBlock, error) {
	var block models.UpsellBlock
	err := s.db.WithContext(ctx).Where("id = ? AND shop = ?", id, shop).First(&block).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get upsell block: %w", err)
	}
	return &block, nil
}

// Exists reports whether the block id belongs to the shop.
func (s *UpsellStore) Exists(ctx context.Context, shop, id string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.UpsellBlock{}).
		Where("id = ? AND shop = ?", id, shop).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check upsell block: %w", err)
	}
	return count > 0, nil
}

// Create inserts the block. An active block deactivates the other active blocks of its placement.
func (s *UpsellStore) Create(ctx context.Context, block *models.UpsellBlock) error {
	if block.ID == "" {
		block.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(block).Error; err != nil {
			return fmt.Errorf("failed to create upsell block: %w", err)
		}
		if block.Active {
			return deactivateSiblings(tx, block)
		}
		return nil
	})
}

// Update overwrites the editable fields of a block owned by block.Shop.
func (s *UpsellStore) Update(ctx context.Context, block *models.UpsellBlock) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UpsellBlock{}).
			Where("id = ? AND shop = ?", block.ID, block.Shop).
			Select("*").
			Omit("id", "shop", "created_at").
			Updates(block)
		if res.Error != nil {
			return fmt.Errorf("failed to update upsell block: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if block.Active {
			return deactivateSiblings(tx, block)
		}
		return nil
	})
}

// SetActive toggles a block and returns its new state.
func (s *UpsellStore) SetActive(ctx context.Context, shop, id string, active bool) (*models.UpsellBlock, error) {
	var block models.UpsellBlock
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND shop = ?", id, shop).First(&block).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load upsell block: %w", err)
		}
		if err := tx.Model(&block).Update("active", active).Error; err != nil {
			return fmt.Errorf("failed to toggle upsell block: %w", err)
		}
		block.Active = active
		if active {
			return deactivateSiblings(tx, &block)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &block, nil
}

func (s *UpsellStore) Delete(ctx context.Context, shop, id string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND shop = ?", id, shop).Delete(&models.UpsellBlock{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete upsell block: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllForShop removes every block of a shop, used on uninstall and shop redaction.
func (s *UpsellStore) DeleteAllForShop(ctx context.Context, shop string) (int64, error) {
	res := s.db.WithContext(ctx).Where("shop = ?", shop).Delete(&models.UpsellBlock{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete upsell blocks for shop: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func deactivateSiblings(tx *gorm.DB, block *models.UpsellBlock) error {
	err := tx.Model(&models.UpsellBlock{}).
		Where("shop = ? AND placement = ? AND active = ? AND id <> ?", block.Shop, block.Placement, true, block.ID).
		Update("active", false).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate sibling upsell blocks: %w", err)
	}
	return nil
}

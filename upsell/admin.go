package upsell

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"checkoutupsell/api/logger"
	"checkoutupsell/api/models"
)

var ErrInvalidBlock = errors.New("invalid upsell block")

// Form defaults of the merchant admin.
const (
	DefaultButtonText      = "Add"
	DefaultAdminShowCount  = 10
	DefaultLayout          = "stack"
	DefaultColumns         = 1
	DefaultBackgroundColor = "#ffffff"
	DefaultTextColor       = "#000000"
	DefaultButtonColor     = "#1a73e8"
	DefaultBorderRadius    = 8
	DefaultPadding         = 16
)

// BlockRepository is the storage the admin service needs. Every call is scoped by shop.
type BlockRepository interface {
	ListByShop(ctx context.Context, shop string) ([]models.UpsellBlock, error)
	GetByID(ctx context.Context, shop, id string) (*models.UpsellBlock, error)
	Create(ctx context.Context, block *models.UpsellBlock) error
	Update(ctx context.Context, block *models.UpsellBlock) error
	SetActive(ctx context.Context, shop, id string, active bool) (*models.UpsellBlock, error)
	Delete(ctx context.Context, shop, id string) error
}

// BlockInput is the admin form. Nil fields keep the current value, or the default on create.
type BlockInput struct {
	Name             *string `json:"name"`
	Placement        *string `json:"placement"`
	CollectionHandle *string `json:"collectionHandle"`
	ProductHandles   *string `json:"productHandles"`
	Title            *string `json:"title"`
	ButtonText       *string `json:"buttonText"`
	ShowCount        *int    `json:"showCount"`
	AutoSlide        *bool   `json:"autoSlide"`
	SlideDuration    *int    `json:"slideDuration"`
	Layout           *string `json:"layout"`
	Columns          *int    `json:"columns"`
	BackgroundColor  *string `json:"backgroundColor"`
	TextColor        *string `json:"textColor"`
	ButtonColor      *string `json:"buttonColor"`
	BorderRadius     *int    `json:"borderRadius"`
	Padding          *int    `json:"padding"`
	CenterPadding    *bool   `json:"centerPadding"`
	Properties       *string `json:"properties"`
	Active           *bool   `json:"active"`
}

type AdminService struct {
	repo BlockRepository
	now  func() time.Time
}

func NewAdminService(repo BlockRepository) *AdminService {
	return &AdminService{repo: repo, now: time.Now}
}

func (s *AdminService) ListBlocks(ctx context.Context, shop string) ([]models.UpsellBlock, error) {
	return s.repo.ListByShop(ctx, shop)
}

func (s *AdminService) GetBlock(ctx context.Context, shop, id string) (*models.UpsellBlock, error) {
	return s.repo.GetByID(ctx, shop, id)
}

// CreateBlock stores a new block for the shop. New blocks are active unless the input says otherwise.
func (s *AdminService) CreateBlock(ctx context.Context, shop string, in BlockInput) (*models.UpsellBlock, error) {
	block := s.defaultBlock(shop)
	in.applyTo(block)
	if err := validate(block); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, block); err != nil {
		return nil, err
	}
	logger.InfoCtx(ctx, "Created upsell block",
		zap.String("shop", shop),
		zap.String("id", block.ID),
		zap.String("placement", string(block.Placement)))
	return block, nil
}

func (s *AdminService) UpdateBlock(ctx context.Context, shop, id string, in BlockInput) (*models.UpsellBlock, error) {
	block, err := s.repo.GetByID(ctx, shop, id)
	if err != nil {
		return nil, err
	}
	in.applyTo(block)
	if err := validate(block); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, block); err != nil {
		return nil, err
	}
	return block, nil
}

func (s *AdminService) SetActive(ctx context.Context, shop, id string, active bool) (*models.UpsellBlock, error) {
	return s.repo.SetActive(ctx, shop, id, active)
}

func (s *AdminService) DeleteBlock(ctx context.Context, shop, id string) error {
	if err := s.repo.Delete(ctx, shop, id); err != nil {
		return err
	}
	logger.InfoCtx(ctx, "Deleted upsell block", zap.String("shop", shop), zap.String("id", id))
	return nil
}

func (s *AdminService) defaultBlock(shop string) *models.UpsellBlock {
	return &models.UpsellBlock{
		Shop:            shop,
		Name:            "Checkout Upsell - " + s.now().UTC().Format("2006-01-02"),
		Placement:       models.PlacementCheckout,
		Title:           models.DefaultTitle,
		ButtonText:      DefaultButtonText,
		ShowCount:       DefaultAdminShowCount,
		SlideDuration:   models.DefaultSlideDuration,
		Layout:          DefaultLayout,
		Columns:         DefaultColumns,
		BackgroundColor: DefaultBackgroundColor,
		TextColor:       DefaultTextColor,
		ButtonColor:     DefaultButtonColor,
		BorderRadius:    DefaultBorderRadius,
		Padding:         DefaultPadding,
		CenterPadding:   true,
		Active:          true,
	}
}

func (in BlockInput) applyTo(b *models.UpsellBlock) {
	setString(&b.Name, in.Name)
	if in.Placement != nil {
		b.Placement = models.Placement(strings.TrimSpace(*in.Placement))
	}
	if in.CollectionHandle != nil {
		b.CollectionHandle = optional(*in.CollectionHandle)
	}
	if in.ProductHandles != nil {
		b.ProductHandles = optional(*in.ProductHandles)
	}
	setString(&b.Title, in.Title)
	setString(&b.ButtonText, in.ButtonText)
	setInt(&b.ShowCount, in.ShowCount)
	setBool(&b.AutoSlide, in.AutoSlide)
	setInt(&b.SlideDuration, in.SlideDuration)
	setString(&b.Layout, in.Layout)
	setInt(&b.Columns, in.Columns)
	setString(&b.BackgroundColor, in.BackgroundColor)
	setString(&b.TextColor, in.TextColor)
	setString(&b.ButtonColor, in.ButtonColor)
	setInt(&b.BorderRadius, in.BorderRadius)
	setInt(&b.Padding, in.Padding)
	setBool(&b.CenterPadding, in.CenterPadding)
	if in.Properties != nil {
		b.Properties = strings.TrimSpace(*in.Properties)
	}
	setBool(&b.Active, in.Active)
}

func validate(b *models.UpsellBlock) error {
	switch {
	case !b.Placement.Valid():
		return fmt.Errorf("%w: unknown placement %q", ErrInvalidBlock, b.Placement)
	case b.ShowCount < 1:
		return fmt.Errorf("%w: showCount must be at least 1", ErrInvalidBlock)
	case b.Columns < 1:
		return fmt.Errorf("%w: columns must be at least 1", ErrInvalidBlock)
	case b.SlideDuration < 1:
		return fmt.Errorf("%w: slideDuration must be at least 1", ErrInvalidBlock)
	case b.Properties != "" && !json.Valid([]byte(b.Properties)):
		return fmt.Errorf("%w: properties must be valid JSON", ErrInvalidBlock)
	}
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

package models

import (
	"strings"
	"time"
)

type Placement string

const (
	PlacementProductPage        Placement = "product_page"
	PlacementProductDescription Placement = "product_description"
	PlacementCartPage           Placement = "cart_page"
	PlacementCartDrawer         Placement = "cart_drawer"
	PlacementCheckout           Placement = "checkout"
)

func (p Placement) Valid() bool {
	switch p {
	case PlacementProductPage, PlacementProductDescription, PlacementCartPage, PlacementCartDrawer, PlacementCheckout:
		return true
	default:
		return false
	}
}

// UpsellBlock is one merchant's widget configuration for one placement.
type UpsellBlock struct {
	ID               string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Shop             string    `json:"shop" gorm:"not null;index:idx_upsell_blocks_lookup,priority:1"`
	Name             string    `json:"name" gorm:"not null;default:''"`
	Placement        Placement `json:"placement" gorm:"type:varchar(32);not null;index:idx_upsell_blocks_lookup,priority:2"`
	CollectionHandle *string   `json:"collectionHandle"`
	ProductHandles   *string   `json:"productHandles"`
	Title            string    `json:"title" gorm:"not null"`
	ButtonText       string    `json:"buttonText" gorm:"not null"`
	ShowCount        int       `json:"showCount" gorm:"not null"`
	AutoSlide        bool      `json:"autoSlide" gorm:"not null"`
	SlideDuration    int       `json:"slideDuration" gorm:"not null"`
	Layout           string    `json:"layout" gorm:"not null"`
	Columns          int       `json:"columns" gorm:"not null"`
	BackgroundColor  string    `json:"backgroundColor" gorm:"not null"`
	TextColor        string    `json:"textColor" gorm:"not null"`
	ButtonColor      string    `json:"buttonColor" gorm:"not null"`
	BorderRadius     int       `json:"borderRadius" gorm:"not null"`
	Padding          int       `json:"padding" gorm:"not null"`
	CenterPadding    bool      `json:"centerPadding" gorm:"not null"`
	Properties       string    `json:"properties" gorm:"not null;default:''"`
	Active           bool      `json:"active" gorm:"not null;index:idx_upsell_blocks_lookup,priority:3"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (UpsellBlock) TableName() string {
	return "upsell_blocks"
}

// Collection returns the trimmed collection handle, or nil when it is unset or blank.
func (b *UpsellBlock) Collection() *string {
	return nonEmpty(b.CollectionHandle)
}

// HandleList returns the legacy product handles stored on the block.
func (b *UpsellBlock) HandleList() []string {
	if b.ProductHandles == nil {
		return []string{}
	}
	return SplitHandles(*b.ProductHandles)
}

// SplitHandles splits a comma-separated handle list, trimming whitespace and dropping empty entries.
func SplitHandles(raw string) []string {
	handles := []string{}
	for _, part := range strings.Split(raw, ",") {
		if h := strings.TrimSpace(part); h != "" {
			handles = append(handles, h)
		}
	}
	return handles
}

// Configuration is what the storefront and checkout clients render.
// Style fields are omitted from the default payload. A stored block echoes them, except empty
// color and button text strings.
type Configuration struct {
	CollectionHandle *string  `json:"collectionHandle"`
	ProductHandles   []string `json:"productHandles"`
	Title            string   `json:"title"`
	ShowCount        int      `json:"showCount"`
	AutoSlide        bool     `json:"autoSlide"`
	SlideDuration    int      `json:"slideDuration"`
	Layout           *string  `json:"layout,omitempty"`
	Columns          *int     `json:"columns,omitempty"`
	BackgroundColor  string   `json:"backgroundColor,omitempty"`
	TextColor        string   `json:"textColor,omitempty"`
	ButtonColor      string   `json:"buttonColor,omitempty"`
	ButtonText       string   `json:"buttonText,omitempty"`
	Properties       *string  `json:"properties,omitempty"`
	BorderRadius     *int     `json:"borderRadius,omitempty"`
	Padding          *int     `json:"padding,omitempty"`
	CenterPadding    *bool    `json:"centerPadding,omitempty"`
	UpsellBlockID    string   `json:"upsellBlockId,omitempty"`
}

const (
	DefaultTitle         = "Recommended for you"
	DefaultShowCount     = 4
	DefaultSlideDuration = 5
)

// DefaultConfiguration is served when a shop has no active block for the requested placement.
func DefaultConfiguration() Configuration {
	return Configuration{
		CollectionHandle: nil,
		ProductHandles:   []string{},
		Title:            DefaultTitle,
		ShowCount:        DefaultShowCount,
		AutoSlide:        false,
		SlideDuration:    DefaultSlideDuration,
	}
}

// ConfigurationFromBlock echoes a stored block. productHandles is filled by the caller.
func ConfigurationFromBlock(b *UpsellBlock) Configuration {
	properties := b.Properties
	layout := b.Layout
	columns := b.Columns
	borderRadius := b.BorderRadius
	padding := b.Padding
	centerPadding := b.CenterPadding

	return Configuration{
		CollectionHandle: b.Collection(),
		ProductHandles:   []string{},
		Title:            b.Title,
		ShowCount:        b.ShowCount,
		AutoSlide:        b.AutoSlide,
		SlideDuration:    b.SlideDuration,
		Layout:           &layout,
		Columns:          &columns,
		BackgroundColor:  b.BackgroundColor,
		TextColor:        b.TextColor,
		ButtonColor:      b.ButtonColor,
		ButtonText:       b.ButtonText,
		Properties:       &properties,
		BorderRadius:     &borderRadius,
		Padding:          &padding,
		CenterPadding:    &centerPadding,
		UpsellBlockID:    b.ID,
	}
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

package upsell

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"checkoutupsell/api/logger"
	"checkoutupsell/api/metrics"
	"checkoutupsell/api/models"
)

var (
	ErrShopRequired        = errors.New("shop is required")
	ErrPlacementNotAllowed = errors.New("only checkout placement is supported")
)

// BlockFinder looks up the newest active block of a shop and placement. A nil block means none.
type BlockFinder interface {
	FindActive(ctx context.Context, shop string, placement models.Placement) (*models.UpsellBlock, error)
}

// Resolver answers the storefront and checkout with the active widget configuration.
type Resolver struct {
	finder       BlockFinder
	checkoutOnly bool
	chain        ProductChain
}

type ResolverOption func(*Resolver)

// WithCheckoutOnly rejects every placement other than checkout.
func WithCheckoutOnly(enabled bool) ResolverOption {
	return func(r *Resolver) { r.checkoutOnly = enabled }
}

func WithProductChain(chain ProductChain) ResolverOption {
	return func(r *Resolver) { r.chain = chain }
}

func NewResolver(finder BlockFinder, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		finder: finder,
		chain:  ProductChain{LegacyHandles},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve never fails on storage errors; those degrade to the default configuration.
func (r *Resolver) Resolve(ctx context.Context, shop, placement string) (models.Configuration, error) {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return models.Configuration{}, ErrShopRequired
	}

	p := models.Placement(strings.TrimSpace(placement))
	if p == "" {
		p = models.PlacementCheckout
	}
	if r.checkoutOnly && p != models.PlacementCheckout {
		return models.Configuration{}, ErrPlacementNotAllowed
	}

	block, err := r.finder.FindActive(ctx, shop, p)
	if err != nil {
		logger.WarnCtx(ctx, "Falling back to default upsell configuration",
			zap.String("shop", shop),
			zap.String("placement", string(p)),
			zap.Error(err))
		metrics.Default().ResolverDefaults.WithLabelValues("storage_error").Inc()
		return models.DefaultConfiguration(), nil
	}
	if block == nil {
		metrics.Default().ResolverDefaults.WithLabelValues("no_block").Inc()
		return models.DefaultConfiguration(), nil
	}

	cfg := models.ConfigurationFromBlock(block)
	cfg.ProductHandles = r.chain.Handles(block)
	return cfg, nil
}

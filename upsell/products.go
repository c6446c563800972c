package upsell

import "checkoutupsell/api/models"

// ProductStrategy derives product handles for a block. ok=false hands over to the next strategy.
type ProductStrategy func(b *models.UpsellBlock) (handles []string, ok bool)

// ProductChain tries each strategy in order and returns the first hit.
type ProductChain []ProductStrategy

func (c ProductChain) Handles(b *models.UpsellBlock) []string {
	for _, strategy := range c {
		if handles, ok := strategy(b); ok {
			return handles
		}
	}
	return []string{}
}

// LegacyHandles uses the comma-separated product handles stored on the block.
func LegacyHandles(b *models.UpsellBlock) ([]string, bool) {
	handles := b.HandleList()
	return handles, len(handles) > 0
}

// FallbackHandles serves a fixed handle list to blocks that only name a collection.
func FallbackHandles(handles []string) ProductStrategy {
	fallback := make([]string, 0, len(handles))
	for _, h := range handles {
		fallback = append(fallback, models.SplitHandles(h)...)
	}
	return func(b *models.UpsellBlock) ([]string, bool) {
		if len(fallback) == 0 || b.Collection() == nil || len(b.HandleList()) > 0 {
			return nil, false
		}
		out := make([]string, len(fallback))
		copy(out, fallback)
		return out, true
	}
}

// DefaultChain is the production order: legacy handles first, then the configured fallback.
func DefaultChain(fallback []string) ProductChain {
	return ProductChain{LegacyHandles, FallbackHandles(fallback)}
}

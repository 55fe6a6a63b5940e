package oracle

import (
	"context"
	"strings"
	"sync"
	"time"

	"rigrent-backend/internal/metrics"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// defaultFetchTimeout bounds a shared upstream lookup once it is detached
// from the caller that started it.
const defaultFetchTimeout = 10 * time.Second

type cachedPrice struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

// CachedOracle serves recent prices from memory and collapses concurrent
// misses for the same currency into one upstream call. Failed lookups are
// never cached.
type CachedOracle struct {
	next         PriceOracle
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	metrics      *metrics.RentalMetrics

	mu     sync.RWMutex
	prices map[string]cachedPrice
	group  singleflight.Group
}

func NewCachedOracle(next PriceOracle, ttl time.Duration, m *metrics.RentalMetrics) *CachedOracle {
	return &CachedOracle{
		next:         next,
		ttl:          ttl,
		fetchTimeout: defaultFetchTimeout,
		now:          time.Now,
		metrics:      m,
		prices:       make(map[string]cachedPrice),
	}
}

func (c *CachedOracle) SpotPrice(ctx context.Context, currency string) (decimal.Decimal, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))

	c.mu.RLock()
	entry, ok := c.prices[code]
	c.mu.RUnlock()
	if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		c.metrics.ObserveOracleRequest(code, "cache_hit", 0)
		return entry.price, nil
	}

	// The shared fetch outlives any single caller: one caller giving up must
	// not fail the others waiting on the same currency.
	ch := c.group.DoChan(code, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		price, err := c.next.SpotPrice(fetchCtx, code)
		if err != nil {
			return decimal.Zero, err
		}
		c.mu.Lock()
		c.prices[code] = cachedPrice{price: price, fetchedAt: c.now()}
		c.mu.Unlock()
		return price, nil
	})

	select {
	case <-ctx.Done():
		return decimal.Zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return decimal.Zero, res.Err
		}
		return res.Val.(decimal.Decimal), nil
	}
}

// Invalidate drops every cached price.
func (c *CachedOracle) Invalidate() {
	c.mu.Lock()
	c.prices = make(map[string]cachedPrice)
	c.mu.Unlock()
}

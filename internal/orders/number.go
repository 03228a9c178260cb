package orders

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/logger"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/redis"
)

const (
	orderNumberPrefix     = "CP"
	orderNumberSequences  = 10000
	orderNumberCounterTTL = 48 * time.Hour
)

// NumberGenerator issues human-facing order numbers (CP + YYMMDD + 4 digits).
type NumberGenerator interface {
	Next(ctx context.Context) string
}

type numberGenerator struct {
	counter redis.CounterStore
	logg    *logger.Logger
	now     func() time.Time
	random  func(n int) int
}

// NewNumberGenerator draws the daily sequence from a Redis counter. A nil
// counter, a Redis failure or a day past its 9999th order falls back to a
// random sequence; the unique index on order_number catches collisions and
// Create retries with a fresh number.
func NewNumberGenerator(counter redis.CounterStore, logg *logger.Logger) NumberGenerator {
	return &numberGenerator{
		counter: counter,
		logg:    logg,
		now:     time.Now,
		random:  rand.Intn,
	}
}

func (g *numberGenerator) Next(ctx context.Context) string {
	day := g.now().UTC().Format("060102")
	return fmt.Sprintf("%s%s%04d", orderNumberPrefix, day, g.sequence(ctx, day))
}

func (g *numberGenerator) sequence(ctx context.Context, day string) int {
	if g.counter != nil {
		n, err := g.counter.IncrWithTTL(ctx, g.counter.CounterKey("order_number:"+day), orderNumberCounterTTL)
		switch {
		case err != nil:
			g.warn(g.logWithField(ctx, "error", err.Error()), "order number counter unavailable, using random sequence")
		case n < orderNumberSequences:
			return int(n)
		default:
			// Every counter value would now repeat an issued number.
			g.warn(g.logWithField(ctx, "sequence", n), "order number counter exhausted for the day, using random sequence")
		}
	}
	return g.random(orderNumberSequences)
}

func (g *numberGenerator) logWithField(ctx context.Context, key string, value any) context.Context {
	if g.logg == nil {
		return ctx
	}
	return g.logg.WithField(ctx, key, value)
}

func (g *numberGenerator) warn(ctx context.Context, msg string) {
	if g.logg != nil {
		g.logg.Warn(ctx, msg)
	}
}

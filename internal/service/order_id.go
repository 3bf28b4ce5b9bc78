package service

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// OrderIDGenerator выдаёт уникальные идентификаторы заказов для шлюза: <prefix>-<ULID>.
type OrderIDGenerator struct {
	prefix  string
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewOrderIDGenerator(prefix string) *OrderIDGenerator {
	return &OrderIDGenerator{
		prefix:  prefix,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (g *OrderIDGenerator) Next() string {
	g.mu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
	g.mu.Unlock()
	return g.prefix + "-" + id.String()
}

package checkout

import (
	"strconv"
	"sync"
	"time"
)

// OrderIDGenerator выдаёт идентификаторы заказов на основе времени в миллисекундах.
// В пределах процесса значения строго возрастают.
type OrderIDGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewOrderIDGenerator создаёт генератор. Nil now означает time.Now.
func NewOrderIDGenerator(now func() time.Time) *OrderIDGenerator {
	if now == nil {
		now = time.Now
	}
	return &OrderIDGenerator{now: now}
}

// Next возвращает следующий идентификатор.
func (g *OrderIDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id

	return strconv.FormatInt(id, 10)
}

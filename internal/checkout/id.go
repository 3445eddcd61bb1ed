package checkout

import (
	"strconv"
	"sync"
	"time"
)

// IDGenerator issues order ids as decimal Unix-millisecond strings. Ids
// are strictly increasing within a process even when the clock stalls
// or steps back.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
}

func (g *IDGenerator) Next(at time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := at.UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10)
}

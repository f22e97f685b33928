package testutil

import (
	"strconv"
	"sync"
	"time"

	"docs-go/internal/docs"
)

// Epoch is the instant FixedClock starts at.
var Epoch = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// ManualClock only moves when told to. Safe for concurrent use.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// FixedClock returns a ManualClock stopped at Epoch.
func FixedClock() *ManualClock {
	return &ManualClock{now: Epoch}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// SequentialIDs hands out "req-1", "req-2", ... so request IDs are predictable.
type SequentialIDs struct {
	mu   sync.Mutex
	next int
}

func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{}
}

func (g *SequentialIDs) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return "req-" + strconv.Itoa(g.next)
}

var (
	_ docs.Clock       = (*ManualClock)(nil)
	_ docs.IDGenerator = (*SequentialIDs)(nil)
)

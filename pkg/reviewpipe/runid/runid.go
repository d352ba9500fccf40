package runid

import (
	"crypto/rand"
	"sync"

	"github.com/oklog/ulid/v2"
)

// Generator hands out lexically sortable run identifiers.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New creates a new run id generator
func New() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Next returns a fresh ULID string. Ids from one generator are strictly
// increasing, even within the same millisecond.
func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Now(), g.entropy).String()
}

package telemetry

import (
	"math/rand"
	"sync"
	"time"

	"h2oclear/api/models"
)

// Locations are the sampling sites the simulated device reports from.
var Locations = []string{
	"Lake Superior",
	"Thames River",
	"Pacific Ocean",
	"Mediterranean",
	"Atlantic Ocean",
	"Baltic Sea",
}

// Generator produces synthetic detections and series deltas.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator seeds from the wall clock. Pass a fixed source in tests.
func NewGenerator(src rand.Source, now func() time.Time) *Generator {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{rng: rand.New(src), now: now}
}

// Detection samples one record dated today (UTC).
func (g *Generator) Detection() models.Detection {
	g.mu.Lock()
	defer g.mu.Unlock()

	return models.Detection{
		Location: Locations[g.rng.Intn(len(Locations))],
		Date:     g.now().UTC().Format("2006-01-02"),
		Size:     g.rng.Intn(80) + 20,
		Type:     models.MaterialTypes[g.rng.Intn(len(models.MaterialTypes))],
		Count:    g.rng.Intn(200) + 50,
	}
}

// SeriesDelta returns a value in [-20, 19].
func (g *Generator) SeriesDelta() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Intn(40) - 20
}

// Chance reports true with probability p.
func (g *Generator) Chance(p float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64() < p
}

package crop

import (
	"math/rand/v2"
	"sync"
)

// seedStream is the PCG increment used for every stream derived here.
const seedStream = 0x9e3779b97f4a7c15

// SeedGenerator is the run-wide seed service. Create one per run from the
// configured seed and share it between samplers; every Renew advances it.
type SeedGenerator struct {
	mu   sync.Mutex
	rng  *rand.Rand
	seed uint64
}

// NewSeedGenerator creates a generator whose sequence of seeds is fully
// determined by seed.
func NewSeedGenerator(seed int64) *SeedGenerator {
	return &SeedGenerator{
		rng:  rand.New(rand.NewPCG(uint64(seed), seedStream)),
		seed: uint64(seed),
	}
}

// Seed returns the current seed.
func (g *SeedGenerator) Seed() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seed
}

// Renew draws the next seed and makes it current.
func (g *SeedGenerator) Renew() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seed = g.rng.Uint64()
	return g.seed
}

// expandSeeds derives n per-slot seeds from one seed.
func expandSeeds(seed uint64, n int) []uint64 {
	src := rand.NewPCG(seed, seedStream)
	seeds := make([]uint64, n)
	for i := range seeds {
		seeds[i] = src.Uint64()
	}
	return seeds
}

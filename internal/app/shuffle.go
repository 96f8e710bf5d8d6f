package app

import (
	"math/rand"
	"sync"
	"time"
)

// Shuffler produces uniformly random presentation orders for segment options.
type Shuffler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewShuffler() *Shuffler {
	return NewSeededShuffler(time.Now().UnixNano())
}

// NewSeededShuffler returns a shuffler with a fixed seed, for reproducible orders.
func NewSeededShuffler(seed int64) *Shuffler {
	return &Shuffler{rnd: rand.New(rand.NewSource(seed))}
}

// Shuffle returns a permutation of options. The input slice is left untouched.
func (s *Shuffler) Shuffle(options []string) []string {
	shuffled := make([]string, len(options))
	copy(shuffled, options)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Fisher-Yates
	for i := len(shuffled) - 1; i > 0; i-- {
		j := s.rnd.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}

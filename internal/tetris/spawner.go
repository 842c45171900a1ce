package tetris

import "fmt"

// Rand is the randomness the spawner consumes. *math/rand.Rand satisfies it;
// a fixed seed gives a reproducible piece sequence.
type Rand interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// SpawnPolicy selects how the next kind is chosen.
type SpawnPolicy string

const (
	// SpawnBag deals shuffled bags holding each kind exactly once.
	SpawnBag SpawnPolicy = "bag"
	// SpawnRandom draws uniformly, rerolling once to break long repeats.
	SpawnRandom SpawnPolicy = "random"
)

// maxRepeat is the longest run of one kind SpawnRandom allows.
const maxRepeat = 2

// Valid reports whether p names a known policy.
func (p SpawnPolicy) Valid() bool {
	return p == SpawnBag || p == SpawnRandom
}

// Spawner produces the sequence of piece kinds. It keeps a lookahead queue so
// the upcoming kind can always be previewed.
type Spawner struct {
	policy SpawnPolicy
	rng    Rand
	bag    []Kind
	queue  []Kind
	last   Kind
	run    int
}

// NewSpawner creates a spawner with the next kind already drawn.
func NewSpawner(policy SpawnPolicy, rng Rand) (*Spawner, error) {
	if !policy.Valid() {
		return nil, fmt.Errorf("%w: unknown spawn policy %q", ErrInvalidConfig, policy)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrInvalidConfig)
	}
	s := &Spawner{policy: policy, rng: rng}
	s.fill(1)
	return s, nil
}

// Policy returns the spawn policy.
func (s *Spawner) Policy() SpawnPolicy { return s.policy }

// PeekNext returns the kind the next Spawn will produce without consuming it.
func (s *Spawner) PeekNext() Kind {
	return s.queue[0]
}

// Preview returns the next n kinds in spawn order.
func (s *Spawner) Preview(n int) []Kind {
	if n <= 0 {
		return nil
	}
	s.fill(n)
	out := make([]Kind, n)
	copy(out, s.queue[:n])
	return out
}

// Spawn consumes and returns the next kind, then draws a new one.
func (s *Spawner) Spawn() Kind {
	k := s.queue[0]
	s.queue = s.queue[1:]
	s.fill(1)
	return k
}

func (s *Spawner) fill(n int) {
	for len(s.queue) < n {
		s.queue = append(s.queue, s.draw())
	}
}

func (s *Spawner) draw() Kind {
	if s.policy == SpawnBag {
		if len(s.bag) == 0 {
			s.refillBag()
		}
		k := s.bag[0]
		s.bag = s.bag[1:]
		return k
	}

	idx := s.rng.Intn(KindCount)
	k := Kinds[idx]
	if k == s.last && s.run >= maxRepeat {
		k = Kinds[(idx+1+s.rng.Intn(KindCount-1))%KindCount]
	}
	if k == s.last {
		s.run++
	} else {
		s.last = k
		s.run = 1
	}
	return k
}

func (s *Spawner) refillBag() {
	s.bag = make([]Kind, KindCount)
	copy(s.bag, Kinds[:])
	s.rng.Shuffle(len(s.bag), func(i, j int) {
		s.bag[i], s.bag[j] = s.bag[j], s.bag[i]
	})
}

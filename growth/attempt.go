package growth

import (
	"math/rand"
	"sync"
	"time"

	"github.com/beka-birhanu/vinom-tiles/grid"
)

// Outcome tags one growth attempt.
type Outcome int

const (
	AttemptPending Outcome = iota
	AttemptClaimed
	AttemptRejected
	AttemptStopped // The child claimed its cell but this tile was torn down meanwhile.
)

func (o Outcome) String() string {
	switch o {
	case AttemptClaimed:
		return "claimed"
	case AttemptRejected:
		return "rejected"
	case AttemptStopped:
		return "stopped"
	default:
		return "pending"
	}
}

// AttemptRecord is a tile's try-order and the outcome of every attempt made so far.
// Outcomes[i] belongs to Order[i].
type AttemptRecord struct {
	Order    [grid.DirectionCount]grid.Direction
	Outcomes [grid.DirectionCount]Outcome
}

// Outcome returns the recorded outcome for direction d.
func (a AttemptRecord) Outcome(d grid.Direction) Outcome {
	for i, o := range a.Order {
		if o == d {
			return a.Outcomes[i]
		}
	}
	return AttemptPending
}

// Attempted returns how many attempts have a final outcome.
func (a AttemptRecord) Attempted() int {
	n := 0
	for _, o := range a.Outcomes {
		if o != AttemptPending {
			n++
		}
	}
	return n
}

// Permuter draws the try-order of one tile.
type Permuter func() [grid.DirectionCount]grid.Direction

// RandomPermuter returns a goroutine safe uniform shuffle. A zero seed uses the clock.
func RandomPermuter(seed int64) Permuter {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	var mu sync.Mutex

	return func() [grid.DirectionCount]grid.Direction {
		order := grid.Directions
		mu.Lock()
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
		mu.Unlock()
		return order
	}
}

// FixedPermuter always returns order.
func FixedPermuter(order [grid.DirectionCount]grid.Direction) Permuter {
	return func() [grid.DirectionCount]grid.Direction {
		return order
	}
}

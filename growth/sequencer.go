package growth

import (
	"context"

	"github.com/beka-birhanu/vinom-tiles/grid"
)

// grow works through a fresh try-order one attempt at a time, pacing every attempt.
func (t *Tile) grow(ctx context.Context) {
	order := t.grower.permute()

	t.mu.Lock()
	t.record = AttemptRecord{Order: order}
	t.state = Growing
	t.mu.Unlock()

	for i, d := range order {
		if err := t.grower.pacer.Await(ctx); err != nil {
			t.setState(Stopped)
			return
		}

		outcome := t.attempt(ctx, d)

		t.mu.Lock()
		t.record.Outcomes[i] = outcome
		t.mu.Unlock()
	}

	t.mu.Lock()
	if t.state == Growing {
		t.state = Exhausted
	}
	t.mu.Unlock()
}

// attempt spawns a child task toward d and waits for its claim outcome.
func (t *Tile) attempt(ctx context.Context, d grid.Direction) Outcome {
	t.mu.Lock()
	r := t.reservation
	t.mu.Unlock()

	child := t.grower.newTile(t, r.NeighborXY(d), d.Across(), true)
	childCtx, cancel := context.WithCancel(ctx)
	child.cancel = cancel

	result := make(chan error, 1)
	t.grower.wg.Add(1)
	go child.run(childCtx, result)

	if err := <-result; err != nil {
		cancel()
		return AttemptRejected
	}

	t.mu.Lock()
	if t.tornDown {
		t.mu.Unlock()
		child.Teardown()
		return AttemptStopped
	}
	t.children = append(t.children, child)
	t.mu.Unlock()
	return AttemptClaimed
}

// Package navigation picks the next or previous track for skips and auto-advance.
package navigation

import (
	"math/rand/v2"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/yhkl-dev/tunecli/domain"
)

// Policy computes navigation targets. It holds no session state.
type Policy struct {
	rand *rand.Rand
}

// NewPolicy creates a policy; a nil source falls back to a randomly seeded one
func NewPolicy(r *rand.Rand) *Policy {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Policy{rand: r}
}

// Next returns the track to select after currentID in the given direction.
// Repeat is not considered; the binding handles it before calling Next.
func (p *Policy) Next(tracks []domain.Track, currentID mo.Option[string], shuffle bool, dir domain.Direction) mo.Option[domain.Track] {
	n := len(tracks)
	if n == 0 {
		return mo.None[domain.Track]()
	}

	current := -1
	if id, ok := currentID.Get(); ok {
		_, current, _ = lo.FindIndexOf(tracks, func(t domain.Track) bool { return t.ID == id })
	}

	if current < 0 {
		if dir == domain.Backward && !shuffle {
			return mo.Some(tracks[n-1])
		}
		if !shuffle {
			return mo.Some(tracks[0])
		}
		return mo.Some(tracks[p.rand.IntN(n)])
	}

	if shuffle {
		return mo.Some(tracks[p.shuffleIndex(current, n)])
	}

	if dir == domain.Backward {
		return mo.Some(tracks[(current-1+n)%n])
	}
	return mo.Some(tracks[(current+1)%n])
}

// shuffleIndex draws uniformly from the n-1 indices other than current
func (p *Policy) shuffleIndex(current, n int) int {
	if n == 1 {
		return current
	}
	r := p.rand.IntN(n - 1)
	if r >= current {
		r++
	}
	return r
}

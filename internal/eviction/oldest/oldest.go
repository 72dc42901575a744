package oldest

import (
	"github.com/lucasew/logroll/internal/eviction"
	"github.com/lucasew/logroll/internal/segment"
)

// Oldest implements eviction.Strategy by taking eligible files front to
// back, i.e. smallest index first. This is the only order that preserves a
// contiguous tail of recent history, so it is the default.
type Oldest struct{}

func init() {
	eviction.Register("oldest", func() eviction.Strategy {
		return New()
	})
}

func New() *Oldest {
	return &Oldest{}
}

func (o *Oldest) Victims(eligible segment.Set, need int64) segment.Set {
	var victims segment.Set
	var freed int64
	for _, f := range eligible {
		if freed >= need {
			break
		}
		victims = append(victims, f)
		freed += f.Size
	}
	return victims
}

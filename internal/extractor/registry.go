package extractor

import "github.com/user/livecast-service/internal/repository"

// Registry resolves a channel's extractor tag to a strategy, falling back to
// the service default for untagged channels.
type Registry struct {
	fallback   repository.Extractor
	strategies map[string]repository.Extractor
}

func NewRegistry(defaultTag string, opts Options) (*Registry, error) {
	fallback, err := New(defaultTag, opts)
	if err != nil {
		return nil, err
	}
	r := &Registry{
		fallback:   fallback,
		strategies: make(map[string]repository.Extractor, len(constructors)),
	}
	for tag, c := range constructors {
		r.strategies[tag] = c(opts)
	}
	return r, nil
}

// For returns the strategy for tag. Unknown or empty tags get the default;
// channel files are validated against Known at load time.
func (r *Registry) For(tag string) repository.Extractor {
	if e, ok := r.strategies[tag]; ok {
		return e
	}
	return r.fallback
}

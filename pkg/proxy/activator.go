package proxy

import (
	verrors "github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/bridge"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
)

// Activator substitutes a Proxy for every component the other runtime owns
// and delegates everything else to the underlying activator.
type Activator struct {
	resolver   *mixed.Resolver
	underlying mixed.Activator
	bridge     bridge.Bridge
	opts       Options
}

// NewActivator creates an Activator. The resolver must be initialized
// before the first CreateInstance.
func NewActivator(resolver *mixed.Resolver, underlying mixed.Activator, b bridge.Bridge, opts Options) *Activator {
	return &Activator{
		resolver:   resolver,
		underlying: underlying,
		bridge:     b,
		opts:       opts,
	}
}

// CreateInstance implements mixed.Activator.
func (a *Activator) CreateInstance(marker mixed.Marker) (mixed.Component, error) {
	if !a.resolver.Initialized() {
		return nil, verrors.New("E206").
			WithDetailf("cannot resolve %q before the authority table is built", marker).
			WithSuggestion("Call Resolver.Initialize during startup")
	}

	res := a.resolver.Resolve(marker)
	if !res.Local {
		a.opts.logger().Debug("substituting proxy", "marker", marker, "runtime", res.Owner)
		return New(marker, res.Owner, a.bridge, a.opts), nil
	}
	return a.underlying.CreateInstance(marker)
}

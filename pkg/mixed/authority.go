package mixed

import (
	"sort"
	"sync"
	"sync/atomic"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
)

// Definition is the authority declaration of one component type.
// Server and Client mirror "belongs to the server" / "belongs to the client";
// neither means the type is constructed wherever it is requested.
type Definition struct {
	Marker Marker
	Server bool
	Client bool
}

// Owner returns the declared runtime, or RuntimeUnknown when undeclared or
// ambiguous.
func (d Definition) Owner() RuntimeID {
	switch {
	case d.Server && !d.Client:
		return RuntimeServer
	case d.Client && !d.Server:
		return RuntimeClient
	default:
		return RuntimeUnknown
	}
}

// Entry is one marker→runtime association.
type Entry struct {
	Marker Marker
	Owner  RuntimeID
}

// Table maps markers to their authoritative runtime. A Table is immutable
// once built and safe for concurrent readers.
type Table struct {
	owners map[Marker]RuntimeID
}

// BuildTable builds the authority table from defs. Any ambiguous or
// conflicting declaration fails the whole build; no partial table is
// returned.
func BuildTable(defs []Definition) (*Table, error) {
	owners := make(map[Marker]RuntimeID, len(defs))

	for _, def := range defs {
		if def.Marker == "" {
			return nil, verrors.New("E207").WithDetail("declaration without a marker")
		}
		if def.Server && def.Client {
			return nil, verrors.New("E201").
				WithDetailf("type %q is declared for both server and client", def.Marker).
				WithSuggestion("Keep exactly one of server/client on the declaration")
		}

		owner := def.Owner()
		if owner == RuntimeUnknown {
			continue
		}
		if prev, ok := owners[def.Marker]; ok && prev != owner {
			return nil, verrors.New("E202").
				WithDetailf("type %q is declared for %s and %s", def.Marker, prev, owner)
		}
		owners[def.Marker] = owner
	}

	return &Table{owners: owners}, nil
}

// Owner returns the authoritative runtime for marker.
func (t *Table) Owner(marker Marker) (RuntimeID, bool) {
	if t == nil {
		return RuntimeUnknown, false
	}
	owner, ok := t.owners[marker]
	return owner, ok
}

// Len returns the number of declared markers.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.owners)
}

// Entries returns the table sorted by marker.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	entries := make([]Entry, 0, len(t.owners))
	for marker, owner := range t.owners {
		entries = append(entries, Entry{Marker: marker, Owner: owner})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Marker < entries[j].Marker
	})
	return entries
}

// OwnedBy returns the markers owned by runtime, sorted.
func (t *Table) OwnedBy(runtime RuntimeID) []Marker {
	var markers []Marker
	for _, e := range t.Entries() {
		if e.Owner == runtime {
			markers = append(markers, e.Marker)
		}
	}
	return markers
}

// Registrar is told which markers the current runtime owns, so the peer
// runtime may construct them by marker.
type Registrar interface {
	Expose(marker Marker)
}

// Resolution is the outcome of resolving a marker.
type Resolution struct {
	// Local is true when the component is constructed in the current runtime.
	Local bool

	// Declared is true when the marker has an authority declaration.
	Declared bool

	// Owner is the authoritative runtime (RuntimeUnknown when undeclared).
	Owner RuntimeID
}

// Resolver decides, per marker, whether the current runtime constructs a
// component or delegates it to the other runtime.
type Resolver struct {
	current   RuntimeID
	registrar Registrar

	once  sync.Once
	err   error
	table atomic.Pointer[Table]
}

// NewResolver creates a resolver for the given runtime. registrar may be nil.
func NewResolver(current RuntimeID, registrar Registrar) *Resolver {
	return &Resolver{current: current, registrar: registrar}
}

// Current returns the runtime the resolver runs in.
func (r *Resolver) Current() RuntimeID {
	return r.current
}

// Initialize scans defs and publishes the authority table. It runs once;
// later calls return the first result without scanning again. On error no
// table is published.
func (r *Resolver) Initialize(defs []Definition) error {
	r.once.Do(func() {
		if !r.current.Valid() {
			r.err = verrors.New("E203").WithDetailf("resolver runtime %d", r.current)
			return
		}

		table, err := BuildTable(defs)
		if err != nil {
			r.err = err
			return
		}

		if r.registrar != nil {
			for _, marker := range table.OwnedBy(r.current) {
				r.registrar.Expose(marker)
			}
		}
		r.table.Store(table)
	})
	return r.err
}

// Initialized reports whether a table has been published.
func (r *Resolver) Initialized() bool {
	return r.table.Load() != nil
}

// Table returns the published table, or nil before a successful Initialize.
func (r *Resolver) Table() *Table {
	return r.table.Load()
}

// Resolve reports where marker must be constructed.
func (r *Resolver) Resolve(marker Marker) Resolution {
	owner, ok := r.table.Load().Owner(marker)
	if !ok {
		return Resolution{Local: true}
	}
	return Resolution{
		Local:    owner == r.current,
		Declared: true,
		Owner:    owner,
	}
}

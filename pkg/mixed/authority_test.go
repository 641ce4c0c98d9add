package mixed

import (
	"errors"
	"sync"
	"testing"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
)

type exposeRecorder struct {
	mu      sync.Mutex
	markers []Marker
}

func (r *exposeRecorder) Expose(m Marker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markers = append(r.markers, m)
}

func TestResolveLocalAndRemote(t *testing.T) {
	// Widget belongs to the server, Gadget to the client; we run on the server.
	r := NewResolver(RuntimeServer, nil)
	err := r.Initialize([]Definition{
		{Marker: "Widget", Server: true},
		{Marker: "Gadget", Client: true},
	})
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	widget := r.Resolve("Widget")
	if !widget.Local || widget.Owner != RuntimeServer {
		t.Errorf("Resolve(Widget) = %+v, want local on server", widget)
	}

	gadget := r.Resolve("Gadget")
	if gadget.Local || gadget.Owner != RuntimeClient {
		t.Errorf("Resolve(Gadget) = %+v, want proxy to client", gadget)
	}

	plain := r.Resolve("Plain")
	if !plain.Local || plain.Declared {
		t.Errorf("Resolve(Plain) = %+v, want undeclared local", plain)
	}
}

func TestResolveFromClientSide(t *testing.T) {
	r := NewResolver(RuntimeClient, nil)
	if err := r.Initialize([]Definition{
		{Marker: "Widget", Server: true},
		{Marker: "Gadget", Client: true},
	}); err != nil {
		t.Fatal(err)
	}

	if r.Resolve("Widget").Local {
		t.Error("Widget should be proxied from the client")
	}
	if !r.Resolve("Gadget").Local {
		t.Error("Gadget should be local on the client")
	}
}

func TestInitializeAmbiguous(t *testing.T) {
	reg := &exposeRecorder{}
	r := NewResolver(RuntimeServer, reg)

	err := r.Initialize([]Definition{
		{Marker: "Widget", Server: true},
		{Marker: "Both", Server: true, Client: true},
	})
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if !errors.Is(err, ErrConfiguration) || !verrors.Is(err, "E201") {
		t.Errorf("error = %v, want E201 configuration error", err)
	}

	if r.Initialized() || r.Table() != nil {
		t.Error("no table may be published after a failed initialize")
	}
	if got := r.Resolve("Widget"); got.Declared {
		t.Errorf("Resolve(Widget) = %+v, want no entries published", got)
	}
	if len(reg.markers) != 0 {
		t.Errorf("registrar saw %v, want nothing", reg.markers)
	}
}

func TestInitializeConflictingDuplicates(t *testing.T) {
	_, err := BuildTable([]Definition{
		{Marker: "Widget", Server: true},
		{Marker: "Widget", Client: true},
	})
	if !verrors.Is(err, "E202") {
		t.Errorf("error = %v, want E202", err)
	}

	table, err := BuildTable([]Definition{
		{Marker: "Widget", Server: true},
		{Marker: "Widget", Server: true},
	})
	if err != nil || table.Len() != 1 {
		t.Errorf("identical duplicates: table=%v err=%v", table, err)
	}
}

func TestBuildTableRejectsEmptyMarker(t *testing.T) {
	if _, err := BuildTable([]Definition{{Server: true}}); !verrors.Is(err, "E207") {
		t.Errorf("error = %v, want E207", err)
	}
}

func TestInitializeIdempotent(t *testing.T) {
	reg := &exposeRecorder{}
	r := NewResolver(RuntimeServer, reg)

	first := []Definition{{Marker: "Widget", Server: true}, {Marker: "Gadget", Client: true}}
	if err := r.Initialize(first); err != nil {
		t.Fatal(err)
	}
	// A second scan is ignored, even with different input.
	if err := r.Initialize([]Definition{{Marker: "Other", Server: true}}); err != nil {
		t.Fatal(err)
	}

	if r.Table().Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Table().Len())
	}
	if len(reg.markers) != 1 || reg.markers[0] != "Widget" {
		t.Errorf("exposed = %v, want [Widget]", reg.markers)
	}
}

func TestInitializeInvalidRuntime(t *testing.T) {
	r := NewResolver(RuntimeUnknown, nil)
	if err := r.Initialize(nil); !verrors.Is(err, "E203") {
		t.Errorf("error = %v, want E203", err)
	}
}

func TestTableEntriesSorted(t *testing.T) {
	table, err := BuildTable([]Definition{
		{Marker: "b", Client: true},
		{Marker: "a", Server: true},
		{Marker: "c"},
	})
	if err != nil {
		t.Fatal(err)
	}

	entries := table.Entries()
	if len(entries) != 2 || entries[0].Marker != "a" || entries[1].Marker != "b" {
		t.Errorf("Entries() = %+v", entries)
	}
	if got := table.OwnedBy(RuntimeClient); len(got) != 1 || got[0] != "b" {
		t.Errorf("OwnedBy(client) = %v", got)
	}
}

func TestResolveConcurrentReaders(t *testing.T) {
	r := NewResolver(RuntimeServer, nil)
	if err := r.Initialize([]Definition{{Marker: "Gadget", Client: true}}); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if r.Resolve("Gadget").Local {
					t.Error("Gadget resolved local")
					return
				}
			}
		}()
	}
	wg.Wait()
}

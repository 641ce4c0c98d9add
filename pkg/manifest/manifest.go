package manifest

import (
	"context"

	"gopkg.in/yaml.v3"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
)

// Source yields authority declarations.
type Source interface {
	Load(ctx context.Context) ([]mixed.Definition, error)
	String() string
}

// Manifest is the YAML document.
type Manifest struct {
	Components []Entry `yaml:"components"`
}

// Entry is one declaration. Runtime and the Server/Client flags are two
// spellings of the same thing and may be combined.
type Entry struct {
	Marker  string `yaml:"marker"`
	Runtime string `yaml:"runtime,omitempty"`
	Server  bool   `yaml:"server,omitempty"`
	Client  bool   `yaml:"client,omitempty"`
}

// Definition converts the entry.
func (e Entry) Definition() (mixed.Definition, error) {
	def := mixed.Definition{
		Marker: mixed.Marker(e.Marker),
		Server: e.Server,
		Client: e.Client,
	}
	if e.Runtime == "" {
		return def, nil
	}

	runtime, err := mixed.ParseRuntime(e.Runtime)
	if err != nil {
		return def, err
	}
	switch runtime {
	case mixed.RuntimeServer:
		def.Server = true
	case mixed.RuntimeClient:
		def.Client = true
	}
	return def, nil
}

// Parse decodes a manifest. name identifies the document in errors.
func Parse(data []byte, name string) ([]mixed.Definition, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, verrors.New("E205").
			WithDetailf("manifest %s", name).
			WithSuggestion("Check that the manifest is valid YAML").
			Wrap(err)
	}

	defs := make([]mixed.Definition, 0, len(m.Components))
	for i, entry := range m.Components {
		if entry.Marker == "" {
			return nil, verrors.New("E207").WithDetailf("manifest %s: component %d has no marker", name, i)
		}
		def, err := entry.Definition()
		if err != nil {
			return nil, verrors.New("E203").WithDetailf("manifest %s: component %q", name, entry.Marker).Wrap(err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// LoadAll loads every source in order and concatenates the declarations.
func LoadAll(ctx context.Context, sources ...Source) ([]mixed.Definition, error) {
	var defs []mixed.Definition
	for _, src := range sources {
		loaded, err := src.Load(ctx)
		if err != nil {
			return nil, err
		}
		defs = append(defs, loaded...)
	}
	return defs, nil
}

// Static is a Source over declarations built in code.
type Static []mixed.Definition

// Load implements Source.
func (s Static) Load(context.Context) ([]mixed.Definition, error) {
	return append([]mixed.Definition(nil), s...), nil
}

func (s Static) String() string {
	return "inline"
}

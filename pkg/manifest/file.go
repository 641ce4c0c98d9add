package manifest

import (
	"context"
	"os"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
)

// FileSource reads a manifest from disk.
type FileSource struct {
	Path string
}

// Load implements Source.
func (f FileSource) Load(ctx context.Context) ([]mixed.Definition, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, verrors.New("E204").WithDetail("No manifest at " + f.Path)
		}
		return nil, verrors.New("E205").WithDetailf("manifest %s", f.Path).Wrap(err)
	}
	return Parse(data, f.Path)
}

func (f FileSource) String() string {
	return f.Path
}

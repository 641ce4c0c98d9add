package main

import (
	"context"
	"log/slog"

	"github.com/vango-dev/vango-mixed/pkg/mixed"
)

// standInComponent logs every parameter update it receives. serve hosts one
// per owned marker.
type standInComponent struct {
	marker mixed.Marker
	logger *slog.Logger
	params mixed.Parameters
}

func standIn(marker mixed.Marker, logger *slog.Logger) mixed.Factory {
	return func() mixed.Component {
		return &standInComponent{marker: marker, logger: logger}
	}
}

func (c *standInComponent) SetParameters(ctx context.Context, params mixed.Parameters) error {
	c.params = params

	attrs := []any{"marker", c.marker}
	for _, name := range params.Names() {
		v := params[name]
		if v.IsCallback() {
			attrs = append(attrs, name, v.Kind().String())
		} else {
			attrs = append(attrs, name, v.Data())
		}
	}
	c.logger.Info("parameters received", attrs...)
	return nil
}

func (c *standInComponent) Dispose(ctx context.Context) error {
	c.logger.Info("component disposed", "marker", c.marker)
	return nil
}

package cmd

import (
	"context"
	"time"

	"github.com/msto63/condparse/internal/condparse/client"
	"github.com/msto63/condparse/internal/condparse/render"
	"github.com/msto63/condparse/internal/tui/repl"
	"github.com/msto63/condparse/pkg/core/logging"
)

// backend parses locally or through a remote server
type backend struct {
	parse repl.ParseFunc
	rules func(ctx context.Context) ([]string, error)
	close func()
}

// openBackend connects to remote when set, otherwise creates a local service
func (o *options) openBackend(remote string, timeout time.Duration) (*backend, error) {
	if remote != "" {
		cfg := client.DefaultConfig(remote)
		cfg.Timeout = timeout
		cfg.Logger = logging.New("condparse-client")
		c, err := client.New(cfg)
		if err != nil {
			return nil, err
		}
		return &backend{
			parse: c.Parse,
			rules: c.Rules,
			close: func() { _ = c.Close() },
		}, nil
	}

	svc, err := o.newService("condparse-cli")
	if err != nil {
		return nil, err
	}
	return &backend{
		parse: svc.Parse,
		rules: func(context.Context) ([]string, error) { return svc.Rules(), nil },
		close: svc.Close,
	}, nil
}

// colorMode resolves --no-color against the configured color setting
func (o *options) colorMode(noColor bool) render.ColorMode {
	if noColor {
		return render.ColorNever
	}
	switch o.cfg.Output.Color {
	case "always":
		return render.ColorAlways
	case "never":
		return render.ColorNever
	default:
		return render.ColorAuto
	}
}

package renderer

import (
	"context"
	"fmt"

	"github.com/zimalabs/genflow/internal/config"
	"github.com/zimalabs/genflow/internal/pricing"
)

// SubprocessFactory creates subprocess-backed renderers.
type SubprocessFactory struct {
	Binary string
	Prices *pricing.Table
}

// New creates a fresh subprocess invocation.
func (f *SubprocessFactory) New(ctx context.Context) Renderer {
	return NewProcess(ctx, f.Binary, f.Prices)
}

// APIFactory creates API-backed renderers.
type APIFactory struct {
	APIKey string
	Prices *pricing.Table
}

// New creates a fresh API invocation.
func (f *APIFactory) New(ctx context.Context) Renderer {
	return NewAPIRenderer(ctx, f.APIKey, f.Prices)
}

// NewFactory selects the renderer backend from configuration.
func NewFactory(cfg config.RendererConfig, prices *pricing.Table) (Factory, error) {
	switch cfg.Backend {
	case "", "subprocess":
		binary := cfg.Binary
		if binary == "" {
			binary = "claude"
		}
		return &SubprocessFactory{Binary: binary, Prices: prices}, nil
	case "api":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("renderer backend %q requires an API key", cfg.Backend)
		}
		return &APIFactory{APIKey: cfg.APIKey, Prices: prices}, nil
	default:
		return nil, fmt.Errorf("unknown renderer backend %q", cfg.Backend)
	}
}

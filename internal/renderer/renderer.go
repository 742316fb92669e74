package renderer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leefowlercu/veriview-gateway/internal/config"
	"github.com/leefowlercu/veriview-gateway/pkg/types"
)

// Renderer defines the interface for the rendering collaborator
type Renderer interface {
	// Render loads url and returns its structural snapshot and screenshot.
	// Failures are *types.CollaboratorError values.
	Render(ctx context.Context, url string) (types.StructuralSnapshot, error)

	// GetName returns the backend name
	GetName() string
}

// New builds the renderer selected by cfg.Backend
func New(cfg config.RendererConfig, logger *slog.Logger) (Renderer, error) {
	switch cfg.Backend {
	case config.BackendHTTP, "":
		return NewHTTPRenderer(cfg, logger), nil
	case config.BackendChrome:
		return NewChromeRenderer(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown renderer backend %q", cfg.Backend)
	}
}

// wireNode is the structural node shape shared by both backends
type wireNode struct {
	Text        string  `json:"text"`
	Tag         string  `json:"tag"`
	Interactive bool    `json:"interactive"`
	ElementID   *string `json:"vv_id"`
	Occluded    *bool   `json:"occluded"`
}

type wireSuspicious struct {
	Text    string `json:"text"`
	Tag     string `json:"tag"`
	Reasons string `json:"reasons"`
}

// wireSnapshot mirrors the renderer response. Required fields are pointers
// so that an absent field can be told apart from an empty one.
type wireSnapshot struct {
	CleanDOM        *[]wireNode      `json:"clean_dom"`
	SuspiciousNodes []wireSuspicious `json:"suspicious_nodes"`
	Screenshot      *string          `json:"screenshot_b64"`
}

// toSnapshot validates a decoded response and converts it to the domain shape
func (w wireSnapshot) toSnapshot() (types.StructuralSnapshot, error) {
	if w.CleanDOM == nil {
		return types.StructuralSnapshot{}, fmt.Errorf("missing clean_dom")
	}
	if w.Screenshot == nil {
		return types.StructuralSnapshot{}, fmt.Errorf("missing screenshot_b64")
	}

	nodes := make([]types.StructuralNode, 0, len(*w.CleanDOM))
	for _, n := range *w.CleanDOM {
		nodes = append(nodes, types.StructuralNode{
			Text:          n.Text,
			Tag:           n.Tag,
			IsInteractive: n.Interactive,
			ElementID:     n.ElementID,
			IsOccluded:    n.Occluded,
		})
	}

	var suspicious []types.SuspiciousNode
	for _, n := range w.SuspiciousNodes {
		suspicious = append(suspicious, types.SuspiciousNode{
			Text:        n.Text,
			Tag:         n.Tag,
			ReasonCodes: n.Reasons,
		})
	}

	return types.StructuralSnapshot{
		Nodes:            nodes,
		SuspiciousNodes:  suspicious,
		ScreenshotBase64: *w.Screenshot,
	}, nil
}

// Package identify turns a lure photo into a typed identification via a
// vision model.
package identify

import (
	"context"

	"github.com/driftworks/tacklebox/internal/types"
)

// Result is one identification outcome.
type Result struct {
	LureType   string         `json:"lure_type"`
	Confidence int            `json:"confidence"`
	Details    map[string]any `json:"details,omitempty"`
}

// Identifier analyzes a photo. Implementations must respect ctx; the
// upstream analysis is slow, so callers grant a long deadline.
type Identifier interface {
	Identify(ctx context.Context, imageDataURI string) (*Result, error)
}

// NewLure maps an identification onto a lure creation input.
func (r *Result) NewLure(imageURI string) types.NewLure {
	return types.NewLure{
		ImageURI:   imageURI,
		LureType:   r.LureType,
		Confidence: r.Confidence,
		Details:    r.Details,
	}
}

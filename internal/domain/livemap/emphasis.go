package livemap

import (
	"context"

	"github.com/okian/livemap/pkg/logger"
	"github.com/okian/livemap/pkg/metrics"
)

// emphasize restyles every registered marker against the selection. All
// markers are visited, not just the delta, since a rebuild replaces them.
func (e *Engine) emphasize(ctx context.Context) {
	selected := e.selection.Get()
	e.registry.each(func(p *placed) {
		style := DefaultStyle
		if selected != "" && p.EntityID == selected {
			style = SelectedStyle
		}
		if err := e.surface.StyleMarker(ctx, p.Handle, style); err != nil {
			metrics.RecordSurfaceError("style_marker")
			e.log.Warn(ctx, "style marker failed",
				logger.String("entity", p.EntityID),
				logger.Error(err),
			)
			return
		}
		p.style = style
	})
}

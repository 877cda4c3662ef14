package astoutput

// NewRenderer returns the plain-text Renderer for cfg. An interactive
// TTY dashboard is a richer Renderer implementation that cmd/astindex
// constructs itself (via bubbletea) when ShouldUsePlain(cfg) is false;
// astoutput only owns the fallback every environment can render to.
func NewRenderer(cfg Config) Renderer {
	return NewPlainRenderer(cfg)
}

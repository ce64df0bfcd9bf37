package template

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/fleetops/rollctl/internal/bus"
)

// Tokens are the values substituted into an agent config template.
type Tokens struct {
	PresetID        string
	SampleRate      int
	FilterMode      string
	FilterPatterns  []string
	ExporterHeaders map[string]string
}

// Rendered is a rendered agent configuration with its content checksum.
// The checksum is what rollout jobs carry for idempotence checks.
type Rendered struct {
	Text       string  `json:"text"`
	Checksum   string  `json:"checksum"`
	DurationMs float64 `json:"duration_ms"`
}

// Renderer renders agent config templates from a directory search path.
// Later directories take precedence, allowing user overrides of the
// built-in templates.
type Renderer struct {
	dirs   []string
	sink   bus.Sink
	logger *slog.Logger
}

// NewRenderer creates a renderer over the given directories.
func NewRenderer(dirs []string, sink bus.Sink, logger *slog.Logger) *Renderer {
	return &Renderer{dirs: dirs, sink: sink, logger: logger}
}

// Render loads template <id>.yaml.tmpl from the search path and substitutes
// the tokens.
func (r *Renderer) Render(id string, tokens Tokens) (*Rendered, error) {
	start := time.Now()

	path, err := r.resolve(id)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New(filepath.Base(path)).ParseFiles(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", id, err)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, tokens); err != nil {
		return nil, fmt.Errorf("failed to render template %s: %w", id, err)
	}

	text := sb.String()
	sum := sha256.Sum256([]byte(text))
	rendered := &Rendered{
		Text:       text,
		Checksum:   hex.EncodeToString(sum[:]),
		DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}

	r.logger.Info("rendered template",
		slog.String("template", id),
		slog.String("checksum", rendered.Checksum),
		slog.Int("bytes", len(text)),
	)

	r.sink.Publish(bus.NewEvent(bus.TopicTemplateRendered, map[string]any{
		"template": id,
		"checksum": rendered.Checksum,
	}))

	return rendered, nil
}

// resolve finds the template file, searching directories in reverse order
// so later directories win.
func (r *Renderer) resolve(id string) (string, error) {
	name := id + ".yaml.tmpl"
	for i := len(r.dirs) - 1; i >= 0; i-- {
		candidate := filepath.Join(r.dirs[i], name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("template %s not found in %v", id, r.dirs)
}

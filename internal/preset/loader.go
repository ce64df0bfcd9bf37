package preset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fleetops/rollctl/internal/model"
)

// Loader loads presets from an overlay of directories: later directories
// take precedence, so users can shadow built-in presets.
type Loader struct {
	dirs   []string
	logger *slog.Logger
}

// NewLoader creates a preset loader over the given directories.
func NewLoader(dirs []string, logger *slog.Logger) *Loader {
	return &Loader{dirs: dirs, logger: logger}
}

// List returns available preset IDs, sorted.
func (l *Loader) List() []string {
	seen := make(map[string]bool)
	for _, dir := range l.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(name, ".yaml") {
				continue
			}
			seen[strings.TrimSuffix(name, ".yaml")] = true
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Load reads and validates a preset by ID. The SHA-256 of the raw file
// bytes is recorded on the preset.
func (l *Loader) Load(id string) (*model.Preset, error) {
	path, err := l.resolve(id)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset %s: %w", id, err)
	}

	var p model.Preset
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to parse preset %s: %w", id, err)
	}

	sum := sha256.Sum256(raw)
	p.SHA256 = hex.EncodeToString(sum[:])

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid preset %s: %w", id, err)
	}

	l.logger.Debug("loaded preset",
		slog.String("preset", p.ID),
		slog.String("path", path),
	)

	return &p, nil
}

// resolve finds the preset file, searching directories in reverse order so
// later directories win.
func (l *Loader) resolve(id string) (string, error) {
	name := id + ".yaml"
	for i := len(l.dirs) - 1; i >= 0; i-- {
		candidate := filepath.Join(l.dirs[i], name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("preset %s not found in %v", id, l.dirs)
}

package preset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/rollctl/internal/logger"
)

const conservativePreset = `id: conservative
default_sample_rate: 60
filter_mode: include
tier1_patterns:
  - nginx
  - postgres
expected_keep_ratio: 0.3
avg_bytes_per_sample: 1500
`

func writePreset(t *testing.T, dir, id, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, id+".yaml"), []byte(content), 0o644))
}

func TestLoadParsesAndChecksums(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "conservative", conservativePreset)

	l := NewLoader([]string{dir}, logger.New())
	p, err := l.Load("conservative")
	require.NoError(t, err)

	assert.Equal(t, "conservative", p.ID)
	assert.Equal(t, 60, p.DefaultSampleRate)
	assert.Equal(t, []string{"nginx", "postgres"}, p.Tier1Patterns)
	assert.InDelta(t, 0.3, p.ExpectedKeepRatio, 1e-9)
	assert.Len(t, p.SHA256, 64)
}

func TestLoadLaterDirectoryShadowsEarlier(t *testing.T) {
	base := t.TempDir()
	overlay := t.TempDir()
	writePreset(t, base, "conservative", conservativePreset)

	shadowed := `id: conservative
default_sample_rate: 15
filter_mode: exclude
expected_keep_ratio: 0.9
avg_bytes_per_sample: 2000
`
	writePreset(t, overlay, "conservative", shadowed)

	l := NewLoader([]string{base, overlay}, logger.New())
	p, err := l.Load("conservative")
	require.NoError(t, err)

	assert.Equal(t, 15, p.DefaultSampleRate)
	assert.Equal(t, "exclude", p.FilterMode)
}

func TestLoadRejectsInvalidPreset(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "broken", "id: broken\nfilter_mode: whitelist\ndefault_sample_rate: 60\navg_bytes_per_sample: 100\n")

	l := NewLoader([]string{dir}, logger.New())
	_, err := l.Load("broken")
	assert.ErrorContains(t, err, "filter_mode")
}

func TestLoadUnknownPreset(t *testing.T) {
	l := NewLoader([]string{t.TempDir()}, logger.New())
	_, err := l.Load("nope")
	assert.ErrorContains(t, err, "not found")
}

func TestListMergesDirectoriesSorted(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	writePreset(t, a, "moderate", conservativePreset)
	writePreset(t, a, "conservative", conservativePreset)
	writePreset(t, b, "conservative", conservativePreset)
	writePreset(t, b, "aggressive", conservativePreset)
	require.NoError(t, os.WriteFile(filepath.Join(b, "notes.txt"), []byte("x"), 0o644))

	l := NewLoader([]string{a, b}, logger.New())
	assert.Equal(t, []string{"aggressive", "conservative", "moderate"}, l.List())
}

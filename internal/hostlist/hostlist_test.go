package hostlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommaList(t *testing.T) {
	hosts, err := Parse("web-01, web-02,web-03")
	require.NoError(t, err)
	assert.Equal(t, []string{"web-01", "web-02", "web-03"}, hosts)
}

func TestParseDeduplicatesKeepingOrder(t *testing.T) {
	hosts, err := Parse("b,a,b,c,a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, hosts)
}

func TestParseHostFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.txt")
	content := "# production web tier\nweb-01\n\nweb-02\n  web-03  \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	hosts, err := Parse("@" + path)
	require.NoError(t, err)
	assert.Equal(t, []string{"web-01", "web-02", "web-03"}, hosts)
}

func TestParseMissingHostFile(t *testing.T) {
	_, err := Parse("@" + filepath.Join(t.TempDir(), "nope.txt"))
	assert.ErrorContains(t, err, "failed to read host file")
}

func TestParseEmptyInputs(t *testing.T) {
	_, err := Parse("")
	assert.Error(t, err)

	_, err = Parse("  ,  , ")
	assert.ErrorContains(t, err, "no hostnames")
}

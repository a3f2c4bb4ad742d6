package envutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	input := `
# comment
SHIFTRECON_PLANNED_SHEET=Podklady
export SHIFTRECON_CLOCK_SHEET = Avaris
SHIFTRECON_TIME_FORMAT="hh:mm # literal"
SHIFTRECON_LOG_LEVEL=debug # trailing comment
SHIFTRECON_API_ADDR=':9090'
not a pair
=orphan
`
	values, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"SHIFTRECON_PLANNED_SHEET": "Podklady",
		"SHIFTRECON_CLOCK_SHEET":   "Avaris",
		"SHIFTRECON_TIME_FORMAT":   "hh:mm # literal",
		"SHIFTRECON_LOG_LEVEL":     "debug",
		"SHIFTRECON_API_ADDR":      ":9090",
	}, values)
}

func TestParseBadQuote(t *testing.T) {
	_, err := Parse(strings.NewReader(`KEY="unterminated`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestLoadDotEnvKeepsExistingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SHIFTRECON_TEST_A=from-file\nSHIFTRECON_TEST_B=from-file\n"), 0o600))
	t.Setenv("SHIFTRECON_TEST_A", "from-env")
	t.Setenv("SHIFTRECON_TEST_B", "")
	require.NoError(t, os.Unsetenv("SHIFTRECON_TEST_B"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-env", os.Getenv("SHIFTRECON_TEST_A"))
	assert.Equal(t, "from-file", os.Getenv("SHIFTRECON_TEST_B"))
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}

func TestWriteDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	values := map[string]string{"B": "two words", "A": "1"}

	require.NoError(t, WriteDotEnv(path, values, false))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "A=1\nB=\"two words\"\n", string(data))

	err = WriteDotEnv(path, values, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")
	require.NoError(t, WriteDotEnv(path, values, true))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	parsed, err := Parse(f)
	require.NoError(t, err)
	assert.Equal(t, values, parsed)
}

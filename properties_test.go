package connector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLoadProperties(t *testing.T) {
	dir := t.TempDir()
	body := "# build info\ninfo.build.version = 1.4.0\ninfo.build.artifact=crm-connector\napi.url: https://crm.example.com/api\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crm.properties"), []byte(body), 0o600))

	props, err := LoadProperties(dir, "crm", zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, 3, props.Len())
	assert.Equal(t, "1.4.0", props.GetOr(PropertyBuildVersion, ""))
	assert.Equal(t, "https://crm.example.com/api", props.GetOr("api.url", ""))
	assert.Equal(t, []string{"api.url", "info.build.artifact", "info.build.version"}, props.Keys())
}

func TestLoadProperties_MissingFileIsEmpty(t *testing.T) {
	props, err := LoadProperties(t.TempDir(), "demo", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 0, props.Len())
	assert.Equal(t, "unknown", props.GetOr(PropertyBuildVersion, "unknown"))
}

func TestProperties_MapIsCopy(t *testing.T) {
	src := map[string]string{"a": "1"}
	props := NewProperties(src)
	src["a"] = "2"

	m := props.Map()
	m["a"] = "3"

	v, ok := props.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStringEmpty(t *testing.T) {
	c, err := ParseString("")
	require.NoError(t, err)
	assert.Equal(t, Config{}, c)
}

func TestParseStringBasic(t *testing.T) {
	c, err := ParseString(`
store:
  dsn: "tinygraph.db"
endpoint:
  addr: ":8080"
`)
	require.NoError(t, err)
	assert.Equal(t, "tinygraph.db", c.Store.DSN)
	assert.Equal(t, ":8080", c.Endpoint.Addr)
}

func TestMergeOverridesOnlySetFields(t *testing.T) {
	base := Config{Store: Store{DSN: "base.db"}, Endpoint: Endpoint{Addr: ":8080"}}
	override := Config{Endpoint: Endpoint{Addr: ":9090"}}
	merged := Merge(base, override)
	assert.Equal(t, "base.db", merged.Store.DSN)
	assert.Equal(t, ":9090", merged.Endpoint.Addr)
}

func TestLoadResolvesExtendsInDependencyOrder(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.yml")
	derived := filepath.Join(dir, "derived.yml")

	require.NoError(t, os.WriteFile(base, []byte(`
store:
  dsn: "base.db"
endpoint:
  addr: ":8080"
`), 0o644))
	require.NoError(t, os.WriteFile(derived, []byte(`
extends: ["`+base+`"]
endpoint:
  addr: ":9090"
`), 0o644))

	c, err := Load(derived)
	require.NoError(t, err)
	assert.Equal(t, "base.db", c.Store.DSN)
	assert.Equal(t, ":9090", c.Endpoint.Addr)
}

func TestLoadDetectsCircularExtends(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yml")
	b := filepath.Join(dir, "b.yml")
	require.NoError(t, os.WriteFile(a, []byte(`extends: ["`+b+`"]`), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(`extends: ["`+a+`"]`), 0o644))

	_, err := Load(a)
	assert.Error(t, err)
}

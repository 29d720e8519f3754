package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audioclient/internal/buildinfo"
	"github.com/tphakala/go-audioclient/internal/conf"
	"github.com/tphakala/go-audioclient/internal/logger"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, conf.WriteDefault(path))
	return path
}

func TestRootCommandTree(t *testing.T) {
	t.Parallel()

	root := RootCommand(&buildinfo.Context{Version: "1.2.3", BuildDate: "today"})
	assert.Equal(t, "1.2.3", root.Version)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"render", "capture", "devices", "info"}, names)
}

func TestLoadSettingsFlagsOverride(t *testing.T) {
	path := writeConfig(t)

	s, err := loadSettings(&globalFlags{configPath: path, debug: true, metricsAddr: "127.0.0.1:0"})
	require.NoError(t, err)
	assert.True(t, s.Debug)
	assert.True(t, s.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:0", s.Metrics.Listen)
}

func TestLoadSettingsMissingFile(t *testing.T) {
	_, err := loadSettings(&globalFlags{configPath: filepath.Join(t.TempDir(), "nope.yaml")})
	require.Error(t, err)
}

func TestInfoCommandRuns(t *testing.T) {
	path := writeConfig(t)
	t.Cleanup(func() { logger.SetGlobal(nil) })

	root := RootCommand(&buildinfo.Context{Version: "test", BuildDate: "now"})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--config", path, "info"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "audioclient test (built now)")
	assert.Contains(t, out.String(), "capture default device")
}

package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	info := Get()

	assert.Equal(t, Version, info.Version)
	assert.Equal(t, GitCommit, info.GitCommit)
	assert.Equal(t, BuildTime, info.BuildTime)
	assert.Contains(t, info.GoVersion, "go")
}

func TestInfo_String(t *testing.T) {
	info := Info{Version: "0.3.0", GitCommit: "abc123", BuildTime: "2026-10-01", GoVersion: "go1.25.1"}

	assert.Equal(t, "Version: 0.3.0, GitCommit: abc123, BuildTime: 2026-10-01, GoVersion: go1.25.1", info.String())
}

func TestInfo_JSON(t *testing.T) {
	info := Info{Version: "0.3.0", GitCommit: "abc123", BuildTime: "2026-10-01", GoVersion: "go1.25.1"}

	jsonString, err := info.JSON()
	require.NoError(t, err)

	assert.Equal(t, `{
  "version": "0.3.0",
  "gitCommit": "abc123",
  "buildTime": "2026-10-01",
  "goVersion": "go1.25.1"
}`, jsonString)
}

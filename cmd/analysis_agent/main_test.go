package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"serve", "analyze", "results", "version"} {
		assert.True(t, names[want], "command %s not registered", want)
	}
}

func TestAnalyzeRequiresJobID(t *testing.T) {
	flag := analyzeCmd.Flags().Lookup("job-id")
	require.NotNil(t, flag)
	required := flag.Annotations[cobra.BashCompOneRequiredFlag]
	require.NotEmpty(t, required)
	assert.Equal(t, "true", required[0])
}

func TestServeFlagDefaults(t *testing.T) {
	port := serveCmd.Flags().Lookup("port")
	require.NotNil(t, port)
	assert.Equal(t, "0", port.DefValue)
}

func TestResultsFlagDefaults(t *testing.T) {
	limit := resultsCmd.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "50", limit.DefValue)

	minOverall := resultsCmd.Flags().Lookup("min-overall")
	require.NotNil(t, minOverall)
	assert.Equal(t, "-1", minOverall.DefValue)
}

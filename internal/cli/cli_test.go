package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCLI(t *testing.T) {
	cmd := BuildCLI()

	assert.NotNil(t, cmd)
	assert.Equal(t, "jobgate", cmd.Use)
	assert.Equal(t, "1.0.0", cmd.Version)

	commands := cmd.Commands()
	commandNames := make(map[string]bool)
	for _, c := range commands {
		commandNames[c.Use] = true
	}
	assert.True(t, commandNames["serve"], "should have 'serve' command")
	assert.True(t, commandNames["workerproc"], "should have 'workerproc' command")

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "configs/default.yaml", configFlag.DefValue)
}

func TestBuildServeCommand(t *testing.T) {
	cmd := buildServeCommand()
	assert.Equal(t, "serve", cmd.Use)
	assert.NotNil(t, cmd.RunE)
}

func TestBuildWorkerProcCommandIsHidden(t *testing.T) {
	cmd := buildWorkerProcCommand()
	assert.Equal(t, "workerproc", cmd.Use)
	assert.True(t, cmd.Hidden)

	nameFlag := cmd.Flags().Lookup("name")
	require.NotNil(t, nameFlag)
	assert.Equal(t, "pdfProcess", nameFlag.DefValue)
}

func TestLoadConfigOrDefaultFallsBackWhenFileMissing(t *testing.T) {
	cfg, err := loadConfigOrDefault("/nonexistent/jobgate.yaml")
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.MessagePool.WorkerCount)
	assert.Equal(t, 8, cfg.PDFPool.WorkerCount)
}

func TestLoadConfigOrDefaultReadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobgate.yaml")
	content := "message_pool:\n  worker_count: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := loadConfigOrDefault(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MessagePool.WorkerCount)
	// Untouched section keeps its default.
	assert.Equal(t, 8, cfg.PDFPool.WorkerCount)
}

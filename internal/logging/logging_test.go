package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesFiles(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, closeFn, err := New(Options{Level: "info", Dir: dir, Console: &console})
	require.NoError(t, err)

	logger.Debug("debug only in file", zap.String("name", "a.txt"))
	logger.Info("entry moved", zap.String("name", "b.txt"))
	logger.Error("move failed", zap.String("name", "c.txt"))
	closeFn()

	assert.NotContains(t, console.String(), "debug only in file")
	assert.Contains(t, console.String(), "entry moved")
	assert.Contains(t, console.String(), "ERROR")

	all, err := os.ReadFile(filepath.Join(dir, LogFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(all)), "\n")
	require.Len(t, lines, 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "debug", rec["level"])
	assert.Equal(t, "a.txt", rec["name"])

	errs, err := os.ReadFile(filepath.Join(dir, ErrorFile))
	require.NoError(t, err)
	assert.Contains(t, string(errs), "move failed")
	assert.NotContains(t, string(errs), "entry moved")
}

func TestNew_ConsoleOnly(t *testing.T) {
	var console bytes.Buffer
	logger, closeFn, err := New(Options{Level: "debug", Console: &console})
	require.NoError(t, err)
	logger.Debug("visible")
	closeFn()
	assert.Contains(t, console.String(), "visible")
}

func TestNew_BadLevel(t *testing.T) {
	_, _, err := New(Options{Level: "chatty"})
	assert.Error(t, err)
}

func TestRotatingSinks(t *testing.T) {
	dir := t.TempDir()
	all, errs := rotatingSinks(dir)
	defer all.Close()
	defer errs.Close()

	assert.Equal(t, filepath.Join(dir, LogFile), all.Filename)
	assert.Equal(t, 10, all.MaxSize)
	assert.Equal(t, filepath.Join(dir, ErrorFile), errs.Filename)
	assert.Equal(t, 5, errs.MaxSize)

	_, err := all.Write([]byte("first\n"))
	require.NoError(t, err)
	require.NoError(t, all.Rotate())
	_, err = all.Write([]byte("second\n"))
	require.NoError(t, err)

	current, err := os.ReadFile(filepath.Join(dir, LogFile))
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(current))

	require.Eventually(t, func() bool {
		compressed, _ := filepath.Glob(filepath.Join(dir, "archivist-*.log.gz"))
		plain, _ := filepath.Glob(filepath.Join(dir, "archivist-*.log"))
		return len(compressed) == 1 && len(plain) == 0
	}, 5*time.Second, 20*time.Millisecond)
}

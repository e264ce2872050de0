// Copyright (c) 2025 Cubyte.online under the AGPL License

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSceneWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "scene.toml")
	require.NoError(t, os.WriteFile(p, []byte("a"), 0o644))

	sw, err := watchScene(p)
	require.NoError(t, err)
	defer sw.close()
	assert.False(t, sw.changed())

	require.NoError(t, os.WriteFile(p, []byte("b"), 0o644))
	assert.Eventually(t, sw.changed, 2*time.Second, 10*time.Millisecond)
}

func TestSceneWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "scene.toml")
	require.NoError(t, os.WriteFile(p, []byte("a"), 0o644))

	sw, err := watchScene(p)
	require.NoError(t, err)
	defer sw.close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.obj"), []byte("v 0 0 0"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.False(t, sw.changed())
}

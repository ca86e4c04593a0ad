package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageCapturesSizeAndHash(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	content := "not really an ipa"
	staged, size, sum, err := store.Stage(strings.NewReader(content))
	require.NoError(t, err)
	defer store.Discard(staged)

	assert.EqualValues(t, len(content), size)
	want := sha256.Sum256([]byte(content))
	assert.Equal(t, hex.EncodeToString(want[:]), sum)
}

func TestPromoteMovesStagedFileIntoVersionDir(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	content := "not really an ipa"
	staged, _, _, err := store.Stage(strings.NewReader(content))
	require.NoError(t, err)

	rel := store.ArtifactPath("demo-abc", 1, "Demo App.ipa")
	assert.Equal(t, "demo-abc/1/demo-app.ipa", rel)
	require.NoError(t, store.Promote(staged, rel))

	// The staged copy is gone after promotion.
	_, err = os.Stat(staged)
	assert.True(t, os.IsNotExist(err))

	f, err := store.Open(rel)
	require.NoError(t, err)
	defer f.Close()
	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestArtifactPathSanitizesSegments(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	rel := store.ArtifactPath("demo", 2, "../../../etc/passwd")
	assert.NotContains(t, rel, "..")

	abs := filepath.Join(store.Root(), filepath.FromSlash(rel))
	resolved, err := filepath.Abs(abs)
	require.NoError(t, err)
	root, err := filepath.Abs(store.Root())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resolved, root))
}

func TestIconPathUsesOriginalExtension(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	assert.Equal(t, "demo/3/icon.png", store.IconPath("demo", 3, "AppIcon60x60@2x.PNG"))
}

func TestDiscardToleratesMissingFiles(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	assert.NoError(t, store.Discard(filepath.Join(store.Root(), ".staging", "gone")))
	assert.NoError(t, store.Discard(""))
}

func TestRemoveVersionDir(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	staged, _, _, err := store.Stage(strings.NewReader("x"))
	require.NoError(t, err)
	rel := store.ArtifactPath("demo", 3, "demo.apk")
	require.NoError(t, store.Promote(staged, rel))

	require.NoError(t, store.RemoveVersionDir("demo", 3))
	_, err = store.Open(rel)
	assert.True(t, os.IsNotExist(err))
}

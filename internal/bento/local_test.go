package bento

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cochaviz/bento-kaniko/internal/artifacts"
)

func TestLocalStoreImportAndGet(t *testing.T) {
	store := &LocalStore{BaseDir: t.TempDir()}
	tag := artifacts.Tag{Name: "iris_classifier", Version: "abc123"}

	handle, err := store.Import(tag, bytes.NewReader(bentoArchive(t, "iris_classifier", "abc123", "FROM python:3.10\n")))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(store.BaseDir, "iris_classifier", "abc123"), handle.Path)
	assert.Equal(t, "iris_classifier", handle.Name)
	assert.Equal(t, "abc123", handle.Version)

	dockerfile, err := os.ReadFile(handle.PathOf("env/docker/Dockerfile"))
	require.NoError(t, err)
	assert.Equal(t, "FROM python:3.10\n", string(dockerfile))

	latest, err := store.Get(artifacts.Tag{Name: "iris_classifier", Version: artifacts.LatestVersion})
	require.NoError(t, err)
	assert.Equal(t, handle, latest)

	entries, err := os.ReadDir(filepath.Join(store.BaseDir, stagingName))
	require.NoError(t, err)
	assert.Empty(t, entries, "staging directories are cleaned up")
}

func TestLocalStoreImportReplacesExistingCopy(t *testing.T) {
	store := &LocalStore{BaseDir: t.TempDir()}
	tag := artifacts.Tag{Name: "iris_classifier", Version: "abc123"}

	first, err := store.Import(tag, bytes.NewReader(bentoArchive(t, "iris_classifier", "abc123", "FROM old\n")))
	require.NoError(t, err)
	stale := first.PathOf("stale.txt")
	require.NoError(t, os.WriteFile(stale, []byte("left over"), 0o644))

	second, err := store.Import(tag, bytes.NewReader(bentoArchive(t, "iris_classifier", "abc123", "FROM new\n")))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	dockerfile, err := os.ReadFile(second.PathOf("env/docker/Dockerfile"))
	require.NoError(t, err)
	assert.Equal(t, "FROM new\n", string(dockerfile))
	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "previous copy is removed")
}

func TestLocalStoreImportRejectsMismatchedManifest(t *testing.T) {
	store := &LocalStore{BaseDir: t.TempDir()}
	tag := artifacts.Tag{Name: "iris_classifier", Version: "abc123"}

	_, err := store.Import(tag, bytes.NewReader(bentoArchive(t, "iris_classifier", "zzz999", "FROM x\n")))
	assert.ErrorContains(t, err, "expected iris_classifier:abc123")

	_, err = store.Get(tag)
	assert.ErrorIs(t, err, artifacts.ErrNotFound)
}

func TestLocalStoreImportRejectsUnsafeEntries(t *testing.T) {
	store := &LocalStore{BaseDir: t.TempDir()}
	tag := artifacts.Tag{Name: "iris_classifier", Version: "abc123"}

	for _, archive := range [][]byte{
		makeArchive(t, entry{name: "../escape.txt", body: "x"}),
		makeArchive(t, entry{name: "/etc/passwd", body: "x"}),
		makeArchive(t, entry{name: "link", linkname: "../../outside"}),
		makeArchive(t, entry{name: "abs", linkname: "/etc/shadow"}),
	} {
		_, err := store.Import(tag, bytes.NewReader(archive))
		assert.ErrorIs(t, err, ErrUnsafeArchive)
	}
}

func TestLocalStoreImportRejectsChainedSymlinks(t *testing.T) {
	store := &LocalStore{BaseDir: t.TempDir()}
	tag := artifacts.Tag{Name: "iris_classifier", Version: "abc123"}

	archive := makeArchive(t,
		entry{name: "l1", linkname: "."},
		entry{name: "l1/l2", linkname: ".."},
		entry{name: "l2/pwned.txt", body: "x"},
	)
	_, err := store.Import(tag, bytes.NewReader(archive))
	assert.ErrorIs(t, err, ErrUnsafeArchive)

	for _, dir := range []string{store.BaseDir, filepath.Join(store.BaseDir, stagingName), filepath.Dir(store.BaseDir)} {
		assert.NoFileExists(t, filepath.Join(dir, "pwned.txt"))
	}
}

func TestLocalStoreImportRejectsWritesThroughLinks(t *testing.T) {
	store := &LocalStore{BaseDir: t.TempDir()}
	tag := artifacts.Tag{Name: "iris_classifier", Version: "abc123"}

	for _, archive := range [][]byte{
		makeArchive(t,
			entry{name: "sub", dir: true},
			entry{name: "sub/up", linkname: "../.."},
			entry{name: "sub/up/pwned.txt", body: "x"},
		),
		makeArchive(t,
			entry{name: "dangling", linkname: "missing"},
			entry{name: "dangling/pwned.txt", body: "x"},
		),
	} {
		_, err := store.Import(tag, bytes.NewReader(archive))
		assert.ErrorIs(t, err, ErrUnsafeArchive)
	}
	assert.NoFileExists(t, filepath.Join(filepath.Dir(store.BaseDir), "pwned.txt"))
	assert.NoFileExists(t, filepath.Join(store.BaseDir, "pwned.txt"))
}

func TestLocalStoreImportKeepsInternalSymlinks(t *testing.T) {
	store := &LocalStore{BaseDir: t.TempDir()}
	tag := artifacts.Tag{Name: "iris", Version: "v1"}

	archive := makeArchive(t,
		entry{name: "bento.yaml", body: "service: svc\nname: iris\nversion: v1\n"},
		entry{name: "env/docker/Dockerfile", body: "FROM x\n"},
		entry{name: "src/model", linkname: "../env/docker/Dockerfile"},
	)
	handle, err := store.Import(tag, bytes.NewReader(archive))
	require.NoError(t, err)

	linked, err := os.ReadFile(handle.PathOf("src", "model"))
	require.NoError(t, err)
	assert.Equal(t, "FROM x\n", string(linked))
}

func TestLocalStoreImportRejectsNonGzip(t *testing.T) {
	store := &LocalStore{BaseDir: t.TempDir()}

	_, err := store.Import(artifacts.Tag{Name: "iris", Version: "v1"}, bytes.NewReader([]byte("not an archive")))
	assert.ErrorContains(t, err, "open bento archive")
}

func TestLocalStoreGetMissing(t *testing.T) {
	store := &LocalStore{BaseDir: t.TempDir()}

	_, err := store.Get(artifacts.Tag{Name: "iris", Version: "v1"})
	assert.ErrorIs(t, err, artifacts.ErrNotFound)

	_, err = store.Get(artifacts.Tag{Name: "iris", Version: artifacts.LatestVersion})
	assert.ErrorIs(t, err, artifacts.ErrNotFound)
}

func TestLocalStoreDelete(t *testing.T) {
	store := &LocalStore{BaseDir: t.TempDir()}
	tag := artifacts.Tag{Name: "iris", Version: "v1"}
	_, err := store.Import(tag, bytes.NewReader(bentoArchive(t, "iris", "v1", "FROM x\n")))
	require.NoError(t, err)

	require.NoError(t, store.Delete(tag))
	_, err = store.Get(tag)
	assert.ErrorIs(t, err, artifacts.ErrNotFound)
	assert.Error(t, store.Delete(artifacts.Tag{Name: "iris", Version: artifacts.LatestVersion}))
}

package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSniff(t *testing.T) {
	ext, err := Sniff(pngBytes(t))
	require.NoError(t, err)
	assert.Equal(t, ".png", ext)

	_, err = Sniff([]byte("just some text"))
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = Sniff(nil)
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestFileStoreSave(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root)
	require.NoError(t, err)

	data := pngBytes(t)
	rel, created, err := store.Save(data)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, strings.HasPrefix(rel, "posts/"))
	assert.True(t, strings.HasSuffix(rel, ".png"))

	onDisk, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, data, onDisk)

	again, created, err := store.Save(data)
	require.NoError(t, err)
	assert.Equal(t, rel, again)
	assert.False(t, created)

	_, _, err = store.Save([]byte("<html></html>"))
	assert.ErrorIs(t, err, ErrNotImage)

	_, _, err = store.Save(make([]byte, MaxImageSize+1))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestFileStoreRemove(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root)
	require.NoError(t, err)
	rel, _, err := store.Save(pngBytes(t))
	require.NoError(t, err)

	require.NoError(t, store.Remove(rel))
	assert.NoFileExists(t, filepath.Join(root, filepath.FromSlash(rel)))
	assert.NoError(t, store.Remove(rel), "removing twice is fine")
}

func TestFileStoreHandler(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	rel, _, err := store.Save(pngBytes(t))
	require.NoError(t, err)

	srv := http.StripPrefix("/media/", store.Handler())
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/media/"+rel, nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))

	for _, dir := range []string{"/media/", "/media/posts/", "/media/posts", "/media/../posts/"} {
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, dir, nil))
		assert.Equal(t, http.StatusNotFound, rr.Code, dir)
		assert.NotContains(t, rr.Body.String(), path.Base(rel), dir)
	}
}

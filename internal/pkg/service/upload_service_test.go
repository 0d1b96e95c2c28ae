package service_test

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShiinaKin/random-img/internal/pkg/service"
	"github.com/ShiinaKin/random-img/internal/pkg/taskpool"
	"github.com/ShiinaKin/random-img/internal/pkg/upload"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func buildArchive(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

type uploadServiceFixture struct {
	images   *fakeImageRepo
	store    *fakeObjectStore
	notifier *fakeNotifier
	pool     *taskpool.Pool
	svc      *service.UploadService
}

func newUploadServiceFixture(t *testing.T) *uploadServiceFixture {
	t.Helper()
	f := &uploadServiceFixture{
		images:   newFakeImageRepo(),
		store:    newFakeObjectStore(),
		notifier: &fakeNotifier{},
		pool:     taskpool.NewPool("upload-test", 2, 8),
	}
	f.pool.Start()
	f.svc = service.NewUploadService(
		f.images, f.store, f.notifier, &seqIDGen{},
		f.pool, "https://img.example.com",
	)
	return f
}

func (f *uploadServiceFixture) flush() {
	f.pool.Stop()
	f.pool = taskpool.NewPool("upload-test", 2, 8)
}

func TestHandleUploadStoresLadderAndCatalogRows(t *testing.T) {
	f := newUploadServiceFixture(t)
	archive := buildArchive(t, map[string][]byte{
		"10/100.png": encodePNG(t, 64, 48),
		"10/101.png": encodePNG(t, 96, 32),
	})

	require.NoError(t, f.svc.HandleUpload(archive))
	f.flush()

	assert.Equal(t, 2, f.images.liveCount())
	assert.Equal(t, 14, f.store.objectCount(), "original plus six rungs per asset")
	assert.True(t, f.store.hasObject("10/100.png"))
	assert.True(t, f.store.hasObject("10/100_width_320.webp"))
	assert.True(t, f.store.hasObject("10/101_width_1920.webp"))
	assert.Equal(t, 1, f.notifier.callCount())

	uid := int64(10)
	rows, err := f.images.GetByIDOrUID(nil, &uid)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, int64(10), row.UID)
		assert.Equal(t, "https://img.example.com", row.Authority)
		assert.NotZero(t, row.ID, "ids come from the generator, not the archive")
		assert.Contains(t, []int{64, 96}, row.OriginalWidth)
		assert.Equal(t, row.OriginalPath[:len(row.OriginalPath)-4]+"_width_640.webp", row.W640Path)
	}
}

func TestHandleUploadRejectsBadArchiveBeforeAnyWrite(t *testing.T) {
	f := newUploadServiceFixture(t)
	archive := buildArchive(t, map[string][]byte{
		"10/100.png":     encodePNG(t, 64, 48),
		"loose-file.png": encodePNG(t, 64, 48),
	})

	err := f.svc.HandleUpload(archive)
	assert.ErrorIs(t, err, upload.ErrBadArchive)
	f.flush()

	assert.Equal(t, 0, f.images.liveCount())
	assert.Equal(t, 0, f.store.objectCount())
	assert.Equal(t, 0, f.notifier.callCount())
}

func TestHandleUploadSkipsUndecodableEntry(t *testing.T) {
	f := newUploadServiceFixture(t)
	archive := buildArchive(t, map[string][]byte{
		"10/100.png": encodePNG(t, 64, 48),
		"10/999.png": []byte("this is not an image"),
	})

	require.NoError(t, f.svc.HandleUpload(archive))
	f.flush()

	assert.Equal(t, 1, f.images.liveCount(), "bad entry skipped, sibling committed")
	assert.Equal(t, 7, f.store.objectCount())
}

func TestHandleUploadObjectWriteFailureSkipsAsset(t *testing.T) {
	f := newUploadServiceFixture(t)
	f.store.failPuts["10/100_width_960.webp"] = true
	archive := buildArchive(t, map[string][]byte{
		"10/100.png": encodePNG(t, 64, 48),
		"10/101.png": encodePNG(t, 64, 48),
	})

	require.NoError(t, f.svc.HandleUpload(archive))
	f.flush()

	assert.Equal(t, 1, f.images.liveCount(), "asset with a failed rung is never committed")
	uid := int64(10)
	rows, err := f.images.GetByIDOrUID(nil, &uid)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "10/101.png", rows[0].OriginalPath)
}

func TestHandleUploadSaturatedPool(t *testing.T) {
	f := newUploadServiceFixture(t)
	f.pool.Stop()
	f.pool = taskpool.NewPool("upload-test", 1, 1)
	f.pool.Start()
	f.svc = service.NewUploadService(
		f.images, f.store, f.notifier, &seqIDGen{},
		f.pool, "https://img.example.com",
	)

	// occupy the single worker, then fill the queue
	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, f.pool.Submit(func() { close(started); <-release }))
	<-started
	require.NoError(t, f.pool.Submit(func() { <-release }))

	archive := buildArchive(t, map[string][]byte{"10/100.png": encodePNG(t, 64, 48)})
	err := f.svc.HandleUpload(archive)
	assert.ErrorIs(t, err, taskpool.ErrSaturated)

	close(release)
	f.flush()
	assert.Equal(t, 0, f.images.liveCount())
}

func TestHandleRemoteUploadDrainsStaging(t *testing.T) {
	f := newUploadServiceFixture(t)
	f.store.staging["batch-a.zip"] = buildArchive(t, map[string][]byte{
		"10/100.png": encodePNG(t, 64, 48),
	})
	f.store.staging["batch-b.zip"] = []byte("corrupt archive")

	require.NoError(t, f.svc.HandleRemoteUpload(10))
	f.flush()

	assert.Equal(t, 1, f.images.liveCount())
	keys, err := f.store.ListStaging()
	require.NoError(t, err)
	assert.Equal(t, []string{"batch-b.zip"}, keys, "failed archives stay staged for retry")
	assert.Equal(t, 1, f.notifier.callCount())
}

func TestHandleRemoteUploadHonorsLimit(t *testing.T) {
	f := newUploadServiceFixture(t)
	f.store.staging["batch-a.zip"] = buildArchive(t, map[string][]byte{
		"10/100.png": encodePNG(t, 64, 48),
	})
	f.store.staging["batch-b.zip"] = buildArchive(t, map[string][]byte{
		"11/200.png": encodePNG(t, 64, 48),
	})

	require.NoError(t, f.svc.HandleRemoteUpload(1))
	f.flush()

	assert.Equal(t, 1, f.images.liveCount())
	keys, err := f.store.ListStaging()
	require.NoError(t, err)
	assert.Len(t, keys, 1, "the archive past the limit stays staged")
}

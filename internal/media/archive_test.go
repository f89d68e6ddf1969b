package media

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendtrack/internal/apperr"
)

// jpegDataURL renders a solid image of the given size as a base64 data URL.
func jpegDataURL(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := NewArchive(t.TempDir())
	require.NoError(t, err)
	a.now = func() time.Time { return time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC) }
	return a
}

func TestSave_NamingConvention(t *testing.T) {
	a := newTestArchive(t)

	name, err := a.Save(DirectionCheckIn, CameraFront, "u1", jpegDataURL(t, 640, 480))
	require.NoError(t, err)

	assert.Equal(t, "checkin_front_u1_20240101_090000.jpg", name)
	_, err = os.Stat(filepath.Join(a.dir, name))
	assert.NoError(t, err)
}

func TestSave_WritesAspectPreservingThumbnail(t *testing.T) {
	a := newTestArchive(t)

	name, err := a.Save(DirectionCheckOut, CameraRear, "u1", jpegDataURL(t, 640, 480))
	require.NoError(t, err)

	thumb, err := imaging.Open(filepath.Join(a.dir, thumbPrefix+name))
	require.NoError(t, err)

	bounds := thumb.Bounds()
	assert.Equal(t, 150, bounds.Dx(), "landscape input fits the width")
	assert.LessOrEqual(t, bounds.Dy(), 150)
	assert.Greater(t, bounds.Dy(), 0)
}

func TestSave_RejectsUndecodablePayload(t *testing.T) {
	a := newTestArchive(t)

	_, err := a.Save(DirectionCheckIn, CameraFront, "u1", "data:image/jpeg;base64,@@not-base64@@")
	require.Error(t, err)
	assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))

	_, err = a.Save(DirectionCheckIn, CameraFront, "u1", "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))
}

func TestSave_NonImageBytesStillStored(t *testing.T) {
	a := newTestArchive(t)

	// Valid base64, not a decodable image: the raw file is kept,
	// only the thumbnail is skipped.
	payload := base64.StdEncoding.EncodeToString([]byte("not an image"))
	name, err := a.Save(DirectionCheckIn, CameraRear, "u2", payload)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(a.dir, name))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(a.dir, thumbPrefix+name))
	assert.True(t, os.IsNotExist(err), "no thumbnail for undecodable image")
}

func TestSave_AcceptsRawBase64WithoutPrefix(t *testing.T) {
	a := newTestArchive(t)
	url := jpegDataURL(t, 10, 10)
	raw := url[len("data:image/jpeg;base64,"):]

	name, err := a.Save(DirectionCheckIn, CameraFront, "u3", raw)
	require.NoError(t, err)
	assert.Contains(t, name, "checkin_front_u3_")
}

func TestPurgeAll(t *testing.T) {
	a := newTestArchive(t)

	_, err := a.Save(DirectionCheckIn, CameraFront, "u1", jpegDataURL(t, 64, 64))
	require.NoError(t, err)
	_, err = a.Save(DirectionCheckIn, CameraRear, "u1", jpegDataURL(t, 64, 64))
	require.NoError(t, err)

	res := a.PurgeAll()
	assert.Equal(t, 4, res.Removed, "two images plus two thumbnails")
	assert.Empty(t, res.Skipped)

	entries, err := os.ReadDir(a.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Purging an already-empty archive is fine.
	res = a.PurgeAll()
	assert.Equal(t, 0, res.Removed)
}

package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"attendtrack/internal/apperr"
)

// Direction and camera values encoded into archived filenames.
const (
	DirectionCheckIn  = "checkin"
	DirectionCheckOut = "checkout"
	CameraFront       = "front"
	CameraRear        = "rear"

	thumbPrefix = "thumb_"
	thumbSize   = 150
)

// Archive stores photo uploads and derived thumbnails on disk. It holds no
// business state; the ledger keeps only the filenames it returns.
type Archive struct {
	dir string
	now func() time.Time
}

// NewArchive creates the upload directory if needed.
func NewArchive(dir string) (*Archive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Archive{dir: dir, now: time.Now}, nil
}

// Save decodes a base64 data URL and writes it under the naming convention
// {direction}_{camera}_{userID}_{timestamp}.jpg, returning the filename.
// A 150x150 aspect-preserving thumbnail is derived best-effort: thumbnail
// failure is logged and never fails the save.
func (a *Archive) Save(direction, camera, userID, dataURL string) (string, error) {
	raw, err := decodeDataURL(dataURL)
	if err != nil {
		return "", apperr.Storage("image decode failed", err)
	}

	ts := a.now().UTC().Format("20060102_150405")
	name := fmt.Sprintf("%s_%s_%s_%s.jpg", direction, camera, userID, ts)
	path := filepath.Join(a.dir, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", apperr.Storage("image write failed", err)
	}

	if err := a.writeThumbnail(name, raw); err != nil {
		log.Printf("thumbnail for %s skipped: %v", name, err)
	}
	return name, nil
}

func (a *Archive) writeThumbnail(name string, raw []byte) error {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	thumb := imaging.Fit(img, thumbSize, thumbSize, imaging.Lanczos)
	return imaging.Save(thumb, filepath.Join(a.dir, thumbPrefix+name))
}

// decodeDataURL accepts either a full "data:image/jpeg;base64,..." URL or
// raw base64 and returns the decoded bytes.
func decodeDataURL(data string) ([]byte, error) {
	if data == "" {
		return nil, fmt.Errorf("empty image payload")
	}
	if idx := strings.Index(data, ","); idx >= 0 {
		data = data[idx+1:]
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(data))
}

// PurgeResult aggregates the outcome of a best-effort wipe.
type PurgeResult struct {
	Removed int      `json:"removed"`
	Skipped []string `json:"skipped,omitempty"`
}

// PurgeAll removes every archived file. Files that cannot be removed are
// listed and skipped rather than aborting the purge.
func (a *Archive) PurgeAll() PurgeResult {
	var res PurgeResult
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		log.Printf("purge: read upload dir: %v", err)
		return res
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(a.dir, e.Name())); err != nil {
			log.Printf("purge: skip %s: %v", e.Name(), err)
			res.Skipped = append(res.Skipped, e.Name())
			continue
		}
		res.Removed++
	}
	return res
}

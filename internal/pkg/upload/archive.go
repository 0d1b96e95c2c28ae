package upload

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ErrBadArchive rejects an archive that does not match the expected
// owner-directory layout. The whole batch is refused before any write.
var ErrBadArchive = errors.New("invalid archive directory format")

// File is one asset extracted from an upload archive.
type File struct {
	UID     int64
	PID     string
	Path    string
	Content []byte
	ModTime time.Time
}

// ParseArchive reads a zip whose top-level entries are directories named by
// owner id, each containing one file per asset named by its external
// identifier:
//
//	7/sunset.png
//	7/beach.jpg
//	12/logo.png
//
// Top-level files, non-numeric owner directories and deeper nesting are all
// layout errors.
func ParseArchive(data []byte) ([]File, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArchive, err)
	}

	var files []File
	for _, entry := range reader.File {
		name := strings.TrimSuffix(entry.Name, "/")
		segments := strings.Split(name, "/")

		if entry.FileInfo().IsDir() {
			if len(segments) != 1 {
				return nil, fmt.Errorf("%w: nested directory %q", ErrBadArchive, entry.Name)
			}
			if _, err := strconv.ParseInt(segments[0], 10, 64); err != nil {
				return nil, fmt.Errorf("%w: directory %q is not an owner id", ErrBadArchive, entry.Name)
			}
			continue
		}

		if len(segments) != 2 {
			return nil, fmt.Errorf("%w: entry %q outside owner directory", ErrBadArchive, entry.Name)
		}
		uid, err := strconv.ParseInt(segments[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: directory %q is not an owner id", ErrBadArchive, entry.Name)
		}

		fileName := segments[1]
		dot := strings.LastIndex(fileName, ".")
		if dot <= 0 {
			return nil, fmt.Errorf("%w: entry %q has no extension", ErrBadArchive, entry.Name)
		}
		pid := fileName[:dot]

		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("error opening archive entry %q: %w", entry.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("error reading archive entry %q: %w", entry.Name, err)
		}

		files = append(files, File{
			UID:     uid,
			PID:     pid,
			Path:    name,
			Content: content,
			ModTime: entry.Modified,
		})
	}

	return files, nil
}

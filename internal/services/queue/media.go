package queue

import (
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"

	// Decoders for dimension probing of common upload formats
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"notefeed-desktop/internal/api"
)

// mediaSet holds the opened files backing one upload attempt
type mediaSet struct {
	files []*os.File
}

// openMedia resolves each reference to a readable local file. Any
// unreadable reference fails the whole set, and an empty set is treated the
// same way: a publish without its media can never be completed.
func openMedia(refs []string) (*mediaSet, error) {
	set := &mediaSet{}
	for _, ref := range refs {
		f, err := os.Open(refPath(ref))
		if err != nil {
			set.Close()
			return nil, fmt.Errorf("media no longer readable: %s", ref)
		}
		set.files = append(set.files, f)
	}
	if len(set.files) == 0 {
		return nil, fmt.Errorf("no readable media for upload")
	}
	return set, nil
}

// refPath maps a stored media reference to a filesystem path
func refPath(ref string) string {
	return strings.TrimPrefix(ref, "file://")
}

// Files returns the multipart parts for the upload request
func (m *mediaSet) Files() []api.MediaFile {
	parts := make([]api.MediaFile, len(m.files))
	for i, f := range m.files {
		parts[i] = api.MediaFile{
			Name:   filepath.Base(f.Name()),
			Reader: f,
		}
	}
	return parts
}

// ProbeDimensions reads the intrinsic size of the primary (first) media
// item. Best-effort: an undecodable image yields 0x0 rather than an error.
func (m *mediaSet) ProbeDimensions() (width, height int) {
	if len(m.files) == 0 {
		return 0, 0
	}

	f := m.files[0]
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		log.Printf("WARNING: Failed to probe dimensions of %s: %v", f.Name(), err)
	} else {
		width, height = cfg.Width, cfg.Height
	}

	// Rewind so the upload still sends the full file
	if _, err := f.Seek(0, 0); err != nil {
		log.Printf("WARNING: Failed to rewind %s after probe: %v", f.Name(), err)
	}
	return width, height
}

// Close releases all opened files
func (m *mediaSet) Close() {
	for _, f := range m.files {
		f.Close()
	}
	m.files = nil
}

package api

import (
	"net/http"
	"os"
	"strings"
)

// spaFileSystem implements http.FileSystem and cleanly handles SPA routing
// by falling back to index.html for non-existent files.
type spaFileSystem struct {
	root http.FileSystem
}

// Open opens the named file. If the file does not exist, it falls back to index.html.
func (s *spaFileSystem) Open(name string) (http.File, error) {
	f, err := s.root.Open(name)
	if os.IsNotExist(err) {
		// API paths never fall back.
		if strings.HasPrefix(name, "/api/") {
			return nil, err
		}
		return s.root.Open("/index.html")
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

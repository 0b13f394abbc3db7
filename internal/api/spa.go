package api

import (
	"net/http"
	"os"
	"path"
)

// spaFileSystem serves the guide web app from a directory. Unknown routes without a file
// extension fall back to index.html so client-side routing works; missing assets stay 404.
type spaFileSystem struct {
	root http.FileSystem
}

// Open opens the named file.
func (s *spaFileSystem) Open(name string) (http.File, error) {
	f, err := s.root.Open(name)
	if os.IsNotExist(err) && path.Ext(name) == "" {
		return s.root.Open("/index.html")
	}
	return f, err
}

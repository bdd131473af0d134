package console

import (
	"bytes"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

// spaHandler serves a built single page application: existing files are
// served as is, every other path gets index.html so the client-side router
// can resolve it.
type spaHandler struct {
	files fs.FS
}

// newSPAHandler serves dir when it exists, the embedded bundle otherwise.
func newSPAHandler(dir string) (*spaHandler, string) {
	if dir != "" {
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			return &spaHandler{files: os.DirFS(dir)}, dir
		}
	}
	sub, err := fs.Sub(webFiles, "web")
	if err != nil {
		return &spaHandler{files: webFiles}, "embedded"
	}
	return &spaHandler{files: sub}, "embedded"
}

func (h *spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := path.Clean("/" + r.URL.Path)
	if strings.HasPrefix(p, "/api/") || p == "/api" {
		writeError(w, http.StatusNotFound, errNoRoute)
		return
	}
	name := strings.TrimPrefix(p, "/")
	if name != "" && h.serveFile(w, r, name) {
		return
	}
	if !h.serveFile(w, r, "index.html") {
		http.NotFound(w, r)
	}
}

func (h *spaHandler) serveFile(w http.ResponseWriter, r *http.Request, name string) bool {
	st, err := fs.Stat(h.files, name)
	if err != nil || st.IsDir() {
		return false
	}
	content, err := fs.ReadFile(h.files, name)
	if err != nil {
		return false
	}
	http.ServeContent(w, r, st.Name(), st.ModTime(), bytes.NewReader(content))
	return true
}

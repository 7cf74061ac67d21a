// Package origin serves the application shell the edge worker sits in front of.
package origin

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/dgnotes/internal/middleware"
)

const (
	indexFile = "index.html"

	shellCacheControl = "no-cache"
	assetCacheControl = "public, max-age=3600"
)

// NewRouter serves files from fsys. Extensionless paths that match no file
// fall back to index.html so client-side routes load the shell.
func NewRouter(fsys fs.FS) (*gin.Engine, error) {
	if fsys == nil {
		return nil, errors.New("origin: file system must be provided")
	}
	if _, err := fs.Stat(fsys, indexFile); err != nil {
		return nil, fmt.Errorf("origin: shell has no %s: %w", indexFile, err)
	}

	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.NoRoute(serveFS(fsys, time.Now()))
	return r, nil
}

func serveFS(fsys fs.FS, modTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Header("Allow", "GET, HEAD")
			c.Status(http.StatusMethodNotAllowed)
			return
		}

		name, ok := resolve(fsys, c.Request.URL.Path)
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			_ = c.Error(err)
			c.Status(http.StatusInternalServerError)
			return
		}

		if isShell(name) {
			c.Header("Cache-Control", shellCacheControl)
		} else {
			c.Header("Cache-Control", assetCacheControl)
		}
		http.ServeContent(c.Writer, c.Request, name, modTime, bytes.NewReader(data))
	}
}

// resolve maps a request path to a file name in fsys.
func resolve(fsys fs.FS, urlPath string) (string, bool) {
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" {
		return indexFile, true
	}

	if info, err := fs.Stat(fsys, name); err == nil {
		if !info.IsDir() {
			return name, true
		}
		index := path.Join(name, indexFile)
		if _, err := fs.Stat(fsys, index); err == nil {
			return index, true
		}
	}

	if path.Ext(name) == "" {
		return indexFile, true
	}
	return "", false
}

func isShell(name string) bool {
	switch path.Ext(name) {
	case ".html", ".json", ".webmanifest":
		return true
	default:
		return false
	}
}

package main

import (
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
)

var contentTypes = map[string]string{
	".js":   "application/javascript; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".json": "application/json; charset=utf-8",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
}

// spaHandler serves files from distFS and falls back to index.html so the
// planner frontend can route client-side. Unknown /api paths get a JSON 404.
func spaHandler(distFS fs.FS) gin.HandlerFunc {
	return func(c *gin.Context) {
		urlPath := c.Request.URL.Path
		if strings.HasPrefix(urlPath, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
			return
		}

		cleanPath := strings.TrimPrefix(path.Clean(urlPath), "/")
		if cleanPath == "" {
			cleanPath = "index.html"
		}

		if content, ok := readFile(distFS, cleanPath); ok {
			contentType, known := contentTypes[path.Ext(cleanPath)]
			if !known {
				contentType = "text/html; charset=utf-8"
			}
			c.Data(http.StatusOK, contentType, content)
			return
		}

		content, ok := readFile(distFS, "index.html")
		if !ok {
			c.String(http.StatusNotFound, "404 page not found")
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", content)
	}
}

func readFile(fsys fs.FS, name string) ([]byte, bool) {
	file, err := fsys.Open(name)
	if err != nil {
		return nil, false
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil || stat.IsDir() {
		return nil, false
	}
	content, err := io.ReadAll(file)
	if err != nil {
		return nil, false
	}
	return content, true
}

//go:build !embed
// +build !embed

package main

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const frontendDevURL = "http://localhost:5173"

// setupStaticFiles serves a locally built frontend from ./web/dist when
// present, otherwise points callers at the Vite dev server
func setupStaticFiles(router *gin.Engine) {
	const distDir = "./web/dist"

	if stat, err := os.Stat(distDir); err == nil && stat.IsDir() {
		log.Info().Str("dir", distDir).Msg("Serving frontend from local build")
		router.NoRoute(spaHandler(os.DirFS(distDir)))
		return
	}

	log.Info().Str("dev_url", frontendDevURL).Msg("Frontend is served separately (development mode)")
	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "Frontend is running separately",
			"dev_url": frontendDevURL,
			"hint":    "Run 'cd web && npm run dev' to start the frontend",
		})
	})
}

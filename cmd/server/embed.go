//go:build embed
// +build embed

package main

import (
	"embed"
	"io/fs"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

//go:embed web/dist
var webDist embed.FS

// setupStaticFiles serves the planner frontend bundled into the binary
func setupStaticFiles(router *gin.Engine) {
	distFS, err := fs.Sub(webDist, "web/dist")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get dist subdirectory")
	}

	log.Info().Msg("Using embedded frontend assets")
	router.NoRoute(spaHandler(distFS))
}

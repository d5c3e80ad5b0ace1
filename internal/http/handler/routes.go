package handler

import (
	"github.com/gofiber/fiber/v2"

	"textdocs/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// store backs the readiness probe.
func RegisterRoutes(app *fiber.App, store Pinger, docSvc service.DocumentService) {
	app.Get("/health", HealthCheck())
	app.Get("/readyz", Readiness(store))

	app.Post("/files/upload", UploadFiles(docSvc))
	app.Get("/files", ListFiles(docSvc))
	app.Get("/files/:id/content", GetFileContent(docSvc))
	app.Get("/files/:search", SearchFiles(docSvc))
	app.Delete("/files/:id", DeleteFile(docSvc))
}

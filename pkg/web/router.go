package web

import (
	"github.com/gofiber/fiber/v3"
)

// RegisterRoutes mounts every API endpoint on the app.
func RegisterRoutes(app *fiber.App, h *APIHandlers) {
	app.Post("/events", h.IngestEvent)

	runs := app.Group("/runs")
	runs.Get("/:id", h.GetRun)
	runs.Post("/:id/advance", h.AdvanceRun)
	runs.Post("/:id/cancel", h.CancelRun)

	workflows := app.Group("/workflows")
	workflows.Get("/", h.GetWorkflows)
	workflows.Post("/", h.CreateWorkflow)
	workflows.Get("/:id", h.GetWorkflow)
	workflows.Put("/:id", h.UpdateWorkflow)
	workflows.Delete("/:id", h.DeleteWorkflow)

	app.Get("/health", h.HealthCheck)
}

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/student-records/database"
)

// HealthResponse is the health check body
type HealthResponse struct {
	Status string `json:"status"`
	Port   int    `json:"port"`
}

// HandleCheckHealth reports liveness with the listening port. The status is
// "degraded" when the database cannot be reached.
func HandleCheckHealth(store database.Storage, port int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := "ok"
		if store != nil {
			if err := store.HealthCheck(); err != nil {
				log.Warnw("database health check failed", "error", err)
				status = "degraded"
			}
		}
		return c.JSON(HealthResponse{Status: status, Port: port})
	}
}

package rest

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"

	"github.com/notifun/wa-console/domains/feed"
	"github.com/notifun/wa-console/pkg/utils"
)

type HealthHandler struct {
	Transport feed.ITransport
	StartedAt time.Time
	Version   string
}

func InitRestHealth(app fiber.Router, transport feed.ITransport, version string) HealthHandler {
	handler := HealthHandler{Transport: transport, StartedAt: time.Now(), Version: version}
	app.Get("/api/status", handler.Status)
	return handler
}

func (handler *HealthHandler) Status(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Console status",
		Results: fiber.Map{
			"version":       handler.Version,
			"feedConnected": handler.Transport.Connected(),
			"startedAt":     handler.StartedAt.Format(time.RFC3339),
			"uptime":        humanize.Time(handler.StartedAt),
		},
	})
}

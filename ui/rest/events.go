package rest

import (
	"github.com/gofiber/fiber/v2"

	"github.com/notifun/wa-console/infrastructure/journal"
	"github.com/notifun/wa-console/pkg/utils"
)

type EventHandler struct {
	Journal *journal.Journal
}

func InitRestEvents(app fiber.Router, j *journal.Journal) EventHandler {
	handler := EventHandler{Journal: j}
	app.Get("/api/events", handler.ListEvents)
	return handler
}

func (handler *EventHandler) ListEvents(c *fiber.Ctx) error {
	page, err := handler.Journal.List(
		c.Query("channelId"),
		c.QueryInt("page", 1),
		c.QueryInt("limit", 20),
	)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Event journal",
		Results: page,
	})
}

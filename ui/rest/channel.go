package rest

import (
	"github.com/gofiber/fiber/v2"
	qrcode "github.com/skip2/go-qrcode"

	domainChannel "github.com/notifun/wa-console/domains/channel"
	"github.com/notifun/wa-console/pkg/utils"
)

type ChannelHandler struct {
	Service domainChannel.IChannelUsecase
}

func InitRestChannel(app fiber.Router, service domainChannel.IChannelUsecase) ChannelHandler {
	handler := ChannelHandler{Service: service}

	group := app.Group("/api/channels")
	group.Get("/", handler.ListChannels)
	group.Post("/", handler.CreateChannel)
	group.Get("/modals", handler.GetModals)
	group.Get("/qr.png", handler.QRImage)
	group.Post("/:id/connect", handler.ConnectChannel)
	group.Post("/:id/disconnect", handler.DisconnectChannel)
	group.Delete("/:id", handler.DeleteChannel)
	group.Post("/:id/pairing-code", handler.RequestPairingCode)
	group.Post("/:id/qr/refresh", handler.RefreshQR)
	group.Post("/:id/webhooks", handler.AddWebhook)
	group.Put("/:id/webhooks/:webhookId", handler.UpdateWebhook)
	group.Delete("/:id/webhooks/:webhookId", handler.DeleteWebhook)

	return handler
}

// ListChannels returns the registry snapshot. Pass ?refresh=true to force an
// authoritative re-fetch first.
func (handler *ChannelHandler) ListChannels(c *fiber.Ctx) error {
	if c.QueryBool("refresh") {
		channels, err := handler.Service.FetchChannels(c.UserContext())
		utils.PanicIfNeeded(err)
		return c.JSON(utils.ResponseData{
			Status:  200,
			Code:    "SUCCESS",
			Message: "Channel list refreshed",
			Results: channels,
		})
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Channel list",
		Results: handler.Service.Channels(),
	})
}

func (handler *ChannelHandler) CreateChannel(c *fiber.Ctx) error {
	var request domainChannel.CreateChannelRequest
	if err := c.BodyParser(&request); err != nil {
		utils.PanicIfNeeded(err)
	}

	created, err := handler.Service.CreateAndConnect(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Channel created",
		Results: created,
	})
}

func (handler *ChannelHandler) ConnectChannel(c *fiber.Ctx) error {
	var request domainChannel.ConnectChannelRequest
	_ = c.BodyParser(&request)

	err := handler.Service.Connect(c.UserContext(), c.Params("id"), request.PhoneNumber)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Connection initiated",
	})
}

func (handler *ChannelHandler) DisconnectChannel(c *fiber.Ctx) error {
	err := handler.Service.Disconnect(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Channel disconnected",
	})
}

func (handler *ChannelHandler) DeleteChannel(c *fiber.Ctx) error {
	err := handler.Service.Delete(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Channel deleted",
	})
}

func (handler *ChannelHandler) RequestPairingCode(c *fiber.Ctx) error {
	var request domainChannel.PairingCodeRequest
	if err := c.BodyParser(&request); err != nil {
		utils.PanicIfNeeded(err)
	}

	err := handler.Service.RequestPairingCode(c.UserContext(), c.Params("id"), request.PhoneNumber)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Pairing code requested",
		Results: handler.Service.PairingModal(),
	})
}

func (handler *ChannelHandler) RefreshQR(c *fiber.Ctx) error {
	err := handler.Service.RefreshQR(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "QR refresh requested",
	})
}

// GetModals exposes the two singleton modal slots for UI polling.
func (handler *ChannelHandler) GetModals(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Modal state",
		Results: fiber.Map{
			"qrCodeModal":      handler.Service.QRModal(),
			"pairingCodeModal": handler.Service.PairingModal(),
		},
	})
}

// QRImage renders the currently open QR modal payload as a PNG.
func (handler *ChannelHandler) QRImage(c *fiber.Ctx) error {
	modal := handler.Service.QRModal()
	if !modal.IsOpen || modal.Code == "" {
		return c.Status(404).JSON(utils.ResponseData{
			Status:  404,
			Code:    "NOT_FOUND_ERROR",
			Message: "No QR code is currently available",
		})
	}

	png, err := qrcode.Encode(modal.Code, qrcode.Medium, 256)
	utils.PanicIfNeeded(err)

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

func (handler *ChannelHandler) AddWebhook(c *fiber.Ctx) error {
	var request domainChannel.AddWebhookRequest
	if err := c.BodyParser(&request); err != nil {
		utils.PanicIfNeeded(err)
	}

	err := handler.Service.AddWebhook(c.UserContext(), c.Params("id"), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Webhook added",
	})
}

func (handler *ChannelHandler) UpdateWebhook(c *fiber.Ctx) error {
	var request domainChannel.UpdateWebhookRequest
	if err := c.BodyParser(&request); err != nil {
		utils.PanicIfNeeded(err)
	}

	err := handler.Service.UpdateWebhook(c.UserContext(), c.Params("id"), c.Params("webhookId"), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Webhook updated",
	})
}

func (handler *ChannelHandler) DeleteWebhook(c *fiber.Ctx) error {
	err := handler.Service.DeleteWebhook(c.UserContext(), c.Params("id"), c.Params("webhookId"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Webhook deleted",
	})
}

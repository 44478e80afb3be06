package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"github.com/notifun/wa-console/domains/channel"
	pkgError "github.com/notifun/wa-console/pkg/error"
)

// envelope is the response wrapper every upstream endpoint uses.
type envelope struct {
	Ok      bool            `json:"ok"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Client talks to the channel management API over HTTP.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *fasthttp.Client
}

var _ channel.IChannelAPI = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		timeout: timeout,
		http:    &fasthttp.Client{},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + "/api" + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")

	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(raw)
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return pkgError.UpstreamError(fmt.Sprintf("%s %s: %v", method, path, err))
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return pkgError.UpstreamError(fmt.Sprintf("%s %s: invalid response (status %d)", method, path, resp.StatusCode()))
	}

	if resp.StatusCode() >= 400 || !env.Ok {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		if msg == "" {
			msg = fmt.Sprintf("upstream returned status %d", resp.StatusCode())
		}
		logrus.Warnf("[UPSTREAM] %s %s failed: %s", method, path, msg)
		return pkgError.UpstreamError(msg)
	}

	if out != nil && len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, out); err != nil {
			return pkgError.UpstreamError(fmt.Sprintf("%s %s: invalid payload: %v", method, path, err))
		}
	}
	return nil
}

func (c *Client) CreateChannel(ctx context.Context, request channel.CreateChannelRequest) (channel.Channel, error) {
	var ch channel.Channel
	err := c.do(ctx, fasthttp.MethodPost, "/whatsapp/channels", request, &ch)
	return ch, err
}

func (c *Client) ListChannels(ctx context.Context) ([]channel.Channel, error) {
	var channels []channel.Channel
	err := c.do(ctx, fasthttp.MethodGet, "/whatsapp/channels", nil, &channels)
	return channels, err
}

func (c *Client) ConnectChannel(ctx context.Context, channelID, phoneNumber string) error {
	body := map[string]string{}
	if phoneNumber != "" {
		body["phoneNumber"] = phoneNumber
	}
	return c.do(ctx, fasthttp.MethodPost, "/whatsapp/channels/"+channelID+"/connect", body, nil)
}

func (c *Client) DisconnectChannel(ctx context.Context, channelID string) error {
	return c.do(ctx, fasthttp.MethodPost, "/whatsapp/channels/"+channelID+"/disconnect", nil, nil)
}

func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	return c.do(ctx, fasthttp.MethodDelete, "/whatsapp/channels/"+channelID, nil, nil)
}

func (c *Client) RequestPairingCode(ctx context.Context, channelID, phoneNumber string) (string, error) {
	var payload struct {
		Code string `json:"code"`
	}
	err := c.do(ctx, fasthttp.MethodPost, "/whatsapp/channels/"+channelID+"/pairing-code",
		channel.PairingCodeRequest{PhoneNumber: phoneNumber}, &payload)
	return payload.Code, err
}

func (c *Client) RefreshQR(ctx context.Context, channelID string) error {
	return c.do(ctx, fasthttp.MethodPost, "/whatsapp/channels/"+channelID+"/qr/refresh", nil, nil)
}

func (c *Client) AddWebhook(ctx context.Context, channelID string, request channel.AddWebhookRequest) error {
	return c.do(ctx, fasthttp.MethodPost, "/whatsapp/channels/"+channelID+"/webhooks", request, nil)
}

func (c *Client) UpdateWebhook(ctx context.Context, channelID, webhookID string, request channel.UpdateWebhookRequest) error {
	return c.do(ctx, fasthttp.MethodPut, "/whatsapp/channels/"+channelID+"/webhooks/"+webhookID, request, nil)
}

func (c *Client) DeleteWebhook(ctx context.Context, channelID, webhookID string) error {
	return c.do(ctx, fasthttp.MethodDelete, "/whatsapp/channels/"+channelID+"/webhooks/"+webhookID, nil, nil)
}

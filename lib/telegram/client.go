package telegram

import (
	"context"
	"fmt"
	"time"

	"gamesleech-bot/lib/telemetry"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("lib/telegram")

type Client struct {
	http *resty.Client
}

type ClientOptions struct {
	Token string
	// overrides the Bot API host, used by tests
	BaseUrl string
	Timeout time.Duration
}

func NewClient(opts ClientOptions) *Client {
	base := opts.BaseUrl
	if base == "" {
		base = "https://api.telegram.org"
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 65
	}

	client := resty.New()
	client.SetBaseURL(fmt.Sprintf("%s/bot%s", base, opts.Token))
	client.SetTimeout(timeout)
	client.JSONMarshal = sonic.Marshal
	client.JSONUnmarshal = sonic.Unmarshal

	telemetry.InstrumentResty(client, "telegram/http")

	return &Client{http: client}
}

type apiResponse[T any] struct {
	Ok          bool   `json:"ok"`
	Description string `json:"description"`
	Result      T      `json:"result"`
}

func call[T any](ctx context.Context, c *Client, method string, body any) (T, error) {
	var out apiResponse[T]

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetBody(body).
		SetResult(&out).
		Post("/" + method)
	if err != nil {
		return out.Result, err
	}
	if !out.Ok {
		return out.Result, fmt.Errorf(
			"%s: status %d: %s",
			method, res.StatusCode(), out.Description,
		)
	}
	return out.Result, nil
}

func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]Update, error) {
	ctx, span := tracer.Start(ctx, "GetUpdates")
	defer span.End()

	return call[[]Update](ctx, c, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         timeoutSeconds,
		"allowed_updates": []string{"message", "callback_query"},
	})
}

func (c *Client) SendMessage(ctx context.Context, chatId int64, text string, keyboard *InlineKeyboardMarkup) (Message, error) {
	ctx, span := tracer.Start(ctx, "SendMessage")
	defer span.End()

	body := map[string]any{
		"chat_id": chatId,
		"text":    text,
	}
	if keyboard != nil {
		body["reply_markup"] = keyboard
	}
	return call[Message](ctx, c, "sendMessage", body)
}

func (c *Client) SendPhoto(ctx context.Context, chatId int64, photoUrl string, caption string, keyboard *InlineKeyboardMarkup) (Message, error) {
	ctx, span := tracer.Start(ctx, "SendPhoto")
	defer span.End()

	body := map[string]any{
		"chat_id": chatId,
		"photo":   photoUrl,
		"caption": caption,
	}
	if keyboard != nil {
		body["reply_markup"] = keyboard
	}
	return call[Message](ctx, c, "sendPhoto", body)
}

func (c *Client) EditMessage(ctx context.Context, chatId int64, messageId int64, text string, keyboard *InlineKeyboardMarkup) error {
	ctx, span := tracer.Start(ctx, "EditMessage")
	defer span.End()

	body := map[string]any{
		"chat_id":    chatId,
		"message_id": messageId,
		"text":       text,
	}
	if keyboard != nil {
		body["reply_markup"] = keyboard
	}
	_, err := call[Message](ctx, c, "editMessageText", body)
	return err
}

func (c *Client) DeleteMessage(ctx context.Context, chatId int64, messageId int64) error {
	ctx, span := tracer.Start(ctx, "DeleteMessage")
	defer span.End()

	_, err := call[bool](ctx, c, "deleteMessage", map[string]any{
		"chat_id":    chatId,
		"message_id": messageId,
	})
	return err
}

func (c *Client) AnswerCallback(ctx context.Context, callbackId string, text string, showAlert bool) error {
	ctx, span := tracer.Start(ctx, "AnswerCallback")
	defer span.End()

	_, err := call[bool](ctx, c, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackId,
		"text":              text,
		"show_alert":        showAlert,
	})
	return err
}

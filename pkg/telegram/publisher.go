// Package telegram delivers posts to a channel and serves admin commands through the Bot API
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-pkgz/lgr"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/umputun/autoposter/pkg/domain"
	"github.com/umputun/autoposter/pkg/retry"
)

//go:generate moq -out mocks/bot_api.go -pkg mocks -skip-ensure -fmt goimports . BotAPI

// BotAPI is the subset of tgbotapi.BotAPI used here
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// descriptions of 400 errors caused by missing rights rather than a bad request
var permissionMarkers = []string{
	"not enough rights",
	"need administrator rights",
	"have no rights",
	"chat_write_forbidden",
	"chat not found",
}

// Publisher sends posts into a channel
type Publisher struct {
	bot   BotAPI
	retry retry.Func
}

// NewPublisher makes publisher, rf is applied to every Bot API call
func NewPublisher(bot BotAPI, rf retry.Func) *Publisher {
	return &Publisher{bot: bot, retry: rf}
}

// Publish sends the post as a photo with caption if it has an image, as a text message otherwise.
// If the photo is rejected for any reason except missing rights, the post is sent as text.
// Errors caused by missing rights are wrapped with domain.ErrPermission.
func (p *Publisher) Publish(ctx context.Context, channel string, post domain.PostPackage) (int, error) {
	chatID, username, err := ParseChannel(channel)
	if err != nil {
		return 0, err
	}

	if !post.Image.Empty() {
		var photo tgbotapi.PhotoConfig
		file := photoFile(post.Image)
		if username != "" {
			photo = tgbotapi.NewPhotoToChannel(username, file)
		} else {
			photo = tgbotapi.NewPhoto(chatID, file)
		}
		photo.Caption = post.Text
		photo.ParseMode = tgbotapi.ModeHTML

		msgID, err := p.send(ctx, "send photo", photo)
		if err == nil {
			return msgID, nil
		}
		if errors.Is(err, domain.ErrPermission) {
			return 0, err
		}
		lgr.Printf("[WARN] photo rejected, sending text only: %v", err)
	}

	var msg tgbotapi.MessageConfig
	if username != "" {
		msg = tgbotapi.NewMessageToChannel(username, post.Text)
	} else {
		msg = tgbotapi.NewMessage(chatID, post.Text)
	}
	msg.ParseMode = tgbotapi.ModeHTML
	return p.send(ctx, "send message", msg)
}

func (p *Publisher) send(ctx context.Context, name string, c tgbotapi.Chattable) (int, error) {
	var msg tgbotapi.Message
	err := p.retry(ctx, name, func() error {
		var e error
		msg, e = p.bot.Send(c)
		return classifyError(e)
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return msg.MessageID, nil
}

// ParseChannel splits channel reference into numeric chat id or @username
func ParseChannel(channel string) (chatID int64, username string, err error) {
	channel = strings.TrimSpace(channel)
	if strings.HasPrefix(channel, "@") && len(channel) > 1 && !strings.ContainsAny(channel, " \t") {
		return 0, channel, nil
	}
	id, err := strconv.ParseInt(channel, 10, 64)
	if err != nil || id == 0 {
		return 0, "", fmt.Errorf("invalid channel %q, expected @username or numeric id", channel)
	}
	return id, "", nil
}

func photoFile(img *domain.Image) tgbotapi.RequestFileData {
	if img.URL != "" {
		return tgbotapi.FileURL(img.URL)
	}
	return tgbotapi.FilePath(img.Path)
}

// classifyError marks Bot API errors which must not be retried. Missing rights become domain.ErrPermission.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var tgErr *tgbotapi.Error
	if !errors.As(err, &tgErr) {
		return err // transport failure, worth retrying
	}
	if isPermissionError(tgErr) {
		return retry.Permanent(fmt.Errorf("%w: %w", domain.ErrPermission, err))
	}
	if tgErr.Code >= 400 && tgErr.Code < 500 && tgErr.Code != http.StatusTooManyRequests {
		return retry.Permanent(err)
	}
	return err
}

func isPermissionError(e *tgbotapi.Error) bool {
	switch e.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	case http.StatusBadRequest:
		desc := strings.ToLower(e.Message)
		for _, m := range permissionMarkers {
			if strings.Contains(desc, m) {
				return true
			}
		}
	}
	return false
}

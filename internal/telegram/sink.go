package telegram

import (
	"bytes"
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/whatchicken/slack-dm-scraper/internal"
	"github.com/whatchicken/slack-dm-scraper/internal/export"
)

// maxDocumentSize is the Bot API upload limit for documents
const maxDocumentSize = 50 << 20

// sender is the part of *tgbotapi.BotAPI the sink uses
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Sink sends the rendered transcript to a chat as a document
type Sink struct {
	bot      sender
	chatID   int64
	basename string
	exporter export.Exporter
}

// NewSink connects to the Bot API with token
func NewSink(token string, chatID int64, basename string, exporter export.Exporter) (*Sink, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	internal.LogDebug("telegram bot: @%s", bot.Self.UserName)
	return newSink(bot, chatID, basename, exporter), nil
}

func newSink(bot sender, chatID int64, basename string, exporter export.Exporter) *Sink {
	if basename == "" {
		basename = export.DefaultBasename
	}
	return &Sink{bot: bot, chatID: chatID, basename: basename, exporter: exporter}
}

// Deliver implements internal.Sink
func (s *Sink) Deliver(ctx context.Context, t *internal.Transcript) (string, error) {
	ext := s.exporter.Extension()
	name := s.basename + "." + ext
	location := fmt.Sprintf("telegram:%d", s.chatID)

	var buf bytes.Buffer
	if err := s.exporter.Export(t, &buf); err != nil {
		return "", &internal.ExportError{Format: ext, Path: location, Err: err}
	}
	if buf.Len() > maxDocumentSize {
		return "", &internal.ExportError{
			Format: ext,
			Path:   location,
			Err:    fmt.Errorf("document is %d bytes, telegram accepts at most %d", buf.Len(), maxDocumentSize),
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	doc := tgbotapi.NewDocument(s.chatID, tgbotapi.FileBytes{Name: name, Bytes: buf.Bytes()})
	doc.Caption = caption(t)

	msg, err := s.bot.Send(doc)
	if err != nil {
		return "", &internal.ExportError{Format: ext, Path: location, Err: err}
	}

	internal.LogDebug("sent %s (%d bytes) to telegram chat %d", name, buf.Len(), s.chatID)
	return fmt.Sprintf("%s/%d", location, msg.MessageID), nil
}

func caption(t *internal.Transcript) string {
	c := fmt.Sprintf("%d messages", len(t.Messages))
	if t.Channel != "" {
		c += " from " + t.Channel
	}
	return c
}

package cmd

import (
	"context"
	"fmt"

	"github.com/whatchicken/slack-dm-scraper/internal"
	"github.com/whatchicken/slack-dm-scraper/internal/browser"
	"github.com/whatchicken/slack-dm-scraper/internal/export"
	"github.com/whatchicken/slack-dm-scraper/internal/slack"
	"github.com/whatchicken/slack-dm-scraper/internal/telegram"
)

// app is a controller bound to an open browser session
type app struct {
	session    *browser.Session
	controller *internal.Controller
}

// buildSink renders with the configured format into the output directory and,
// when configured, to Telegram
func buildSink(cfg *internal.Config) (internal.Sink, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	exporter, err := export.NewExporter(cfg.Export.Format, export.Options{
		Locale:   cfg.Export.Locale,
		Location: loc,
	})
	if err != nil {
		return nil, err
	}

	file := export.NewFileSink(cfg.Export.Dir, cfg.Export.Basename, exporter)
	if !cfg.TelegramEnabled() {
		return file, nil
	}

	tg, err := telegram.NewSink(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Export.Basename, exporter)
	if err != nil {
		return nil, err
	}
	return export.MultiSink{file, tg}, nil
}

// historyAPI builds the fallback client from configured values, filling gaps
// from the page. It returns nil when no token or channel is known.
func historyAPI(cfg *internal.Config, creds browser.Credentials) internal.HistoryAPI {
	token := cfg.API.Token
	if token == "" {
		token = creds.Token
	}
	channel := cfg.API.Channel
	if channel == "" {
		channel = creds.Channel
	}

	client, err := slack.NewClient(token, channel,
		slack.WithBaseURL(cfg.API.BaseURL),
		slack.WithLimit(cfg.API.Limit),
		slack.WithTimeout(cfg.API.Timeout),
		slack.WithCookies(creds.Cookies),
	)
	if err != nil {
		internal.LogWarn("history API disabled: %v", err)
		return nil
	}
	internal.LogDebug("history API enabled for channel %s", channel)
	return client
}

// openApp connects to the browser and assembles the controller. Without
// withHistory runs end when the view stalls.
func openApp(ctx context.Context, cfg *internal.Config, withHistory bool) (*app, error) {
	sink, err := buildSink(cfg)
	if err != nil {
		return nil, err
	}

	var session *browser.Session
	err = internal.ShowProgress(ctx, "Connecting to Slack tab", func() error {
		var openErr error
		session, openErr = browser.Open(ctx, browser.OptionsFromConfig(cfg.Browser))
		return openErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open browser session: %w", err)
	}

	creds, err := session.Credentials(ctx)
	if err != nil {
		internal.LogWarn("could not read credentials from the page: %v", err)
	}

	var history internal.HistoryAPI
	if withHistory {
		history = historyAPI(cfg, creds)
	}
	channel := cfg.API.Channel
	if channel == "" {
		channel = creds.Channel
	}

	controller := internal.NewController(session.Driver(), history, sink, internal.ControllerOptions{
		Acquisition: cfg.AcquisitionOptions(),
		Fallback:    cfg.FallbackOptions(),
		Channel:     channel,
	})

	return &app{session: session, controller: controller}, nil
}

func (a *app) Close() {
	if err := a.session.Close(); err != nil {
		internal.LogWarn("failed to close browser: %v", err)
	}
}

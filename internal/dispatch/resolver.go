package dispatch

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"telegram-lead-scanner-go/internal/config"
	"telegram-lead-scanner-go/internal/models"
)

// Credentials is a resolved bot token / channel pair.
type Credentials struct {
	BotToken  string
	ChannelID string
}

// Complete reports whether both halves of the pair are present.
func (c Credentials) Complete() bool {
	return c.BotToken != "" && c.ChannelID != ""
}

// SettingsReader reads the key/value settings sheet of a spreadsheet.
type SettingsReader interface {
	ReadSettings(ctx context.Context, spreadsheetID string) (map[string]string, error)
}

// SettingsLoader returns the current persisted global settings.
type SettingsLoader func() models.GlobalSettings

// Resolver finds dispatch credentials by walking an ordered chain of
// sources: the per-spreadsheet settings sheet, then the persisted
// settings store, then environment defaults. The first source yielding
// a complete pair wins; partial pairs are not mixed across sources.
type Resolver struct {
	reader        SettingsReader
	loadSettings  SettingsLoader
	env           config.TelegramConfig
	spreadsheetID func() string
}

// NewResolver creates a credential resolver.
func NewResolver(reader SettingsReader, loadSettings SettingsLoader, env config.TelegramConfig, spreadsheetID func() string) *Resolver {
	return &Resolver{
		reader:        reader,
		loadSettings:  loadSettings,
		env:           env,
		spreadsheetID: spreadsheetID,
	}
}

// Resolve walks the credential chain. It returns an error only when no
// source yields a complete pair.
func (r *Resolver) Resolve(ctx context.Context) (Credentials, error) {
	if creds, ok := r.fromSheet(ctx); ok {
		logrus.Infof("Dispatch credentials resolved from settings sheet")
		return creds, nil
	}

	if creds, ok := r.fromStore(); ok {
		logrus.Infof("Dispatch credentials resolved from settings store")
		return creds, nil
	}

	creds := Credentials{BotToken: r.env.BotToken, ChannelID: r.env.ChannelID}
	if creds.Complete() {
		logrus.Infof("Dispatch credentials resolved from environment")
		return creds, nil
	}

	return Credentials{}, models.NewValidationError("telegram bot token and channel are not configured")
}

func (r *Resolver) fromSheet(ctx context.Context) (Credentials, bool) {
	id := r.spreadsheetID()
	if id == "" {
		return Credentials{}, false
	}

	values, err := r.reader.ReadSettings(ctx, id)
	if err != nil {
		logrus.Warnf("Failed to read settings sheet, falling back: %v", err)
		return Credentials{}, false
	}

	creds := Credentials{
		BotToken:  strings.TrimSpace(values["telegramBotToken"]),
		ChannelID: strings.TrimSpace(values["telegramChannelId"]),
	}
	return creds, creds.Complete()
}

func (r *Resolver) fromStore() (Credentials, bool) {
	settings := r.loadSettings()
	creds := Credentials{
		BotToken:  strings.TrimSpace(settings.TelegramBotToken),
		ChannelID: strings.TrimSpace(settings.TelegramChannelID),
	}
	return creds, creds.Complete()
}

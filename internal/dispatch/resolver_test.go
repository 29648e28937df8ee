package dispatch

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"telegram-lead-scanner-go/internal/config"
	"telegram-lead-scanner-go/internal/models"
)

func TestResolverPrefersSettingsSheet(t *testing.T) {
	r := NewResolver(
		&fakeSettingsReader{values: map[string]string{
			"telegramBotToken":  "sheet-token",
			"telegramChannelId": "@sheet-channel",
		}},
		func() models.GlobalSettings {
			return models.GlobalSettings{TelegramBotToken: "store-token", TelegramChannelID: "@store-channel"}
		},
		config.TelegramConfig{BotToken: "env-token", ChannelID: "@env-channel"},
		func() string { return "sheet-1" },
	)

	creds, err := r.Resolve(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, Credentials{BotToken: "sheet-token", ChannelID: "@sheet-channel"}, creds)
}

func TestResolverFallsBackToStoreOnSheetError(t *testing.T) {
	r := NewResolver(
		&fakeSettingsReader{err: fmt.Errorf("sheet unavailable")},
		func() models.GlobalSettings {
			return models.GlobalSettings{TelegramBotToken: "store-token", TelegramChannelID: "@store-channel"}
		},
		config.TelegramConfig{BotToken: "env-token", ChannelID: "@env-channel"},
		func() string { return "sheet-1" },
	)

	creds, err := r.Resolve(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "store-token", creds.BotToken)
}

func TestResolverPartialPairsAreNotMixed(t *testing.T) {
	// The sheet only has a token, so the whole source is skipped
	r := NewResolver(
		&fakeSettingsReader{values: map[string]string{"telegramBotToken": "sheet-token"}},
		func() models.GlobalSettings { return models.GlobalSettings{} },
		config.TelegramConfig{BotToken: "env-token", ChannelID: "@env-channel"},
		func() string { return "sheet-1" },
	)

	creds, err := r.Resolve(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, Credentials{BotToken: "env-token", ChannelID: "@env-channel"}, creds)
}

func TestResolverNoSourceConfigured(t *testing.T) {
	_, err := emptyResolver().Resolve(context.Background())

	var validationErr *models.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

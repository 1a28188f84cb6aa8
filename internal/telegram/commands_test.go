package telegram

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/doc2pdf/internal/tracing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	cmd, ok := ParseCommand(commandUpdate(3, 11, "/Split 1-3  5-7"))

	require.True(t, ok)
	assert.Equal(t, 3, cmd.UpdateID)
	assert.Equal(t, int64(11), cmd.UserID)
	assert.Equal(t, int64(11), cmd.ChatID)
	assert.Equal(t, "split", cmd.Command)
	assert.Equal(t, []string{"1-3", "5-7"}, cmd.Args)
	assert.Equal(t, "1-3  5-7", cmd.RawArgs)

	_, ok = ParseCommand(tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 1},
		Chat: &tgbotapi.Chat{ID: 1},
		Text: "not a command",
	}})
	assert.False(t, ok)
}

func TestCommands_Dispatch(t *testing.T) {
	f := newFakeAPI(t)
	commands := NewCommands(newTestBot(t, f, nil))

	var got CommandContext
	var gotCommand string
	commands.Register("ocr", func(ctx context.Context, cmd CommandContext) error {
		got = cmd
		gotCommand = tracing.GetCommand(ctx)
		return nil
	})

	require.NoError(t, commands.HandleCommand(context.Background(), commandUpdate(1, 9, "/ocr deu")))

	assert.Equal(t, "ocr", got.Command)
	assert.Equal(t, []string{"deu"}, got.Args)
	assert.Equal(t, "ocr", gotCommand)
	assert.Empty(t, f.callsTo("sendMessage"))
}

func TestCommands_Unknown(t *testing.T) {
	f := newFakeAPI(t)
	commands := NewCommands(newTestBot(t, f, nil))

	require.NoError(t, commands.HandleCommand(context.Background(), commandUpdate(1, 9, "/frobnicate")))

	calls := f.callsTo("sendMessage")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Form.Get("text"), "Unknown command: /frobnicate")
}

func TestCommands_RegisterUnregister(t *testing.T) {
	f := newFakeAPI(t)
	commands := NewCommands(newTestBot(t, f, nil))
	noop := func(ctx context.Context, cmd CommandContext) error { return nil }

	commands.Register("merge", noop)
	commands.Register("clear", noop)
	commands.Register("split", noop)
	assert.Equal(t, []string{"clear", "merge", "split"}, commands.GetRegisteredCommands())

	commands.Unregister("merge")
	assert.Equal(t, []string{"clear", "split"}, commands.GetRegisteredCommands())
}

func TestCommands_SetCommands(t *testing.T) {
	f := newFakeAPI(t)
	commands := NewCommands(newTestBot(t, f, nil))

	err := commands.SetCommands(context.Background(), []tgbotapi.BotCommand{
		{Command: "start", Description: "Start"},
		{Command: "convert", Description: "Convert images"},
	})

	require.NoError(t, err)
	calls := f.callsTo("setMyCommands")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Form.Get("commands"), `"command":"convert"`)
}

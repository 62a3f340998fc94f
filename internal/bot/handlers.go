package bot

import (
	"context"
	"fmt"
	"strings"

	"medcenter/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const (
	lookupLimit = 5
	testsLimit  = 10
)

const helpText = `👋 Welcome to the clinic assistant.

/book - book a doctor's appointment
/back - go back one step
/cancel - cancel the booking in progress
/firstaid <query> - first-aid guidance, e.g. /firstaid burns
/tests <query> - find a diagnostic test, e.g. /tests blood

In an emergency call your local emergency number.`

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	l := zerolog.Ctx(ctx)

	l.Debug().
		Int64("user_id", msg.From.ID).
		Str("username", msg.From.UserName).
		Str("text", msg.Text).
		Msg("Handling message")

	command, arg := splitCommand(msg.Text)
	switch command {
	case "start", "help":
		b.sendMessage(chatID, helpText)
	case "book":
		b.startBooking(ctx, chatID, msg.From)
	case "back":
		b.back(ctx, chatID, 0)
	case "cancel":
		b.cancelBooking(ctx, chatID, 0)
	case "firstaid":
		b.lookupFirstAid(ctx, chatID, arg)
	case "tests":
		b.lookupTests(ctx, chatID, arg)
	case "":
		b.handleText(ctx, msg)
	default:
		b.sendMessage(chatID, "Unknown command.\n\n"+helpText)
	}
}

// splitCommand returns the command name without the slash or bot mention,
// and the rest of the text. Plain text yields an empty command.
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	name, arg, _ := strings.Cut(text[1:], " ")
	name, _, _ = strings.Cut(name, "@")
	return strings.ToLower(name), strings.TrimSpace(arg)
}

func (b *Bot) lookupFirstAid(ctx context.Context, chatID int64, query string) {
	if query == "" {
		b.sendMessage(chatID, "Usage: /firstaid <query>, e.g. /firstaid burns")
		return
	}
	entries, err := b.catalog.FirstAid(ctx, query, "")
	if err != nil {
		b.logger.Error().Err(err).Str("query", query).Msg("first aid lookup failed")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if len(entries) == 0 {
		b.sendMessage(chatID, fmt.Sprintf("Nothing found for %q.", query))
		return
	}
	b.sendMessage(chatID, formatFirstAid(entries))
}

func formatFirstAid(entries []models.FirstAidEntry) string {
	var sb strings.Builder
	for i, e := range entries {
		if i == lookupLimit {
			fmt.Fprintf(&sb, "…and %d more. Try a narrower query.", len(entries)-lookupLimit)
			break
		}
		if e.Emergency {
			sb.WriteString("🚨 ")
		}
		fmt.Fprintf(&sb, "%s\n%s\n", e.Title, e.Summary)
		for n, step := range e.Steps {
			fmt.Fprintf(&sb, "%d. %s\n", n+1, step)
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

func (b *Bot) lookupTests(ctx context.Context, chatID int64, query string) {
	if query == "" {
		b.sendMessage(chatID, "Usage: /tests <query>, e.g. /tests blood")
		return
	}
	tests, err := b.catalog.Tests(ctx, query, "")
	if err != nil {
		b.logger.Error().Err(err).Str("query", query).Msg("tests lookup failed")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if len(tests) == 0 {
		b.sendMessage(chatID, fmt.Sprintf("No tests found for %q.", query))
		return
	}
	b.sendMessage(chatID, formatTests(tests))
}

func formatTests(tests []models.DiagnosticTest) string {
	var sb strings.Builder
	sb.WriteString("🧪 Diagnostic tests\n\n")
	for i, t := range tests {
		if i == testsLimit {
			fmt.Fprintf(&sb, "…and %d more.", len(tests)-testsLimit)
			break
		}
		fmt.Fprintf(&sb, "• %s (%s): %s", t.Name, t.Code, models.FormatPrice(t.Price))
		if t.FastingRequired {
			sb.WriteString(", fasting required")
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

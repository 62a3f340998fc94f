package bot

import (
	"errors"
	"net/http"

	"medcenter/internal/api"
	"medcenter/internal/wizard"
)

const (
	msgSlowDown    = "⚠️ You are sending messages too quickly. Please wait a moment."
	msgNoBooking   = "You have no booking in progress. Send /book to start one."
	msgStaleButton = "This menu is out of date. Here is your current step."
	msgUnavailable = "⚠️ The clinic service is unavailable right now. Please try again later."
)

// getErrorMessage maps a failure to the text shown in the chat.
func (b *Bot) getErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var httpErr *api.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode < http.StatusInternalServerError && httpErr.Message != "" {
			return "⚠️ " + httpErr.Message
		}
		return msgUnavailable
	}

	var validation *wizard.ValidationError
	var refused *wizard.ApplicationError
	if errors.As(err, &validation) || errors.As(err, &refused) || errors.Is(err, wizard.ErrNotOnReviewStep) {
		return "⚠️ " + wizard.UserMessage(err)
	}

	// Default error message
	return "❌ " + wizard.ConnectivityMessage
}

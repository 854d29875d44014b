package architect

import (
	"fmt"

	"github.com/m3rciful/archbot/core/telegram/format"
)

const (
	welcomeText = "Hi! I'm an AI architect. 🤖\n\n" +
		"Tap the button below to launch the designer and create the house of your dreams!"

	permissionDeniedText = "❌ You don't have permission to run this command."
	stoppingText         = "✅ The bot is stopping... This may take a few seconds."

	decodeFailureText = "Sorry, we couldn't process the data from the designer. Please try again. 😵‍💫"
	serverFailureText = "Sorry, something went wrong on our side. Please try again in a moment. 🛠️"
)

// selectionText acknowledges the chosen style. style is escaped here.
func selectionText(style string) string {
	return fmt.Sprintf("Great! Your choice has been accepted.\n\n"+
		"🎨 %s <code>%s</code>\n\n"+
		"I would start generating layouts and an estimate now, but this feature is still in development. 🛠️",
		format.Bold("Selected style:"), format.EscapeHTML(style))
}

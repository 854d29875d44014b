package keyboard

import tele "gopkg.in/telebot.v4"

// WebAppKeyboard builds a resized reply keyboard with a single button that
// opens the mini-app at url. Data sent back by the mini-app arrives as a
// web_app_data message, which only reply keyboard buttons can produce.
func WebAppKeyboard(label, url string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	markup.ReplyKeyboard = [][]tele.ReplyButton{{
		{Text: label, WebApp: &tele.WebApp{URL: url}},
	}}
	return markup
}

package helpers

import tele "gopkg.in/telebot.v4"

const (
	repliesKey  = "archbot.replies"
	keyboardKey = "archbot.kb"
)

func countReply(c tele.Context, opts *tele.SendOptions) {
	n, _ := c.Get(repliesKey).(int)
	c.Set(repliesKey, n+1)
	if opts != nil && opts.ReplyMarkup != nil {
		c.Set(keyboardKey, true)
	}
}

// ReplyCounters reports how many replies a Sender delivered for c and
// whether any of them carried a keyboard.
func ReplyCounters(c tele.Context) (replies int, keyboard bool) {
	replies, _ = c.Get(repliesKey).(int)
	keyboard, _ = c.Get(keyboardKey).(bool)
	return replies, keyboard
}

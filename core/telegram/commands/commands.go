package commands

import "strings"

// Command describes a slash command as shown in the bot menu.
type Command struct {
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}

// Normalize lower-cases a command token and strips the leading slash and any @botname suffix.
func Normalize(token string) string {
	token = strings.TrimSpace(token)
	token = strings.TrimPrefix(token, "/")
	if name, _, ok := strings.Cut(token, "@"); ok {
		token = name
	}
	return strings.ToLower(token)
}

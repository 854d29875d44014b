package logger

import "strings"

var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

// Known status and outcome values; anything else is passed through (status) or dropped (outcome).
var (
	knownStatus  = []string{"ok", "fail", "skip", "denied", "cancelled"}
	knownOutcome = []string{"ok", "fail", "cancelled", "recovered"}
)

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if mapped, ok := levelNames[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func oneOf(value string, allowed []string) (string, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, a := range allowed {
		if a == value {
			return a, true
		}
	}
	return value, false
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"kind",
	"command",
	"outcome",
	"duration_ms",
	"messages",
	"kb",
	"state",
	"from",
	"to",
	"reason",
	"style",
	"payload",
	"payload_len",
	"lang",
	"username",
	"mode",
	"listen",
	"public_url",
	"action",
	"endpoint",
	"err",
	"err_code",
	"error_kind",
	"cause",
	"attempts",
	"elapsed_ms",
}

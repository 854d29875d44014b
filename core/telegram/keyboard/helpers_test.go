package keyboard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWebAppKeyboard(t *testing.T) {
	markup := WebAppKeyboard("🏠 Design my house", "https://example.org/app")

	require.True(t, markup.ResizeKeyboard)
	require.Len(t, markup.ReplyKeyboard, 1)
	require.Len(t, markup.ReplyKeyboard[0], 1)
	btn := markup.ReplyKeyboard[0][0]
	require.Equal(t, "🏠 Design my house", btn.Text)
	require.NotNil(t, btn.WebApp)
	require.Equal(t, "https://example.org/app", btn.WebApp.URL)
	require.Empty(t, markup.InlineKeyboard)
}

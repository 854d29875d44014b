package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCapitalize(t *testing.T) {
	cases := map[string]string{
		"":          "",
		"modern":    "Modern",
		"LOFT":      "Loft",
		"sCANDI":    "Scandi",
		"élégant":   "Élégant",
		"art deco":  "Art deco",
		"1st class": "1st class",
	}
	for in, want := range cases {
		require.Equal(t, want, Capitalize(in), "input %q", in)
	}
}

func TestEscapeHTML(t *testing.T) {
	require.Equal(t, "&lt;b&gt;x&lt;/b&gt; &amp; &#34;y&#34;", EscapeHTML(`<b>x</b> & "y"`))
	require.Equal(t, "<b>&lt;i&gt;</b>", Bold(EscapeHTML("<i>")))
}

func TestDerefString(t *testing.T) {
	s := "loft"
	require.Equal(t, "loft", DerefString(&s, "none"))
	require.Equal(t, "none", DerefString(nil, "none"))
}

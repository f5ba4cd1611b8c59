package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// messagePolicy keeps bold, italic and strike-through markup and drops everything else.
var messagePolicy = newMessagePolicy()

func newMessagePolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "i", "s")
	return p
}

// SanitizeMessage cleans post text for display.
func SanitizeMessage(input string) string {
	return strings.TrimSpace(messagePolicy.Sanitize(input))
}

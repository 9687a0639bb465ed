// Package trigger detects messages addressed to the AI assistant.
package trigger

import "strings"

// Token is matched case-insensitively anywhere in the message.
const Token = "@ai"

func Contains(text string) bool {
	return index(text) >= 0
}

// Prompt returns the whitespace-trimmed text following the first occurrence
// of Token, or an empty string if there is none.
func Prompt(text string) string {
	idx := index(text)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(text[idx+len(Token):])
}

func index(text string) int {
	for i := 0; i+len(Token) <= len(text); i++ {
		if text[i] == Token[0] && strings.EqualFold(text[i:i+len(Token)], Token) {
			return i
		}
	}
	return -1
}

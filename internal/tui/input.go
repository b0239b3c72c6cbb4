package tui

import "unicode/utf8"

// maxInputLen is the maximum number of runes allowed in form inputs.
const maxInputLen = 500

// editRune processes a keystroke for inline text editing.
// Handles backspace (rune-aware) and single printable characters.
// Returns the text unchanged for non-printable keys (enter, esc, etc.).
// Input is clamped to maxInputLen runes.
func editRune(text string, key string) string {
	switch key {
	case "backspace":
		if len(text) > 0 {
			runes := []rune(text)
			return string(runes[:len(runes)-1])
		}
		return text
	case "space":
		key = " "
	}
	if utf8.RuneCountInString(key) == 1 {
		if utf8.RuneCountInString(text) >= maxInputLen {
			return text
		}
		return text + key
	}
	return text
}

// truncateToHeight limits output to maxLines newline-delimited lines.
// Returns the original string if it fits or maxLines is <= 0.
func truncateToHeight(s string, maxLines int) string {
	if maxLines <= 0 {
		return s
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
			if n >= maxLines {
				return s[:i+1]
			}
		}
	}
	return s
}

// renderField renders a labelled single-line input with a block cursor when
// focused and the placeholder when empty.
func renderField(label, value, placeholder string, focused bool) string {
	prompt := "  " + metaStyle.Render(padRight(label, 12)) + " "
	if focused {
		prompt = "  " + inputPromptStyle.Render(padRight(label, 12)) + " "
	}
	cursor := ""
	if focused {
		cursor = accentStyle.Render("█")
	}
	if value == "" {
		return prompt + cursor + inputPlaceholderStyle.Render(placeholder)
	}
	if !focused {
		return prompt + dimStyle.Render(value)
	}
	return prompt + inputTextStyle.Render(value) + cursor
}

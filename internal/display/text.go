package display

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/muesli/reflow/wordwrap"
)

const DefaultWidth = 80

// Wrap word-wraps text to DefaultWidth.
func Wrap(text string) string {
	return wordwrap.String(text, DefaultWidth)
}

// WrapHanging wraps text to width as a single paragraph and indents every
// line after the first by hang spaces.
func WrapHanging(text string, width, hang int) string {
	if hang <= 0 || hang >= width {
		return wordwrap.String(text, width)
	}

	head, rest, found := strings.Cut(wordwrap.String(text, width), "\n")
	if !found {
		return head
	}

	pad := strings.Repeat(" ", hang)
	tail := strings.Split(wordwrap.String(strings.ReplaceAll(rest, "\n", " "), width-hang), "\n")
	for i, l := range tail {
		tail[i] = pad + l
	}
	return head + "\n" + strings.Join(tail, "\n")
}

// Capitalize returns s with its first rune uppercased.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

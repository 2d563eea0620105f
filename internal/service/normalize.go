package service

import "strings"

// Normalize collapses raw extracted text into a single-spaced token stream:
// carriage returns become spaces, leading/trailing whitespace is trimmed,
// and inter-word whitespace runs collapse to one space. Total and
// idempotent; empty input yields empty output.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	cleaned := strings.ReplaceAll(text, "\r", " ")
	return strings.Join(strings.Fields(cleaned), " ")
}

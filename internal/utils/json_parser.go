package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fencedBlock   = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.+?)\\s*```")
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	bareKey       = regexp.MustCompile(`([{,]\s*)([A-Za-z_]\w*)(\s*:)`)
	controlChars  = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// ParseAIJSON decodes JSON produced by a language model into target. Models
// often wrap the object in a markdown fence, surround it with prose, or emit
// trailing commas and unquoted keys; each form is tried in turn.
func ParseAIJSON(input string, target interface{}) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("empty input")
	}

	for _, candidate := range jsonCandidates(input) {
		if candidate == "" {
			continue
		}
		if err := json.Unmarshal([]byte(candidate), target); err == nil {
			return nil
		}
	}

	return fmt.Errorf("failed to parse JSON from input: %s", truncateString(input, 100))
}

// jsonCandidates lists progressively looser readings of input
func jsonCandidates(input string) []string {
	trimmed := strings.TrimPrefix(strings.TrimSpace(input), "\ufeff")
	fenced := extractFromMarkdown(trimmed)
	embedded := extractJSONFromText(trimmed)

	repairBase := embedded
	if repairBase == "" {
		repairBase = trimmed
	}

	return []string{trimmed, fenced, embedded, repairJSON(repairBase)}
}

// extractFromMarkdown returns the body of the first fenced code block that
// looks like JSON
func extractFromMarkdown(input string) string {
	matches := fencedBlock.FindStringSubmatch(input)
	if len(matches) < 2 {
		return ""
	}
	body := strings.TrimSpace(matches[1])
	if strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[") {
		return body
	}
	return ""
}

// extractJSONFromText finds the first balanced object, else array, in text
func extractJSONFromText(input string) string {
	if start := strings.Index(input, "{"); start >= 0 {
		if obj := extractBalancedBraces(input[start:], '{', '}'); obj != "" {
			return obj
		}
	}
	if start := strings.Index(input, "["); start >= 0 {
		return extractBalancedBraces(input[start:], '[', ']')
	}
	return ""
}

// extractBalancedBraces returns the prefix of input up to the bracket that
// closes its first open bracket, skipping brackets inside strings
func extractBalancedBraces(input string, open, close rune) string {
	depth := 0
	inString := false
	escaped := false
	start := -1

	for i, ch := range input {
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			if depth == 0 {
				start = i
			}
			depth++
		case ch == close && depth > 0:
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}
	return ""
}

// repairJSON fixes trailing commas, unquoted keys and control characters
func repairJSON(input string) string {
	s := trailingComma.ReplaceAllString(input, "$1")
	s = bareKey.ReplaceAllString(s, `$1"$2"$3`)
	return controlChars.ReplaceAllString(s, "")
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

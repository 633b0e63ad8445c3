package trd

import "strings"

// Sanitize cleans merge output before it is rendered into a section.
//
// It drops top-level header lines and lines that echo the merge prompt, then
// trims blank lines at both ends. Every other line is kept byte for byte, so
// Markdown hard breaks and blank runs survive. An all-stripped section
// returns "".
func Sanitize(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	var kept []string
	for _, line := range strings.Split(content, "\n") {
		if topHeaderRe.MatchString(line) || isPromptEcho(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(trimBlankLines(kept), "\n")
}

// isPromptEcho reports lines that are artifacts of the merge prompt rather
// than section content.
func isPromptEcho(line string) bool {
	l := strings.ToLower(line)
	switch {
	case strings.Contains(l, "existing") && strings.Contains(l, "content"):
		return true
	case strings.Contains(l, "new transcription to incorporate"):
		return true
	case strings.Contains(l, "please update"):
		return true
	}
	return false
}

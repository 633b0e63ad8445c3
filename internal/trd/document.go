package trd

import (
	"regexp"
	"strings"
	"time"
)

const (
	// Title is the first line of every rendered document.
	Title = "# Technical Requirements Document"
	// Undefined is written for a section that has no content.
	Undefined = "To be defined."

	footerTimeLayout = "2006-01-02 15:04:05"
)

var (
	// topHeaderRe matches a document-level (#) or section-level (##) header line,
	// including a bare marker with no title. ### and deeper are content.
	topHeaderRe = regexp.MustCompile(`^[ \t]*#{1,2}(?:[ \t].*)?$`)
	footerRe    = regexp.MustCompile(`(?m)^[ \t]*---[ \t]*\n[ \t]*\*Generated by [^\n]*\*[ \t]*$`)
)

// Parse extracts every section's body from a rendered TRD.
// A section whose header is missing parses as empty, as does one holding only
// the Undefined placeholder. Parse never fails; malformed input degrades to
// empty sections.
func Parse(raw string) Ontology {
	var o Ontology
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	if locs := footerRe.FindAllStringIndex(text, -1); len(locs) > 0 {
		text = text[:locs[len(locs)-1][0]]
	}
	lines := strings.Split(text, "\n")

	// Indices of every top-level header line, plus a terminator.
	var heads []int
	for i, l := range lines {
		if topHeaderRe.MatchString(l) {
			heads = append(heads, i)
		}
	}
	heads = append(heads, len(lines))

	for _, s := range sections {
		for h := 0; h < len(heads)-1; h++ {
			if !headerMatches(lines[heads[h]], s.Header) {
				continue
			}
			body := strings.Join(trimBlankLines(lines[heads[h]+1:heads[h+1]]), "\n")
			if isUndefined(body) {
				body = ""
			}
			o[s.ID] = body
			break
		}
	}
	return o
}

// Render emits the canonical document for o, sections in canonical order,
// each sanitized, followed by a footer stamped with at.
func Render(o Ontology, at time.Time) string {
	var b strings.Builder
	b.WriteString(Title)
	b.WriteString("\n\n")
	for _, s := range sections {
		content := Sanitize(o[s.ID])
		if content == "" {
			content = Undefined
		}
		b.WriteString("## ")
		b.WriteString(s.Header)
		b.WriteString("\n")
		b.WriteString(content)
		b.WriteString("\n\n")
	}
	b.WriteString("---\n*Generated by Scribe on ")
	b.WriteString(at.Format(footerTimeLayout))
	b.WriteString("*\n")
	return b.String()
}

// EmptyDocument renders a document with every section undefined.
func EmptyDocument(at time.Time) string {
	return Render(Empty(), at)
}

// headerMatches compares a header line with a section header,
// ignoring case, the marker and surrounding or repeated whitespace.
func headerMatches(line, header string) bool {
	title := strings.TrimLeft(strings.TrimSpace(line), "#")
	return strings.EqualFold(strings.Join(strings.Fields(title), " "), header)
}

func isUndefined(body string) bool {
	b := strings.TrimSpace(body)
	return b == Undefined || b == strings.TrimSuffix(Undefined, ".")
}

func trimBlankLines(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}

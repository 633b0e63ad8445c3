// Package trd models the Technical Requirements Document: a fixed set of
// named sections that is parsed from, and rendered back to, Markdown.
package trd

import "strings"

// SectionID identifies one of the enumerated TRD sections.
type SectionID int

// Canonical section order. Render emits sections in this order.
const (
	Overview SectionID = iota
	Requirements
	TechnicalSpecs
	Architecture
	Constraints
	Assumptions
	AcceptanceCriteria
	Dependencies

	sectionCount
)

// Section describes one TRD section and what belongs in it.
type Section struct {
	ID          SectionID
	Key         string
	Header      string
	Instruction string
}

var sections = [sectionCount]Section{
	{Overview, "overview", "Overview",
		"Extract or update the overview/summary section from the transcription"},
	{Requirements, "requirements", "Requirements",
		"Extract or update functional requirements from the transcription"},
	{TechnicalSpecs, "technical_specs", "Technical Specifications",
		"Extract or update technical specifications from the transcription"},
	{Architecture, "architecture", "Architecture",
		"Extract or update system architecture details from the transcription"},
	{Constraints, "constraints", "Constraints",
		"Extract or update system constraints and limitations from the transcription"},
	{Assumptions, "assumptions", "Assumptions",
		"Extract or update assumptions made in the transcription"},
	{AcceptanceCriteria, "acceptance_criteria", "Acceptance Criteria",
		"Extract or update acceptance criteria from the transcription"},
	{Dependencies, "dependencies", "Dependencies",
		"Extract or update external dependencies from the transcription"},
}

// Sections returns every section in canonical order.
func Sections() []Section {
	out := make([]Section, len(sections))
	copy(out, sections[:])
	return out
}

// Info returns the table entry for id.
func (id SectionID) Info() Section {
	return sections[id]
}

// String returns the section key.
func (id SectionID) String() string {
	if id < 0 || id >= sectionCount {
		return "unknown"
	}
	return sections[id].Key
}

// SectionByKey looks a section up by key or header, case-insensitively.
func SectionByKey(key string) (Section, bool) {
	key = strings.TrimSpace(key)
	for _, s := range sections {
		if strings.EqualFold(s.Key, key) || strings.EqualFold(s.Header, key) {
			return s, true
		}
	}
	return Section{}, false
}

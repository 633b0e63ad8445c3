package trd

// Ontology is the in-memory form of a TRD: one content string per section.
// Every section is always present; empty content means "not yet defined".
type Ontology [sectionCount]string

// Empty returns an ontology with every section empty.
func Empty() Ontology {
	return Ontology{}
}

// Get returns the content of a section.
func (o Ontology) Get(id SectionID) string {
	return o[id]
}

// Set replaces the content of a section.
func (o *Ontology) Set(id SectionID, content string) {
	o[id] = content
}

// IsEmpty reports whether no section has content.
func (o Ontology) IsEmpty() bool {
	return o == Ontology{}
}

// Map returns the ontology keyed by section key, for JSON output.
func (o Ontology) Map() map[string]string {
	out := make(map[string]string, sectionCount)
	for _, s := range sections {
		out[s.Key] = o[s.ID]
	}
	return out
}

package trd

import "testing"

func TestSanitize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Users log in with email.", "Users log in with email."},
		{"strips echoed header", "## Requirements\n- login", "- login"},
		{"strips bare marker", "#\n- login\n##", "- login"},
		{"keeps sub headers", "### Auth\n- login", "### Auth\n- login"},
		{"strips prompt echo", "Existing requirements content:\n- login\nPlease update the section:", "- login"},
		{"strips transcription echo", "New transcription to incorporate:\n- reset", "- reset"},
		{"keeps blank runs", "a\n\n\n\nb", "a\n\n\n\nb"},
		{"keeps hard breaks", "line one  \nline two\t", "line one  \nline two\t"},
		{"trims blank edges", "\n  \n- login\n\t\n", "- login"},
		{"normalizes CRLF", "a\r\n## X\r\nb", "a\nb"},
		{"all stripped", "# Overview\nPlease update", ""},
		{"whitespace only", "  \n\t\n", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Sanitize(tc.in); got != tc.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestRender_AllStrippedSectionBecomesPlaceholder(t *testing.T) {
	var o Ontology
	o.Set(Assumptions, "## Assumptions\nHere is the existing content")
	got := Parse(Render(o, fixedTime))
	if got.Get(Assumptions) != "" {
		t.Errorf("assumptions = %q, want empty", got.Get(Assumptions))
	}
}

func TestSectionByKey(t *testing.T) {
	s, ok := SectionByKey("technical_specs")
	if !ok || s.ID != TechnicalSpecs {
		t.Errorf("by key = %+v, %v", s, ok)
	}
	s, ok = SectionByKey("acceptance criteria")
	if !ok || s.ID != AcceptanceCriteria {
		t.Errorf("by header = %+v, %v", s, ok)
	}
	if _, ok := SectionByKey("budget"); ok {
		t.Error("unknown key should not resolve")
	}
	if len(Sections()) != 8 {
		t.Errorf("len(Sections) = %d, want 8", len(Sections()))
	}
}

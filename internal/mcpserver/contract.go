package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/scribe/internal/trd"
)

// TRDFormatContract describes the document Scribe maintains, so that LLM
// consumers can read it and feed it useful fragments.
var TRDFormatContract = buildContract()

func buildContract() string {
	var b strings.Builder
	b.WriteString(`# Scribe TRD Format

Every project owns one Technical Requirements Document (TRD). Scribe rewrites it
after each transcription fragment; clients never edit it directly.

## Structure

The document starts with the title line ` + "`" + trd.Title + "`" + ` and holds exactly
the sections below, always in this order, each under a ` + "`" + `## <Header>` + "`" + ` line.
A section with no content reads ` + "`" + trd.Undefined + "`" + `. A footer line
` + "`" + `*Generated by Scribe on <timestamp>*` + "`" + ` closes the document.

| Key | Header | Content |
|---|---|---|
`)
	for _, s := range trd.Sections() {
		fmt.Fprintf(&b, "| `%s` | %s | %s |\n", s.Key, s.Header, s.Instruction)
	}
	b.WriteString(`
## Rules

1. Section content is Markdown. Only ` + "`" + `###` + "`" + ` and deeper headers may appear inside a section.
2. Fragments are merged one at a time, in arrival order. When a fragment contradicts
   the document, the newer statement wins.
3. Every overwrite keeps a timestamped snapshot of the previous document.

## Feeding fragments

- ` + "`" + `add_transcript` + "`" + ` takes plain text, e.g. meeting notes or a pasted transcript.
- ` + "`" + `upload_audio` + "`" + ` takes a base64 data URI or an http(s) URL of an audio chunk
  (wav, mp3, ogg, webm, m4a, flac). It is transcribed before merging.
- Both return immediately; the document changes once the fragment is merged.
`)
	return b.String()
}

package docstore

import (
	"path"
	"regexp"
	"strconv"
	"strings"
)

// Directories under the data root.
const (
	DocumentsDir = "documents"
	FragmentsDir = "fragments"
	AudioDir     = "audio"
	VersionsDir  = "versions"
)

// DefaultAudioExt is used when an upload carries no usable extension.
const DefaultAudioExt = ".webm"

var (
	projectIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	audioExtRe  = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)
)

// ValidProjectID reports whether id can be used as a path component.
func ValidProjectID(id string) bool {
	return projectIDRe.MatchString(id)
}

// DocumentPath is the location of a project's rendered TRD.
func DocumentPath(projectID string) string {
	return path.Join(DocumentsDir, projectID+".md")
}

// FragmentPath is the location of one persisted fragment.
func FragmentPath(projectID string, seq int) string {
	return path.Join(FragmentsDir, projectID, strconv.Itoa(seq)+".json")
}

// AudioPath is the location of one uploaded audio chunk.
func AudioPath(projectID string, seq int, ext string) string {
	return path.Join(AudioDir, projectID, strconv.Itoa(seq)+NormalizeAudioExt(ext))
}

// VersionPath is the location of one document snapshot.
func VersionPath(projectID, name string) string {
	return path.Join(VersionsDir, projectID, name+".md")
}

// NormalizeAudioExt lowercases ext and falls back to DefaultAudioExt when it
// is not a short alphanumeric extension.
func NormalizeAudioExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if !audioExtRe.MatchString(ext) {
		return DefaultAudioExt
	}
	return ext
}

// ParseDocumentPath extracts the project id from a document path.
func ParseDocumentPath(p string) (string, bool) {
	dir, file := path.Split(path.Clean(p))
	if path.Clean(dir) != DocumentsDir || path.Ext(file) != ".md" {
		return "", false
	}
	id := strings.TrimSuffix(file, ".md")
	return id, ValidProjectID(id)
}

// ParseFragmentPath extracts project id and sequence number from a fragment path.
func ParseFragmentPath(p string) (string, int, bool) {
	id, name, ok := splitProjectFile(p, FragmentsDir)
	if !ok || path.Ext(name) != ".json" {
		return "", 0, false
	}
	seq, ok := parseSeq(strings.TrimSuffix(name, ".json"))
	return id, seq, ok
}

// ParseAudioPath extracts project id and sequence number from an audio path.
func ParseAudioPath(p string) (string, int, bool) {
	id, name, ok := splitProjectFile(p, AudioDir)
	if !ok {
		return "", 0, false
	}
	seq, ok := parseSeq(strings.TrimSuffix(name, path.Ext(name)))
	return id, seq, ok
}

// ParseVersionPath extracts project id and snapshot name from a version path.
func ParseVersionPath(p string) (string, string, bool) {
	id, name, ok := splitProjectFile(p, VersionsDir)
	if !ok || path.Ext(name) != ".md" {
		return "", "", false
	}
	return id, strings.TrimSuffix(name, ".md"), true
}

func splitProjectFile(p, root string) (projectID, name string, ok bool) {
	parts := strings.Split(path.Clean(p), "/")
	if len(parts) != 3 || parts[0] != root || !ValidProjectID(parts[1]) || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

func parseSeq(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Package annotation parses the source-file tags the validation engine
// consumes: the @arch architecture tag with optional +mixin names, @override
// blocks with their audit fields, and @intent declarations. Parsing is
// line-oriented over comment text; it deliberately knows nothing about the
// host language beyond "annotations live on comment lines".
package annotation

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/c360studio/archlint/override"
	"github.com/c360studio/archlint/rules"
)

// Intent is one @intent:<name> declaration.
type Intent struct {
	// Name is the declared intent.
	Name string

	// Line is the 1-based source line.
	Line int

	// Scoped is true when the tag was written inline beside code rather
	// than in the file header block. Scoped intents still count toward the
	// file's declared-intent set; the flag exists for reporters.
	Scoped bool
}

// FileAnnotations is everything the engine reads from one source file's tags.
type FileAnnotations struct {
	// Arch is the architecture id from the @arch tag, empty if untagged.
	Arch string

	// ArchLine is the line carrying the @arch tag.
	ArchLine int

	// InlineMixins are the +name tags following the architecture id.
	InlineMixins []string

	// Overrides are the parsed @override blocks in file order.
	Overrides []override.Override

	// Intents are the @intent declarations in file order.
	Intents []Intent
}

// IntentNames returns the deduplicated set of declared intent names.
func (a *FileAnnotations) IntentNames() []string {
	seen := make(map[string]bool, len(a.Intents))
	var names []string
	for _, in := range a.Intents {
		if !seen[in.Name] {
			seen[in.Name] = true
			names = append(names, in.Name)
		}
	}
	return names
}

var (
	archRe     = regexp.MustCompile(`@arch\s+([\w][\w.-]*)((?:\s+\+[\w][\w.-]*)*)`)
	mixinTagRe = regexp.MustCompile(`\+([\w][\w.-]*)`)
	overrideRe = regexp.MustCompile(`@override\s+([\w-]+)(?::(\S+))?`)
	reasonRe   = regexp.MustCompile(`@reason\s+(.+?)\s*$`)
	expiresRe  = regexp.MustCompile(`@expires\s+(\d{4}-\d{2}-\d{2})`)
	ticketRe   = regexp.MustCompile(`@ticket\s+(\S+)`)
	approvedRe = regexp.MustCompile(`@approved_by\s+(\S+)`)
	intentRe   = regexp.MustCompile(`@intent:([\w-]+)`)
)

// Parse scans source text for annotations. Audit fields following an
// @override tag attach to that override until the next @override or the
// @arch tag; stray audit fields before any @override are ignored.
func Parse(src []byte) *FileAnnotations {
	ann := &FileAnnotations{}
	var current *override.Override

	scanner := bufio.NewScanner(bytes.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	headerEnded := false
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()

		if !isCommentLine(text) {
			if strings.TrimSpace(text) != "" {
				headerEnded = true
			}
			continue
		}

		if m := archRe.FindStringSubmatch(text); m != nil && ann.Arch == "" {
			ann.Arch = m[1]
			ann.ArchLine = line
			for _, tag := range mixinTagRe.FindAllStringSubmatch(m[2], -1) {
				ann.InlineMixins = append(ann.InlineMixins, tag[1])
			}
			current = nil
			continue
		}

		if m := overrideRe.FindStringSubmatch(text); m != nil {
			ann.Overrides = append(ann.Overrides, override.Override{
				Rule:  rules.Kind(m[1]),
				Value: m[2],
				Line:  line,
			})
			current = &ann.Overrides[len(ann.Overrides)-1]
			continue
		}

		if current != nil {
			if m := reasonRe.FindStringSubmatch(text); m != nil {
				current.Reason = m[1]
				continue
			}
			if m := expiresRe.FindStringSubmatch(text); m != nil {
				current.Expires = m[1]
				continue
			}
			if m := ticketRe.FindStringSubmatch(text); m != nil {
				current.Ticket = m[1]
				continue
			}
			if m := approvedRe.FindStringSubmatch(text); m != nil {
				current.ApprovedBy = m[1]
				continue
			}
		}

		if m := intentRe.FindStringSubmatch(text); m != nil {
			ann.Intents = append(ann.Intents, Intent{
				Name:   m[1],
				Line:   line,
				Scoped: headerEnded,
			})
		}
	}

	return ann
}

// isCommentLine covers the comment styles of the supported source languages
// plus shell-style hashes so config-adjacent files can carry tags too.
func isCommentLine(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasPrefix(trimmed, "//") ||
		strings.HasPrefix(trimmed, "*") ||
		strings.HasPrefix(trimmed, "/*") ||
		strings.HasPrefix(trimmed, "#")
}

// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package manifest implements the Manifest Document Store: it loads and
// saves TOML documents (Cargo manifests and, via fences, Markdown files)
// while preserving comments, key order, and surrounding whitespace. Edits
// address dotted table paths rather than reconstructing the document from a
// parsed map, so anything the store does not touch round-trips byte for
// byte, with two exceptions: CRLF line endings are rewritten as LF, and a
// document that lacks a final newline gains one on output.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/lading-dev/lading/internal/ladingerr"
)

// Document is an in-memory, line-oriented view of a TOML file. It keeps the
// original text verbatim except where Set/Remove operations touch it.
type Document struct {
	lines []string
}

var tableHeaderRE = regexp.MustCompile(`^\s*\[\[?\s*([^\[\]]+?)\s*\]?\]\s*(#.*)?$`)

// Load reads path and parses it as a line-oriented TOML document.
// It performs a best-effort structural check: a line starting with "[" that
// does not end with "]" fails with ManifestParseError. Other malformed TOML
// (unbalanced quotes, bad values) is not detected.
func Load(path string) (*Document, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, ladingerr.ManifestParseWrap(err, "failed to read manifest %s", path)
	}
	return Parse(string(contents))
}

// Parse builds a Document from raw TOML text, such as the body of a Markdown
// fence.
func Parse(contents string) (*Document, error) {
	normalized := strings.ReplaceAll(contents, "\r\n", "\n")
	lines := strings.Split(normalized, "\n")
	trailingNewline := strings.HasSuffix(normalized, "\n")
	if trailingNewline {
		lines = lines[:len(lines)-1]
	}
	doc := &Document{lines: lines}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// validate rejects documents with unbalanced table-header brackets; it is
// not a full TOML grammar check, since the store never needs to understand
// value types it does not edit.
func (d *Document) validate() error {
	for i, line := range d.lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "[") {
			continue
		}
		if !strings.HasSuffix(trimmed, "]") {
			return ladingerr.ManifestParse("line %d: unterminated table header %q", i+1, line)
		}
	}
	return nil
}

// String renders the document back to text, always ending with a newline.
func (d *Document) String() string {
	return strings.Join(d.lines, "\n") + "\n"
}

// Save writes doc to path atomically: it writes to a temporary file in the
// same directory, then renames it over path.
func Save(doc *Document, path string) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	if err := os.WriteFile(tmp, []byte(doc.String()), 0o644); err != nil {
		return ladingerr.ManifestParseWrap(err, "failed to write temporary manifest %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return ladingerr.ManifestParseWrap(err, "failed to replace manifest %s", path)
	}
	return nil
}

// tableBounds locates the body of the table at dotted path tablePath (for
// example "package" or "workspace.package" or "patch.crates-io"). It returns
// the line range (start, end) of the table's key lines, exclusive of the
// header itself, and whether the table exists. The root table (tablePath
// == "") spans from the top of the document to the first header line.
func (d *Document) tableBounds(tablePath string) (start, end int, headerLine int, found bool) {
	if tablePath == "" {
		end = len(d.lines)
		for i, line := range d.lines {
			if tableHeaderRE.MatchString(line) {
				end = i
				break
			}
		}
		return 0, end, -1, true
	}
	for i, line := range d.lines {
		m := tableHeaderRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if m[1] != tablePath {
			continue
		}
		bodyStart := i + 1
		bodyEnd := len(d.lines)
		for j := bodyStart; j < len(d.lines); j++ {
			if tableHeaderRE.MatchString(d.lines[j]) {
				bodyEnd = j
				break
			}
		}
		return bodyStart, bodyEnd, i, true
	}
	return 0, 0, -1, false
}

// HasTable reports whether tablePath has a header in the document.
func (d *Document) HasTable(tablePath string) bool {
	_, _, _, found := d.tableBounds(tablePath)
	return found
}

var keyLineRE = regexp.MustCompile(`^(\s*)("[^"]*"|'[^']*'|[A-Za-z0-9_.\-]+)(\s*=\s*)(.*)$`)

// findKeyLine returns the index of the line defining key within the table
// body [start, end), along with the decomposed line, or found=false.
func (d *Document) findKeyLine(start, end int, key string) (idx int, indent, sep, rest string, found bool) {
	for i := start; i < end; i++ {
		m := keyLineRE.FindStringSubmatch(d.lines[i])
		if m == nil {
			continue
		}
		if unquoteKey(m[2]) != key {
			continue
		}
		return i, m[1], m[3], m[4], true
	}
	return 0, "", "", "", false
}

func unquoteKey(raw string) string {
	if len(raw) >= 2 && (raw[0] == '"' || raw[0] == '\'') {
		return raw[1 : len(raw)-1]
	}
	return raw
}

// splitValueComment splits the text following "key =" into the value token
// and a trailing " # comment" (including leading space), honoring quoted
// strings so a literal '#' inside a string is not mistaken for a comment.
func splitValueComment(rest string) (value, comment string) {
	inString := byte(0)
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		switch {
		case inString != 0:
			if c == inString {
				inString = 0
			}
		case c == '"' || c == '\'':
			inString = c
		case c == '#':
			return strings.TrimRight(rest[:i], " \t"), rest[i:]
		}
	}
	return strings.TrimRight(rest, " \t"), ""
}

// Get returns the raw value token (including surrounding quotes, if any) set
// for key within tablePath, or found=false if either the table or key is
// absent.
func (d *Document) Get(tablePath, key string) (value string, found bool) {
	start, end, _, ok := d.tableBounds(tablePath)
	if !ok {
		return "", false
	}
	_, _, _, rest, ok := d.findKeyLine(start, end, key)
	if !ok {
		return "", false
	}
	value, _ = splitValueComment(rest)
	return value, true
}

// Set writes newValue (a raw TOML value token, e.g. `"1.2.3"`) for key
// within tablePath, preserving indentation and any trailing comment. It
// creates the key/table if absent, appending the table at the end of the
// document and the key at the end of the table body. It reports whether the
// document actually changed.
func (d *Document) Set(tablePath, key, newValue string) bool {
	start, end, _, ok := d.tableBounds(tablePath)
	if !ok {
		d.appendTable(tablePath)
		start, end, _, _ = d.tableBounds(tablePath)
	}
	idx, indent, sep, rest, found := d.findKeyLine(start, end, key)
	if !found {
		d.insertLine(end, fmt.Sprintf("%s = %s", key, newValue))
		return true
	}
	value, comment := splitValueComment(rest)
	if value == newValue {
		return false
	}
	newLine := indent + key + sep + newValue
	if comment != "" {
		newLine += " " + strings.TrimLeft(comment, " \t")
	}
	d.lines[idx] = newLine
	return true
}

func (d *Document) appendTable(tablePath string) {
	if len(d.lines) > 0 && strings.TrimSpace(d.lines[len(d.lines)-1]) != "" {
		d.lines = append(d.lines, "")
	}
	d.lines = append(d.lines, fmt.Sprintf("[%s]", tablePath))
}

func (d *Document) insertLine(at int, line string) {
	d.lines = append(d.lines, "")
	copy(d.lines[at+1:], d.lines[at:])
	d.lines[at] = line
}

// RemoveTable deletes the header and body of tablePath, if present. It
// reports whether anything was removed.
func (d *Document) RemoveTable(tablePath string) bool {
	_, end, header, found := d.tableBounds(tablePath)
	if !found || header < 0 {
		return false
	}
	d.lines = append(d.lines[:header], d.lines[end:]...)
	return true
}

// RemoveKey deletes the line defining key within tablePath, if present.
func (d *Document) RemoveKey(tablePath, key string) bool {
	start, end, _, ok := d.tableBounds(tablePath)
	if !ok {
		return false
	}
	idx, _, _, _, found := d.findKeyLine(start, end, key)
	if !found {
		return false
	}
	d.lines = append(d.lines[:idx], d.lines[idx+1:]...)
	return true
}

// TableKeys returns the keys defined directly in tablePath's body, in
// document order.
func (d *Document) TableKeys(tablePath string) []string {
	start, end, _, ok := d.tableBounds(tablePath)
	if !ok {
		return nil
	}
	var keys []string
	for i := start; i < end; i++ {
		m := keyLineRE.FindStringSubmatch(d.lines[i])
		if m == nil {
			continue
		}
		keys = append(keys, unquoteKey(m[2]))
	}
	return keys
}

// IsTableEmpty reports whether tablePath has no key lines in its body
// (used to decide whether an orphaned parent table should be removed too).
func (d *Document) IsTableEmpty(tablePath string) bool {
	return len(d.TableKeys(tablePath)) == 0
}

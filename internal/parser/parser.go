// Package parser recognizes the pieces of note text the migration rewrites:
// the leading front-matter block and links into the shared resource store.
package parser

import "strings"

const delim = "---"

// FrontMatter is a note split at its metadata delimiters.
type FrontMatter struct {
	// Block is the text between the delimiter lines, including the newline
	// that ends its last line.
	Block string
	// Body is everything after the closing delimiter line.
	Body string
	// closed records whether the closing delimiter line ended with a newline.
	closed bool
}

// SplitFrontMatter separates a leading metadata block from the body. The
// first line must be exactly "---" and a later line exactly "---"; anything
// else (including leading blank lines) means there is no block.
func SplitFrontMatter(content string) (FrontMatter, bool) {
	if !strings.HasPrefix(content, delim+"\n") {
		return FrontMatter{}, false
	}
	rest := content[len(delim)+1:]

	pos := 0
	for pos <= len(rest) {
		nl := strings.IndexByte(rest[pos:], '\n')
		line := rest[pos:]
		if nl >= 0 {
			line = rest[pos : pos+nl]
		}
		if line == delim {
			fm := FrontMatter{Block: rest[:pos]}
			if nl >= 0 {
				fm.Body = rest[pos+nl+1:]
				fm.closed = true
			}
			return fm, true
		}
		if nl < 0 {
			break
		}
		pos += nl + 1
	}
	// No closing delimiter: not a metadata block.
	return FrontMatter{}, false
}

// Join rebuilds note text from a (possibly edited) block and the body. An
// empty block drops the delimiters entirely.
func (fm FrontMatter) Join(block string) string {
	if block == "" {
		return fm.Body
	}
	var b strings.Builder
	b.Grow(len(block) + len(fm.Body) + 10)
	b.WriteString(delim + "\n")
	b.WriteString(block)
	b.WriteString("\n" + delim)
	if fm.closed {
		b.WriteString("\n")
	}
	b.WriteString(fm.Body)
	return b.String()
}

package parser

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// RefKind identifies the syntax a resource reference was written in.
type RefKind int

const (
	KindImage RefKind = iota // ![alt](path)
	KindLink                 // [text](path)
	KindHTML                 // <img ... src="path" ...>
)

func (k RefKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindLink:
		return "link"
	case KindHTML:
		return "html"
	}
	return "unknown"
}

// ResourceRef is one occurrence of a link into the shared resource store.
type ResourceRef struct {
	Kind  RefKind
	Start int    // byte offset of the full match
	End   int    // byte offset just past the full match
	Text  string // link text (KindLink, KindImage)
	Raw   string // resource name as written, possibly percent-encoded
	Name  string // decoded resource name

	// value span of the src attribute, KindHTML only
	srcStart, srcEnd int
	// span of Text, KindLink and KindImage only
	textStart, textEnd int
}

// Scanner finds references into one store directory.
type Scanner struct {
	store  string
	linkRe *regexp.Regexp
	imgRe  *regexp.Regexp
}

// NewScanner builds recognizers for references to the named store directory.
func NewScanner(store string) *Scanner {
	q := regexp.QuoteMeta(store)
	return &Scanner{
		store:  store,
		linkRe: regexp.MustCompile(`(!?)\[([^\]]*)\]\((?:\.\./)*` + q + `/([^)]+)\)`),
		imgRe:  regexp.MustCompile(`<img[^>]+src="((?:\.\./)*` + q + `/([^"]+))"[^>]*>`),
	}
}

// Scan returns every reference in text, ordered by position. An img tag
// inside the text of a link is returned right after that link; any other
// overlapping match is dropped in favour of the earlier one.
func (s *Scanner) Scan(text string) []ResourceRef {
	var refs []ResourceRef

	for _, m := range s.linkRe.FindAllStringSubmatchIndex(text, -1) {
		kind := KindLink
		if m[3] > m[2] {
			kind = KindImage
		}
		raw := text[m[6]:m[7]]
		refs = append(refs, ResourceRef{
			Kind:      kind,
			Start:     m[0],
			End:       m[1],
			Text:      text[m[4]:m[5]],
			Raw:       raw,
			Name:      decode(raw),
			textStart: m[4],
			textEnd:   m[5],
		})
	}
	for _, m := range s.imgRe.FindAllStringSubmatchIndex(text, -1) {
		raw := text[m[4]:m[5]]
		refs = append(refs, ResourceRef{
			Kind:     KindHTML,
			Start:    m[0],
			End:      m[1],
			Raw:      raw,
			Name:     decode(raw),
			srcStart: m[2],
			srcEnd:   m[3],
		})
	}

	sort.SliceStable(refs, func(i, j int) bool { return refs[i].Start < refs[j].Start })
	out := refs[:0]
	end := -1
	lo, hi := -1, -1 // text span of the last kept link
	for _, r := range refs {
		switch {
		case r.Start >= end:
			out = append(out, r)
			end = r.End
			lo, hi = -1, -1
			if r.Kind == KindLink {
				lo, hi = r.textStart, r.textEnd
			}
		case r.Kind == KindHTML && r.Start >= lo && r.End <= hi:
			out = append(out, r)
		}
	}
	return out
}

// LocalTarget is the rewritten link target for a decoded resource name.
// The name is written as-is, without re-applying percent-encoding.
func (s *Scanner) LocalTarget(name string) string {
	return "./" + s.store + "/" + name
}

// Rewrite substitutes every ref whose Name is in targets with its new
// form. refs must come from Scan over the same text.
func Rewrite(text string, refs []ResourceRef, targets map[string]string) string {
	return rewriteSpan(text, 0, len(text), refs, targets)
}

// rewriteSpan rewrites text[lo:hi]; every ref lies inside that span.
func rewriteSpan(text string, lo, hi int, refs []ResourceRef, targets map[string]string) string {
	var b strings.Builder
	b.Grow(hi - lo)
	last := lo
	for i := 0; i < len(refs); i++ {
		r := refs[i]
		j := i + 1
		for j < len(refs) && refs[j].End <= r.End {
			j++
		}
		nested := refs[i+1 : j]

		target, ok := targets[r.Name]
		if !ok {
			// nested refs are still visited on their own
			continue
		}
		b.WriteString(text[last:r.Start])
		switch r.Kind {
		case KindImage:
			b.WriteString("![](" + target + ")")
		case KindLink:
			label := r.Text
			if len(nested) > 0 {
				label = rewriteSpan(text, r.textStart, r.textEnd, nested, targets)
			}
			b.WriteString("[" + label + "](" + target + ")")
		case KindHTML:
			b.WriteString(text[r.Start:r.srcStart])
			b.WriteString(target)
			b.WriteString(text[r.srcEnd:r.End])
		}
		last = r.End
		i = j - 1
	}
	b.WriteString(text[last:hi])
	return b.String()
}

func decode(raw string) string {
	name, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return name
}

package css

import (
	"bytes"
	"math"

	parse "github.com/tdewolff/parse/v2"
	pstrconv "github.com/tdewolff/parse/v2/strconv"
)

// tokens is a cursor yielding sep-separated pieces of a byte slice on demand.
// Empty pieces are returned as is, callers decide what to do with them.
type tokens struct {
	rest []byte
	sep  []byte
	done bool
}

func newTokens(b, sep []byte) tokens {
	return tokens{rest: b, sep: sep, done: len(b) == 0}
}

func (t *tokens) hasNext() bool {
	return !t.done
}

func (t *tokens) next() []byte {
	tok, rest, found := bytes.Cut(t.rest, t.sep)
	t.rest = rest
	t.done = !found
	return tok
}

var (
	declSep  = []byte(";")
	classSep = []byte(" ")

	propTextAlign  = []byte("text-align")
	propFontStyle  = []byte("font-style")
	propFontWeight = []byte("font-weight")
	propTextIndent = []byte("text-indent")
)

// alignValues and friends are matched case-insensitively, targets must be
// lowercase.
var (
	alignValues = []struct {
		name  []byte
		align TextAlign
	}{
		{[]byte("left"), TextAlignLeft},
		{[]byte("start"), TextAlignLeft},
		{[]byte("right"), TextAlignRight},
		{[]byte("end"), TextAlignRight},
		{[]byte("center"), TextAlignCenter},
		{[]byte("justify"), TextAlignJustify},
	}
	italicValues = [][]byte{[]byte("italic"), []byte("oblique")}
	boldValues   = [][]byte{[]byte("bold"), []byte("bolder"), []byte("700"), []byte("800"), []byte("900")}
)

// indentUnits lists recognized text-indent suffixes with the factor that
// converts them to pixels. 1em and 100% are both taken to be 16px.
var indentUnits = []struct {
	suffix []byte
	factor float64
}{
	{[]byte("px"), 1.0},
	{[]byte("em"), 16.0},
	{[]byte("%"), 0.16},
}

// ParseInline parses declaration list, as found in "style" attribute or inside
// of a rule block, into Attributes. Anything not understood is skipped.
func ParseInline(decls []byte) Attributes {
	var attrs Attributes

	it := newTokens(decls, declSep)
	for it.hasNext() {
		decl := it.next()
		colon := bytes.IndexByte(decl, ':')
		if colon < 0 {
			continue
		}
		name := parse.TrimWhitespace(decl[:colon])
		value := parse.TrimWhitespace(decl[colon+1:])

		switch {
		case parse.EqualFold(name, propTextAlign):
			// unknown alignment keeps whatever was there before
			for _, v := range alignValues {
				if parse.EqualFold(value, v.name) {
					attrs.TextAlign = Some(v.align)
					break
				}
			}
		case parse.EqualFold(name, propFontStyle):
			attrs.FontStyle = Some(FontStyleNormal)
			if matchAny(value, italicValues) {
				attrs.FontStyle = Some(FontStyleItalic)
			}
		case parse.EqualFold(name, propFontWeight):
			attrs.FontWeight = Some(FontWeightNormal)
			if matchAny(value, boldValues) {
				attrs.FontWeight = Some(FontWeightBold)
			}
		case parse.EqualFold(name, propTextIndent):
			if indent, ok := parseIndent(value); ok {
				attrs.TextIndent = Some(indent)
			}
		}
	}
	return attrs
}

func matchAny(value []byte, targets [][]byte) bool {
	for _, t := range targets {
		if parse.EqualFold(value, t) {
			return true
		}
	}
	return false
}

// parseIndent converts text-indent value to pixels. Result is narrowed to 8
// bits by truncation: out of range magnitudes wrap around, they are not
// clamped.
func parseIndent(value []byte) (uint8, bool) {
	factor := 1.0
	for _, u := range indentUnits {
		if hasSuffixFold(value, u.suffix) {
			value = value[:len(value)-len(u.suffix)]
			factor = u.factor
			break
		}
	}
	value = parse.TrimWhitespace(value)
	if len(value) == 0 {
		return 0, false
	}
	f, n := pstrconv.ParseFloat(value)
	if n == 0 {
		return 0, false
	}
	px := f * factor
	if math.IsNaN(px) || math.IsInf(px, 0) {
		return 0, false
	}
	return uint8(int64(math.Mod(math.Trunc(px), 256))), true
}

func hasSuffixFold(b, suffixLower []byte) bool {
	return len(b) >= len(suffixLower) && parse.EqualFold(b[len(b)-len(suffixLower):], suffixLower)
}

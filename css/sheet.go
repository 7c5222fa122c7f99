package css

import (
	"bytes"
	"iter"

	parse "github.com/tdewolff/parse/v2"

	"epubcss/arena"
)

// Canary labels laid down after rule table and selector storage.
const (
	CheckpointRules     = "____css-rules____"
	CheckpointSelectors = "__css-selectors__"
)

// ScanStats counts what the sheet scanner saw. It is only used for
// diagnostics.
type ScanStats struct {
	Rules       int // accepted non-empty class rules
	AtRules     int // skipped at-rules
	NotClass    int // blocks skipped because selector is not a plain class
	Empty       int // class rules without any recognized property
	Unfinished  bool
	FilteredLen int
}

// selectorStop lists bytes which may not appear in accepted class name.
const selectorStop = " \t\n\r\f>+~,:[.#*("

// classSelector returns class name if selector is a single plain class
// selector.
func classSelector(selector []byte) ([]byte, bool) {
	if len(selector) < 2 || selector[0] != '.' {
		return nil, false
	}
	name := selector[1:]
	if bytes.ContainsAny(name, selectorStop) {
		return nil, false
	}
	return name, true
}

// scanRules yields (class name, attributes) for every accepted rule of already
// comment-free sheet in source order. Sequence is pure and may be iterated
// any number of times, names are views into sheet. Brace matching is not
// nesting aware: first '}' always closes current block.
func scanRules(sheet []byte, stats *ScanStats) iter.Seq2[[]byte, Attributes] {
	return func(yield func([]byte, Attributes) bool) {
		for {
			pos := bytes.IndexAny(sheet, "@{")
			if pos < 0 {
				return
			}

			if sheet[pos] == '@' {
				stats.atRule()
				rest := sheet[pos:]
				semi := bytes.IndexByte(rest, ';')
				brace := bytes.IndexByte(rest, '{')
				if semi >= 0 && (brace < 0 || semi < brace) {
					sheet = rest[semi+1:]
					continue
				}
				if brace < 0 {
					stats.unfinished()
					return
				}
				end := bytes.IndexByte(rest[brace:], '}')
				if end < 0 {
					stats.unfinished()
					return
				}
				sheet = rest[brace+end+1:]
				continue
			}

			selector := parse.TrimWhitespace(sheet[:pos])
			end := bytes.IndexByte(sheet[pos:], '}')
			if end < 0 {
				stats.unfinished()
				return
			}
			end += pos
			body := sheet[pos+1 : end]
			sheet = sheet[end+1:]

			name, ok := classSelector(selector)
			if !ok {
				stats.notClass()
				continue
			}
			attrs := ParseInline(parse.TrimWhitespace(body))
			if !attrs.Any() {
				stats.empty()
				continue
			}
			stats.rule()
			if !yield(name, attrs) {
				return
			}
		}
	}
}

func (s *ScanStats) atRule() {
	if s != nil {
		s.AtRules++
	}
}

func (s *ScanStats) notClass() {
	if s != nil {
		s.NotClass++
	}
}

func (s *ScanStats) empty() {
	if s != nil {
		s.Empty++
	}
}

func (s *ScanStats) rule() {
	if s != nil {
		s.Rules++
	}
}

func (s *ScanStats) unfinished() {
	if s != nil {
		s.Unfinished = true
	}
}

// ParseSheet builds rule table from stylesheet text. Everything the table
// refers to is allocated from a, so the table is valid for as long as a is.
// When a runs out of space the result is an empty table, never an error.
func ParseSheet(sheet []byte, a *arena.Arena) *Table {
	return parseSheet(sheet, a, nil)
}

func parseSheet(sheet []byte, a *arena.Arena, stats *ScanStats) *Table {
	sheet = FilterComments(sheet, a)
	if stats != nil {
		stats.FilteredLen = len(sheet)
	}

	count := 0
	for range scanRules(sheet, stats) {
		count++
	}
	if count == 0 {
		return &Table{}
	}

	rules := arena.AllocSlice[Rule](a, count)
	if rules == nil {
		return &Table{}
	}
	a.Checkpoint(CheckpointRules)

	i := 0
	for name, attrs := range scanRules(sheet, nil) {
		if i == len(rules) {
			break
		}
		sel, ok := a.Intern(name)
		if !ok {
			return &Table{}
		}
		rules[i] = Rule{Selector: sel, Attrs: attrs}
		i++
	}
	a.Checkpoint(CheckpointSelectors)

	return &Table{rules: rules[:i]}
}

package css

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// TextAlign is the value of text-align property.
type TextAlign uint8

const (
	TextAlignLeft TextAlign = iota
	TextAlignRight
	TextAlignCenter
	TextAlignJustify
)

func (a TextAlign) String() string {
	switch a {
	case TextAlignLeft:
		return "left"
	case TextAlignRight:
		return "right"
	case TextAlignCenter:
		return "center"
	case TextAlignJustify:
		return "justify"
	default:
		return "TextAlign(" + strconv.Itoa(int(a)) + ")"
	}
}

// FontStyle is the value of font-style property.
type FontStyle uint8

const (
	FontStyleNormal FontStyle = iota
	FontStyleItalic
)

func (s FontStyle) String() string {
	switch s {
	case FontStyleNormal:
		return "normal"
	case FontStyleItalic:
		return "italic"
	default:
		return "FontStyle(" + strconv.Itoa(int(s)) + ")"
	}
}

// FontWeight is the value of font-weight property.
type FontWeight uint8

const (
	FontWeightNormal FontWeight = iota
	FontWeightBold
)

func (w FontWeight) String() string {
	switch w {
	case FontWeightNormal:
		return "normal"
	case FontWeightBold:
		return "bold"
	default:
		return "FontWeight(" + strconv.Itoa(int(w)) + ")"
	}
}

// Optional holds a value which may be absent. Absent and explicitly set zero
// value are different things: "font-style: normal" is present Normal.
type Optional[T comparable] struct {
	value T
	set   bool
}

// Some returns present Optional holding v.
func Some[T comparable](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether value is present.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// Is reports whether value is present and equal to v.
func (o Optional[T]) Is(v T) bool {
	return o.set && o.value == v
}

// Or returns o when present, otherwise other.
func (o Optional[T]) Or(other Optional[T]) Optional[T] {
	if o.set {
		return o
	}
	return other
}

func (o Optional[T]) String() string {
	if !o.set {
		return "-"
	}
	return fmt.Sprint(o.value)
}

// Attributes is the set of text styling properties the engine understands.
// Zero value has nothing set.
type Attributes struct {
	TextAlign  Optional[TextAlign]
	FontStyle  Optional[FontStyle]
	FontWeight Optional[FontWeight]
	TextIndent Optional[uint8]
}

// Any reports whether at least one property is present.
func (a Attributes) Any() bool {
	return a.TextAlign.set || a.FontStyle.set || a.FontWeight.set || a.TextIndent.set
}

// Merge returns a with every property present in later overwriting the
// corresponding property of a. Properties absent in later are kept.
func (a Attributes) Merge(later Attributes) Attributes {
	return Attributes{
		TextAlign:  later.TextAlign.Or(a.TextAlign),
		FontStyle:  later.FontStyle.Or(a.FontStyle),
		FontWeight: later.FontWeight.Or(a.FontWeight),
		TextIndent: later.TextIndent.Or(a.TextIndent),
	}
}

// Or fills properties absent in a from fallback, a keeps precedence.
func (a Attributes) Or(fallback Attributes) Attributes {
	return fallback.Merge(a)
}

func (a Attributes) String() string {
	return fmt.Sprintf("{align=%s style=%s weight=%s indent=%s}",
		a.TextAlign, a.FontStyle, a.FontWeight, a.TextIndent)
}

// declarations writes present properties as CSS declarations.
func (a Attributes) declarations() []string {
	var decls []string
	if v, ok := a.TextAlign.Get(); ok {
		decls = append(decls, "text-align: "+v.String())
	}
	if v, ok := a.FontStyle.Get(); ok {
		decls = append(decls, "font-style: "+v.String())
	}
	if v, ok := a.FontWeight.Get(); ok {
		decls = append(decls, "font-weight: "+v.String())
	}
	if v, ok := a.TextIndent.Get(); ok {
		decls = append(decls, "text-indent: "+strconv.Itoa(int(v))+"px")
	}
	return decls
}

// Rule maps single class name (without leading dot) to attributes.
type Rule struct {
	Selector string
	Attrs    Attributes
}

// Table is the immutable result of parsing one stylesheet. Selector strings
// are owned by the arena the table was built in and remain valid as long as
// the table is reachable.
type Table struct {
	rules []Rule
}

// Len returns number of rules.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}

// Rules returns rules in source order. Callers must not modify the returned
// slice.
func (t *Table) Rules() []Rule {
	if t == nil {
		return nil
	}
	return t.rules
}

// WriteTo writes the table as CSS in source order, implementing io.WriterTo.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, r := range t.Rules() {
		n, err := writeRule(w, r)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// String returns the CSS text of the table.
func (t *Table) String() string {
	var sb strings.Builder
	t.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

func writeRule(w io.Writer, r Rule) (int, error) {
	return io.WriteString(w, r.String()+"\n")
}

// String returns the rule as single line of CSS.
func (r Rule) String() string {
	var sb strings.Builder
	sb.WriteByte('.')
	sb.WriteString(r.Selector)
	sb.WriteString(" {")
	for _, d := range r.Attrs.declarations() {
		sb.WriteString(" ")
		sb.WriteString(d)
		sb.WriteString(";")
	}
	sb.WriteString(" }")
	return sb.String()
}

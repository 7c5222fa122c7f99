package css_test

import (
	"testing"

	"epubcss/arena"
	"epubcss/css"
)

func TestResolve_RightmostWins(t *testing.T) {
	table := parse(t, ".a {text-align:left;} .b {text-align:right;}")

	if got := table.Resolve([]byte("a b")); !got.TextAlign.Is(css.TextAlignRight) {
		t.Errorf(`Resolve("a b") = %v, want right`, got)
	}
	if got := table.Resolve([]byte("b a")); !got.TextAlign.Is(css.TextAlignLeft) {
		t.Errorf(`Resolve("b a") = %v, want left`, got)
	}
}

func TestResolve_MergesPerProperty(t *testing.T) {
	table := parse(t, `
		.calibre1 { text-align: justify; font-weight: normal }
		.italic { font-style: italic }
		.bold { font-weight: bold }
		.indent { text-indent: 1em }
	`)

	tests := []struct {
		classes string
		want    css.Attributes
	}{
		{
			classes: "calibre1 italic",
			want: css.Attributes{
				TextAlign:  css.Some(css.TextAlignJustify),
				FontStyle:  css.Some(css.FontStyleItalic),
				FontWeight: css.Some(css.FontWeightNormal),
			},
		},
		{
			classes: "bold calibre1",
			want: css.Attributes{
				TextAlign:  css.Some(css.TextAlignJustify),
				FontWeight: css.Some(css.FontWeightNormal),
			},
		},
		{
			classes: "calibre1 bold indent",
			want: css.Attributes{
				TextAlign:  css.Some(css.TextAlignJustify),
				FontWeight: css.Some(css.FontWeightBold),
				TextIndent: css.Some[uint8](16),
			},
		},
		{
			classes: "unknown  italic ",
			want:    css.Attributes{FontStyle: css.Some(css.FontStyleItalic)},
		},
		{classes: "", want: css.Attributes{}},
		{classes: "   ", want: css.Attributes{}},
		{classes: "Italic", want: css.Attributes{}},
	}

	for _, tt := range tests {
		t.Run(tt.classes, func(t *testing.T) {
			if got := table.Resolve([]byte(tt.classes)); got != tt.want {
				t.Errorf("Resolve(%q) = %v, want %v", tt.classes, got, tt.want)
			}
		})
	}
}

func TestLookup_Missing(t *testing.T) {
	table := parse(t, ".a { text-align: left }")
	if got := table.Lookup([]byte("b")); got.Any() {
		t.Errorf("Lookup of missing class = %v, want nothing set", got)
	}
	if got := table.Lookup([]byte(".a")); got.Any() {
		t.Errorf("Lookup must not accept leading dot, got %v", got)
	}

	var empty *css.Table
	if got := empty.Resolve([]byte("a")); got.Any() {
		t.Errorf("nil table resolved to %v", got)
	}
	if empty.Len() != 0 || empty.Rules() != nil {
		t.Error("nil table must behave as empty")
	}
}

func TestResolve_DoesNotAllocate(t *testing.T) {
	table := parse(t, ".a { text-align: left } .b { font-weight: bold } .c { text-indent: 10px }")
	classes := []byte("x a  b c y")
	name := []byte("c")

	var sink css.Attributes
	if n := testing.AllocsPerRun(100, func() { sink = table.Resolve(classes) }); n != 0 {
		t.Errorf("Resolve allocates %v times per run", n)
	}
	if n := testing.AllocsPerRun(100, func() { sink = table.Lookup(name) }); n != 0 {
		t.Errorf("Lookup allocates %v times per run", n)
	}
	_ = sink
}

func TestAttributes_MergeAndOr(t *testing.T) {
	base := css.Attributes{
		TextAlign: css.Some(css.TextAlignCenter),
		FontStyle: css.Some(css.FontStyleItalic),
	}
	over := css.Attributes{
		FontStyle:  css.Some(css.FontStyleNormal),
		TextIndent: css.Some[uint8](5),
	}

	merged := base.Merge(over)
	want := css.Attributes{
		TextAlign:  css.Some(css.TextAlignCenter),
		FontStyle:  css.Some(css.FontStyleNormal),
		TextIndent: css.Some[uint8](5),
	}
	if merged != want {
		t.Errorf("Merge = %v, want %v", merged, want)
	}

	// Or keeps receiver values and only fills gaps
	filled := base.Or(over)
	want = css.Attributes{
		TextAlign:  css.Some(css.TextAlignCenter),
		FontStyle:  css.Some(css.FontStyleItalic),
		TextIndent: css.Some[uint8](5),
	}
	if filled != want {
		t.Errorf("Or = %v, want %v", filled, want)
	}

	if (css.Attributes{}).Any() {
		t.Error("zero Attributes must have nothing set")
	}
}

func TestAttributes_String(t *testing.T) {
	a := css.Attributes{TextAlign: css.Some(css.TextAlignCenter), TextIndent: css.Some[uint8](16)}
	if got, want := a.String(), "{align=center style=- weight=- indent=16}"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestCascade(t *testing.T) {
	a := arena.New(4096)
	first := css.ParseSheet([]byte(".p { text-align: left; font-style: italic }"), a)
	second := css.ParseSheet([]byte(".p { text-align: right } .q { font-weight: bold }"), a)

	got := css.Cascade{first, second}.Resolve([]byte("p q"))
	want := css.Attributes{
		TextAlign:  css.Some(css.TextAlignRight),
		FontStyle:  css.Some(css.FontStyleItalic),
		FontWeight: css.Some(css.FontWeightBold),
	}
	if got != want {
		t.Errorf("Cascade.Resolve = %v, want %v", got, want)
	}
	if err := a.Verify(); err != nil {
		t.Error(err)
	}
}

func TestElementStyle(t *testing.T) {
	a := arena.New(4096)
	embedded := css.ParseSheet([]byte(".c { font-weight: bold; text-align: center }"), a)
	external := css.Cascade{
		css.ParseSheet([]byte(".c { font-weight: normal; text-align: right; text-indent: 1em; font-style: italic }"), a),
	}

	got := css.ElementStyle([]byte("font-style: normal"), []byte("c"), embedded, external)
	want := css.Attributes{
		TextAlign:  css.Some(css.TextAlignCenter),
		FontStyle:  css.Some(css.FontStyleNormal),
		FontWeight: css.Some(css.FontWeightBold),
		TextIndent: css.Some[uint8](16),
	}
	if got != want {
		t.Errorf("ElementStyle = %v, want %v", got, want)
	}

	if got := css.ElementStyle(nil, nil, embedded, external); got.Any() {
		t.Errorf("element without class and style resolved to %v", got)
	}
	if got := css.ElementStyle([]byte("text-align: justify"), nil, nil, nil); !got.TextAlign.Is(css.TextAlignJustify) {
		t.Errorf("inline only = %v", got)
	}
}

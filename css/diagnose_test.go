package css_test

import (
	"strings"
	"testing"

	"epubcss/css"
)

func kinds(warnings []css.Warning) map[css.WarningKind][]string {
	m := make(map[css.WarningKind][]string)
	for _, w := range warnings {
		m[w.Kind] = append(m[w.Kind], w.Detail)
	}
	return m
}

func TestDiagnose(t *testing.T) {
	sheet := `
		@import url("other.css");
		h1 { font-weight: bold }
		.a .b { font-style: italic }
		.good { text-align: center; color: red }
		.bad-align { text-align: middle }
		@media amzn-kf8 { .m { text-align: right } }
		@font-face { font-family: "X" }
	`
	got := kinds(css.Diagnose([]byte(sheet)))

	if len(got[css.WarnAtRule]) != 2 {
		t.Errorf("at-rule warnings = %v, want @import and @font-face", got[css.WarnAtRule])
	}
	if len(got[css.WarnNestedAtRule]) != 1 || !strings.HasPrefix(got[css.WarnNestedAtRule][0], "@media") {
		t.Errorf("nested at-rule warnings = %v", got[css.WarnNestedAtRule])
	}
	if len(got[css.WarnSelector]) != 2 {
		t.Errorf("selector warnings = %v, want h1 and descendant selector", got[css.WarnSelector])
	}
	if len(got[css.WarnProperty]) != 1 || !strings.Contains(got[css.WarnProperty][0], "color") {
		t.Errorf("property warnings = %v, want color", got[css.WarnProperty])
	}
	if len(got[css.WarnValue]) != 1 || !strings.Contains(got[css.WarnValue][0], "middle") {
		t.Errorf("value warnings = %v, want middle", got[css.WarnValue])
	}
	if len(got[css.WarnComment]) != 0 {
		t.Errorf("unexpected comment warnings %v", got[css.WarnComment])
	}
}

func TestDiagnose_Clean(t *testing.T) {
	sheet := `.a { text-align: left; font-style: italic } /* fine */ .b { font-weight: 700; text-indent: 2em }`
	if got := css.Diagnose([]byte(sheet)); len(got) != 0 {
		t.Errorf("expected no warnings, got %+v", got)
	}
}

func TestDiagnose_UnterminatedComment(t *testing.T) {
	got := kinds(css.Diagnose([]byte(".a { font-style: italic } /* never closed")))
	if len(got[css.WarnComment]) != 1 {
		t.Errorf("comment warnings = %v", got[css.WarnComment])
	}
}

func TestWarningKind_String(t *testing.T) {
	if css.WarnNestedAtRule.String() != "nested-at-rule" || css.WarningKind(99).String() != "unknown" {
		t.Error("unexpected WarningKind names")
	}
}

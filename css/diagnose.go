package css

import (
	"bytes"
	"errors"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// WarningKind classifies constructs the engine does not act upon.
type WarningKind int

const (
	WarnSelector WarningKind = iota // selector other than plain single class
	WarnAtRule                      // skipped at-rule
	WarnNestedAtRule                // at-rule with nested rules, skipper will stop at first '}'
	WarnProperty                    // property engine does not know
	WarnValue                       // known property, value ignored
	WarnComment                     // unterminated comment
	WarnSyntax                      // tokenizer error
)

func (k WarningKind) String() string {
	switch k {
	case WarnSelector:
		return "selector"
	case WarnAtRule:
		return "at-rule"
	case WarnNestedAtRule:
		return "nested-at-rule"
	case WarnProperty:
		return "property"
	case WarnValue:
		return "value"
	case WarnComment:
		return "comment"
	case WarnSyntax:
		return "syntax"
	default:
		return "unknown"
	}
}

// Warning describes single ignored construct.
type Warning struct {
	Kind   WarningKind
	Detail string
}

// Diagnose runs stylesheet through a complete CSS grammar parser and reports
// everything the restricted engine will skip or may mis-handle. It never
// affects what ParseSheet produces and is meant for debugging of e-book
// styles only.
func Diagnose(data []byte) []Warning {
	var warnings []Warning
	add := func(kind WarningKind, detail string) {
		warnings = append(warnings, Warning{Kind: kind, Detail: detail})
	}

	if unterminatedComment(data) {
		add(WarnComment, "unterminated comment, rest of the stylesheet is ignored")
	}

	parser := css.NewParser(parse.NewInput(bytes.NewReader(data)), false)
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				add(WarnSyntax, err.Error())
			}
			return warnings

		case css.AtRuleGrammar:
			add(WarnAtRule, string(data)+" "+tokensString(parser.Values()))

		case css.BeginAtRuleGrammar:
			atRule := string(data)
			if skipAtRuleBlock(parser) {
				add(WarnNestedAtRule, atRule+" contains rules, block is closed by the first '}' and rules after it are parsed as top level")
			} else {
				add(WarnAtRule, atRule)
			}

		case css.QualifiedRuleGrammar:
			add(WarnSelector, selectorString(data, parser.Values()))

		case css.BeginRulesetGrammar:
			sel := selectorString(data, parser.Values())
			if _, ok := classSelector([]byte(sel)); !ok {
				add(WarnSelector, sel)
				skipRuleset(parser)
				continue
			}
			diagnoseDeclarations(parser, sel, add)
		}
	}
}

// unterminatedComment reports whether some "/*" has no matching "*/".
func unterminatedComment(data []byte) bool {
	for {
		start := bytes.Index(data, commentOpen)
		if start < 0 {
			return false
		}
		data = data[start+len(commentOpen):]
		end := bytes.Index(data, commentClose)
		if end < 0 {
			return true
		}
		data = data[end+len(commentClose):]
	}
}

func diagnoseDeclarations(parser *css.Parser, sel string, add func(WarningKind, string)) {
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar, css.EndRulesetGrammar:
			return

		case css.DeclarationGrammar:
			prop := strings.ToLower(string(data))
			value := tokensString(parser.Values())
			switch prop {
			case "font-style", "font-weight":
			case "text-align":
				if !ParseInline([]byte(prop + ":" + value)).TextAlign.IsSet() {
					add(WarnValue, sel+" { "+prop+": "+value+" }")
				}
			case "text-indent":
				if !ParseInline([]byte(prop + ":" + value)).TextIndent.IsSet() {
					add(WarnValue, sel+" { "+prop+": "+value+" }")
				}
			default:
				add(WarnProperty, sel+" { "+prop+" }")
			}

		case css.CustomPropertyGrammar:
			add(WarnProperty, sel+" { "+string(data)+" }")
		}
	}
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block and
// reports whether block had rulesets inside.
func skipAtRuleBlock(parser *css.Parser) bool {
	nested := false
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			return nested
		case css.BeginRulesetGrammar:
			nested = true
			depth++
		case css.BeginAtRuleGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
	return nested
}

func skipRuleset(parser *css.Parser) {
	for {
		gt, _, _ := parser.Next()
		if gt == css.ErrorGrammar || gt == css.EndRulesetGrammar {
			return
		}
	}
}

// selectorString builds full selector string from token data and values.
func selectorString(data []byte, values []css.Token) string {
	var sb strings.Builder
	sb.Write(data)
	for _, v := range values {
		sb.Write(v.Data)
	}
	return strings.TrimSpace(sb.String())
}

// tokensString joins value tokens collapsing whitespace.
func tokensString(tokens []css.Token) string {
	var rawParts []string
	for _, t := range tokens {
		if t.TokenType != css.WhitespaceToken {
			rawParts = append(rawParts, string(t.Data))
		} else if len(rawParts) > 0 {
			rawParts = append(rawParts, " ")
		}
	}
	return strings.TrimSpace(strings.Join(rawParts, ""))
}

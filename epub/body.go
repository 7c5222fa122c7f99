package epub

import (
	"strings"

	"github.com/beevik/etree"

	"epubcss/css"
)

func isBlock(name string) bool {
	switch name {
	case "h1", "h2", "h3", "h4", "h5", "h6", "p", "li", "div", "blockquote":
		return true
	}
	return false
}

func isBold(name string) bool {
	switch name {
	case "h1", "h2", "h3", "h4", "h5", "h6", "b", "strong":
		return true
	}
	return false
}

func isItalic(name string) bool {
	switch name {
	case "i", "em", "cite":
		return true
	}
	return false
}

// isSpace matches HTML white space, no-break space is text.
func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}

// bodyWalker accumulates runs and paragraphs while walking document body.
type bodyWalker struct {
	embedded *css.Table
	external css.Cascade

	paragraphs []Paragraph
	runs       []Run
	text       strings.Builder
	bold       bool
	italic     bool
	align      css.Optional[css.TextAlign]
	indent     css.Optional[uint8]
	// space is set when last emitted character is white space or nothing was
	// emitted in the current line yet.
	space bool
}

func (w *bodyWalker) element(el *etree.Element) {
	name := strings.ToLower(el.Tag)
	switch name {
	case "script", "style", "head", "title":
		return
	}

	block := isBlock(name)
	if block {
		w.flushParagraph()
	}

	bold, italic := w.bold, w.italic
	align, indent := w.align, w.indent

	if isBold(name) {
		w.setBold(true)
	}
	if isItalic(name) {
		w.setItalic(true)
	}
	if name == "br" {
		w.breakLine()
	}

	style := css.ElementStyle(
		[]byte(el.SelectAttrValue("style", "")),
		[]byte(el.SelectAttrValue("class", "")),
		w.embedded, w.external)
	if v, ok := style.FontStyle.Get(); ok {
		w.setItalic(v == css.FontStyleItalic)
	}
	if v, ok := style.FontWeight.Get(); ok {
		w.setBold(v == css.FontWeightBold)
	}
	w.align = style.TextAlign.Or(w.align)
	w.indent = style.TextIndent.Or(w.indent)

	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.Element:
			w.element(t)
		case *etree.CharData:
			w.push(t.Data)
		}
	}

	if block {
		w.flushParagraph()
		// block level properties are inherited by descendants only
		w.align, w.indent = align, indent
	}
	w.setBold(bold)
	w.setItalic(italic)
}

func (w *bodyWalker) setBold(bold bool) {
	if w.bold != bold {
		w.flushText(false)
		w.bold = bold
	}
}

func (w *bodyWalker) setItalic(italic bool) {
	if w.italic != italic {
		w.flushText(false)
		w.italic = italic
	}
}

// push appends text collapsing white space the way HTML renders it.
func (w *bodyWalker) push(s string) {
	if s == "" {
		return
	}
	leading := isSpace(rune(s[0]))
	trailing := isSpace(rune(s[len(s)-1]))

	words := strings.FieldsFunc(s, isSpace)
	if (leading || len(words) == 0) && !w.space {
		w.text.WriteByte(' ')
		w.space = true
	}
	if len(words) == 0 {
		return
	}
	w.text.WriteString(strings.Join(words, " "))
	w.space = false
	if trailing {
		w.text.WriteByte(' ')
		w.space = true
	}
}

func (w *bodyWalker) flushText(breaking bool) {
	if w.text.Len() == 0 && !breaking {
		return
	}
	w.runs = append(w.runs, Run{Text: w.text.String(), Bold: w.bold, Italic: w.italic, Break: breaking})
	w.text.Reset()
}

func (w *bodyWalker) breakLine() {
	if w.text.Len() == 0 && len(w.runs) == 0 {
		return
	}
	w.flushText(true)
	w.space = true
}

func (w *bodyWalker) flushParagraph() {
	w.flushText(false)
	w.space = true

	// drop trailing white space and breaks
	for len(w.runs) > 0 {
		last := &w.runs[len(w.runs)-1]
		last.Text = strings.TrimRight(last.Text, " ")
		last.Break = false
		if last.Text != "" {
			break
		}
		w.runs = w.runs[:len(w.runs)-1]
	}
	if len(w.runs) == 0 {
		return
	}
	w.paragraphs = append(w.paragraphs, Paragraph{Align: w.align, Indent: w.indent, Runs: w.runs})
	w.runs = nil
}

func (w *bodyWalker) finish() []Paragraph {
	w.flushParagraph()
	return w.paragraphs
}

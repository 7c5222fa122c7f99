package epub

import (
	"strings"

	"epubcss/utils/debug"
)

// Dump returns human readable description of chapter styles and content.
func (ch *Chapter) Dump() string {
	tw := debug.NewTreeWriter()
	tw.Line(0, "chapter %d %q", ch.Index, ch.Href)
	tw.TextBlock(1, "title", ch.Title)

	for i, t := range ch.External {
		tw.Line(1, "external sheet %d: %d rules", i, t.Len())
		tw.Lines(2, t.String())
	}
	tw.Line(1, "embedded sheet: %d rules (arena %d/%d)", ch.Embedded.Len(), ch.Arena.Used(), ch.Arena.Cap())
	tw.Lines(2, ch.Embedded.String())

	for i, p := range ch.Paragraphs {
		tw.Line(1, "paragraph %d align=%s indent=%s", i, p.Align, p.Indent)
		for _, r := range p.Runs {
			tw.TextBlock(2, runLabel(r), r.Text)
		}
	}
	return tw.String()
}

func runLabel(r Run) string {
	flags := []string{"run"}
	if r.Bold {
		flags = append(flags, "bold")
	}
	if r.Italic {
		flags = append(flags, "italic")
	}
	if r.Break {
		flags = append(flags, "break")
	}
	return strings.Join(flags, " ")
}

package epub

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"epubcss/arena"
	"epubcss/css"
)

// Run is a piece of paragraph text with uniform font.
type Run struct {
	Text   string
	Bold   bool
	Italic bool
	// Break is set when line must be broken after this run.
	Break bool
}

// Paragraph is a block of runs with optional block level styling.
type Paragraph struct {
	Align  css.Optional[css.TextAlign]
	Indent css.Optional[uint8]
	Runs   []Run
}

// Text returns paragraph text without styling.
func (p Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.Runs {
		sb.WriteString(r.Text)
		if r.Break {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Chapter is a single spine document converted to paragraphs.
type Chapter struct {
	Index      int
	Href       string
	Title      string
	Paragraphs []Paragraph

	// Embedded holds rules from <style> elements, External rules from linked
	// stylesheets in link order.
	Embedded *css.Table
	External css.Cascade
	// Arena backs Embedded and is owned by the chapter.
	Arena *arena.Arena
}

// Chapter loads and styles spine document with index i.
func (b *Book) Chapter(ctx context.Context, i int) (*Chapter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(b.Spine) {
		return nil, fmt.Errorf("chapter index %d is out of range [0, %d)", i, len(b.Spine))
	}
	item := b.Spine[i]

	data, ok := b.files[item.Href]
	if !ok {
		return nil, fmt.Errorf("chapter %d: content document %q is missing", i, item.Href)
	}
	root, err := b.parseDocument(data, item.Href)
	if err != nil {
		return nil, fmt.Errorf("chapter %d: %w", i, err)
	}

	ch := &Chapter{
		Index:    i,
		Href:     item.Href,
		Title:    b.titles[item.Href],
		Embedded: &css.Table{},
		Arena:    arena.New(b.opts.ArenaCapacity),
	}

	var body *etree.Element
	for _, el := range root.ChildElements() {
		switch strings.ToLower(el.Tag) {
		case "head":
			b.loadHead(ch, el)
		case "body":
			body = el
		}
	}
	if body == nil {
		b.log.Warn("Content document has no body", zap.String("href", item.Href))
		return ch, nil
	}

	w := bodyWalker{embedded: ch.Embedded, external: ch.External, space: true}
	w.element(body)
	ch.Paragraphs = w.finish()

	b.log.Debug("Loaded chapter",
		zap.Int("index", i),
		zap.String("href", item.Href),
		zap.String("title", ch.Title),
		zap.Int("paragraphs", len(ch.Paragraphs)),
		zap.Int("embedded", ch.Embedded.Len()),
		zap.Int("external", len(ch.External)))
	return ch, nil
}

// parseDocument reads content document as XML first. Documents which are not
// well formed are parsed again with tolerant HTML parser.
func (b *Book) parseDocument(data []byte, href string) (*etree.Element, error) {
	doc := newDocument()
	err := doc.ReadFromBytes(data)
	if err == nil && doc.Root() != nil {
		return doc.Root(), nil
	}
	b.log.Debug("Content document is not well formed XML, using HTML parser", zap.String("href", href), zap.Error(err))

	r, cerr := charset.NewReader(bytes.NewReader(data), "text/html")
	if cerr != nil {
		return nil, fmt.Errorf("unable to detect encoding of %q: %w", href, cerr)
	}
	node, herr := html.Parse(r)
	if herr != nil {
		return nil, fmt.Errorf("unable to parse %q: %w", href, multierr.Append(err, herr))
	}
	root := htmlRoot(node)
	if root == nil {
		return nil, fmt.Errorf("unable to parse %q: no html element", href)
	}
	return fromHTML(root), nil
}

// loadHead collects stylesheets and title from document head.
func (b *Book) loadHead(ch *Chapter, head *etree.Element) {
	var (
		embedded [][]byte
		errs     error
	)
	dir := path.Dir(ch.Href)
	for _, el := range head.ChildElements() {
		switch strings.ToLower(el.Tag) {
		case "title":
			if ch.Title == "" {
				ch.Title = strings.Join(strings.FieldsFunc(el.Text(), isSpace), " ")
			}
		case "style":
			if t := strings.ToLower(el.SelectAttrValue("type", "")); t != "" && t != "text/css" {
				continue
			}
			embedded = append(embedded, []byte(el.Text()))
		case "link":
			if !isStylesheetLink(el) {
				continue
			}
			href, ok := resolveHref(dir, el.SelectAttrValue("href", ""))
			if !ok {
				continue
			}
			table, err := b.linkedSheet(href)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			ch.External = append(ch.External, table)
		}
	}
	if errs != nil {
		b.log.Warn("Some linked stylesheets could not be loaded", zap.String("href", ch.Href), zap.Error(errs))
	}
	if len(embedded) > 0 {
		ch.Embedded = b.parser.Parse(bytes.Join(embedded, []byte("\n")), ch.Arena, ch.Href+"#style")
	}
}

// linkedSheet returns rule table of external stylesheet, parsing it into book
// arena on first use.
func (b *Book) linkedSheet(href string) (*css.Table, error) {
	if t, ok := b.external[href]; ok {
		return t, nil
	}
	data, ok := b.files[href]
	if !ok {
		return nil, fmt.Errorf("stylesheet %q is missing", href)
	}
	if item, ok := b.manifestItem(href); ok && item.MediaType != MediaCSS {
		b.log.Debug("Linked stylesheet has unexpected media type", zap.String("href", href), zap.Stringer("type", item.MediaType))
	}
	t := b.parser.Parse(data, b.sheets, href)
	b.external[href] = t
	return t, nil
}

func (b *Book) manifestItem(href string) (Item, bool) {
	for _, item := range b.Manifest {
		if item.Href == href {
			return item, true
		}
	}
	return Item{}, false
}

func isStylesheetLink(el *etree.Element) bool {
	for rel := range strings.FieldsSeq(el.SelectAttrValue("rel", "")) {
		if strings.EqualFold(rel, "stylesheet") {
			return true
		}
	}
	return false
}

func htmlRoot(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "html" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if r := htmlRoot(c); r != nil {
			return r
		}
	}
	return nil
}

// fromHTML converts HTML node tree to etree so that both parsers feed the
// same body walker.
func fromHTML(n *html.Node) *etree.Element {
	el := etree.NewElement(n.Data)
	for _, a := range n.Attr {
		el.CreateAttr(a.Key, a.Val)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			el.AddChild(fromHTML(c))
		case html.TextNode:
			el.CreateText(c.Data)
		}
	}
	return el
}

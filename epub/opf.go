package epub

import (
	"encoding/xml"
	"fmt"
	"path"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/language"
)

func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Entity:        xml.HTMLEntity,
		ValidateInput: false,
		Permissive:    true,
	}
	return doc
}

// parseContainer returns full-path of the first rootfile listed in
// META-INF/container.xml.
func parseContainer(data []byte) (string, error) {
	doc := newDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return "", fmt.Errorf("unable to parse %s: %w", containerPath, err)
	}
	for _, rf := range doc.FindElements("//rootfile") {
		if p := strings.TrimSpace(rf.SelectAttrValue("full-path", "")); p != "" {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s has no rootfile: %w", containerPath, ErrNoRootfile)
}

// parsePackage fills metadata, manifest and spine from OPF document. Returns
// archive path of NCX if package has one.
func (b *Book) parsePackage(data []byte) (string, error) {
	doc := newDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return "", err
	}
	root := doc.Root()
	if root == nil {
		return "", fmt.Errorf("document has no root element")
	}
	if root.Tag != "package" {
		return "", fmt.Errorf("unexpected root element %q", root.Tag)
	}

	dir := path.Dir(b.Rootfile)

	var spine *etree.Element
	for _, child := range root.ChildElements() {
		switch child.Tag {
		case "metadata":
			b.parseMetadata(child, root.SelectAttrValue("unique-identifier", ""))
		case "manifest":
			b.parseManifest(child, dir)
		case "spine":
			spine = child
		}
	}
	if spine == nil {
		return "", fmt.Errorf("package has no spine")
	}

	for _, ref := range spine.SelectElements("itemref") {
		idref := ref.SelectAttrValue("idref", "")
		item, ok := b.Manifest[idref]
		if !ok {
			b.log.Warn("Spine references missing manifest item, skipping", zap.String("idref", idref))
			continue
		}
		if item.MediaType != MediaXHTML {
			b.log.Debug("Spine item is not XHTML, skipping", zap.String("idref", idref), zap.Stringer("type", item.MediaType))
			continue
		}
		b.Spine = append(b.Spine, item)
	}

	var ncx string
	if id := spine.SelectAttrValue("toc", ""); id != "" {
		if item, ok := b.Manifest[id]; ok {
			ncx = item.Href
		}
	}
	if ncx == "" {
		for _, item := range b.Manifest {
			if item.MediaType == MediaNCX {
				ncx = item.Href
				break
			}
		}
	}
	return ncx, nil
}

func (b *Book) parseMetadata(el *etree.Element, uniqueID string) {
	for _, child := range el.ChildElements() {
		text := strings.TrimSpace(child.Text())
		switch child.Tag {
		case "title":
			if b.Metadata.Title == "" {
				b.Metadata.Title = text
			}
		case "creator":
			if b.Metadata.Author == "" {
				b.Metadata.Author = text
			}
		case "language":
			if b.Metadata.Language != language.Und || text == "" {
				continue
			}
			tag, err := language.Parse(text)
			if err != nil {
				b.log.Warn("Unable to parse book language, ignoring", zap.String("language", text), zap.Error(err))
				continue
			}
			b.Metadata.Language = tag
		case "identifier":
			if text == "" {
				continue
			}
			// identifier referenced by package wins over the first one
			if b.Metadata.ID == "" || (uniqueID != "" && child.SelectAttrValue("id", "") == uniqueID) {
				b.Metadata.ID = text
			}
		}
	}
}

func (b *Book) parseManifest(el *etree.Element, dir string) {
	for _, it := range el.SelectElements("item") {
		id := it.SelectAttrValue("id", "")
		href, ok := resolveHref(dir, it.SelectAttrValue("href", ""))
		if id == "" || !ok {
			b.log.Debug("Manifest item without id or usable href, skipping", zap.String("id", id))
			continue
		}
		b.Manifest[id] = Item{
			ID:        id,
			Href:      href,
			MediaType: mediaTypeOf(it.SelectAttrValue("media-type", "")),
		}
	}
}

// parseNCX maps content documents to navigation labels. When several nav
// points refer to the same document the first one names it.
func (b *Book) parseNCX(data []byte, dir string) error {
	doc := newDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return err
	}
	for _, np := range doc.FindElements("//navPoint") {
		content := np.SelectElement("content")
		if content == nil {
			continue
		}
		href, ok := resolveHref(dir, content.SelectAttrValue("src", ""))
		if !ok {
			continue
		}
		var label string
		if t := np.FindElement("navLabel/text"); t != nil {
			label = strings.Join(strings.Fields(t.Text()), " ")
		}
		if _, exists := b.titles[href]; !exists && label != "" {
			b.titles[href] = label
		}
	}
	return nil
}

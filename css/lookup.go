package css

// Lookup returns attributes of the first rule for class name. Unknown names
// produce empty attributes. Tables are small (single chapter), linear scan is
// fine and does not allocate.
func (t *Table) Lookup(name []byte) Attributes {
	for i := range t.Rules() {
		if t.rules[i].Selector == string(name) {
			return t.rules[i].Attrs
		}
	}
	return Attributes{}
}

// Resolve looks up every space separated class name from classList, left to
// right, and merges results. For each property the rightmost class setting it
// wins.
func (t *Table) Resolve(classList []byte) Attributes {
	var attrs Attributes
	it := newTokens(classList, classSep)
	for it.hasNext() {
		name := it.next()
		if len(name) == 0 {
			continue
		}
		attrs = attrs.Merge(t.Lookup(name))
	}
	return attrs
}

// Cascade is an ordered list of tables, lowest precedence first. A chapter
// linking several stylesheets gets one table per sheet in link order.
type Cascade []*Table

// Resolve merges results of every table in order so later sheets win.
func (c Cascade) Resolve(classList []byte) Attributes {
	var attrs Attributes
	for _, t := range c {
		attrs = attrs.Merge(t.Resolve(classList))
	}
	return attrs
}

// ElementStyle computes effective attributes of a single element. Inline
// style attribute has the highest precedence, then the document embedded
// stylesheet, then external stylesheets.
func ElementStyle(inline, classList []byte, embedded *Table, external Cascade) Attributes {
	attrs := ParseInline(inline)
	if len(classList) == 0 {
		return attrs
	}
	return attrs.Or(embedded.Resolve(classList)).Or(external.Resolve(classList))
}

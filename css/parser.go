package css

import (
	"go.uber.org/zap"

	"epubcss/arena"
)

// Parser builds rule tables and reports what happened while doing it. The
// work itself is done by ParseSheet; Parser only adds logging, canary checks
// and optional linting.
type Parser struct {
	log    *zap.Logger
	lint   bool
	verify bool
}

// WithLint makes Parser log what restricted engine ignores in every parsed
// stylesheet (see Diagnose).
func WithLint(enable bool) func(*Parser) {
	return func(p *Parser) {
		p.lint = enable
	}
}

// WithCanaryCheck makes Parser verify arena checkpoints after every parsed
// stylesheet.
func WithCanaryCheck(enable bool) func(*Parser) {
	return func(p *Parser) {
		p.verify = enable
	}
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger, options ...func(*Parser)) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Parser{log: log.Named("css-parser")}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Parse parses CSS text into rule table allocated from a.
// The optional source parameter identifies what's being parsed (for debug logging).
func (p *Parser) Parse(data []byte, a *arena.Arena, source ...string) *Table {
	var src string
	if len(source) > 0 {
		src = source[0]
	}

	var stats ScanStats
	table := parseSheet(data, a, &stats)

	p.log.Debug("Parsed CSS",
		zap.String("source", src),
		zap.Int("bytes", len(data)),
		zap.Int("filtered", stats.FilteredLen),
		zap.Int("rules", table.Len()),
		zap.Int("at-rules", stats.AtRules),
		zap.Int("not-class", stats.NotClass),
		zap.Int("empty", stats.Empty),
		zap.Int("arena-used", a.Used()),
		zap.Int("arena-cap", a.Cap()))

	if stats.Unfinished {
		p.log.Debug("Stylesheet ends inside of a block, remainder ignored", zap.String("source", src))
	}
	if stats.Rules > table.Len() {
		p.log.Warn("Not enough arena space, styles ignored",
			zap.String("source", src), zap.Int("rules", stats.Rules), zap.Int("kept", table.Len()), zap.Int("arena-cap", a.Cap()))
	}
	if len(data) > 0 && stats.FilteredLen == 0 && a.Remaining() == 0 {
		p.log.Warn("Not enough arena space to filter comments, stylesheet ignored", zap.String("source", src))
	}

	if p.verify {
		if err := a.Verify(); err != nil {
			p.log.Warn("Arena canary check failed", zap.String("source", src), zap.Error(err))
		}
	}
	if p.lint {
		for _, w := range Diagnose(data) {
			p.log.Debug("Ignored by stylesheet engine", zap.String("source", src), zap.Stringer("kind", w.Kind), zap.String("detail", w.Detail))
		}
	}
	return table
}

// Package epub opens EPUB containers and turns spine documents into styled
// paragraphs using restricted stylesheet engine from css package.
package epub

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/language"

	"epubcss/archive"
	"epubcss/arena"
	"epubcss/css"
)

const containerPath = "META-INF/container.xml"

// ErrNoRootfile is returned when container.xml does not point to package
// document or the document is missing.
var ErrNoRootfile = errors.New("epub: package document not found")

// MediaType is the subset of manifest media types the reader distinguishes.
type MediaType int

const (
	MediaOther MediaType = iota
	MediaXHTML
	MediaCSS
	MediaImage
	MediaNCX
)

func (m MediaType) String() string {
	switch m {
	case MediaXHTML:
		return "xhtml"
	case MediaCSS:
		return "css"
	case MediaImage:
		return "image"
	case MediaNCX:
		return "ncx"
	default:
		return "other"
	}
}

func mediaTypeOf(s string) MediaType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "application/xhtml+xml":
		return MediaXHTML
	case "text/css":
		return MediaCSS
	case "image/jpeg", "image/png", "image/gif", "image/svg+xml", "image/webp":
		return MediaImage
	case "application/x-dtbncx+xml":
		return MediaNCX
	default:
		return MediaOther
	}
}

// Item is a single manifest entry. Href is resolved to full archive path.
type Item struct {
	ID        string
	Href      string
	MediaType MediaType
}

// Metadata holds book level information from package document.
type Metadata struct {
	ID       string
	Title    string
	Author   string
	Language language.Tag
}

// Options control resources used while loading chapters.
type Options struct {
	// CodePage is used to decode archive entry names not marked as UTF-8.
	CodePage encoding.Encoding
	// ArenaCapacity is the size of per chapter arena for embedded styles.
	ArenaCapacity int
	// BookArenaCapacity is the size of arena shared by all linked stylesheets.
	BookArenaCapacity int
	VerifyCanaries    bool
	Lint              bool
}

// DefaultOptions are used when Open receives zero capacities.
var DefaultOptions = Options{
	ArenaCapacity:     16 * 1024,
	BookArenaCapacity: 64 * 1024,
}

// Book is an opened EPUB. Archive content is kept in memory, chapters are
// parsed on demand.
type Book struct {
	Path     string
	Rootfile string
	Metadata Metadata
	Manifest map[string]Item
	Spine    []Item

	files  map[string][]byte
	titles map[string]string
	opts   Options
	log    *zap.Logger
	parser *css.Parser

	// linked stylesheets are parsed once per book
	sheets   *arena.Arena
	external map[string]*css.Table
}

// Open reads EPUB from path: locates package document through container.xml,
// parses metadata, manifest, spine and (when present) NCX table of contents.
func Open(ctx context.Context, fname string, opts Options, log *zap.Logger) (*Book, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("epub")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.ArenaCapacity <= 0 {
		opts.ArenaCapacity = DefaultOptions.ArenaCapacity
	}
	if opts.BookArenaCapacity <= 0 {
		opts.BookArenaCapacity = DefaultOptions.BookArenaCapacity
	}

	files, err := archive.ReadAll(fname, "", opts.CodePage, func(name string) bool {
		switch strings.ToLower(path.Ext(name)) {
		case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".ttf", ".otf", ".woff", ".woff2":
			return false
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("unable to read archive %q: %w", fname, err)
	}

	b := &Book{
		Path:     fname,
		Manifest: make(map[string]Item),
		files:    files,
		titles:   make(map[string]string),
		opts:     opts,
		log:      log,
		parser:   css.NewParser(log, css.WithLint(opts.Lint), css.WithCanaryCheck(opts.VerifyCanaries)),
		sheets:   arena.New(opts.BookArenaCapacity),
		external: make(map[string]*css.Table),
	}

	container, ok := files[containerPath]
	if !ok {
		return nil, fmt.Errorf("%s: %w", containerPath, ErrNoRootfile)
	}
	if b.Rootfile, err = parseContainer(container); err != nil {
		return nil, err
	}
	opf, ok := files[b.Rootfile]
	if !ok {
		return nil, fmt.Errorf("%s: %w", b.Rootfile, ErrNoRootfile)
	}
	ncx, err := b.parsePackage(opf)
	if err != nil {
		return nil, fmt.Errorf("unable to parse package document %q: %w", b.Rootfile, err)
	}

	if b.Metadata.ID == "" {
		id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(filepath.Base(fname)))
		b.Metadata.ID = "urn:uuid:" + id.String()
		log.Warn("Book has no identifier, using generated one", zap.String("id", b.Metadata.ID))
	}

	if ncx != "" {
		if data, ok := files[ncx]; ok {
			if err := b.parseNCX(data, path.Dir(ncx)); err != nil {
				log.Warn("Unable to parse NCX, chapter titles will be missing", zap.String("ncx", ncx), zap.Error(err))
			}
		} else {
			log.Warn("NCX is referenced but missing", zap.String("ncx", ncx))
		}
	}

	log.Debug("Opened book",
		zap.String("file", fname),
		zap.String("rootfile", b.Rootfile),
		zap.String("title", b.Metadata.Title),
		zap.Stringer("language", b.Metadata.Language),
		zap.Int("manifest", len(b.Manifest)),
		zap.Int("spine", len(b.Spine)))

	return b, nil
}

// Len returns number of spine items.
func (b *Book) Len() int {
	return len(b.Spine)
}

// SheetArena returns arena holding linked stylesheets of the book.
func (b *Book) SheetArena() *arena.Arena {
	return b.sheets
}

// resolveHref converts href relative to document in dir into archive path.
func resolveHref(dir, href string) (string, bool) {
	if i := strings.IndexAny(href, "#?"); i >= 0 {
		href = href[:i]
	}
	if href == "" {
		return "", false
	}
	if u, err := url.PathUnescape(href); err == nil {
		href = u
	}
	if strings.Contains(href, "://") {
		return "", false
	}
	full := path.Clean(path.Join(dir, href))
	if full == "." || strings.HasPrefix(full, "../") {
		return "", false
	}
	return full, true
}

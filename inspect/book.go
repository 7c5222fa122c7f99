package inspect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gosimple/slug"
	"github.com/h2non/filetype"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"epubcss/epub"
	"epubcss/state"
)

// ErrNotEPUB is returned for input which is not a zip container.
var ErrNotEPUB = errors.New("input is not an EPUB")

// detectEPUB checks file signature. Some tools write mimetype entry
// compressed or not first, such books are only recognized as zip archives.
func detectEPUB(fname string) (bool, error) {
	f, err := os.Open(fname)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	head = head[:n]

	switch {
	case filetype.Is(head, "epub"):
		return true, nil
	case filetype.Is(head, "zip"):
		return false, nil
	}
	return false, fmt.Errorf("%s: %w", fname, ErrNotEPUB)
}

// ChapterReportName builds name under which chapter dump is stored in debug
// report.
func ChapterReportName(ch *epub.Chapter) string {
	name := ch.Title
	if name == "" {
		name = ch.Href
	}
	return fmt.Sprintf("chapters/%03d-%s.txt", ch.Index, slug.Make(name))
}

// BookOptions controls WriteBook.
type BookOptions struct {
	// Chapter selects single spine item, negative value means all.
	Chapter int
}

// WriteBook writes book metadata and dumps of requested chapters. Every
// dump is also stored in debug report when one is requested.
func WriteBook(ctx context.Context, w io.Writer, b *epub.Book, opts BookOptions, env *state.LocalEnv) error {
	md := b.Metadata
	if _, err := fmt.Fprintf(w, "book %q by %q (%s) id=%s chapters=%d\n", md.Title, md.Author, md.Language, md.ID, b.Len()); err != nil {
		return err
	}

	first, last := 0, b.Len()
	if opts.Chapter >= 0 {
		if opts.Chapter >= b.Len() {
			return fmt.Errorf("chapter %d requested, book has %d", opts.Chapter, b.Len())
		}
		first, last = opts.Chapter, opts.Chapter+1
	}

	for i := first; i < last; i++ {
		ch, err := b.Chapter(ctx, i)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			env.Logger().Warn("Unable to load chapter, skipping", zap.Int("index", i), zap.Error(err))
			continue
		}
		dump := ch.Dump()
		env.Rpt.StoreData(ChapterReportName(ch), []byte(dump))
		if _, err := io.WriteString(w, dump); err != nil {
			return err
		}
	}
	return nil
}

// Book is the "book" subcommand action.
func Book(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Logger()

	if cmd.Args().Len() == 0 {
		return fmt.Errorf("no book specified")
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many arguments", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}
	fname := cmd.Args().Get(0)

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	if cp := cmd.String("force-zip-cp"); len(cp) > 0 {
		enc, err := ianaindex.IANA.Encoding(cp)
		if err != nil || enc == nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
		} else {
			env.CodePage = enc
			n, _ := ianaindex.IANA.Name(enc)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	isEPUB, err := detectEPUB(fname)
	if err != nil {
		return err
	}
	if !isEPUB {
		log.Warn("Container does not start with EPUB mimetype, trying anyway", zap.String("file", fname))
	}

	b, err := epub.Open(ctx, fname, epub.Options{
		CodePage:          env.CodePage,
		ArenaCapacity:     env.Cfg.Style.ArenaCapacity,
		BookArenaCapacity: env.Cfg.Style.BookArenaCapacity,
		VerifyCanaries:    env.Cfg.Style.VerifyCanaries,
		Lint:              env.Cfg.Style.Lint || cmd.Bool("lint"),
	}, log)
	if err != nil {
		return fmt.Errorf("unable to open book: %w", err)
	}
	env.Rpt.Store("book/"+filepath.Base(fname), fname)

	chapter := -1
	if cmd.IsSet("chapter") {
		chapter = int(cmd.Int("chapter"))
	}
	return WriteBook(ctx, cmd.Root().Writer, b, BookOptions{Chapter: chapter}, env)
}

// Package archive builds Walk abstraction on top of zip reader used for
// e-book containers.
package archive

import (
	"fmt"
	"io"
	"path"
	"strings"

	fixzip "github.com/hidez8891/zip"
	"golang.org/x/text/encoding"
)

// flagUTF8 is general purpose bit 11: file name is UTF-8 encoded.
const flagUTF8 = 0x800

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. The archive argument contains path to archive passed to
// Walk, name is the (possibly decoded) entry name and file is the entry
// itself. If an error is returned, processing stops.
type WalkFunc func(archive, name string, file *fixzip.File) error

// Walk walks the all files in the archive with names starting with prefix,
// calling walkFn for each item. Names not marked as UTF-8 are converted with
// cp when it is not nil. Entries with path traversal components ("..") or
// absolute paths fail the walk to prevent Zip Slip attacks.
func Walk(archive, prefix string, cp encoding.Encoding, walkFn WalkFunc) error {

	r, err := fixzip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		name := entryName(f, cp)
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if !f.FileInfo().IsDir() && strings.HasPrefix(name, prefix) {
			if err := walkFn(archive, name, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadAll loads content of every file under prefix accepted by match (nil
// accepts everything) into memory, keyed by entry name.
func ReadAll(archive, prefix string, cp encoding.Encoding, match func(name string) bool) (map[string][]byte, error) {
	files := make(map[string][]byte)
	err := Walk(archive, prefix, cp, func(_, name string, f *fixzip.File) error {
		if match != nil && !match(name) {
			return nil
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("unable to open zip entry %q: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return fmt.Errorf("unable to read zip entry %q: %w", name, err)
		}
		files[name] = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func entryName(f *fixzip.File, cp encoding.Encoding) string {
	if cp == nil || f.Flags&flagUTF8 != 0 {
		return f.Name
	}
	if n, err := cp.NewDecoder().String(f.Name); err == nil {
		return n
	}
	return f.Name
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for part := range strings.SplitSeq(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

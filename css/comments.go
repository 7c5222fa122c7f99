package css

import (
	"bytes"

	parse "github.com/tdewolff/parse/v2"

	"epubcss/arena"
)

var (
	commentOpen  = []byte("/*")
	commentClose = []byte("*/")
)

// filterComments walks sheet removing comments. When dst is nil it only
// measures, otherwise dst must be exactly as long as the measured result.
// Text around every comment is trimmed so segments are joined without the
// whitespace that surrounded the comment. An unterminated comment drops
// everything after it.
func filterComments(sheet, dst []byte) int {
	length := 0
	emit := func(segment []byte) {
		length += len(segment)
		if dst != nil {
			dst = dst[copy(dst, segment):]
		}
	}

	for len(sheet) > 0 {
		start := bytes.Index(sheet, commentOpen)
		if start < 0 {
			emit(sheet)
			break
		}
		emit(parse.TrimWhitespace(sheet[:start]))

		sheet = sheet[start+len(commentOpen):]
		end := bytes.Index(sheet, commentClose)
		if end < 0 {
			break
		}
		sheet = parse.TrimWhitespace(sheet[end+len(commentClose):])
	}
	return length
}

// FilterComments returns sheet with all /* */ comments removed. Input without
// comments is returned as is, no copy is made. Otherwise exactly the needed
// number of bytes is taken from a. Exhausted arena produces empty result.
func FilterComments(sheet []byte, a *arena.Arena) []byte {
	if bytes.Index(sheet, commentOpen) < 0 {
		return sheet
	}
	length := filterComments(sheet, nil)
	if length == 0 {
		return nil
	}
	buf := a.AllocBytes(length)
	if buf == nil {
		return nil
	}
	filterComments(sheet, buf)
	return buf
}

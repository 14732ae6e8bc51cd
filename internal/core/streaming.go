package core

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

// utf8BOM is the byte order mark some Windows programs write before CSV data.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader drops a leading UTF-8 byte order mark. Any other
// leading bytes, including a partial mark, are passed through.
type BOMSkippingReader struct {
	br      *bufio.Reader
	checked bool
}

// NewBOMSkippingReader wraps r.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{br: bufio.NewReader(r)}
}

func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		if head, _ := r.br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
			_, _ = r.br.Discard(len(utf8BOM))
		}
	}
	return r.br.Read(p)
}

// sanitizeChunk is how many source bytes are sanitized per fill.
const sanitizeChunk = 32 << 10

// StreamingUTF8Sanitizer replaces every byte that is not part of a valid
// UTF-8 sequence with '?'. Runes split across reads of the source are
// reassembled before they are judged.
type StreamingUTF8Sanitizer struct {
	src  io.Reader
	in   []byte // raw input; the first keep bytes are an unfinished rune
	keep int
	buf  []byte
	out  []byte // sanitized bytes not yet returned
	err  error
}

// NewStreamingUTF8Sanitizer wraps r.
func NewStreamingUTF8Sanitizer(r io.Reader) *StreamingUTF8Sanitizer {
	return &StreamingUTF8Sanitizer{
		src: r,
		in:  make([]byte, sanitizeChunk+utf8.UTFMax),
	}
}

func (s *StreamingUTF8Sanitizer) Read(p []byte) (int, error) {
	for len(s.out) == 0 && s.err == nil {
		s.fill()
	}
	if len(s.out) == 0 {
		return 0, s.err
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// fill reads once from the source and sanitizes what it got. Until the
// source ends, a trailing unfinished rune is held back for the next fill.
func (s *StreamingUTF8Sanitizer) fill() {
	n, err := s.src.Read(s.in[s.keep:])
	data := s.in[:s.keep+n]
	s.err = err
	final := err != nil

	s.buf = s.buf[:0]
	i := 0
	for i < len(data) {
		if !final && !utf8.FullRune(data[i:]) {
			break
		}
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			s.buf = append(s.buf, '?')
		} else {
			s.buf = append(s.buf, data[i:i+size]...)
		}
		i += size
	}
	s.keep = copy(s.in, data[i:])
	s.out = s.buf
}

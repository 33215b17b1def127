package pdfparser

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"jamledger/stmt-ingest/internal/parsererror"

	"github.com/dslipak/pdf"
)

// Word is a run of glyphs on one baseline. X and Y are PDF user-space coordinates of
// the word's left edge and baseline (origin bottom-left); W is its width.
type Word struct {
	Text string
	X    float64
	Y    float64
	W    float64
}

// Right returns the x coordinate of the word's right edge.
func (w Word) Right() float64 { return w.X + w.W }

// Document is a paginated source of positioned words. Pages are 1-based.
type Document interface {
	NumPage() int
	Page(n int) ([]Word, error)
}

// pdfMagic is the header every PDF file starts with.
var pdfMagic = []byte("%PDF-")

// IsPDF reports whether head starts with the PDF header.
func IsPDF(head []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(head, "\x00\t\r\n "), pdfMagic)
}

// File is a Document backed by an open PDF file.
type File struct {
	*readerDocument
	f *os.File
}

// OpenDocument opens the PDF at path. The caller must Close it.
func OpenDocument(path string) (*File, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from the operator or a spooled upload
	if err != nil {
		return nil, fmt.Errorf("error opening PDF file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("error reading PDF file info: %w", err)
	}
	doc, err := newReaderDocument(path, f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &File{readerDocument: doc, f: f}, nil
}

// Close releases the underlying file.
func (f *File) Close() error {
	return f.f.Close()
}

// NewDocument reads a PDF from r. r must stay readable while the Document is in use.
func NewDocument(r io.ReaderAt, size int64) (Document, error) {
	return newReaderDocument("", r, size)
}

type readerDocument struct {
	path   string
	reader *pdf.Reader
}

func newReaderDocument(path string, r io.ReaderAt, size int64) (doc *readerDocument, err error) {
	head := make([]byte, 16)
	n, _ := r.ReadAt(head, 0)
	if !IsPDF(head[:n]) {
		return nil, &parsererror.ExtractionError{FilePath: path, Err: parsererror.ErrNotPDF}
	}

	defer func() {
		if rec := recover(); rec != nil {
			doc = nil
			err = &parsererror.ExtractionError{FilePath: path, Err: fmt.Errorf("corrupt document: %v", rec)}
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, &parsererror.ExtractionError{FilePath: path, Err: err}
	}
	return &readerDocument{path: path, reader: reader}, nil
}

func (d *readerDocument) NumPage() (n int) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	return d.reader.NumPage()
}

// Page returns the words on page n. Corrupt page content surfaces as an
// ExtractionError rather than a panic.
func (d *readerDocument) Page(n int) (words []Word, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			words = nil
			err = &parsererror.ExtractionError{FilePath: d.path, Page: n, Err: fmt.Errorf("corrupt page content: %v", rec)}
		}
	}()

	p := d.reader.Page(n)
	if p.V.IsNull() {
		return nil, &parsererror.ExtractionError{FilePath: d.path, Page: n, Err: fmt.Errorf("page not found")}
	}

	content := p.Content()
	glyphs := make([]pdf.Text, 0, len(content.Text))
	glyphs = append(glyphs, content.Text...)
	return mergeGlyphs(glyphs), nil
}

// mergeGlyphs joins glyphs that sit on the same baseline and touch horizontally into
// words. Whitespace glyphs and gaps wider than a fraction of the font size end a word.
func mergeGlyphs(glyphs []pdf.Text) []Word {
	const baselineTolerance = 0.5

	sort.SliceStable(glyphs, func(i, j int) bool {
		if math.Abs(glyphs[i].Y-glyphs[j].Y) > baselineTolerance {
			return glyphs[i].Y > glyphs[j].Y
		}
		return glyphs[i].X < glyphs[j].X
	})

	var (
		words []Word
		cur   strings.Builder
		start pdf.Text
		right float64
		open  bool
	)
	flush := func() {
		if open && strings.TrimSpace(cur.String()) != "" {
			words = append(words, Word{
				Text: strings.TrimSpace(cur.String()),
				X:    start.X,
				Y:    start.Y,
				W:    right - start.X,
			})
		}
		cur.Reset()
		open = false
	}

	for _, g := range glyphs {
		if strings.TrimSpace(g.S) == "" {
			flush()
			continue
		}
		if open {
			gap := g.X - right
			maxGap := math.Max(1.0, g.FontSize*0.25)
			if math.Abs(g.Y-start.Y) > baselineTolerance || gap > maxGap {
				flush()
			}
		}
		if !open {
			start = g
			open = true
			right = g.X + g.W
		}
		cur.WriteString(g.S)
		right = math.Max(right, g.X+g.W)
	}
	flush()
	return words
}

package pdfparser

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"jamledger/stmt-ingest/internal/logging"
	"jamledger/stmt-ingest/internal/models"
	"jamledger/stmt-ingest/internal/parsererror"
)

// Region is a rectangle in PDF points: (X1, Y1) is the top-left corner and (X2, Y2)
// the bottom-right, with Y growing upwards as in PDF user space.
type Region struct {
	X1, Y1, X2, Y2 float64
}

// DefaultRegion is the transaction table area of the supported statements.
var DefaultRegion = Region{X1: 30, Y1: 630, X2: 600, Y2: 60}

// Contains reports whether a word's left edge and baseline fall inside the region.
func (r Region) Contains(w Word) bool {
	return w.X >= r.X1 && w.X <= r.X2 && w.Y <= r.Y1 && w.Y >= r.Y2
}

// Valid reports whether the corners are ordered.
func (r Region) Valid() bool {
	return r.X1 < r.X2 && r.Y1 > r.Y2
}

// RegionFromSlice builds a Region from x1, y1, x2, y2.
func RegionFromSlice(v []float64) (Region, error) {
	if len(v) != 4 {
		return Region{}, fmt.Errorf("table area needs 4 coordinates, got %d", len(v))
	}
	r := Region{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}
	if !r.Valid() {
		return Region{}, fmt.Errorf("table area %v is not top-left/bottom-right ordered", v)
	}
	return r, nil
}

// Defaults for TableExtractor.
const (
	DefaultSkipLeading   = 1
	DefaultSkipTrailing  = 2
	DefaultLineTolerance = 2.0
	DefaultColumnGap     = 8.0
	// DefaultMinColumns is the width of the supported layout: date, description,
	// credit, debit and balance.
	DefaultMinColumns = 5
)

// TableExtractor turns the table region of each usable page into raw rows.
type TableExtractor struct {
	// Area bounds the table on every page.
	Area Region
	// SkipLeading and SkipTrailing exclude front and back matter pages.
	SkipLeading  int
	SkipTrailing int
	// LineTolerance is the largest baseline difference, in points, between words on
	// the same physical line.
	LineTolerance float64
	// ColumnGap is the smallest horizontal gap that separates inferred columns.
	ColumnGap float64
	// Columns optionally fixes the x positions separating columns. When empty,
	// columns are inferred once from the words of every usable page.
	Columns []float64
	// MinColumns is the fewest columns the table may have. A narrower table is
	// rejected, since a missing column would shift every cell to its right.
	MinColumns int

	logger logging.Logger
}

// NewTableExtractor returns a TableExtractor with the default layout.
func NewTableExtractor(logger logging.Logger) *TableExtractor {
	return &TableExtractor{
		Area:          DefaultRegion,
		SkipLeading:   DefaultSkipLeading,
		SkipTrailing:  DefaultSkipTrailing,
		LineTolerance: DefaultLineTolerance,
		ColumnGap:     DefaultColumnGap,
		MinColumns:    DefaultMinColumns,
		logger:        logger,
	}
}

// SetLogger replaces the extractor's logger.
func (e *TableExtractor) SetLogger(logger logging.Logger) {
	e.logger = logger
}

// PageRange returns the first and last usable page, 1-based and inclusive.
// ok is false when the margins leave nothing to read.
func (e *TableExtractor) PageRange(numPages int) (first, last int, ok bool) {
	first = e.SkipLeading + 1
	last = numPages - e.SkipTrailing
	if first < 1 {
		first = 1
	}
	return first, last, first <= last
}

// Extract returns the reconciled rows of every usable page in document order.
// A document shorter than the page margins yields no rows and no error. Column
// separators are shared by all pages, so a column left empty on one page keeps its
// position.
func (e *TableExtractor) Extract(ctx context.Context, doc Document) ([]models.RawRow, error) {
	log := logging.OrDefault(e.logger)

	first, last, ok := e.PageRange(doc.NumPage())
	if !ok {
		log.Info("No usable pages in document",
			logging.Field{Key: "pages", Value: doc.NumPage()},
			logging.Field{Key: "skip_leading", Value: e.SkipLeading},
			logging.Field{Key: "skip_trailing", Value: e.SkipTrailing})
		return []models.RawRow{}, nil
	}

	pages := make([][]Word, 0, last-first+1)
	var all []Word
	for n := first; n <= last; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		words, err := doc.Page(n)
		if err != nil {
			return nil, err
		}
		inside := e.tableWords(words)
		pages = append(pages, inside)
		all = append(all, inside...)
	}

	rows := []models.RawRow{}
	if len(all) == 0 {
		return rows, nil
	}
	bounds, err := e.columnBounds(all)
	if err != nil {
		return nil, err
	}

	for i, words := range pages {
		lines := pageLines(words, bounds, e.tolerance())
		reconciled := ReconcileRows(lines)
		log.Debug("Extracted page table",
			logging.Field{Key: logging.FieldPage, Value: first + i},
			logging.Field{Key: "lines", Value: len(lines)},
			logging.Field{Key: logging.FieldCount, Value: len(reconciled)})
		rows = append(rows, reconciled...)
	}

	log.Info("Extracted statement table",
		logging.Field{Key: "first_page", Value: first},
		logging.Field{Key: "last_page", Value: last},
		logging.Field{Key: "columns", Value: len(bounds) + 1},
		logging.Field{Key: logging.FieldCount, Value: len(rows)})
	return rows, nil
}

// tableWords keeps the words inside the table area.
func (e *TableExtractor) tableWords(words []Word) []Word {
	inside := make([]Word, 0, len(words))
	for _, w := range words {
		if e.Area.Contains(w) {
			inside = append(inside, w)
		}
	}
	return inside
}

// columnBounds returns the sorted column separators: the configured ones, or those
// inferred from words. It fails when they describe fewer than MinColumns columns.
func (e *TableExtractor) columnBounds(words []Word) ([]float64, error) {
	var bounds []float64
	if len(e.Columns) > 0 {
		bounds = append(bounds, e.Columns...)
		sort.Float64s(bounds)
	} else {
		bounds = inferColumns(words, e.gap())
	}
	if len(bounds)+1 < e.MinColumns {
		return nil, &parsererror.InvalidFormatError{
			ExpectedFormat: fmt.Sprintf("statement table with %d columns", e.MinColumns),
			Msg: fmt.Sprintf("found %d columns; set pdf.columns to the separator positions of this layout",
				len(bounds)+1),
		}
	}
	return bounds, nil
}

// pageLines groups the words of one page into physical lines split into cells.
func pageLines(words []Word, bounds []float64, tol float64) []models.RawRow {
	if len(words) == 0 {
		return nil
	}
	lines := groupLines(words, tol)

	rows := make([]models.RawRow, 0, len(lines))
	for _, line := range lines {
		row := make(models.RawRow, len(bounds)+1)
		for _, w := range line {
			col := sort.SearchFloat64s(bounds, w.X)
			// SearchFloat64s returns the first separator >= X; a word starting exactly
			// on a separator belongs to the column on its right.
			if col < len(bounds) && bounds[col] == w.X {
				col++
			}
			row[col] = joinCell(row[col], w.Text)
		}
		rows = append(rows, row)
	}
	return rows
}

func (e *TableExtractor) tolerance() float64 {
	if e.LineTolerance <= 0 {
		return DefaultLineTolerance
	}
	return e.LineTolerance
}

func (e *TableExtractor) gap() float64 {
	if e.ColumnGap <= 0 {
		return DefaultColumnGap
	}
	return e.ColumnGap
}

// groupLines sorts words top to bottom and clusters baselines within tol. Words on a
// line are ordered left to right.
func groupLines(words []Word, tol float64) [][]Word {
	sorted := make([]Word, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Y > sorted[j].Y
	})

	var lines [][]Word
	var anchor float64
	for _, w := range sorted {
		if len(lines) == 0 || math.Abs(anchor-w.Y) > tol {
			lines = append(lines, []Word{w})
			anchor = w.Y
			continue
		}
		lines[len(lines)-1] = append(lines[len(lines)-1], w)
	}

	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })
	}
	return lines
}

// inferColumns merges the horizontal extents of words and returns the
// midpoints of gaps at least minGap wide as column separators.
func inferColumns(words []Word, minGap float64) []float64 {
	type span struct{ lo, hi float64 }

	spans := make([]span, 0, len(words))
	for _, w := range words {
		spans = append(spans, span{lo: w.X, hi: w.Right()})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].lo < spans[j].lo })

	merged := []span{spans[0]}
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.lo-last.hi < minGap {
			last.hi = math.Max(last.hi, s.hi)
			continue
		}
		merged = append(merged, s)
	}

	bounds := make([]float64, 0, len(merged)-1)
	for i := 1; i < len(merged); i++ {
		bounds = append(bounds, (merged[i-1].hi+merged[i].lo)/2)
	}
	return bounds
}

// ReconcileRows folds continuation lines into logical rows. A line whose first cell is
// non-empty starts a new row; a line whose first cell is empty appends each of its
// non-empty cells, space-joined, to the same column of the current row. Continuation
// lines before the first row are dropped.
func ReconcileRows(lines []models.RawRow) []models.RawRow {
	rows := make([]models.RawRow, 0, len(lines))
	for _, line := range lines {
		if line.Cell(0) != "" {
			row := make(models.RawRow, len(line))
			for i := range line {
				row[i] = line.Cell(i)
			}
			rows = append(rows, row)
			continue
		}
		if len(rows) == 0 {
			continue
		}
		cur := rows[len(rows)-1]
		for i := range line {
			v := line.Cell(i)
			if v == "" {
				continue
			}
			for len(cur) <= i {
				cur = append(cur, "")
			}
			cur[i] = joinCell(cur[i], v)
		}
		rows[len(rows)-1] = cur
	}
	return rows
}

func joinCell(cell, text string) string {
	if cell == "" {
		return text
	}
	return cell + " " + strings.TrimSpace(text)
}

// Package workbook is the collaborator boundary for pre-parsed
// spreadsheet data. A Sheet exposes a header row and data rows;
// consumers iterate until the first fully-empty row, which marks
// end-of-data.
package workbook

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Sheet is one worksheet of cell values. Cells are raw strings;
// an empty string is a blank cell.
type Sheet interface {
	Title() string
	Header() []string
	Rows() Iterator
}

// Iterator walks data rows, excluding the header.
type Iterator interface {
	Next() ([]string, bool)
}

// Grid is an in-memory Sheet. The first row is the header.
type Grid struct {
	Name  string
	Cells [][]string
}

func (g *Grid) Title() string {
	return g.Name
}

func (g *Grid) Header() []string {
	if len(g.Cells) == 0 {
		return nil
	}
	return g.Cells[0]
}

func (g *Grid) Rows() Iterator {
	return &gridIterator{grid: g, next: 1}
}

type gridIterator struct {
	grid *Grid
	next int
}

func (it *gridIterator) Next() ([]string, bool) {
	if it.next >= len(it.grid.Cells) {
		return nil, false
	}
	row := it.grid.Cells[it.next]
	it.next++
	return row, true
}

// DataRows yields rows from the iterator until exhaustion or the
// first fully-empty row, whichever comes first.
func DataRows(it Iterator, fn func(row []string) error) error {
	for {
		row, ok := it.Next()
		if !ok || Empty(row) {
			return nil
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// Empty reports whether every cell of the row is blank.
func Empty(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

// Open reads a CSV file into a Grid sheet titled after the file.
func Open(path string) (Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open workbook")
	}
	defer f.Close()

	return Read(f, path)
}

// Read parses CSV content into a Grid sheet.
func Read(r io.Reader, title string) (Sheet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	cells, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read workbook")
	}

	return &Grid{Name: title, Cells: cells}, nil
}

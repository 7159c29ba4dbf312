package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/folio/internal/doctree"
	"golang.org/x/text/unicode/norm"
)

// CSVParser renders CSV files as a single table. The first row is the header.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	ch := newChapter(strings.TrimSuffix(filename, ".csv"))
	if len(records) == 0 {
		return ch.doc, nil
	}

	table := doctree.NewElement("table")
	thead := doctree.NewElement("thead")
	tbody := doctree.NewElement("tbody")
	table.AppendChild(thead)
	table.AppendChild(tbody)

	thead.AppendChild(row("th", records[0]))
	for _, rec := range records[1:] {
		tbody.AppendChild(row("td", rec))
	}
	ch.append(table)
	return ch.doc, nil
}

func row(cellTag string, cells []string) *doctree.Node {
	tr := doctree.NewElement("tr")
	for _, cell := range cells {
		c := doctree.NewElement(cellTag)
		c.AppendChild(doctree.NewText(norm.NFC.String(cell)))
		tr.AppendChild(c)
	}
	return tr
}

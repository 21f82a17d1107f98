package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/personabot/internal/corpus"
)

var (
	csvTextColumns    = []string{"content", "text", "message", "body"}
	csvAuthorColumns  = []string{"author", "user", "username", "name", "sender"}
	csvChannelColumns = []string{"channel", "room"}
)

// CSVParser handles CSV chat exports. The first row is a header; the message
// column is required, author and channel columns are optional.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*corpus.Corpus, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	c := &corpus.Corpus{Source: sourceName(filename)}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	textCol := findColumn(header, csvTextColumns)
	if textCol < 0 {
		return nil, fmt.Errorf("parse csv: no message column (want one of %s)", strings.Join(csvTextColumns, ", "))
	}
	authorCol := findColumn(header, csvAuthorColumns)
	channelCol := findColumn(header, csvChannelColumns)

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		c.Add(corpus.Message{
			Text:    cell(row, textCol),
			Author:  cell(row, authorCol),
			Channel: cell(row, channelCol),
		})
	}
	return c, nil
}

// findColumn returns the index of the first header matching any name, in
// name priority order.
func findColumn(header, names []string) int {
	for _, name := range names {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), name) {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

package parser

import (
	"bufio"
	"io"

	"github.com/dgallion1/personabot/internal/corpus"
)

// TextParser handles plain text logs: one message per non-blank line, with
// an optional "author: " prefix.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*corpus.Corpus, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	c := &corpus.Corpus{Source: sourceName(filename)}
	for scanner.Scan() {
		addLines(c, scanner.Text(), "", 0)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/personabot/internal/corpus"
)

const pdftotextTimeout = 60 * time.Second

// PDFParser handles PDF transcripts, one message per non-blank line tagged
// with its page. Pages the Go reader cannot decode are retried with the
// pdftotext binary when FallbackPdftotext is set.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*corpus.Corpus, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	pages, err := pdfPages(data)
	if err != nil && p.FallbackPdftotext {
		pages, err = pdftotextPages(data)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	c := &corpus.Corpus{Source: sourceName(filename)}
	for i, page := range pages {
		addLines(c, page, "", i+1)
	}
	return c, nil
}

// pdfPages returns the plain text of each page. Undecodable pages are
// empty so page numbers stay aligned.
func pdfPages(data []byte) ([]string, error) {
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	n := reader.NumPage()
	pages := make([]string, n)
	decoded := 0
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages[i-1] = text
		decoded++
	}
	if n > 0 && decoded == 0 {
		return nil, fmt.Errorf("no decodable pages out of %d", n)
	}
	return pages, nil
}

// pdftotextPages pipes the document through pdftotext. Its output separates
// pages with form feeds.
func pdftotextPages(data []byte) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), pdftotextTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", "-", "-")
	cmd.Stdin = bytes.NewReader(data)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return strings.Split(strings.TrimSuffix(string(out), "\f"), "\f"), nil
}

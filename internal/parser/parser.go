package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dgallion1/personabot/internal/corpus"
)

// Parser converts raw export bytes into a Corpus.
type Parser interface {
	Parse(r io.Reader, filename string) (*corpus.Corpus, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
	".json":     true,
}

// Options tunes parsers that shell out or need extra behavior.
type Options struct {
	PDFFallbackPdftotext bool
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	return ForFileWithOptions(filename, Options{})
}

// ForFileWithOptions is ForFile with parser options applied.
func ForFileWithOptions(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	case ".json":
		return &JSONParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// sourceName strips the extension from a filename.
func sourceName(filename string) string {
	return strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
}

// authorPrefix matches "name: text" and "name：text". The name has no spaces,
// so URLs and sentences with colons are left alone.
var authorPrefix = regexp.MustCompile(`^([^\s:：]{1,32})(?::\s+|：\s*)(.+)$`)

// splitAuthor separates an optional author prefix from a line.
func splitAuthor(line string) (author, text string) {
	line = strings.TrimSpace(line)
	if m := authorPrefix.FindStringSubmatch(line); m != nil {
		return m[1], strings.TrimSpace(m[2])
	}
	return "", line
}

// addLines adds each non-blank line of block as a message.
func addLines(c *corpus.Corpus, block, channel string, page int) {
	for _, line := range strings.Split(block, "\n") {
		author, text := splitAuthor(line)
		c.Add(corpus.Message{Text: text, Author: author, Channel: channel, Page: page})
	}
}

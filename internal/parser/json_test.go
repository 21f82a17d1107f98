package parser

import (
	"fmt"
	"strings"
	"testing"
)

func TestJSONParser_Objects(t *testing.T) {
	input := `[
  {"text": "おはようございます！", "author": "tanaka", "channel": "general"},
  {"content": "了解です。", "user": "suzuki"},
  {"text": "", "author": "sato"},
  {"text": "埋め込み付き", "embedding": [0.1, 0.2]}
]`
	p := &JSONParser{}
	c, err := p.Parse(strings.NewReader(input), "export.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("expected 3 messages, got %d", c.Len())
	}
	if c.Messages[1].Author != "suzuki" || c.Messages[1].Text != "了解です。" {
		t.Errorf("unexpected message: %+v", c.Messages[1])
	}
	if c.Messages[0].Channel != "general" {
		t.Errorf("expected channel %q, got %q", "general", c.Messages[0].Channel)
	}
}

func TestJSONParser_Strings(t *testing.T) {
	p := &JSONParser{}
	c, err := p.Parse(strings.NewReader(`["a", " ", "b"]`), "list.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := c.Texts(""); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("expected [a b], got %v", got)
	}
}

func TestJSONParser_NotAnArray(t *testing.T) {
	p := &JSONParser{}
	if _, err := p.Parse(strings.NewReader(`{"text": "x"}`), "bad.json"); err == nil {
		t.Fatal("expected error for non-array json")
	}
}

func TestForFile(t *testing.T) {
	cases := map[string]string{
		"a.txt":      "*parser.TextParser",
		"a.MD":       "*parser.MarkdownParser",
		"a.markdown": "*parser.MarkdownParser",
		"a.csv":      "*parser.CSVParser",
		"a.htm":      "*parser.HTMLParser",
		"a.pdf":      "*parser.PDFParser",
		"a.docx":     "*parser.DOCXParser",
		"a.json":     "*parser.JSONParser",
	}
	for name, want := range cases {
		p, err := ForFile(name)
		if err != nil {
			t.Fatalf("ForFile(%q): %v", name, err)
		}
		if got := typeName(p); got != want {
			t.Errorf("ForFile(%q): expected %s, got %s", name, want, got)
		}
		if !IsSupportedExtension(name) {
			t.Errorf("expected %q to be supported", name)
		}
	}
	if _, err := ForFile("a.exe"); err == nil {
		t.Error("expected error for unsupported extension")
	}

	p, _ := ForFileWithOptions("scan.pdf", Options{PDFFallbackPdftotext: true})
	if !p.(*PDFParser).FallbackPdftotext {
		t.Error("expected pdftotext fallback to be enabled")
	}
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}

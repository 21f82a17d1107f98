package corpus

import "testing"

func TestCorpus_AddDropsBlank(t *testing.T) {
	var c Corpus
	c.Add(Message{Text: "  おはよう  ", Author: " tanaka "})
	c.Add(Message{Text: "   "})
	if c.Len() != 1 {
		t.Fatalf("expected 1 message, got %d", c.Len())
	}
	if c.Messages[0].Text != "おはよう" || c.Messages[0].Author != "tanaka" {
		t.Errorf("expected trimmed message, got %+v", c.Messages[0])
	}
}

func TestCorpus_TextsFiltersByAuthor(t *testing.T) {
	var c Corpus
	c.Add(Message{Text: "a", Author: "Tanaka"})
	c.Add(Message{Text: "b", Author: "suzuki"})
	c.Add(Message{Text: "c", Author: "tanaka"})
	c.Add(Message{Text: "d"})

	all := c.Texts("")
	if len(all) != 4 {
		t.Fatalf("expected 4 texts, got %d", len(all))
	}
	got := c.Texts("TANAKA")
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("expected [a c], got %v", got)
	}
}

func TestCorpus_Authors(t *testing.T) {
	var c Corpus
	c.Add(Message{Text: "a", Author: "tanaka"})
	c.Add(Message{Text: "b"})
	c.Add(Message{Text: "c", Author: "suzuki"})
	c.Add(Message{Text: "d", Author: "tanaka"})

	got := c.Authors()
	if len(got) != 2 || got[0] != "tanaka" || got[1] != "suzuki" {
		t.Errorf("expected [tanaka suzuki], got %v", got)
	}
}

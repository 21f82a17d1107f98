package corpus

import "strings"

// Corpus is a parsed chat export or transcript.
type Corpus struct {
	Source   string    // Export name (from metadata or filename)
	Messages []Message // In source order
}

// Message is one utterance from the source.
type Message struct {
	Text    string
	Author  string // Empty when the format carries no author
	Channel string // Section, heading or channel name (empty if N/A)
	Page    int    // Source page (0 if N/A)
}

// Add appends a message, dropping blank text.
func (c *Corpus) Add(m Message) {
	m.Text = strings.TrimSpace(m.Text)
	if m.Text == "" {
		return
	}
	m.Author = strings.TrimSpace(m.Author)
	m.Channel = strings.TrimSpace(m.Channel)
	c.Messages = append(c.Messages, m)
}

// Len returns the number of messages.
func (c *Corpus) Len() int { return len(c.Messages) }

// ByAuthor returns the messages of one author, or all messages when author
// is empty. Author matching ignores case.
func (c *Corpus) ByAuthor(author string) []Message {
	author = strings.TrimSpace(author)
	out := make([]Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		if author != "" && !strings.EqualFold(m.Author, author) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Texts returns the text of ByAuthor(author).
func (c *Corpus) Texts(author string) []string {
	msgs := c.ByAuthor(author)
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

// Authors lists distinct authors in order of first appearance.
func (c *Corpus) Authors() []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range c.Messages {
		if m.Author == "" || seen[m.Author] {
			continue
		}
		seen[m.Author] = true
		out = append(out, m.Author)
	}
	return out
}

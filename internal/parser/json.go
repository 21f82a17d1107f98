package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dgallion1/personabot/internal/corpus"
)

// jsonMessage covers the common chat-export field names.
type jsonMessage struct {
	Text    string `json:"text"`
	Content string `json:"content"`
	Author  string `json:"author"`
	User    string `json:"user"`
	Channel string `json:"channel"`
}

// JSONParser handles JSON exports: either an array of strings or an array of
// objects with a text/content field and optional author/user and channel.
// The embeddings file format ({"text", "embedding"}) parses as well; the
// vectors are ignored.
type JSONParser struct{}

func (p *JSONParser) Parse(r io.Reader, filename string) (*corpus.Corpus, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	c := &corpus.Corpus{Source: sourceName(filename)}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return c, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse json: expected an array: %w", err)
	}

	for i, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '"' {
			var s string
			if err := json.Unmarshal(item, &s); err != nil {
				return nil, fmt.Errorf("parse json item %d: %w", i, err)
			}
			c.Add(corpus.Message{Text: s})
			continue
		}
		var m jsonMessage
		if err := json.Unmarshal(item, &m); err != nil {
			return nil, fmt.Errorf("parse json item %d: %w", i, err)
		}
		text := m.Text
		if text == "" {
			text = m.Content
		}
		author := m.Author
		if author == "" {
			author = m.User
		}
		c.Add(corpus.Message{Text: text, Author: author, Channel: m.Channel})
	}
	return c, nil
}

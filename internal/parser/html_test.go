package parser

import (
	"strings"
	"testing"
)

func TestHTMLParser_Messages(t *testing.T) {
	input := `<html><head><title>Team Chat</title><style>p{}</style></head>
<body>
<nav><p>menu</p></nav>
<h2>general</h2>
<p>tanaka: おはようございます！</p>
<p>suzuki: 了解です。<br>確認します。</p>
<h2>random</h2>
<ul><li>今日は良い天気ですね。</li></ul>
<script>var x = "ignored";</script>
</body></html>`

	p := &HTMLParser{}
	c, err := p.Parse(strings.NewReader(input), "chat.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Source != "Team Chat" {
		t.Errorf("expected source %q, got %q", "Team Chat", c.Source)
	}
	if c.Len() != 4 {
		t.Fatalf("expected 4 messages, got %d: %+v", c.Len(), c.Messages)
	}

	want := []struct{ channel, author, text string }{
		{"general", "tanaka", "おはようございます！"},
		{"general", "suzuki", "了解です。"},
		{"general", "", "確認します。"},
		{"random", "", "今日は良い天気ですね。"},
	}
	for i, w := range want {
		m := c.Messages[i]
		if m.Channel != w.channel || m.Author != w.author || m.Text != w.text {
			t.Errorf("message[%d]: expected %q/%q/%q, got %q/%q/%q",
				i, w.channel, w.author, w.text, m.Channel, m.Author, m.Text)
		}
	}
}

func TestHeadingLevel(t *testing.T) {
	if headingLevel("h3") != 3 {
		t.Errorf("expected 3 for h3")
	}
	for _, tag := range []string{"p", "h7", "hr", "h"} {
		if headingLevel(tag) != 0 {
			t.Errorf("expected 0 for %q", tag)
		}
	}
}

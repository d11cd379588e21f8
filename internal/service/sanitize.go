package service

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FlattenHTML reduces an answer that arrived as HTML markup to its plain
// text. Some upstream models wrap their output in markup that Telegram's
// markdown parser chokes on. Non-HTML text passes through untouched.
func FlattenHTML(s string) string {
	if !strings.Contains(s, "</") && !strings.Contains(s, "/>") {
		return s
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}

	text := strings.TrimSpace(doc.Text())
	if text == "" {
		return s
	}
	return text
}

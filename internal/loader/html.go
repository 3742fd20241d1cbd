package loader

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/net/html"
)

// loadHTML parses an HTML file and returns its visible text content.
// Script and style subtrees are excluded.
func loadHTML(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open html %s: %w", path, err)
	}
	defer f.Close()

	root, err := html.Parse(f)
	if err != nil {
		return "", fmt.Errorf("parse html %s: %w", path, err)
	}

	var b strings.Builder
	collectText(root, &b)
	return b.String(), nil
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			b.WriteString(text)
			b.WriteString(" ")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

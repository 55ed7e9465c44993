package scraper

import (
	"strings"

	"golang.org/x/net/html"
)

// selector is a parsed simple CSS selector: an optional tag name with an
// optional #id or .class qualifier, e.g. "article", ".main-content",
// "#content", "div.article-body".
type selector struct {
	tag   string
	id    string
	class string
}

func parseSelector(s string) selector {
	var sel selector
	s = strings.TrimSpace(s)
	for {
		if i := strings.LastIndexAny(s, "#."); i >= 0 {
			switch s[i] {
			case '#':
				sel.id = s[i+1:]
			case '.':
				sel.class = s[i+1:]
			}
			s = s[:i]
			continue
		}
		sel.tag = s
		return sel
	}
}

func (sel selector) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if sel.tag != "" && n.Data != sel.tag {
		return false
	}
	if sel.id != "" && attr(n, "id") != sel.id {
		return false
	}
	if sel.class != "" && !hasClass(n, sel.class) {
		return false
	}
	return true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// findFirst returns the first node in document order matching the selector.
func findFirst(n *html.Node, sel selector) *html.Node {
	if sel.matches(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, sel); found != nil {
			return found
		}
	}
	return nil
}

// removeMatching detaches every node matching any of the selectors.
func removeMatching(n *html.Node, selectors []string) {
	sels := make([]selector, len(selectors))
	for i, s := range selectors {
		sels[i] = parseSelector(s)
	}
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		c := node.FirstChild
		for c != nil {
			next := c.NextSibling
			removed := false
			for _, sel := range sels {
				if sel.matches(c) {
					node.RemoveChild(c)
					removed = true
					break
				}
			}
			if !removed {
				walk(c)
			}
			c = next
		}
	}
	walk(n)
}

// textContent returns the concatenated text of a subtree, skipping script and
// style elements, with single spaces between text nodes.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style" || node.Data == "noscript" || node.Data == "iframe") {
			return
		}
		if node.Type == html.TextNode {
			if t := strings.TrimSpace(node.Data); t != "" {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(t)
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

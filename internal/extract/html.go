package extract

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var skipTags = map[string]bool{
	"script": true, "style": true, "nav": true, "footer": true, "header": true,
	"aside": true, "noscript": true, "iframe": true, "form": true,
}

var skipClasses = map[string]bool{
	"advertisement": true, "ad": true, "ads": true, "advertisement-container": true,
	"sidebar": true, "widget": true, "related-posts": true, "comments": true,
	"comment-section": true, "social-share": true, "share-buttons": true,
}

// Containers in priority order; the first one with enough paragraph text wins.
var containerClasses = []string{"article-body", "post-content", "entry-content", "article-content"}

var (
	bracketed   = regexp.MustCompile(`\[[^\]]*\]`)
	spaceRun    = regexp.MustCompile(`[ \t]+`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
)

// ParseHTML returns the page title and its paragraph text joined by blank lines.
func ParseHTML(r io.Reader) (string, string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}

	var metaTitle, twitterTitle, docTitle, h1 string
	var containers []*html.Node
	var body *html.Node
	var crawler func(*html.Node)
	crawler = func(node *html.Node) {
		if node.Type == html.ElementNode {
			switch node.Data {
			case "meta":
				switch {
				case attr(node, "property") == "og:title":
					metaTitle = attr(node, "content")
				case attr(node, "name") == "twitter:title":
					twitterTitle = attr(node, "content")
				}
			case "title":
				if docTitle == "" {
					docTitle = textOf(node)
				}
			case "h1":
				if h1 == "" {
					h1 = textOf(node)
				}
			case "body":
				body = node
			}
			if skipped(node) {
				return
			}
			if isContainer(node) {
				containers = append(containers, node)
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			crawler(c)
		}
	}
	crawler(doc)

	content := ""
	for _, c := range rankContainers(containers) {
		if content = paragraphs(c); len(content) > 200 {
			break
		}
	}
	if len(content) < 200 {
		content = paragraphs(doc)
	}
	if len(content) < 200 && body != nil {
		content = textOf(body)
	}
	return strings.TrimSpace(firstNonEmpty(metaTitle, twitterTitle, docTitle, h1)), clean(content), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func classes(n *html.Node) []string {
	return strings.Fields(attr(n, "class"))
}

func skipped(n *html.Node) bool {
	if skipTags[n.Data] {
		return true
	}
	for _, c := range classes(n) {
		if skipClasses[c] {
			return true
		}
	}
	return false
}

func isContainer(n *html.Node) bool {
	return containerRank(n) < len(containerClasses)+5
}

// containerRank orders candidates: known article classes, then article, role=article,
// main, .content and #content-like ids.
func containerRank(n *html.Node) int {
	for _, c := range classes(n) {
		for i, want := range containerClasses {
			if c == want {
				return i
			}
		}
	}
	base := len(containerClasses)
	switch {
	case n.Data == "article":
		return base
	case attr(n, "role") == "article":
		return base + 1
	case n.Data == "main":
		return base + 2
	}
	for _, c := range classes(n) {
		if c == "content" || c == "main-content" {
			return base + 3
		}
	}
	if id := attr(n, "id"); id == "content" || id == "main-content" {
		return base + 4
	}
	return base + 5
}

func rankContainers(nodes []*html.Node) []*html.Node {
	out := make([]*html.Node, 0, len(nodes))
	for rank := 0; rank < len(containerClasses)+5; rank++ {
		for _, n := range nodes {
			if containerRank(n) == rank {
				out = append(out, n)
			}
		}
	}
	return out
}

// paragraphs joins the text of <p> descendants longer than 20 characters.
func paragraphs(root *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipped(n) {
				return
			}
			if n.Data == "p" {
				if t := strings.TrimSpace(textOf(n)); len([]rune(t)) > 20 {
					parts = append(parts, t)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return strings.Join(parts, "\n\n")
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped(n) {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func clean(s string) string {
	s = bracketed.ReplaceAllString(s, "")
	s = spaceRun.ReplaceAllString(s, " ")
	s = newlineRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

package browser

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/darklight/internal/model"
)

// MaxTreeDepth bounds the DOM snapshot. Deeper elements are dropped.
const MaxTreeDepth = 64

// BuildTree parses source and returns a snapshot rooted at the <html>
// element. Text is folded into the enclosing element, comments are
// dropped and the contents of script and style elements are not kept.
func BuildTree(source string) (*model.Node, error) {
	doc, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return nil, err
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return convert(c, 0), nil
		}
	}
	return nil, nil
}

func convert(n *html.Node, depth int) *model.Node {
	node := &model.Node{Tag: n.Data}
	if len(n.Attr) > 0 {
		node.Attrs = make(map[string]string, len(n.Attr))
		for _, a := range n.Attr {
			node.Attrs[a.Key] = a.Val
		}
	}

	var text []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if n.Data == "script" || n.Data == "style" {
				continue
			}
			if t := strings.Join(strings.Fields(c.Data), " "); t != "" {
				text = append(text, t)
			}
		case html.ElementNode:
			if depth+1 < MaxTreeDepth {
				node.Children = append(node.Children, convert(c, depth+1))
			}
		}
	}
	node.Text = strings.Join(text, " ")
	return node
}

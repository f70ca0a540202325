// Package importer reads Netscape bookmark HTML, the format every browser
// exports, into a model.Store.
package importer

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nikbrunner/bmicon/internal/model"
	"golang.org/x/net/html"
)

// ParseHTML parses Netscape bookmark HTML. Existing ICON_URI attributes are
// kept as the bookmark's icon URL; inline ICON data is ignored.
func ParseHTML(r io.Reader) (*model.Store, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	p := &parser{store: model.NewStore(), now: time.Now()}
	p.walk(doc)
	return p.store, nil
}

type parser struct {
	store *model.Store
	now   time.Time

	stack   []string // open folder IDs, innermost last
	pending string   // folder seen in an H3 waiting for its DL
}

func (p *parser) parent() *string {
	if len(p.stack) == 0 {
		return nil
	}
	id := p.stack[len(p.stack)-1]
	return &id
}

func (p *parser) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "h3":
			if name := textContent(n); name != "" {
				folder := model.NewFolder(name, p.parent())
				p.store.Folders = append(p.store.Folders, folder)
				p.pending = folder.ID
			}
			return

		case "a":
			p.bookmark(n)
			return

		case "dl":
			pushed := false
			if p.pending != "" {
				p.stack = append(p.stack, p.pending)
				p.pending = ""
				pushed = true
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				p.walk(c)
			}
			if pushed {
				p.stack = p.stack[:len(p.stack)-1]
			}
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c)
	}
}

func (p *parser) bookmark(n *html.Node) {
	href := strings.TrimSpace(attr(n, "href"))
	if href == "" {
		return
	}

	title := textContent(n)
	if title == "" {
		title = href
	}

	createdAt := p.now
	if v := attr(n, "add_date"); v != "" {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			createdAt = time.Unix(ts, 0)
		}
	}

	b := model.NewBookmark(title, href, p.parent(), createdAt)
	b.IconURL = attr(n, "icon_uri")
	p.store.Bookmarks = append(p.store.Bookmarks, b)
}

// textContent returns the trimmed text below n.
func textContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// attr returns the value of an attribute, case-insensitive.
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

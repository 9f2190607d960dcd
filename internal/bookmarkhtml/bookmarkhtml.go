// Package bookmarkhtml reads the Netscape bookmark file format that browsers
// export, flattening its folder tree into a list of folders with links.
package bookmarkhtml

import (
	"io"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	DefaultFolderName = "Untitled folder"
	DefaultLinkTitle  = "Untitled link"
)

var ErrNoBookmarks = errors.New("no bookmark list found")

type Folder struct {
	Name  string
	Links []Link
}

type Link struct {
	Title string
	URL   string
	Icon  string
}

// Parse returns every non-empty folder in r. Subfolders become separate
// entries placed before the folder that contains them. Links sitting outside
// any folder are ignored.
func Parse(r io.Reader) ([]Folder, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, "parse bookmark html")
	}

	root := findFirst(doc, atom.Dl)
	if root == nil {
		return nil, ErrNoBookmarks
	}

	folders := []Folder{}

	for _, dt := range children(root, atom.Dt) {
		folders = collectFolder(dt, folders)
	}

	return folders, nil
}

func collectFolder(dt *html.Node, folders []Folder) []Folder {
	heading := child(dt, atom.H3)
	list := child(dt, atom.Dl)

	if heading == nil || list == nil {
		return folders
	}

	folder := Folder{Name: textOr(heading, DefaultFolderName)}

	for _, entry := range children(list, atom.Dt) {
		if anchor := child(entry, atom.A); anchor != nil {
			href := strings.TrimSpace(attr(anchor, "href"))
			if href == "" {
				continue
			}

			folder.Links = append(folder.Links, Link{
				Title: textOr(anchor, DefaultLinkTitle),
				URL:   href,
				Icon:  iconFor(attr(anchor, "icon"), href),
			})
			continue
		}

		folders = collectFolder(entry, folders)
	}

	if len(folder.Links) == 0 {
		return folders
	}

	return append(folders, folder)
}

// FaviconURL points at a favicon service for the host of rawURL, or returns
// "" when rawURL has no host.
func FaviconURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}

	return "https://www.google.com/s2/favicons?domain=" + u.Hostname() + "&sz=32"
}

func iconFor(icon, href string) string {
	if strings.HasPrefix(icon, "data:image") {
		return icon
	}
	return FaviconURL(href)
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}

	return nil
}

func child(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	return nil
}

func children(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			out = append(out, c)
		}
	}
	return out
}

// attr looks key up case-insensitively; the parser lower-cases names already.
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func textOr(n *html.Node, fallback string) string {
	var b strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	if text := strings.TrimSpace(b.String()); text != "" {
		return text
	}
	return fallback
}

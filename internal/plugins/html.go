package plugins

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wolfeidau/pagepack/internal/assets"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Inject positions
const (
	InjectBody = "body"
	InjectHead = "head"
	InjectNone = "false"
)

const (
	defaultHTMLFilename = "index.html"
	defaultTitle        = "App"
)

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
</body>
</html>
`

var _ assets.AfterEmitter = (*HTML)(nil)

// HTML renders a page from a template and injects the built bundles into it.
type HTML struct {
	// Template path, a minimal document is used when empty
	Template string
	// Output file name relative to the output directory
	Filename string
	Title    string
	// Inject is "body" (default), "head" or "false"
	Inject string
}

// PageData is passed to the template.
type PageData struct {
	Title   string
	Scripts []string
	Styles  []string
	BuildID string
}

func (h *HTML) Name() string { return "html" }

func (h *HTML) AfterEmit(ctx context.Context, result *assets.Result) error {
	filename := h.Filename
	if filename == "" {
		filename = defaultHTMLFilename
	}
	title := h.Title
	if title == "" {
		title = defaultTitle
	}

	scripts, styles := entryURLs(result)
	data := PageData{Title: title, Scripts: scripts, Styles: styles, BuildID: result.BuildID}

	tmpl, err := h.parse()
	if err != nil {
		return err
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, data); err != nil {
		return fmt.Errorf("%w: %w", ErrTemplate, err)
	}

	page := buf.Bytes()
	if h.Inject != InjectNone {
		if page, err = inject(page, scripts, styles, h.Inject); err != nil {
			return err
		}
	}

	logical := strings.TrimSuffix(filename, path.Ext(filename))
	return result.Emit(filename, assets.KindDocument, logical, page)
}

func (h *HTML) parse() (*template.Template, error) {
	funcs := template.FuncMap{
		"marshal": marshal,
		"safe": func(s string) template.HTML {
			return template.HTML(s) //nolint:gosec
		},
	}

	if h.Template == "" {
		return template.New("default").Funcs(funcs).Parse(defaultTemplate)
	}

	tmpl, err := template.New(filepath.Base(h.Template)).Funcs(funcs).ParseFiles(h.Template)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplate, err)
	}
	return tmpl, nil
}

// entryURLs collects every entry's scripts and styles in entry name order.
func entryURLs(result *assets.Result) ([]string, []string) {
	names := make([]string, 0, len(result.Entries))
	for name := range result.Entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var scripts, styles []string
	seen := map[string]bool{}
	for _, name := range names {
		entry := result.Entries[name]
		for _, s := range entry.Scripts {
			if !seen[s] {
				seen[s] = true
				scripts = append(scripts, result.URL(s))
			}
		}
		for _, s := range entry.Styles {
			if !seen[s] {
				seen[s] = true
				styles = append(styles, result.URL(s))
			}
		}
	}
	return scripts, styles
}

// inject adds stylesheet links to head and script tags to the end of body
// (or head).
func inject(page []byte, scripts, styles []string, position string) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplate, err)
	}

	head := findElement(doc, atom.Head)
	body := findElement(doc, atom.Body)
	if head == nil || body == nil {
		return nil, fmt.Errorf("%w: document has no head or body", ErrTemplate)
	}

	for _, href := range styles {
		head.AppendChild(element(atom.Link, "href", href, "rel", "stylesheet"))
	}

	target := body
	if position == InjectHead {
		target = head
	}
	for _, src := range scripts {
		target.AppendChild(element(atom.Script, "type", "text/javascript", "src", src))
	}

	buf := new(bytes.Buffer)
	if err := html.Render(buf, doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplate, err)
	}
	return buf.Bytes(), nil
}

func element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func marshal(value any) (string, error) {
	buf := new(bytes.Buffer)

	if err := json.NewEncoder(buf).Encode(value); err != nil {
		return "", errors.New("context can only be json serializable")
	}

	return buf.String(), nil
}

// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package site

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path"
	"regexp"
	"strings"
	ttemplate "text/template"

	"go.astrophena.name/pageshell/internal/shell"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	mjson "github.com/tdewolff/minify/v2/json"
	"rsc.io/markdown"
)

// fragmentsHTML defines the "head" and "postBody" fragments handed to the
// shell for every page.
//
//go:embed fragments.html
var fragmentsHTML string

var htmlComment = regexp.MustCompile(`(?s)<!--.*?-->`)

type minifier = minify.M

func newMinifier() *minifier {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)
	m.AddFunc("application/json", mjson.Minify)
	// Bodies are fragments placed inside the shell's wrapper element.
	m.Add("text/html", &html.Minifier{KeepEndTags: true, KeepDefaultAttrVals: true})
	return m
}

// loadTemplates parses the body templates, named by file name without the
// extension.
func (s *site) loadTemplates() error {
	fsys := os.DirFS(s.c.dir("templates"))
	return fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || path.Ext(name) != ".html" {
			return err
		}
		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}
		key := strings.TrimSuffix(name, ".html")
		t, err := template.New(key).Funcs(s.funcs).Parse(string(b))
		if err != nil {
			return fmt.Errorf("templates/%s: %w", name, err)
		}
		s.templates[key] = t
		return nil
	})
}

// render returns the complete document of p and mounts it.
func (s *site) render(p *Page) ([]byte, error) {
	body, err := s.renderBody(p)
	if err != nil {
		return nil, err
	}
	in := shell.Input{Body: string(body)}
	if in.Head, err = s.fragment("head", p); err != nil {
		return nil, err
	}
	if in.PostBody, err = s.fragment("postBody", p); err != nil {
		return nil, err
	}
	doc, err := s.shell.Bytes(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.src, err)
	}
	s.shell.Mount()
	return doc, nil
}

// renderBody renders what the shell places in its body wrapper: the page
// expanded as a template, converted from Markdown when needed, with HTML
// comments removed and put through the page's body template. The content
// before the body template is kept in p.content for the feed.
func (s *site) renderBody(p *Page) ([]byte, error) {
	layout, ok := s.templates[p.Template]
	if !ok {
		return nil, fmt.Errorf("%s: %w %q", p.src, errTemplateMissing, p.Template)
	}

	tpl, err := ttemplate.New(p.src).Funcs(ttemplate.FuncMap(s.funcs)).Parse(string(p.body))
	if err != nil {
		return nil, err
	}
	var expanded bytes.Buffer
	if err := tpl.Execute(&expanded, p); err != nil {
		return nil, err
	}

	content := expanded.Bytes()
	if path.Ext(p.src) == ".md" {
		content = []byte(markdown.ToHTML(s.md.Parse(expanded.String())))
	}
	p.content = htmlComment.ReplaceAll(content, nil)

	var body bytes.Buffer
	if err := layout.Execute(&body, p); err != nil {
		return nil, fmt.Errorf("%s: %w", p.src, err)
	}
	return s.min.Bytes("text/html", body.Bytes())
}

func (s *site) fragment(name string, p *Page) (template.HTML, error) {
	var buf bytes.Buffer
	if err := s.fragments.ExecuteTemplate(&buf, name, p); err != nil {
		return "", fmt.Errorf("%s: %s fragment: %w", p.src, name, err)
	}
	return template.HTML(buf.String()), nil
}

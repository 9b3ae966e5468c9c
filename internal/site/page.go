// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package site

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode"
)

// Page is a page of the site. Exported fields are set from the JSON front
// matter that starts the page source, for example:
//
//	{
//	  "title": "Hello, world!",
//	  "template": "layout",
//	  "permalink": "/hello-world"
//	}
//
// HTML comments before the front matter, such as editor modelines, are
// allowed.
type Page struct {
	// Title, Template and Permalink are required.
	Title     string `json:"title"`
	Template  string `json:"template"`
	Permalink string `json:"permalink"`

	// Type groups pages for the "pages" template function. Pages of type
	// "post" go to the feed. Defaults to "page".
	Type string `json:"type"`
	// Date orders pages, newest first. Undated pages go last.
	Date *Day `json:"date"`
	// Draft pages are skipped in production.
	Draft bool `json:"draft"`
	// Summary becomes the description meta tag and the feed entry summary.
	Summary string `json:"summary"`
	// ContentOnly asks templates to leave out navigation.
	ContentOnly bool `json:"content_only"`
	// MetaTags are added to the head as <meta name content>.
	MetaTags map[string]string `json:"meta_tags"`
	// CSS and JS are static paths linked from the head and after the body.
	CSS []string `json:"css"`
	JS  []string `json:"js"`

	src     string // source file
	out     string // slash-separated output path, relative to Dst
	body    []byte // source after the front matter
	content []byte // rendered body, without layout
}

// Day is a date in the 2006-01-02 form.
type Day struct{ t time.Time }

// Time returns d as midnight UTC.
func (d *Day) Time() time.Time { return d.t }

func (d *Day) UnmarshalText(b []byte) error {
	t, err := time.Parse(time.DateOnly, string(b))
	if err != nil {
		return err
	}
	d.t = t
	return nil
}

var (
	pageFormats    = []string{".html", ".md"}
	leadingComment = regexp.MustCompile(`(?s)^\s*<!--.*?-->`)
)

// parsePage parses the source b of the page file src.
func parsePage(src string, b []byte) (*Page, error) {
	if !slices.Contains(pageFormats, filepath.Ext(src)) {
		return nil, fmt.Errorf("%s: %w", src, errFormatUnsupported)
	}

	for {
		loc := leadingComment.FindIndex(b)
		if loc == nil {
			break
		}
		b = b[loc[1]:]
	}
	b = bytes.TrimLeftFunc(b, unicode.IsSpace)
	if len(b) == 0 || b[0] != '{' {
		return nil, fmt.Errorf("%s: %w", src, errFrontmatterMissing)
	}

	p := &Page{src: src}
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(p); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", src, errFrontmatterParse, err)
	}
	p.body = b[dec.InputOffset():]

	if p.Title == "" || p.Template == "" || p.Permalink == "" {
		return nil, fmt.Errorf("%s: %w", src, errFrontmatterMissingParam)
	}
	if _, err := url.ParseRequestURI(p.Permalink); err != nil {
		return nil, fmt.Errorf("%s: %w %q: %w", src, errPermalinkInvalid, p.Permalink, err)
	}
	if p.Type == "" {
		p.Type = "page"
	}
	p.out = outputPath(p.Permalink)
	return p, nil
}

// outputPath maps a permalink to the file that serves it. "/" is index.html
// and "/foo" is foo.html, which static hosts serve without the extension.
func outputPath(permalink string) string {
	switch {
	case permalink == "/":
		return "/index.html"
	case strings.HasSuffix(permalink, ".html"):
		return path.Clean(permalink)
	default:
		return path.Clean(permalink) + ".html"
	}
}

// loadPages parses the pages directory. Drafts are left out of production
// builds.
func (s *site) loadPages() error {
	dir := s.c.dir("pages")
	fsys := os.DirFS(dir)
	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || skipFile(name) {
			return err
		}
		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}
		p, err := parsePage(filepath.Join(dir, filepath.FromSlash(name)), b)
		if err != nil {
			return err
		}
		if !p.Draft || !s.c.Prod {
			s.pages = append(s.pages, p)
		}
		return nil
	})
	slices.SortStableFunc(s.pages, byDate)
	return err
}

func byDate(a, b *Page) int {
	switch {
	case a.Date == nil && b.Date == nil:
		return 0
	case a.Date == nil:
		return 1
	case b.Date == nil:
		return -1
	}
	return cmp.Compare(b.Date.t.Unix(), a.Date.t.Unix())
}

// skipFile reports whether a source file is editor or OS clutter.
func skipFile(name string) bool {
	base := path.Base(name)
	return strings.HasSuffix(base, "~") || base == ".DS_Store" || base == ".gitignore"
}

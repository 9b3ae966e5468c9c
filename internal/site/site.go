// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Package site is a small static site generator that wraps every page it renders
with the document shell from the shell package.

# Sources

A site source directory holds:

	pages      Page sources in HTML or Markdown, each starting with JSON
	           front matter (see Page).
	templates  Body templates (*.html). A page picks one by name with the
	           "template" front matter key.
	static     Assets copied to the output under content-addressed names.
	site.star  Optional Starlark configuration (see LoadConfig).

Templates render only what goes inside the shell's body wrapper. Meta tags,
the font stylesheet, the favicon and the ad tags come from the shell, so every
page of a build carries the same ad strategy.

# Output

Build writes one document per page, feed.xml with the posts, robots.txt and
ads.txt for the configured ad client. Every rendered page is mounted once, so
the ad queue of a build holds one request per page.
*/
package site

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.astrophena.name/base/logger"
	"go.astrophena.name/pageshell/internal/shell"

	"rsc.io/markdown"
)

var (
	errFrontmatterParse        = errors.New("failed to parse frontmatter")
	errFrontmatterMissing      = errors.New("missing frontmatter")
	errFrontmatterMissingParam = errors.New("missing required frontmatter parameter (title, template, permalink)")
	errFormatUnsupported       = errors.New("format unsupported")
	errPermalinkInvalid        = errors.New("invalid permalink")
	errTemplateMissing         = errors.New("no such template")
	errFaviconMissing          = errors.New("favicon is not a static file")
)

// Config configures a build.
type Config struct {
	// Title names the site in page titles and the feed.
	Title string
	// Author is the feed author. The feed has no author when empty.
	Author string
	// BaseURL makes URLs absolute in production builds and in the feed.
	BaseURL *url.URL
	// Src and Dst are the source and output directories. They default to
	// the current directory and "build".
	Src, Dst string
	// Prod excludes drafts and makes page URLs absolute.
	Prod bool
	// SkipFeed disables feed.xml.
	SkipFeed bool
	// Favicon is the path of a file in the static directory. The build
	// fails if there is no such file. Defaults to shell.DefaultFaviconURL.
	Favicon string
	// Shell configures the document shell. FaviconURL is derived from
	// Favicon and ignored.
	Shell shell.Config

	feedUpdated time.Time   // fixed in tests
	ads         *shell.Queue // collects mounted pages, replaced in tests
}

func (c *Config) setDefaults() {
	if c.Src == "" {
		c.Src = "."
	}
	if c.Dst == "" {
		c.Dst = filepath.Join(c.Src, "build")
	}
	if c.Favicon == "" {
		c.Favicon = shell.DefaultFaviconURL
	}
}

func (c *Config) dir(name string) string { return filepath.Join(c.Src, name) }

// Build renders the site described by c into c.Dst.
func Build(ctx context.Context, c *Config) error {
	c.setDefaults()
	s := newSite(c)

	var err error
	if s.assets, err = scanAssets(c.dir("static")); err != nil {
		return err
	}
	if err := s.loadTemplates(); err != nil {
		return err
	}
	if err := s.loadPages(); err != nil {
		return err
	}
	if err := s.newShell(); err != nil {
		return err
	}

	if err := os.RemoveAll(c.Dst); err != nil {
		return err
	}
	for _, p := range s.pages {
		doc, err := s.render(p)
		if err != nil {
			return err
		}
		if err := writeFile(filepath.Join(c.Dst, filepath.FromSlash(p.out)), doc); err != nil {
			return err
		}
	}
	if !c.SkipFeed {
		if err := s.writeFeed(); err != nil {
			return err
		}
	}
	if err := writeFile(filepath.Join(c.Dst, "robots.txt"), []byte("User-agent: *\n")); err != nil {
		return err
	}
	if txt := shell.AdsTxt(s.shell.Config().Ad); txt != nil {
		if err := writeFile(filepath.Join(c.Dst, "ads.txt"), txt); err != nil {
			return err
		}
	}
	if err := s.assets.copyTo(c.Dst, s.min); err != nil {
		return err
	}

	logger.Info(ctx, "built site",
		slog.String("dst", c.Dst),
		slog.Int("pages", len(s.pages)),
		slog.Int("ad_registrations", s.ads.Len()),
		slog.String("ad_strategy", string(s.shell.Config().Ad.Strategy)),
	)
	return nil
}

func writeFile(name string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}
	return os.WriteFile(name, b, 0o644)
}

// site holds the state of a single build.
type site struct {
	c         *Config
	md        *markdown.Parser
	min       *minifier
	funcs     template.FuncMap
	fragments *template.Template
	templates map[string]*template.Template
	pages     []*Page
	assets    *assets
	shell     *shell.Shell
	ads       *shell.Queue
}

func newSite(c *Config) *site {
	s := &site{
		c: c,
		md: &markdown.Parser{
			HeadingID:     true,
			Strikethrough: true,
			TaskList:      true,
			AutoLinkText:  true,
			Table:         true,
			SmartQuote:    true,
			Footnote:      true,
		},
		min:       newMinifier(),
		templates: make(map[string]*template.Template),
		assets:    &assets{names: make(map[string]string)},
		ads:       c.ads,
	}
	if s.ads == nil {
		s.ads = new(shell.Queue)
	}
	s.funcs = template.FuncMap{
		"content": func(p *Page) template.HTML { return template.HTML(p.content) },
		"pages":   s.pagesOfType,
		"url":     s.url,
		"static":  s.static,
		"site":    func() string { return s.c.Title },
		"feed":    func() bool { return !s.c.SkipFeed },
	}
	s.fragments = template.Must(template.New("fragments").Funcs(s.funcs).Parse(fragmentsHTML))
	return s
}

// newShell resolves the favicon and creates the shell shared by all pages.
func (s *site) newShell() error {
	ref := "/" + strings.TrimPrefix(s.c.Favicon, "/")
	favicon, ok := s.assets.lookup(ref)
	if !ok {
		return fmt.Errorf("%w: %s", errFaviconMissing, ref)
	}
	sc := s.c.Shell
	sc.FaviconURL = s.url(favicon)
	var err error
	s.shell, err = shell.New(sc, s.ads)
	return err
}

func (s *site) pagesOfType(typ string) []*Page {
	var pages []*Page
	for _, p := range s.pages {
		if p.Type == typ {
			pages = append(pages, p)
		}
	}
	return pages
}

// url returns p unchanged in development. In production, site-relative paths
// are resolved against BaseURL.
func (s *site) url(p string) string {
	if !s.c.Prod {
		return p
	}
	return s.absURL(p)
}

func (s *site) absURL(p string) string {
	if s.c.BaseURL == nil {
		return p
	}
	if u, err := url.Parse(p); err == nil && u.IsAbs() {
		return p
	}
	u := *s.c.BaseURL
	u.Path = path.Join("/", u.Path, p)
	return u.String()
}

// static returns the URL of the content-addressed copy of a static file.
// Unknown paths are returned as URLs unchanged.
func (s *site) static(ref string) string {
	if out, ok := s.assets.lookup(ref); ok {
		return s.url(out)
	}
	return s.url(ref)
}

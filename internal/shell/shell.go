// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Package shell wraps rendered page bodies into complete HTML documents.

A [Shell] produces the <head> and <body> boilerplate shared by every page of
the site: meta tags, the font stylesheet, the favicon and the ad network
script. Callers supply a head fragment, the body HTML and a post-body
fragment through [Input].

# Trusted HTML

[Input.Body] is inserted verbatim into the body wrapper element. The shell
never escapes, validates or re-encodes it: sanitizing the body is the
caller's job. [Input.Head] and [Input.PostBody] are opaque markup and are
inserted verbatim as well.

# Ads

The ad network integration is chosen with [AdStrategy]:

	explicit-slot  A single ad slot configured with the client and slot IDs
	               is placed in the head.
	page-level     No slot markup is rendered. The network's script decides
	               where ads go.

Each page also registers itself with an [AdQueue] when mounted, see
[Shell.Mount].
*/
package shell

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"html"
	"html/template"
	"io"
	"strings"
	"sync"
)

var errUnknownAdStrategy = errors.New("unknown ad strategy")

// AdStrategy determines how pages integrate with the ad network.
type AdStrategy string

// Available ad strategies.
const (
	ExplicitSlot = AdStrategy("explicit-slot")
	PageLevel    = AdStrategy("page-level")
)

// ParseAdStrategy returns the AdStrategy named by s.
func ParseAdStrategy(s string) (AdStrategy, error) {
	switch st := AdStrategy(s); st {
	case ExplicitSlot, PageLevel:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", errUnknownAdStrategy, s)
}

// AdConfig configures the ad network integration.
type AdConfig struct {
	// ClientID is the publisher ID, e.g. ca-pub-6544681979376259.
	ClientID string
	// SlotID is the ad slot used by ExplicitSlot.
	SlotID string
	// Strategy is the ad strategy. If empty, ExplicitSlot is used.
	Strategy AdStrategy
}

// AdRequest is the object pushed onto the ad queue.
type AdRequest struct {
	Client             string `json:"google_ad_client,omitempty"`
	EnablePageLevelAds bool   `json:"enable_page_level_ads,omitempty"`
}

// AdQueue receives ad requests from mounted pages.
type AdQueue interface {
	Push(AdRequest)
}

// AdQueueFunc is an adapter to allow the use of ordinary functions as
// AdQueue.
type AdQueueFunc func(AdRequest)

// Push calls f(r).
func (f AdQueueFunc) Push(r AdRequest) { f(r) }

// Queue is an AdQueue that records pushed requests. It is safe for
// concurrent use.
type Queue struct {
	mu   sync.Mutex
	reqs []AdRequest
}

// Push implements the AdQueue interface.
func (q *Queue) Push(r AdRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reqs = append(q.reqs, r)
}

// Len returns the number of recorded requests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.reqs)
}

// Requests returns a copy of the recorded requests.
func (q *Queue) Requests() []AdRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]AdRequest(nil), q.reqs...)
}

// Config represents a shell configuration.
type Config struct {
	// Lang is the document language. If empty, "en" is used.
	Lang string
	// FontURL is the URL of the font stylesheet. It is trusted and emitted
	// as written, without URL normalization.
	FontURL string
	// FaviconURL is the URL of the favicon.
	FaviconURL string
	// AdScriptURL is the URL of the ad network script.
	AdScriptURL string
	// RootID is the ID of the element that wraps the body. Client-side
	// bundles hydrate into it.
	RootID string
	// Ad configures the ad network integration.
	Ad AdConfig
}

// Defaults.
const (
	DefaultFontURL     = "//fonts.googleapis.com/css?family=Merriweather:300,700,700italic,300italic|Open+Sans:700,400"
	DefaultFaviconURL  = "/favicon.png"
	DefaultAdScriptURL = "//pagead2.googlesyndication.com/pagead/js/adsbygoogle.js"
	DefaultRootID      = "___gatsby"
	DefaultAdClientID  = "ca-pub-6544681979376259"
	DefaultAdSlotID    = "7806394673"
)

func (c *Config) setDefaults() {
	if c.Lang == "" {
		c.Lang = "en"
	}
	if c.FontURL == "" {
		c.FontURL = DefaultFontURL
	}
	if c.FaviconURL == "" {
		c.FaviconURL = DefaultFaviconURL
	}
	if c.AdScriptURL == "" {
		c.AdScriptURL = DefaultAdScriptURL
	}
	if c.RootID == "" {
		c.RootID = DefaultRootID
	}
	if c.Ad.ClientID == "" {
		c.Ad.ClientID = DefaultAdClientID
	}
	if c.Ad.SlotID == "" {
		c.Ad.SlotID = DefaultAdSlotID
	}
	if c.Ad.Strategy == "" {
		c.Ad.Strategy = ExplicitSlot
	}
}

// Input is the per-page input of the shell.
type Input struct {
	// Head is inserted after the font stylesheet and before the favicon.
	Head template.HTML
	// Body is trusted, already sanitized HTML inserted verbatim into the body
	// wrapper element.
	Body string
	// PostBody is inserted after the body wrapper element.
	PostBody template.HTML
}

//go:embed shell.html
var shellHTML string

// Shell renders HTML documents. It is safe for concurrent use if the AdQueue
// is.
type Shell struct {
	c   Config
	q   AdQueue
	tpl *template.Template
}

// New returns a new Shell. Each call to Mount pushes to q, which may be nil.
func New(c Config, q AdQueue) (*Shell, error) {
	c.setDefaults()
	if _, err := ParseAdStrategy(string(c.Ad.Strategy)); err != nil {
		return nil, err
	}
	tpl, err := template.New("shell").Parse(shellHTML)
	if err != nil {
		return nil, err
	}
	return &Shell{c: c, q: q, tpl: tpl}, nil
}

// Config returns the configuration of s with defaults applied.
func (s *Shell) Config() Config { return s.c }

type document struct {
	Config
	Input
	ExplicitSlot bool
	ClientID     string
	SlotID       string
	AdRequest    AdRequest
	FontHref     template.HTMLAttr
	Body         template.HTML // shadows Input.Body
}

// Render writes the document wrapping in to w. Rendering the same input twice
// produces identical output.
func (s *Shell) Render(w io.Writer, in Input) error {
	var buf bytes.Buffer
	if err := s.tpl.Execute(&buf, &document{
		Config:       s.c,
		Input:        in,
		ExplicitSlot: s.c.Ad.Strategy == ExplicitSlot,
		ClientID:     s.c.Ad.ClientID,
		SlotID:       s.c.Ad.SlotID,
		AdRequest:    s.adRequest(),
		FontHref:     template.HTMLAttr(`href="` + html.EscapeString(s.c.FontURL) + `"`),
		Body:         template.HTML(in.Body),
	}); err != nil {
		return fmt.Errorf("failed to execute shell template: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Bytes returns the document wrapping in.
func (s *Shell) Bytes(in Input) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.Render(&buf, in); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Mount registers a page with the ad queue. Every call pushes exactly one
// request: a page-level ads request with the configured client ID for
// PageLevel, or an empty slot fill request for ExplicitSlot.
func (s *Shell) Mount() {
	if s.q == nil {
		return
	}
	s.q.Push(s.adRequest())
}

func (s *Shell) adRequest() AdRequest {
	if s.c.Ad.Strategy == PageLevel {
		return AdRequest{Client: s.c.Ad.ClientID, EnablePageLevelAds: true}
	}
	return AdRequest{}
}

// AdsTxt returns the ads.txt contents authorizing the publisher from c. It
// returns nil if c has no client ID.
func AdsTxt(c AdConfig) []byte {
	if c.ClientID == "" {
		return nil
	}
	pub := strings.TrimPrefix(c.ClientID, "ca-")
	return []byte(fmt.Sprintf("google.com, %s, DIRECT, f08c47fec0942fa0\n", pub))
}

// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package site

import (
	"bytes"
	"path/filepath"
	"time"

	"github.com/gorilla/feeds"
)

// writeFeed writes an Atom feed of the posts to feed.xml. Entries carry the
// rendered page content only: feed readers get neither the shell nor the ads.
func (s *site) writeFeed() error {
	f := &feeds.Feed{
		Title:   s.c.Title,
		Link:    &feeds.Link{Href: s.absURL("/")},
		Updated: s.c.feedUpdated,
	}
	if f.Updated.IsZero() {
		f.Updated = time.Now()
	}
	if s.c.Author != "" {
		f.Author = &feeds.Author{Name: s.c.Author}
	}

	for _, p := range s.pagesOfType("post") {
		link := s.absURL(p.Permalink)
		item := &feeds.Item{
			Id:          link,
			Title:       p.Title,
			Link:        &feeds.Link{Href: link},
			Description: p.Summary,
			Content:     string(p.content),
		}
		if p.Date != nil {
			item.Created = p.Date.Time()
		}
		f.Add(item)
	}

	var buf bytes.Buffer
	if err := f.WriteAtom(&buf); err != nil {
		return err
	}
	return writeFile(filepath.Join(s.c.Dst, "feed.xml"), buf.Bytes())
}

// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package internal holds the flags shared by the build and serve tools.
package internal

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"path/filepath"

	"go.astrophena.name/base/cli"
	"go.astrophena.name/pageshell/internal/shell"
	"go.astrophena.name/pageshell/internal/site"
)

// SiteFlags selects the site sources and overrides parts of their
// configuration.
type SiteFlags struct {
	Src        string
	AdStrategy string
}

// Register adds the flags to fs.
func (f *SiteFlags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.Src, "src", ".", "Read site sources from `dir`.")
	fs.StringVar(&f.AdStrategy, "ad-strategy", "", "Override the ad `strategy` (explicit-slot or page-level).")
}

// Config returns the configuration of the site in f.Src. site.star is
// applied when present, then the flags. The only allowed argument is the
// output directory, which defaults to build inside f.Src.
func (f *SiteFlags) Config(ctx context.Context, args []string) (*site.Config, error) {
	if len(args) > 1 {
		return nil, cli.ErrInvalidArgs
	}
	c := &site.Config{Src: f.Src}
	if len(args) == 1 {
		c.Dst = args[0]
	}

	err := site.LoadConfig(ctx, filepath.Join(f.Src, site.ConfigFile), c)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if f.AdStrategy != "" {
		st, err := shell.ParseAdStrategy(f.AdStrategy)
		if err != nil {
			return nil, err
		}
		c.Shell.Ad.Strategy = st
	}
	return c, nil
}

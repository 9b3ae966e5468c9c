// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package site

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sort"
	"strings"

	"go.astrophena.name/base/logger"
	"go.astrophena.name/pageshell/internal/shell"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// ConfigFile is the name of the Starlark configuration file in the site
// source directory.
const ConfigFile = "site.star"

var (
	errConfigUnknownKey = errors.New("unknown configuration key")
	errConfigType       = errors.New("invalid configuration value type")
)

// configSetters maps Starlark globals to functions that apply them to
// Config.
var configSetters = map[string]func(c *Config, v starlark.Value) error{
	"title":         stringSetter(func(c *Config, s string) error { c.Title = s; return nil }),
	"author":        stringSetter(func(c *Config, s string) error { c.Author = s; return nil }),
	"lang":          stringSetter(func(c *Config, s string) error { c.Shell.Lang = s; return nil }),
	"font_url":      stringSetter(func(c *Config, s string) error { c.Shell.FontURL = s; return nil }),
	"favicon":       stringSetter(func(c *Config, s string) error { c.Favicon = s; return nil }),
	"ad_script_url": stringSetter(func(c *Config, s string) error { c.Shell.AdScriptURL = s; return nil }),
	"ad_client":     stringSetter(func(c *Config, s string) error { c.Shell.Ad.ClientID = s; return nil }),
	"ad_slot":       stringSetter(func(c *Config, s string) error { c.Shell.Ad.SlotID = s; return nil }),
	"root_id":       stringSetter(func(c *Config, s string) error { c.Shell.RootID = s; return nil }),
	"base_url": stringSetter(func(c *Config, s string) error {
		u, err := url.Parse(s)
		if err != nil {
			return err
		}
		c.BaseURL = u
		return nil
	}),
	"ad_strategy": stringSetter(func(c *Config, s string) error {
		st, err := shell.ParseAdStrategy(s)
		if err != nil {
			return err
		}
		c.Shell.Ad.Strategy = st
		return nil
	}),
	"skip_feed": func(c *Config, v starlark.Value) error {
		b, ok := v.(starlark.Bool)
		if !ok {
			return fmt.Errorf("%w: want bool, got %s", errConfigType, v.Type())
		}
		c.SkipFeed = bool(b)
		return nil
	},
}

func stringSetter(set func(c *Config, s string) error) func(c *Config, v starlark.Value) error {
	return func(c *Config, v starlark.Value) error {
		s, ok := starlark.AsString(v)
		if !ok {
			return fmt.Errorf("%w: want string, got %s", errConfigType, v.Type())
		}
		return set(c, s)
	}
}

// LoadConfig executes the Starlark file at path and applies the globals it
// defines to c. Globals starting with an underscore are ignored, so they can
// be used as helpers.
//
// An example configuration:
//
//	title = "Example"
//	base_url = "https://example.com"
//	ad_client = "ca-pub-0000000000000000"
//	ad_strategy = "page-level"
func LoadConfig(ctx context.Context, path string, c *Config) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return loadConfig(ctx, path, src, c)
}

func loadConfig(ctx context.Context, filename string, src []byte, c *Config) error {
	thread := &starlark.Thread{
		Name: "config",
		Print: func(_ *starlark.Thread, msg string) {
			logger.Info(ctx, msg, slog.String("file", filename))
		},
	}
	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, filename, src, nil)
	if err != nil {
		return err
	}

	// Apply in a stable order, so errors are reproducible.
	keys := make([]string, 0, len(globals))
	for k := range globals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if strings.HasPrefix(k, "_") {
			continue
		}
		set, ok := configSetters[k]
		if !ok {
			return fmt.Errorf("%s: %w %q", filename, errConfigUnknownKey, k)
		}
		if err := set(c, globals[k]); err != nil {
			return fmt.Errorf("%s: %s: %w", filename, k, err)
		}
	}
	return nil
}

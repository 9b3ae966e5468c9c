// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"flag"

	"go.astrophena.name/base/cli"
	"go.astrophena.name/pageshell/internal/devtools/internal"
	"go.astrophena.name/pageshell/internal/site"
)

func main() { cli.Main(new(app)) }

type app struct {
	site   internal.SiteFlags
	listen string
}

func (a *app) Flags(fs *flag.FlagSet) {
	a.site.Register(fs)
	fs.StringVar(&a.listen, "listen", "localhost:3000", "Serve on `host:port`.")
}

func (a *app) Run(ctx context.Context) error {
	c, err := a.site.Config(ctx, cli.GetEnv(ctx).Args)
	if err != nil {
		return err
	}
	return site.Serve(ctx, c, a.listen)
}

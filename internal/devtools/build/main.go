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
	site internal.SiteFlags
	prod bool
}

func (a *app) Flags(fs *flag.FlagSet) {
	a.site.Register(fs)
	fs.BoolVar(&a.prod, "prod", false, "Leave out drafts and use absolute URLs.")
}

func (a *app) Run(ctx context.Context) error {
	c, err := a.site.Config(ctx, cli.GetEnv(ctx).Args)
	if err != nil {
		return err
	}
	c.Prod = a.prod
	return site.Build(ctx, c)
}

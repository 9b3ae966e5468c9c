// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Build renders every page of a site into its document shell.

# Usage

	$ go tool build [-src dir] [-prod] [-ad-strategy strategy] [out]

Pages are read from the pages, templates and static directories under -src
and written to out, which defaults to build under -src. The site.star file
under -src, when present, configures the build; -ad-strategy replaces its
ad_strategy.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/base/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }

// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Serve previews a site while it is being edited.

# Usage

	$ go tool serve [-src dir] [-listen host:port] [-ad-strategy strategy] [out]

Serve takes the same sources and configuration as build, renders them into
out and serves the result on -listen. Edits to pages, templates and static
files trigger a rebuild after a short pause; one build runs at a time.
site.star is read once at startup.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/base/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }

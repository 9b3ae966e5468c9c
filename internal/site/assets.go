// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package site

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// assets maps static file references, as written in pages ("/css/main.css"),
// to their output names ("/css/main-<sha256>.css").
type assets struct {
	root  string
	names map[string]string
}

// Files read by crawlers at fixed locations keep their names.
var fixedNames = []string{"robots.txt", "ads.txt"}

var minifiable = map[string]string{
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
}

// scanAssets hashes the files under root. A missing root is an empty set.
func scanAssets(root string) (*assets, error) {
	a := &assets{root: root, names: make(map[string]string)}
	fsys := os.DirFS(root)
	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || skipFile(name) {
			return err
		}
		ref := "/" + name
		if slices.Contains(fixedNames, path.Base(name)) {
			a.names[ref] = ref
			return nil
		}
		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}
		sum := sha256.Sum256(b)
		a.names[ref] = "/" + contentName(name, hex.EncodeToString(sum[:]))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return a, nil
	}
	return a, err
}

func (a *assets) lookup(ref string) (string, bool) {
	out, ok := a.names[ref]
	return out, ok
}

// contentName inserts hash before the first dot of the file name, so
// "js/app.min.js" becomes "js/app-<hash>.min.js".
func contentName(name, hash string) string {
	if name == "" || hash == "" {
		return name
	}
	dir, file := path.Split(name)
	stem, ext, ok := strings.Cut(file, ".")
	if !ok {
		return dir + stem + "-" + hash
	}
	return dir + stem + "-" + hash + "." + ext
}

// copyTo writes every asset under its output name in dst, minifying
// stylesheets, scripts and JSON.
func (a *assets) copyTo(dst string, m *minifier) error {
	for ref, out := range a.names {
		b, err := os.ReadFile(filepath.Join(a.root, filepath.FromSlash(ref)))
		if err != nil {
			return err
		}
		if mt, ok := minifiable[path.Ext(ref)]; ok {
			if b, err = m.Bytes(mt, b); err != nil {
				return err
			}
		}
		if err := writeFile(filepath.Join(dst, filepath.FromSlash(out)), b); err != nil {
			return err
		}
	}
	return nil
}

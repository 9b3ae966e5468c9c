// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package site

import (
	"context"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.astrophena.name/base/logger"

	"github.com/fsnotify/fsnotify"
)

var serveReadyHook func() // called in tests once Serve accepts requests

// rebuildDelay is how long sources must stay unchanged before a rebuild.
const rebuildDelay = 250 * time.Millisecond

// Serve builds the site, serves c.Dst on addr and rebuilds whenever pages,
// templates or static files change. It returns when ctx is canceled.
func Serve(ctx context.Context, c *Config, addr string) error {
	c.setDefaults()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	build := func() {
		if err := Build(ctx, c); err != nil {
			logger.Error(ctx, "build failed", slog.Any("err", err))
		}
	}
	build()

	w, err := watchSources(c)
	if err != nil {
		return err
	}
	defer w.Close()

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	logger.Info(ctx, "serving site", slog.String("addr", "http://"+l.Addr().String()))

	srv := &http.Server{Handler: &siteHandler{root: os.DirFS(c.Dst)}}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(l) }()

	changes := make(chan struct{}, 1)
	go forwardChanges(ctx, w, changes)
	go rebuildLoop(ctx, changes, rebuildDelay, build)

	if serveReadyHook != nil {
		serveReadyHook()
	}

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// rebuildLoop calls build once no change has arrived for delay. Builds run on
// the loop goroutine, so they never overlap; changes that arrive during a
// build schedule the next one.
func rebuildLoop(ctx context.Context, changes <-chan struct{}, delay time.Duration, build func()) {
	t := time.NewTimer(delay)
	t.Stop()
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			t.Reset(delay)
		case <-t.C:
			build()
		}
	}
}

var sourceDirs = []string{"pages", "static", "templates"}

func watchSources(c *Config) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range sourceDirs {
		err := filepath.WalkDir(c.dir(dir), func(name string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return err
			}
			return w.Add(name)
		})
		if err != nil {
			w.Close()
			return nil, err
		}
	}
	return w, nil
}

// forwardChanges reports relevant watcher events on changes without
// blocking. New directories are watched too.
func forwardChanges(ctx context.Context, w *fsnotify.Watcher, changes chan<- struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					w.Add(ev.Name)
				}
			}
			logger.Info(ctx, "source changed", slog.String("name", ev.Name), slog.String("op", ev.Op.String()))
			select {
			case changes <- struct{}{}:
			default:
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Error(ctx, "watching sources", slog.Any("err", err))
		}
	}
}

// editorFiles are created by editors and the OS next to the files being
// edited. Vim writes 4913 to check that a directory is writable.
var editorFiles = []string{".DS_Store", "4913"}

// relevant reports whether ev can change the build output. Renames are
// followed by a create of the new name, and chmod doesn't change output.
func relevant(ev fsnotify.Event) bool {
	base := filepath.Base(ev.Name)
	if slices.Contains(editorFiles, base) || strings.HasSuffix(base, "~") || strings.HasPrefix(base, ".#") {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Remove)
}

// siteHandler serves a build directory the way static hosts do: /foo is
// served from foo.html, directories are not listed and unknown paths get
// 404.html.
type siteHandler struct {
	root fs.FS
}

func (h *siteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := resolve(h.root, r.URL.Path)
	if name == "" {
		h.notFound(w, r)
		return
	}
	http.ServeFileFS(w, r, h.root, name)
}

// resolve returns the regular file in root that serves urlPath, or "".
func resolve(root fs.FS, urlPath string) string {
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	candidates := []string{name + ".html", name}
	if name == "" {
		candidates = []string{"index.html"}
	}
	for _, c := range candidates {
		if fi, err := fs.Stat(root, c); err == nil && fi.Mode().IsRegular() {
			return c
		}
	}
	return ""
}

func (h *siteHandler) notFound(w http.ResponseWriter, r *http.Request) {
	b, err := fs.ReadFile(h.root, "404.html")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write(b)
}

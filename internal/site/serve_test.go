// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package site

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"go.astrophena.name/base/testutil"

	"github.com/fsnotify/fsnotify"
)

func TestServe(t *testing.T) {
	port, err := getFreePort()
	if err != nil {
		t.Fatalf("Failed to find a free port: %v", err)
	}
	addr := fmt.Sprintf("localhost:%d", port)

	ready := make(chan struct{})
	serveReadyHook = func() { close(ready) }
	t.Cleanup(func() { serveReadyHook = nil })

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	src, dst := extractSite(t), t.TempDir()
	errCh := make(chan error, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		errCh <- Serve(ctx, &Config{Src: src, Dst: dst}, addr)
	}()

	select {
	case err := <-errCh:
		t.Fatalf("Serve failed during startup: %v", err)
	case <-ready:
	}

	get := func(path string) (int, string) {
		t.Helper()
		res, err := http.Get("http://" + addr + path)
		if err != nil {
			t.Fatal(err)
		}
		defer res.Body.Close()
		body, err := io.ReadAll(res.Body)
		if err != nil {
			t.Fatal(err)
		}
		return res.StatusCode, string(body)
	}

	for _, tc := range []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{path: "/", wantStatus: http.StatusOK, wantBody: "adsbygoogle"},
		{path: "/hello", wantStatus: http.StatusOK, wantBody: "This is a post."},
		{path: "/404", wantStatus: http.StatusOK},
		{path: "/ads.txt", wantStatus: http.StatusOK, wantBody: "DIRECT"},
		{path: "/does-not-exist", wantStatus: http.StatusNotFound, wantBody: "Page not found."},
		{path: "/css/", wantStatus: http.StatusNotFound},
	} {
		status, body := get(tc.path)
		if status != tc.wantStatus {
			t.Fatalf("GET %s: want status code %d, got %d", tc.path, tc.wantStatus, status)
		}
		if !strings.Contains(body, tc.wantBody) {
			t.Fatalf("GET %s: want %q in body, got:\n%s", tc.path, tc.wantBody, body)
		}
	}

	// Editing a page rebuilds the site.
	hello := filepath.Join(src, "pages", "hello.md")
	b, err := os.ReadFile(hello)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(hello, []byte(strings.Replace(string(b), "This is a post.", "This post was edited.", 1)), 0o644); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(10 * time.Second)
	for {
		if _, body := get("/hello"); strings.Contains(body, "This post was edited.") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("site was not rebuilt after a page changed")
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	wg.Wait()
	if err := <-errCh; err != nil {
		t.Fatalf("Serve failed during shutdown: %v", err)
	}
}

// getFreePort asks the kernel for a free open port that is ready to use.
func getFreePort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func TestRelevant(t *testing.T) {
	cases := map[string]struct {
		name string
		op   fsnotify.Op
		want bool
	}{
		"macOS metadata":     {".DS_Store", fsnotify.Create, false},
		"vim write check":    {"pages/4913", fsnotify.Write, false},
		"vim backup file":    {"pages/hello.md~", fsnotify.Create, false},
		"emacs lock file":    {"pages/.#hello.md", fsnotify.Create, false},
		"file creation":      {"pages/hello.md", fsnotify.Create, true},
		"file removal":       {"pages/hello.md", fsnotify.Remove, true},
		"file write":         {"pages/hello.md", fsnotify.Write, true},
		"chmod":              {"pages/hello.md", fsnotify.Chmod, false},
		"rename":             {"pages/hello.md", fsnotify.Rename, false},
		"write during chmod": {"static/css/main.css", fsnotify.Write | fsnotify.Chmod, true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, relevant(fsnotify.Event{Name: tc.name, Op: tc.op}), tc.want)
		})
	}
}

func TestRebuildLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	var (
		running, overlaps, calls atomic.Int32
		built                    = make(chan struct{}, 10)
		release                  = make(chan struct{})
	)
	changes := make(chan struct{}, 1)
	go rebuildLoop(ctx, changes, 50*time.Millisecond, func() {
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		defer running.Add(-1)
		calls.Add(1)
		built <- struct{}{}
		<-release
	})

	waitBuilt := func() {
		t.Helper()
		select {
		case <-built:
		case <-time.After(5 * time.Second):
			t.Fatal("build was not called")
		}
	}

	// A burst of changes is a single build.
	for range 5 {
		changes <- struct{}{}
	}
	waitBuilt()

	// A change during a build waits for it to finish.
	changes <- struct{}{}
	time.Sleep(100 * time.Millisecond)
	testutil.AssertEqual(t, calls.Load(), int32(1))

	close(release)
	waitBuilt()
	time.Sleep(100 * time.Millisecond)
	testutil.AssertEqual(t, calls.Load(), int32(2))
	testutil.AssertEqual(t, overlaps.Load(), int32(0))
}

func TestSiteHandler(t *testing.T) {
	h := &siteHandler{root: fstest.MapFS{
		"index.html":   {Data: []byte("<p>Home</p>")},
		"hello.html":   {Data: []byte("<p>Hello</p>")},
		"404.html":     {Data: []byte("<p>Page not found.</p>")},
		"ads.txt":      {Data: []byte("google.com, pub-1, DIRECT, f08c47fec0942fa0\n")},
		"css/main.css": {Data: []byte("body{margin:0}")},
	}}

	cases := map[string]struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		"root":              {"/", http.StatusOK, "<p>Home</p>"},
		"without extension": {"/hello", http.StatusOK, "<p>Hello</p>"},
		"trailing slash":    {"/hello/", http.StatusOK, "<p>Hello</p>"},
		"with extension":    {"/hello.html", http.StatusOK, "<p>Hello</p>"},
		"plain file":        {"/ads.txt", http.StatusOK, "DIRECT"},
		"nested file":       {"/css/main.css", http.StatusOK, "body{margin:0}"},
		"directory":         {"/css", http.StatusNotFound, "Page not found."},
		"missing":           {"/nope", http.StatusNotFound, "Page not found."},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
			testutil.AssertEqual(t, w.Code, tc.wantStatus)
			if !strings.Contains(w.Body.String(), tc.wantBody) {
				t.Errorf("want %q in body, got %q", tc.wantBody, w.Body.String())
			}
		})
	}

	t.Run("no 404 page", func(t *testing.T) {
		h := &siteHandler{root: fstest.MapFS{}}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
		testutil.AssertEqual(t, w.Code, http.StatusNotFound)
	})
}

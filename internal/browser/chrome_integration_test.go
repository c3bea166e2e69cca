//go:build integration

package browser

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// page renders its search box late to exercise bounded locating.
const page = `<!doctype html>
<html><body>
<div id="log"></div>
<input type="file" accept="*" id="file">
<script>
setTimeout(function () {
  var box = document.createElement("input");
  box.setAttribute("title", "Search input textbox");
  box.addEventListener("keydown", function (e) {
    if (e.key === "Enter") {
      var hit = document.createElement("div");
      hit.setAttribute("title", box.value);
      hit.textContent = box.value;
      document.body.appendChild(hit);
    }
  });
  document.body.appendChild(box);
}, 300);
</script>
</body></html>`

func TestChrome_LocateTypeSubmit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	defer srv.Close()

	ctx := t.Context()
	c := NewChrome(Config{UserDataDir: t.TempDir(), Headless: true})
	defer c.Close()

	if err := c.Open(ctx, srv.URL); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	box, err := c.Locate(ctx, CSSAttrEquals("input", "title", "Search input textbox"), 5*time.Second)
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if err := box.Click(ctx); err != nil {
		t.Fatalf("Click() error = %v", err)
	}
	if err := box.Type(ctx, "Class - II A Students"); err != nil {
		t.Fatalf("Type() error = %v", err)
	}
	if err := box.Submit(ctx); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if _, err := c.Locate(ctx, CSSAttrEquals("div", "title", "Class - II A Students"), 5*time.Second); err != nil {
		t.Fatalf("expected destination element, got %v", err)
	}

	present, err := c.Present(ctx, CSS("#nothing"))
	if err != nil {
		t.Fatalf("Present() error = %v", err)
	}
	if present {
		t.Error("expected #nothing to be absent")
	}
}

func TestChrome_LocateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body></body></html>"))
	}))
	defer srv.Close()

	ctx := t.Context()
	c := NewChrome(Config{UserDataDir: t.TempDir(), Headless: true})
	defer c.Close()

	if err := c.Open(ctx, srv.URL); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	_, err := c.Locate(ctx, CSS(`div[title="missing"]`), 300*time.Millisecond)
	if !errors.Is(err, ErrElementNotFound) {
		t.Fatalf("expected ErrElementNotFound, got %v", err)
	}
}

func TestChrome_SetFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "Math.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.3"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	ctx := t.Context()
	c := NewChrome(Config{UserDataDir: t.TempDir(), Headless: true})
	defer c.Close()

	if err := c.Open(ctx, srv.URL); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	input, err := c.Locate(ctx, XPath(`//input[@accept="*"]`), 5*time.Second)
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if err := input.SetFiles(ctx, path); err != nil {
		t.Fatalf("SetFiles() error = %v", err)
	}
}

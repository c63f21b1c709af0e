package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/postal-lookup/pkg/browser"
	"github.com/entrhq/postal-lookup/pkg/browser/browsertest"
	"github.com/entrhq/postal-lookup/pkg/lookup"
)

const usageJSON = `{"error":"Invalid arguments. Usage: postal-lookup 'Commune' 'Street' 'Number'"}`

// fastConfig writes a config without pacing so browser runs finish quickly.
func fastConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("poll:\n  interval: 1ms\n")
	fmt.Fprintf(&b, "screenshot_path: %s\n", filepath.Join(dir, "error.png"))
	b.WriteString("logging:\n  verbosity: quiet\npacing:\n")
	for _, step := range lookup.Steps {
		fmt.Fprintf(&b, "  %s: 0s\n", step)
	}
	path := filepath.Join(dir, "postal-lookup.yaml")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func postalPage(code string) *browsertest.Page {
	sel := lookup.DefaultSelectors()
	p := browsertest.NewPage()
	commit := func(typed string, _ int) string { return typed }

	p.Set(sel.Commune, &browsertest.Element{Suggest: commit})
	p.Set(sel.Street, &browsertest.Element{Suggest: commit})
	p.Set(sel.Number, &browsertest.Element{})
	p.Set(sel.ValidationLabel, &browsertest.Element{})
	p.Set(sel.SearchButton, &browsertest.Element{})
	p.Set(sel.Result, &browsertest.Element{Text: code})

	p.OnClick = func(p *browsertest.Page, selector string) {
		switch selector {
		case sel.ValidationLabel:
			p.Element(sel.SearchButton).Enabled = true
		case sel.SearchButton:
			p.Element(sel.Result).Visible = true
		}
	}
	return p
}

type harness struct {
	launcher *browsertest.Launcher
	opts     []browser.SessionOptions
	stdout   bytes.Buffer
	stderr   bytes.Buffer
	env      map[string]string
	deps     deps
}

func newHarness(t *testing.T, page *browsertest.Page) *harness {
	h := &harness{launcher: browsertest.NewLauncher(page), env: map[string]string{}}
	h.deps = deps{
		envFile: filepath.Join(t.TempDir(), ".env"),
		getenv:  func(k string) string { return h.env[k] },
		newLauncher: func(opts browser.SessionOptions) browser.Launcher {
			h.opts = append(h.opts, opts)
			return h.launcher
		},
		httpClient: http.DefaultClient,
	}
	return h
}

func (h *harness) run(args ...string) int {
	return run(context.Background(), args, &h.stdout, &h.stderr, h.deps)
}

func TestRun_InvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no arguments", args: nil},
		{name: "two arguments", args: []string{"Santiago", "Huerfanos"}},
		{name: "four arguments", args: []string{"Santiago", "Huerfanos", "1400", "extra"}},
		{name: "blank number", args: []string{"Santiago", "Huerfanos", "  "}},
		{name: "accent-only commune", args: []string{"\u0301", "Huerfanos", "1400"}},
		{name: "unknown flag", args: []string{"-bogus", "Santiago", "Huerfanos", "1400"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, postalPage("8320000"))

			code := h.run(tt.args...)

			assert.Equal(t, 1, code)
			assert.Empty(t, h.stdout.String())
			assert.Contains(t, h.stderr.String(), usageJSON)
			assert.Zero(t, h.launcher.Launches())
		})
	}
}

func TestRun_BrowserSuccess(t *testing.T) {
	page := postalPage("7500000")
	h := newHarness(t, page)

	code := h.run("-config", fastConfig(t), "-headless=false", "Providencia", "Av. 11 de Septiembre", "2222")

	assert.Equal(t, 0, code)
	assert.JSONEq(t, `{"postalCode":"7500000"}`, h.stdout.String())
	assert.Equal(t, 1, h.launcher.Launches())
	assert.Equal(t, 1, page.CloseCount())
	require.Len(t, h.opts, 1)
	assert.False(t, h.opts[0].Headless)
}

func TestRun_BrowserFailureExitsZero(t *testing.T) {
	page := postalPage("7500000")
	page.OnClick = nil // search button never enables
	h := newHarness(t, page)

	code := h.run("-config", fastConfig(t), "Providencia", "Av. 11 de Septiembre", "2222")

	assert.Equal(t, 0, code)
	assert.JSONEq(t, `{"error":"Scraper failed: Search button did not become enabled in time."}`, h.stdout.String())
	assert.Equal(t, 1, page.CloseCount())
}

func TestRun_ConfigFromEnvironment(t *testing.T) {
	page := postalPage("7500000")
	h := newHarness(t, page)
	h.env["POSTAL_LOOKUP_CONFIG"] = fastConfig(t)

	code := h.run("Providencia", "Av. 11 de Septiembre", "2222")

	assert.Equal(t, 0, code)
	assert.JSONEq(t, `{"postalCode":"7500000"}`, h.stdout.String())
}

func TestRun_ConfigErrors(t *testing.T) {
	h := newHarness(t, postalPage("7500000"))

	code := h.run("-config", filepath.Join(t.TempDir(), "missing.yaml"), "Santiago", "Huerfanos", "1400")

	assert.Equal(t, 1, code)
	assert.Empty(t, h.stdout.String())
	assert.Contains(t, h.stderr.String(), `"error":"failed to load configuration`)
	assert.Zero(t, h.launcher.Launches())

	h = newHarness(t, postalPage("7500000"))
	code = h.run("-verbosity", "loud", "Santiago", "Huerfanos", "1400")
	assert.Equal(t, 1, code)
	assert.Contains(t, h.stderr.String(), "invalid logging verbosity")
}

func TestRun_HTTPMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, `<script>Liferay.authToken = 'tok';</script>`)
			return
		}
		fmt.Fprint(w, `{"direcciones":[{"codPostal":"8320000"}]}`)
	}))
	defer srv.Close()

	h := newHarness(t, postalPage("unused"))
	h.deps.httpClient = srv.Client()
	h.env["POSTAL_LOOKUP_CONFIG"] = fastConfig(t)
	t.Setenv("POSTAL_LOOKUP_HTTP_BASE_URL", srv.URL+"/codigo-postal")

	code := h.run("-mode", "http", "Santiago", "Huerfanos", "1400")

	assert.Equal(t, 0, code)
	assert.JSONEq(t, `{"postalCode":"8320000"}`, h.stdout.String())
	assert.Zero(t, h.launcher.Launches())
}

func TestRun_Version(t *testing.T) {
	h := newHarness(t, postalPage("7500000"))
	assert.Equal(t, 0, h.run("-version"))
	assert.Equal(t, "postal-lookup v"+version+"\n", h.stdout.String())
}

func TestRun_DotEnv(t *testing.T) {
	h := newHarness(t, postalPage("7500000"))
	require.NoError(t, os.WriteFile(h.deps.envFile, []byte("POSTAL_LOOKUP_VERBOSITY=shouty\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("POSTAL_LOOKUP_VERBOSITY") })

	code := h.run("Santiago", "Huerfanos", "1400")

	assert.Equal(t, 1, code)
	assert.Contains(t, h.stderr.String(), "invalid logging verbosity: shouty")
}

// Package swagger serves the OpenAPI document of the HTTP API and a ReDoc
// page rendering it.
package swagger

import (
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"
)

// ErrSpec is returned when the embedded document cannot be parsed.
var ErrSpec = errors.New("openapi document invalid")

//go:embed openapi.yaml
var openAPI []byte

const redocBundle = "https://cdn.redoc.ly/redoc/v2.1.5/bundles/redoc.standalone.js"

// Minimal HTML that renders /openapi.yaml with ReDoc.
const indexHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>TasteID API</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc id="redoc-container"></redoc>
    <script src="` + redocBundle + `"></script>
    <script>Redoc.init('/openapi.yaml', { suppressWarnings: true }, document.getElementById('redoc-container'));</script>
  </body>
</html>`

type document struct {
	OpenAPI string                          `yaml:"openapi"`
	Paths   map[string]map[string]yaml.Node `yaml:"paths"`
}

var (
	parseOnce sync.Once
	parsed    document
	parseErr  error
)

func load() (document, error) {
	parseOnce.Do(func() {
		if err := yaml.Unmarshal(openAPI, &parsed); err != nil {
			parseErr = fmt.Errorf("%w: %w", ErrSpec, err)
			return
		}
		if parsed.OpenAPI == "" || len(parsed.Paths) == 0 {
			parseErr = fmt.Errorf("%w: missing version or paths", ErrSpec)
		}
	})
	return parsed, parseErr
}

// Operations lists the documented operations as "METHOD /path", sorted.
func Operations() ([]string, error) {
	doc, err := load()
	if err != nil {
		return nil, err
	}
	var out []string
	for path, item := range doc.Paths {
		for method := range item {
			if method == "parameters" {
				continue
			}
			out = append(out, strings.ToUpper(method)+" "+path)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Register attaches the documentation routes to r.
//
//	GET /api-docs      -> ReDoc HTML
//	GET /openapi.yaml  -> embedded OpenAPI document
func Register(r chi.Router) error {
	if _, err := load(); err != nil {
		return err
	}
	r.Get("/api-docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(indexHTML))
	})
	r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		_, _ = w.Write(openAPI)
	})
	return nil
}

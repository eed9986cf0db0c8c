// Package swagger serves the OpenAPI document and a ReDoc viewer for it.
package swagger

import (
	"bytes"
	"context"
	"net/http"
	"time"
)

// Paths served by Register.
const (
	DocsPath = "/api-docs"
	SpecPath = "/openapi.yaml"
)

// Register attaches the API docs and the OpenAPI document routes to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	loaded := time.Now()
	mux.HandleFunc(DocsPath, static("text/html; charset=utf-8", []byte(indexHTML), loaded))
	mux.HandleFunc(SpecPath, static("application/yaml; charset=utf-8", OpenAPI, loaded))
}

// static serves body for GET and HEAD with conditional request support.
func static(contentType string, body []byte, modTime time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		http.ServeContent(w, r, "", modTime, bytes.NewReader(body))
	}
}

const indexHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Model Router API</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc id="redoc-container"></redoc>
    <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
    <script>Redoc.init('` + SpecPath + `', { suppressWarnings: true }, document.getElementById('redoc-container'));</script>
  </body>
</html>`

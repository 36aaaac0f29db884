package main

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/asaskevich/govalidator"

	web "gitlab.com/bella.network/distroproxy/lib/web"
	"gitlab.com/bella.network/distroproxy/pkg/buildinfo"
)

const statsHistoryDays = 14

// handleInternalRequests serves the status endpoints below /_distroproxy.
func handleInternalRequests(w http.ResponseWriter, r *http.Request) {
	requestedPath := strings.TrimPrefix(r.URL.Path, internalPathPrefix)

	// Set some default headers for the response. This is required to prevent
	// browsers from caching the response and to secure the server.
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if handleDebugRequests(w, r, requestedPath) {
		return
	}

	switch requestedPath {
	case "/stats":
		writeJSON(w, tracker.Snapshot(statsHistoryDays))
	case "/repositories":
		writeJSON(w, map[string]any{
			"strategies":   routes.Strategies(),
			"repositories": repositories.Entries(),
		})
	case "/resolve":
		serveResolve(w, r)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}

	log.Printf("[INFO:WEB] Requested path: %s\n", requestedPath)
}

// serveResolve reports which upstream the path given in the "path" query
// parameter would be forwarded to, without contacting the upstream.
func serveResolve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if !strings.HasPrefix(path, "/") {
		http.Error(w, "Query parameter path must start with /", http.StatusBadRequest)
		return
	}

	var query string
	if q := r.URL.Query().Get("query"); q != "" {
		query = "?" + strings.TrimPrefix(q, "?")
	}

	decision, ok := routes.Resolve(path, query)
	writeJSON(w, map[string]any{
		"path":           path,
		"matched":        ok,
		"target_url":     decision.TargetURL,
		"matched_prefix": decision.MatchedPrefix,
		"strategy":       decision.Strategy,
	})
}

// serveIndex renders the documentation page. The template is rendered into a
// buffer first so a failure still results in a proper error response.
func serveIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := web.RenderIndex(&buf, web.IndexData{
		Origin:       requestOrigin(r),
		Version:      buildinfo.Version,
		Repositories: repositories.Entries(),
	})
	if err != nil {
		log.Printf("[ERR:WEB] Error rendering index page: %v\n", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(buf.Bytes())
	}
}

// requestOrigin returns the origin clients use to reach this deployment. TLS
// usually terminates in front of the proxy, so X-Forwarded-Proto is honored.
func requestOrigin(r *http.Request) string {
	if config.Index.Origin != "" {
		return config.Index.Origin
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		proto = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
		if proto == "http" || proto == "https" {
			scheme = proto
		}
	}

	host := r.Host
	if !govalidator.IsHost(host) && !govalidator.IsDialString(host) {
		host = "localhost"
	}

	return scheme + "://" + host
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		log.Printf("[ERR:WEB] Error encoding response: %v\n", err)
	}
}

package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"gitlab.com/bella.network/distroproxy/pkg/forwarder"
	"gitlab.com/bella.network/distroproxy/pkg/stats"
)

// internalPathPrefix is the path below which the proxy serves its own status
// endpoints. No repository prefix may start with it.
const internalPathPrefix = "/_distroproxy"

// handleRequest is the main handler function for incoming HTTP requests. The
// documentation page and some standard files are answered directly, all other
// paths are resolved to an upstream mirror and proxied. Paths no repository
// matches are answered with 404.
func handleRequest(w http.ResponseWriter, r *http.Request) {
	path := r.URL.EscapedPath()

	if path == internalPathPrefix || strings.HasPrefix(path, internalPathPrefix+"/") {
		handleInternalRequests(w, r)
		return
	}

	// Answer/skip some standard requests to the proxy server.
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		switch path {
		case "/", "/index.html":
			if *config.Index.Enable {
				serveIndex(w, r)
				return
			}
		case "/favicon.ico":
			// Serve a 404 page not providing a favicon.
			w.WriteHeader(http.StatusNotFound)
			return
		case "/robots.txt":
			// Forbid all robots from indexing the proxy server.
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /\n"))
			return
		}
	}

	proxyRequest(w, r, path)
}

// proxyRequest resolves path to an upstream URL and relays the request.
func proxyRequest(w http.ResponseWriter, r *http.Request, path string) {
	var query string
	if r.URL.RawQuery != "" {
		query = "?" + r.URL.RawQuery
	}

	decision, ok := routes.Resolve(path, query)
	if !ok {
		writeNotFound(w, path)
		tracker.Track(stats.NotFound, "", 0)
		log.Printf("[INFO:404:%s] Repository not found: %s\n", r.RemoteAddr, path)
		return
	}

	requestID := uuid.NewString()
	w.Header().Set("X-Proxy-Request-Id", requestID)
	log.Printf("[INFO:PROXY:%s] %s %s -> %s (%s)\n", requestID, r.Method, path, decision.TargetURL, decision.Strategy)

	written, err := forward.Forward(w, r, decision.TargetURL)
	var upstreamErr *forwarder.UpstreamError
	switch {
	case errors.As(err, &upstreamErr):
		tracker.Track(stats.UpstreamError, decision.MatchedPrefix, 0)
		log.Printf("[ERR:PROXY:%s] %s - Error proxying to repository: %v\n", requestID, decision.TargetURL, upstreamErr.Err)
	case err != nil:
		tracker.Track(stats.Proxied, decision.MatchedPrefix, written)
		log.Printf("[WARN:PROXY:%s] %s - %v\n", requestID, decision.TargetURL, err)
	default:
		tracker.Track(stats.Proxied, decision.MatchedPrefix, written)
	}
}

// writeNotFound answers a path no repository matches.
func writeNotFound(w http.ResponseWriter, path string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusNotFound)
	_, _ = fmt.Fprintf(w, "Repository not found: %s\n", path)
}

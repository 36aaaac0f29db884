package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	httppprof "net/http/pprof"
	"runtime"
	"runtime/pprof"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"gitlab.com/bella.network/distroproxy/pkg/buildinfo"
)

func initDebug(ctx context.Context) {
	if !config.Debug.Enable {
		return
	}

	log.Printf("[INFO] Debug output enabled")

	if config.Debug.LogIntervalSeconds > 0 {
		go debugLogger(ctx, time.Duration(config.Debug.LogIntervalSeconds)*time.Second)
	}
}

func debugLogger(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logDebugStats()
	for {
		select {
		case <-ticker.C:
			logDebugStats()
		case <-ctx.Done():
			return
		}
	}
}

func logDebugStats() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	log.Printf(
		"[DEBUG:MEM] goroutines=%d heap_alloc=%s heap_inuse=%s sys=%s gc_num=%d",
		runtime.NumGoroutine(),
		formatBytes(mem.HeapAlloc),
		formatBytes(mem.HeapInuse),
		formatBytes(mem.Sys),
		mem.NumGC,
	)
}

// handleDebugRequests serves /debug and /debug/pprof below the internal path.
// It returns false if the request is not a debug request.
func handleDebugRequests(w http.ResponseWriter, r *http.Request, requestedPath string) bool {
	if !config.Debug.Enable {
		return false
	}

	if requestedPath != "/debug" && !strings.HasPrefix(requestedPath, "/debug/") {
		return false
	}

	if !config.Debug.AllowRemote && !isLocalRequest(r) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return true
	}

	switch {
	case requestedPath == "/debug" || requestedPath == "/debug/":
		writeDebugJSON(w)
	case strings.HasPrefix(requestedPath, "/debug/pprof"):
		servePprof(w, r, requestedPath)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
	return true
}

func writeDebugJSON(w http.ResponseWriter) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeJSON(w, map[string]any{
		"time":         time.Now().UTC().Format(time.RFC3339),
		"version":      buildinfo.Version,
		"commit":       buildinfo.Commit,
		"built_at":     buildinfo.Date,
		"go_version":   runtime.Version(),
		"goroutines":   runtime.NumGoroutine(),
		"gomaxprocs":   runtime.GOMAXPROCS(0),
		"repositories": repositories.Len(),
		"strategies":   routes.Strategies(),
		"mem": map[string]any{
			"heap_alloc":     mem.HeapAlloc,
			"heap_inuse":     mem.HeapInuse,
			"heap_sys":       mem.HeapSys,
			"sys":            mem.Sys,
			"num_gc":         mem.NumGC,
			"pause_total_ns": mem.PauseTotalNs,
		},
	})
}

func servePprof(w http.ResponseWriter, r *http.Request, requestedPath string) {
	base := internalPathPrefix + "/debug/pprof"
	path := strings.TrimPrefix(requestedPath, "/debug/pprof")
	if path == "" || path == "/" {
		writePprofIndex(w, base)
		return
	}

	name := strings.TrimPrefix(path, "/")
	switch name {
	case "cmdline":
		httppprof.Cmdline(w, r)
	case "profile":
		httppprof.Profile(w, r)
	case "symbol":
		httppprof.Symbol(w, r)
	case "trace":
		httppprof.Trace(w, r)
	default:
		httppprof.Handler(name).ServeHTTP(w, r)
	}
}

func writePprofIndex(w http.ResponseWriter, base string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprintf(w, "<html><head><title>pprof</title></head><body>")
	_, _ = fmt.Fprintf(w, "<h1>pprof profiles</h1>")
	_, _ = fmt.Fprintf(w, "<p><a href=\"%s/cmdline\">cmdline</a> | <a href=\"%s/profile\">profile</a> | <a href=\"%s/symbol\">symbol</a> | <a href=\"%s/trace\">trace</a></p>", base, base, base, base)
	_, _ = fmt.Fprintf(w, "<ul>")
	profiles := pprof.Profiles()
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Name() < profiles[j].Name()
	})
	for _, p := range profiles {
		name := p.Name()
		_, _ = fmt.Fprintf(w, "<li><a href=\"%s/%s\">%s</a></li>", base, name, name)
	}
	_, _ = fmt.Fprintf(w, "</ul></body></html>")
}

func isLocalRequest(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback()
}

func formatBytes(v uint64) string {
	return humanize.IBytes(v)
}

// Package forwarder relays a client request to an upstream mirror and streams
// the response back without buffering it, so large package files can be
// passed through with constant memory usage.
package forwarder

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"gitlab.com/bella.network/distroproxy/pkg/buildinfo"
)

// ErrorPrefix is the start of the response body sent when the upstream could
// not be contacted.
const ErrorPrefix = "Error proxying to repository: "

// hopByHopHeaders lists headers that must not be forwarded between client and
// upstream. These are defined by RFC 9110 section 7.6.1.
var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Proxy-Connection":    {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

// UpstreamError is returned when the upstream request failed on the transport
// level, e.g. DNS resolution, refused connection or TLS handshake. A client may
// retry the request, the forwarder itself never does.
type UpstreamError struct {
	Target string
	Err    error
}

func (e *UpstreamError) Error() string {
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Forwarder issues upstream requests with a shared HTTP client.
type Forwarder struct {
	client *http.Client
}

// New creates a forwarder. If client is nil, a client without timeout and
// without transparent decompression is used, the response body is relayed
// exactly as sent by the upstream.
func New(client *http.Client) *Forwarder {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				Proxy:               nil,
				MaxIdleConnsPerHost: 16,
				DisableCompression:  true,
			},
		}
	}

	return &Forwarder{client: client}
}

// Do sends the request r to target, reusing its method, headers and body. The
// outbound request is bound to the context of r, so it is cancelled when the
// client goes away. The caller must close the response body.
func (f *Forwarder) Do(r *http.Request, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		return nil, &UpstreamError{Target: target, Err: err}
	}

	req.ContentLength = r.ContentLength
	copyHeaders(req.Header, r.Header)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Target: target, Err: err}
	}

	return resp, nil
}

// Forward proxies r to target and writes the upstream response to w. Status
// code, headers and body are passed through unmodified. On a transport error a
// 500 response carrying the failure reason is written and an *UpstreamError
// returned. The number of body bytes relayed to the client is returned.
func (f *Forwarder) Forward(w http.ResponseWriter, r *http.Request, target string) (int64, error) {
	resp, err := f.Do(r, target)
	if err != nil {
		WriteUpstreamError(w, err)
		return 0, err
	}
	defer resp.Body.Close()

	copyHeaders(w.Header(), resp.Header)
	w.Header().Set("X-Proxy-Server", buildinfo.ServerHeader())
	w.WriteHeader(resp.StatusCode)

	if r.Method == http.MethodHead {
		return 0, nil
	}

	written, err := io.Copy(w, resp.Body)
	if err != nil {
		// Headers are already sent, the only option left is to abort.
		log.Printf("[WARN:PROXY] %s - Body transfer aborted after %d bytes: %v\n", target, written, err)
		return written, fmt.Errorf("relay body: %w", err)
	}

	return written, nil
}

// WriteUpstreamError writes the plain-text 500 response for a failed upstream
// request.
func WriteUpstreamError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = io.WriteString(w, ErrorPrefix+err.Error())
}

// copyHeaders copies all end-to-end headers from src to dst. Headers named in
// the Connection header of src are hop-by-hop as well and skipped.
func copyHeaders(dst, src http.Header) {
	connectionHeaders := make(map[string]struct{})
	for _, value := range src.Values("Connection") {
		for _, token := range strings.Split(value, ",") {
			if token = strings.TrimSpace(token); token != "" {
				connectionHeaders[http.CanonicalHeaderKey(token)] = struct{}{}
			}
		}
	}

	for key, values := range src {
		key = http.CanonicalHeaderKey(key)
		if _, ok := hopByHopHeaders[key]; ok {
			continue
		}
		if _, ok := connectionHeaders[key]; ok {
			continue
		}
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

// Package buildinfo carries version metadata of the binary.
package buildinfo

// Version metadata is overridden at build time via ldflags, e.g.
// -X gitlab.com/bella.network/distroproxy/pkg/buildinfo.Version=1.2.0
var (
	Version = "0.0.0-DEBUG"
	Commit  = "unknown"
	Date    = "unknown"
)

// ServerHeader returns the value of the X-Proxy-Server response header.
func ServerHeader() string {
	return "DistroProxy/" + Version
}

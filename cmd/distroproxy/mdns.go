package main

import (
	"log"

	"github.com/grandcat/zeroconf"

	"gitlab.com/bella.network/distroproxy/pkg/buildinfo"
)

// mDNSAnnouncement registers the proxy as HTTP service on the local network.
// The returned function withdraws the announcement.
func mDNSAnnouncement() func() {
	txt := []string{
		"path=/",
		"version=" + buildinfo.Version,
	}

	server, err := zeroconf.Register("DistroProxy", "_http._tcp", "local.", config.ListenPort, txt, nil)
	if err != nil {
		log.Println("[ERR:mDNS] Failed to register service: ", err)
		return func() {}
	}

	log.Printf("[INFO:mDNS] Announcing service on port %d\n", config.ListenPort)
	return server.Shutdown
}

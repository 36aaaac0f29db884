package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gitlab.com/bella.network/distroproxy/pkg/buildinfo"
	"gitlab.com/bella.network/distroproxy/pkg/forwarder"
	"gitlab.com/bella.network/distroproxy/pkg/repomap"
	"gitlab.com/bella.network/distroproxy/pkg/router"
	"gitlab.com/bella.network/distroproxy/pkg/stats"
)

var (
	config       *Config              // Config struct holding the configuration values
	repositories *repomap.Table       // Merged repository table, read-only after startup
	routes       *router.Router       // Router resolving request paths to upstream URLs
	forward      *forwarder.Forwarder // Forwarder relaying requests to the upstreams
	tracker      *stats.Tracker       // Request statistics
)

func main() {
	// Detect if the program is launched by systemd, in that case only print
	// reduced logs.
	if os.Getenv("INVOCATION_ID") != "" {
		log.SetFlags(0)
	} else {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	log.Printf("[INFO] Starting distroproxy %s (%s)\n", buildinfo.Version, buildinfo.Commit)

	// Check if envorinment variable is set with the path to the config file
	configPath := os.Getenv("CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	var err error
	config, err = ReadConfig(configPath)
	if err != nil {
		log.Fatal("Error reading config file: ", err)
	}

	repositories, err = buildRepositoryTable(config)
	if err != nil {
		log.Fatal("Error building repository table: ", err)
	}
	log.Printf("[INFO] Loaded %d repositories\n", repositories.Len())

	routes = router.NewDefault(repositories)
	forward = forwarder.New(nil)

	tracker = stats.New(config.StateDirectory)
	tracker.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stopDatabaseSync := func() {}
	if config.Database.Hostname != "" {
		stopDatabaseSync, err = startDatabaseSync(ctx)
		if err != nil {
			log.Fatal("Error initializing database: ", err)
		}
	}

	if config.MDNS {
		shutdownMDNS := mDNSAnnouncement()
		defer shutdownMDNS()
	}

	initDebug(ctx)

	if err := ListenHTTP(ctx); err != nil {
		log.Fatal("[ERR] Error running proxy server: ", err)
	}

	if err := tracker.Stop(); err != nil {
		log.Printf("[WARN:STATS] failed to persist stats: %v\n", err)
	}
	stopDatabaseSync()

	log.Println("[INFO] Shutdown complete")
}

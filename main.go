package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/krantius/raftsim/raft"
	"github.com/krantius/raftsim/shared/logging"
)

func main() {
	c, err := LoadConfig(os.Getenv("RAFT_CONFIG"))
	if err != nil {
		logging.Errorf("%v", err)
		os.Exit(1)
	}

	if err := logging.Setup(c.LogLevel); err != nil {
		logging.Errorf("%v", err)
		os.Exit(1)
	}

	cfg, err := c.Raft()
	if err != nil {
		logging.Errorf("%v", err)
		os.Exit(1)
	}

	if !cfg.Live() {
		logging.Warningf("election timeout %v does not outlast a round trip plus rpc timeout, elections may not settle", cfg.MinElectionTimeout)
	}

	cluster, err := raft.NewCluster(c.Servers, cfg, raft.ClusterOptions{Seed: c.Seed})
	if err != nil {
		logging.Errorf("%v", err)
		os.Exit(1)
	}

	go newPrinter(os.Stdout).run(cluster.Events())

	cluster.Start()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", c.Port),
		Handler: raft.NewRouter(cluster),
	}

	go func() {
		logging.Infof("serving api on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Errorf("api server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	<-sig

	cluster.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Errorf("shutting down api: %v", err)
	}
}

package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payprotector/config"
	"payprotector/core"
	"payprotector/core/state"
	nativecommon "payprotector/native/common"
	"payprotector/native/order"
	"payprotector/observability/logging"
	"payprotector/rpc"
	"payprotector/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./config.toml", "path to the TOML config file")
	flag.Parse()

	env := os.Getenv("PAYPROTECTOR_ENV")
	if env == "" {
		env = "development"
	}
	logger := logging.Setup("payprotectord", env)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("open database", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	mgr := state.NewManager(db)
	if err := mgr.ApplyAllocations(cfg.Allocations()); err != nil {
		logger.Error("apply genesis allocations", "error", err)
		os.Exit(1)
	}

	engine := order.NewEngine(cfg.AuctionTimespan)
	if len(cfg.PausedModules) > 0 {
		logger.Warn("modules administratively paused", "modules", cfg.PausedModules)
		engine.SetPauses(nativecommon.NewStaticPauses(cfg.PausedModules))
	}
	node := core.NewNode(mgr, engine)

	authToken := os.Getenv("PAYPROTECTOR_RPC_TOKEN")
	if authToken == "" {
		logger.Warn("PAYPROTECTOR_RPC_TOKEN not set, mutating RPC methods disabled")
	}
	server := rpc.NewServer(node, authToken, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("settlement RPC listening", "address", cfg.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

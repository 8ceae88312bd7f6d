package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"noisedash/internal/api/handlers"
	"noisedash/internal/api/logics"
	"noisedash/internal/api/router"
	"noisedash/internal/config"
	"noisedash/internal/store"
	"noisedash/internal/utils"
)

func main() {
	config.InitEnvConfig()
	utils.InitTimeConfig()
	cfg := config.GetEnvConfig()

	st, err := openStore(cfg)
	if err != nil {
		utils.LogFatal("failed to open %s store: %v", cfg.StorageBackend, err)
	}

	// Setup graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		utils.LogInfo("shutting down server...")
		_ = st.Close()
		os.Exit(0)
	}()

	svc := logics.NewReadingService(st, utils.GetDefaultTimezone(), cfg)
	h := handlers.NewReadingsHandler(svc)

	addr := fmt.Sprintf(":%s", cfg.Port)
	utils.LogInfo("noisedash server running on %s (storage=%s)", addr, cfg.StorageBackend)
	utils.LogFatal("server stopped: %v", http.ListenAndServe(addr, router.NewRouter(h)))
}

// openStore builds the configured storage backend with the pool policy owned
// here, at the composition root
func openStore(cfg *config.EnvConfig) (store.ReadingStore, error) {
	pool := store.PoolConfig{
		MaxConnections:    cfg.DBMaxConnections,
		ConnectionTimeout: cfg.DBConnectionTimeout,
		IdleTimeout:       cfg.DBIdleTimeout,
	}

	if cfg.StorageBackend == "sqlite" {
		return store.NewSQLiteStore(cfg.SQLiteDSN, pool)
	}
	return store.NewPostgresStore(cfg.GetPostgresDSN(), pool)
}

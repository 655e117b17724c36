package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"barinv/config"
	"barinv/database"
	"barinv/loader"
	"barinv/render"
)

const (
	startupTimeout  = 3 * time.Minute
	shutdownTimeout = 5 * time.Second
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("WARN: Failed to load config file: %v. Using environment and defaults.", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 起動フェーズ: 接続 → スキーマ → シード。終わるまで待ち受けは始めない。
	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	log.Println("Connecting to database...")
	dbConn, err := database.Open(startCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}
	defer dbConn.Close()
	log.Printf("Database connection successful (%s).", dbConn.DriverName())

	if err := loader.InitDatabase(startCtx, dbConn); err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}

	var locker loader.SeedLocker = loader.NoopLocker{}
	if cfg.RedisURL != "" {
		redisLocker, rdb, err := loader.NewRedisLockerFromURL(startCtx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Seed lock unavailable: %v", err)
		}
		defer rdb.Close()
		locker = redisLocker
		log.Println("Using redis seed lock.")
	}

	seed, err := loader.SeedIfEmpty(startCtx, dbConn, loader.SeedOptions{
		Path:     cfg.SeedFilePath,
		Encoding: cfg.SeedEncoding,
		Skip:     cfg.SkipSeed,
		Locker:   locker,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Seed step finished: %s (%d rows).", seed.Status, seed.Rows)
	cancel()

	rd, err := render.New()
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}
	log.Println("HTML templates loaded and parsed.")

	mux := http.NewServeMux()
	SetupRoutes(mux, dbConn, rd)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           RequestLogger(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server start error: %v", err)
		}
	}()

	if cfg.OpenBrowser {
		openBrowser("http://localhost:" + cfg.Port)
	}

	<-ctx.Done()
	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: HTTP server shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}

func openBrowser(url string) {
	var err error
	switch runtime.GOOS {
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = exec.Command("xdg-open", url).Start()
	}
	if err != nil {
		log.Printf("failed to open browser: %v", err)
	}
}

package main

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"lanerush/backend/internal/shared/logger"
	"lanerush/backend/internal/telemetry"
)

func main() {
	log := logger.New("telemetry")
	addr := getenv("TELEMETRY_ADDR", ":9002")
	store := telemetry.NewStore(getenvInt("TELEMETRY_RECENT_LIMIT", 1000))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           telemetry.NewHandler(store),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("telemetry listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

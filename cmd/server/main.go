package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/npezzotti/studychat/internal/api"
	"github.com/npezzotti/studychat/internal/config"
	"github.com/npezzotti/studychat/internal/database"
	"github.com/npezzotti/studychat/internal/rewards"
	"github.com/npezzotti/studychat/internal/rooms"
	"github.com/npezzotti/studychat/internal/server"
	"github.com/npezzotti/studychat/internal/stats"
	"github.com/redis/go-redis/v9"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var (
	addr           string
	dsn            string
	redisAddr      string
	signingKey     string
	allowedOrigins stringSliceFlag
)

func main() {
	// Missing .env is fine, flags and the environment cover it.
	godotenv.Load()

	flag.StringVar(&addr, "addr", envOr("STUDYCHAT_ADDR", "localhost:8000"), "server address")
	flag.StringVar(&dsn, "dsn", envOr("STUDYCHAT_DSN",
		"host=localhost user=postgres password=postgres dbname=postgres sslmode=disable"), "database connection string")
	flag.StringVar(&redisAddr, "redis-addr", envOr("STUDYCHAT_REDIS_ADDR", "localhost:6379"), "redis address for reward events")
	flag.StringVar(&signingKey, "signing-key", envOr("STUDYCHAT_SIGNING_KEY", defaultSigningKey), "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[studychat] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, redisAddr, signingKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgStudyChatRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if err := dbConn.Migrate(); err != nil {
		logger.Fatal("migrate:", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)
	statsUpdater.RegisterMetric(stats.NumConnections)
	statsUpdater.RegisterMetric(stats.NumActiveRooms)
	statsUpdater.RegisterMetric(stats.NumMessagesSent)
	statsUpdater.RegisterMetric(stats.NumRewardEvents)

	rewardPublisher := rewards.NewRedisPublisher(redisClient)
	roomService := rooms.NewRoomService(logger, dbConn, rewardPublisher, statsUpdater)

	registry := server.NewConnectionRegistry(logger, statsUpdater)
	sweeper := server.NewSweeper(registry, logger)

	srv := api.NewStudyChatApp(logger, dbConn, roomService, registry, statsUpdater, mux, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	sweeper.Run()
	defer sweeper.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutdown complete")
}

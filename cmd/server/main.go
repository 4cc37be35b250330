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

	"github.com/haichat/haichat/internal/ai"
	"github.com/haichat/haichat/internal/api"
	"github.com/haichat/haichat/internal/config"
	"github.com/haichat/haichat/internal/server"
	"github.com/haichat/haichat/internal/stats"
	"github.com/haichat/haichat/internal/store"
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

var (
	addr           string
	mongoURI       string
	mongoDatabase  string
	signingKey     string
	allowedOrigins stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&mongoURI, "mongo-uri", "mongodb://localhost:27017", "mongodb connection string")
	flag.StringVar(&mongoDatabase, "mongo-db", "haichat", "mongodb database name")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[haichat] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, mongoURI, mongoDatabase, signingKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 10*time.Second)
	st, err := store.NewMongoChatStore(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
	cancelConnect()
	if err != nil {
		logger.Fatal("mongo connect:", err)
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			logger.Fatal("mongo close:", err)
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	chatServer, err := server.NewChatServer(logger, st, statsUpdater)
	if err != nil {
		logger.Fatal("new chat server:", err)
	}

	assistant := ai.NewAssistant(ai.NewClient(cfg.AiEndpoint, cfg.AiApiKey, logger), logger)

	srv, err := api.NewHaiChatApp(mux, logger, chatServer, st, assistant, cfg)
	if err != nil {
		logger.Fatal("new app:", err)
	}

	statsUpdater.Run()
	defer statsUpdater.Stop()

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

	logger.Println("shutting down chat server...")
	if err := chatServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("chat server shutdown:", err)
	}

	logger.Println("shutdown complete")
}

// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"

	"github.com/mantisfury/arkham-core/internal/config"
	"github.com/mantisfury/arkham-core/internal/frame"
	"github.com/mantisfury/arkham-core/internal/logger"
	"github.com/mantisfury/arkham-core/internal/proto"
	"github.com/mantisfury/arkham-core/internal/server"
)

func main() {
	logFile := "hive-server.log"
	if _, err := logger.Init(logFile); err != nil {
		log.Printf("Failed to initialize logger: %v, using stdout only", err)
	} else {
		logger.Printf("Logger initialized, writing to %s", logFile)
	}

	if err := godotenv.Load(); err != nil {
		logger.Printf("No .env file found, using environment variables: %v", err)
	} else {
		logger.Printf("Loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f, err := frame.Build(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to build frame: %v", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Errorf("frame close error: %v", err)
		}
	}()

	go func() {
		logger.Printf("Starting %d worker pools", len(f.Pools))
		if err := f.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf("worker pools stopped: %v", err)
		}
	}()

	notifications := server.NewNotificationHub(f.Redis)
	defer notifications.Stop()
	wireNotifications(f, notifications)

	grpcServer := grpc.NewServer()
	proto.RegisterHiveServer(grpcServer, server.NewHiveService(f))

	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		logger.Fatalf("failed to listen on grpc port: %v", err)
	}

	go func() {
		logger.Printf("gRPC server listening on %d", cfg.GRPCPort)
		if err := grpcServer.Serve(grpcListener); err != nil && err != grpc.ErrServerStopped {
			logger.Errorf("gRPC server error: %v", err)
		}
	}()

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: server.NewRouter(f, notifications, cfg.StaticDir),
	}

	go func() {
		logger.Printf("HTTP server listening on %d", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("HTTP server error: %v", err)
		}
	}()

	waitForShutdown(ctx, stop, grpcServer, httpServer)
}

// waitForShutdown blocks until ctx is canceled (on SIGINT/SIGTERM), then
// drains the gRPC and HTTP servers within a bounded timeout, matching
// the teacher's waitForShutdown sequence (stop workers, GracefulStop,
// httpServer.Shutdown).
func waitForShutdown(ctx context.Context, stop context.CancelFunc, grpcServer *grpc.Server, httpServer *http.Server) {
	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Println("Shutting down servers...")

	grpcServer.GracefulStop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP shutdown error: %v", err)
	}

	if err := logger.GetDefault().Close(); err != nil {
		log.Printf("Failed to close logger: %v", err)
	}
}

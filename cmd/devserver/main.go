package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mentor_chat/internal/config"
	"mentor_chat/internal/devserver"
	"mentor_chat/internal/domain"
	"mentor_chat/pkg/logger"

	"github.com/google/uuid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Log.Level)

	store := devserver.NewStore()
	seedDemoData(store)

	hub := devserver.NewHub(appLogger)
	server := devserver.NewServer(store, hub, cfg, appLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.DevServer.Host, cfg.DevServer.Port),
		Handler:      server.Router(),
		ReadTimeout:  cfg.DevServer.ReadTimeout,
		WriteTimeout: cfg.DevServer.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting dev server", "port", cfg.DevServer.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down dev server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}

// seedDemoData gives a fresh dev server something to look at.
func seedDemoData(store *devserver.Store) {
	lead := domain.User{ID: uuid.New(), DisplayName: "Program Lead", Role: domain.RoleMentor}
	store.AppendGroupMessage("cohort-7", lead, "Welcome to cohort 7!")
	ann := store.CreateAnnouncement(lead, "Kickoff schedule", "First session is Monday 10:00.", domain.PriorityHigh)
	store.AddComment(ann.ID, lead, "Reply here with questions.")
}

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

	"github.com/docassist/assistant/internal/api"
	"github.com/docassist/assistant/internal/config"
	"github.com/docassist/assistant/internal/core"
	"github.com/docassist/assistant/internal/filter"
	"github.com/docassist/assistant/internal/search"
	"github.com/docassist/assistant/internal/store"
	"github.com/docassist/assistant/internal/viz"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	// Initialize LLM service
	llmService, err := core.NewLLMService()
	if err != nil {
		log.Fatalf("Failed to initialize LLM service: %v", err)
	}
	log.Printf("Using chat model %q", llmService.ChatModel())

	contentFilter := filter.New()
	webSearch := search.NewClient("")

	// Wire the pipeline services
	ragService := core.NewRAGService(dbStore, llmService, webSearch)
	docService := core.NewDocumentService(dbStore, llmService, contentFilter)
	chatService := core.NewChatService(ragService, llmService, contentFilter)
	renderer := viz.NewRenderer(config.AppConfig.WordcloudFont)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(dbStore, chatService, docService, llmService, renderer)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 6 * time.Minute, // model pulls block for the whole download
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give active connections time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}

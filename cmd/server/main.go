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

	"ois.ut.ee/course-advisor/internal/api"
	"ois.ut.ee/course-advisor/internal/catalog"
	"ois.ut.ee/course-advisor/internal/config"
	"ois.ut.ee/course-advisor/internal/core"
	"ois.ut.ee/course-advisor/internal/feedback"
	"ois.ut.ee/course-advisor/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Load the course catalog with its precomputed embeddings. Missing or
	// malformed input files are fatal at startup, never mid-query.
	courseCatalog, err := catalog.Load(config.AppConfig.CoursesCSV, config.AppConfig.EmbeddingsCSV)
	if err != nil {
		log.Fatalf("Failed to load course catalog: %v", err)
	}

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	// Initialize LLM service
	llmService := core.NewLLMService()

	// Initialize retrieval and advisor services
	retrievalService := core.NewRetrievalService(courseCatalog, llmService)
	advisorService := core.NewAdvisorService(dbStore, retrievalService, llmService)

	// Feedback sink
	feedbackLogger := feedback.NewLogger(config.AppConfig.FeedbackCSV)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(advisorService, feedbackLogger)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // a turn makes two LLM calls back to back
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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fieldcomms/server/internal/api"
	"github.com/fieldcomms/server/internal/config"
	"github.com/fieldcomms/server/internal/core"
	"github.com/fieldcomms/server/internal/ingest"
	"github.com/fieldcomms/server/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Command line flag for seeding the sample dataset
	seedFlag := flag.Bool("seed", false, "Ingest the bundled sample dataset and exit")
	flag.Parse()

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	// Initialize ingestion service
	ingestService := core.NewIngestService(dbStore)

	if *seedFlag {
		log.Println("Starting sample data seeding...")
		if err := runSeed(ingestService); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
		log.Println("Sample data seeded. Exiting.")
		return // dbStore.Close() runs via defer
	}

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(dbStore, ingestService)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // Ingestion runs can take time
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
	<-quit // Block until a signal is received
	log.Println("Shutting down server...")

	// Give active connections time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}

// runSeed ingests the sample police-department dataset: a three-member
// roster, a nested reporting tree, per-member rules, and a short bilingual
// transcript.
func runSeed(svc *core.IngestService) error {
	members := []ingest.TeamMember{
		{Name: "Ramesh Kumar", Role: "Superintendent of Police", Phone: "+91 1234567890", Alias: "Ramesh SP"},
		{Name: "Sita Rao", Role: "Deputy Superintendent of Police", Phone: "+91 2345678901", Alias: "Sita DSP"},
		{Name: "Vijay Sharma", Role: "Inspector", Phone: "+91 3456789012", Alias: "Vijay Insp"},
	}

	hierarchy, err := ingest.FlattenHierarchy([]byte(`[
        {"name": "Ramesh Kumar", "reports": [
            {"name": "Sita Rao", "reports": [
                {"name": "Vijay Sharma"}
            ]}
        ]}
    ]`))
	if err != nil {
		return err
	}

	rules := []ingest.MemberRule{
		{UserID: "Ramesh Kumar", SummarizeKeywords: []string{"crime", "report"}, Prioritize: "high"},
		{UserID: "Sita Rao", SummarizeKeywords: []string{"survey", "meeting"}, Prioritize: "medium"},
		{UserID: "Vijay Sharma", SummarizeKeywords: []string{"patrol"}, Prioritize: "low"},
	}

	sampleChat := `6/25/25, 10:00 - Ramesh SP: Team, please prepare the crime report by tomorrow.
6/25/25, 10:05 - Sita DSP: I'll conduct a survey of recent incidents. Any specific areas to focus on?
6/25/25, 10:10 - Vijay Insp: Completed the patrol. Report submitted. <Media omitted>
6/25/25, 10:15 - Sita DSP: ఈ రోజు సమావేశం ఉంది, సిద్ధంగా ఉండండి (Meeting today, be ready)
`

	chatPath := filepath.Join(os.TempDir(), "sampleChat.txt")
	if err := os.WriteFile(chatPath, []byte(sampleChat), 0o644); err != nil {
		return fmt.Errorf("failed to write sample chat: %w", err)
	}
	defer os.Remove(chatPath)

	result, err := svc.Ingest(core.IngestRequest{
		GroupName:    "Kakinada Rural",
		ChatFilePath: chatPath,
		TeamMembers:  members,
		Hierarchy:    hierarchy,
		Rules:        rules,
	})
	if err != nil {
		return err
	}

	log.Printf("Seeded group %s (%s) with %d messages", result.GroupName, result.GroupID, result.MessagesSaved)
	return nil
}

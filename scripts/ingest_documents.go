package main

import (
	"context"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"alfredoptarigan/voice-interview/internal/app"
	"alfredoptarigan/voice-interview/internal/config"
	"alfredoptarigan/voice-interview/internal/logger"
	"alfredoptarigan/voice-interview/internal/models"
)

// Usage: go run scripts/ingest_documents.go <user-id> [directory]
func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: ingest_documents <user-id> [directory]")
	}
	userID := os.Args[1]
	dir := "./reference_docs"
	if len(os.Args) > 2 {
		dir = os.Args[2]
	}

	log.Println("🚀 Starting document ingestion...")

	// Load configuration
	cfg := config.Load()

	zapLogger, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}

	ctx := context.Background()

	application, err := app.New(ctx, cfg, zapLogger)
	if err != nil {
		log.Fatalf("❌ Failed to initialize application: %v", err)
	}
	defer application.Close()

	if err := application.Documents.InitializeUser(ctx, userID); err != nil {
		log.Fatalf("❌ Failed to initialize user: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Fatalf("❌ Failed to read %s: %v", dir, err)
	}

	successCount := 0
	failCount := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".pdf" && ext != ".txt" && ext != ".md" {
			log.Printf("   ⚠️  Skipping %s: unsupported type", entry.Name())
			continue
		}

		log.Printf("\n📄 Processing: %s", entry.Name())

		content, err := os.ReadFile(path)
		if err != nil {
			log.Printf("   ❌ Failed to read file: %v", err)
			failCount++
			continue
		}

		cv, err := application.Documents.StoreDocument(ctx, models.DocumentFile{
			FileName: entry.Name(),
			MIMEType: mime.TypeByExtension(ext),
			Content:  content,
		}, userID)
		if err != nil {
			zapLogger.Error("failed to store document", zap.String("file", entry.Name()), zap.Error(err))
			log.Printf("   ❌ Failed to ingest: %v", err)
			failCount++
			continue
		}

		log.Printf("   ✅ Ingested %s (%d skills, %d roles)", cv.PersonalInfo.Name, len(cv.Skills), len(cv.Experience))
		successCount++
	}

	// Summary
	log.Println("\n" + strings.Repeat("=", 60))
	log.Printf("📊 Ingestion Summary:")
	log.Printf("   ✅ Successful: %d documents", successCount)
	log.Printf("   ❌ Failed: %d documents", failCount)
	log.Println(strings.Repeat("=", 60))

	if failCount > 0 {
		log.Println("⚠️  Some documents failed to ingest. Please check the logs above.")
		application.Close()
		os.Exit(1)
	}

	log.Println("✅ All documents ingested successfully!")
}

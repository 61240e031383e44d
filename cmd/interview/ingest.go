package main

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/voice-interview/internal/models"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Parse, analyze and store a CV for the user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return ingest(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func ingest(ctx context.Context, path string) error {
	application, log, userID, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	log.Info("📄 Processing document", zap.String("path", path))
	cv, err := application.Documents.StoreDocument(ctx, models.DocumentFile{
		FileName: filepath.Base(path),
		MIMEType: mime.TypeByExtension(filepath.Ext(path)),
		Content:  content,
	}, userID)
	if err != nil {
		return fmt.Errorf("storing document: %w", err)
	}

	pretty, _ := json.MarshalIndent(cv, "", "  ")
	fmt.Println(string(pretty))
	log.Info("✅ Document stored")
	return nil
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"alfredoptarigan/voice-interview/internal/app"
	"alfredoptarigan/voice-interview/internal/config"
	"alfredoptarigan/voice-interview/internal/logger"
)

const cliName = "interview"

var (
	v *viper.Viper = config.NewViper()

	rootCmd = &cobra.Command{
		Use:          cliName,
		Short:        "interview is a terminal front-end for the voice interview assistant",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("user", "u", "", "user id the documents and interview belong to")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("embedding-backend", "", "vector store: qdrant or sqlite")

	v.BindPFlag("USER_ID", rootCmd.PersistentFlags().Lookup("user"))
	v.BindPFlag("LOG_DEBUG", rootCmd.PersistentFlags().Lookup("debug"))
	v.BindPFlag("LOG_JSON", rootCmd.PersistentFlags().Lookup("json"))
	v.BindPFlag("EMBEDDING_BACKEND", rootCmd.PersistentFlags().Lookup("embedding-backend"))
}

// bootstrap loads configuration and wires the application for a command.
func bootstrap(ctx context.Context) (*app.App, *zap.Logger, string, error) {
	cfg := config.LoadViper(v)

	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return nil, nil, "", fmt.Errorf("creating a logger: %w", err)
	}

	userID := v.GetString("USER_ID")
	if userID == "" {
		return nil, nil, "", fmt.Errorf("user id is required (--user or USER_ID)")
	}

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, "", err
	}

	if err := application.Documents.InitializeUser(ctx, userID); err != nil {
		application.Close()
		return nil, nil, "", err
	}

	return application, logger.ForUser(log, userID), userID, nil
}

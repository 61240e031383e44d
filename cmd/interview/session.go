package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/voice-interview/internal/models"
	"alfredoptarigan/voice-interview/internal/session"
)

const (
	PromptAsk     = "Ask a question (audio file)"
	PromptHistory = "Show conversation"
	PromptExit    = "Exit"
)

var audioTypes = map[string]string{
	".webm": "audio/webm",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Run an interactive interview session from recorded audio files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		outDir, _ := cmd.Flags().GetString("out")
		player, _ := cmd.Flags().GetString("player")
		return runSession(cmd.Context(), outDir, player)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)

	sessionCmd.Flags().StringP("out", "o", "./replies", "directory the spoken replies are written to")
	sessionCmd.Flags().StringP("player", "p", "", "command used to play a reply, e.g. aplay or afplay")
}

func runSession(ctx context.Context, outDir, player string) error {
	application, log, userID, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating reply directory: %w", err)
	}

	s := application.Sessions.Get(userID)
	menu := promptui.Select{
		Label: "Interview",
		Items: []string{PromptAsk, PromptHistory, PromptExit},
	}

	for turn := 1; ; {
		_, selected, err := menu.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return nil
			}
			return err
		}

		switch selected {
		case PromptExit:
			return nil
		case PromptHistory:
			printHistory(s.History())
		case PromptAsk:
			if err := askQuestion(ctx, s, log, outDir, player, turn); err != nil {
				fmt.Printf("❌ %v\n", err)
				continue
			}
			turn++
		}
	}
}

func askQuestion(ctx context.Context, s *session.Session, log *zap.Logger, outDir, player string, turn int) error {
	pathPrompt := promptui.Prompt{
		Label: "Audio file",
		Validate: func(input string) error {
			if _, ok := audioTypes[strings.ToLower(filepath.Ext(input))]; !ok {
				return errors.New("use a .webm, .wav or .mp3 file")
			}
			if _, err := os.Stat(input); err != nil {
				return err
			}
			return nil
		},
	}
	path, err := pathPrompt.Run()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	fmt.Println("Processing...")
	result, err := s.Submit(ctx, models.AudioBlob{
		Data:     data,
		MIMEType: audioTypes[strings.ToLower(filepath.Ext(path))],
	})
	if err != nil {
		log.Debug("turn failed", zap.Error(err))
		return fmt.Errorf("%s: %w", s.Notice(), err)
	}
	defer s.PlaybackFinished()

	fmt.Printf("\nYou: %s\nAssistant: %s\n\n", result.Transcript, result.Response)

	replyPath := filepath.Join(outDir, fmt.Sprintf("reply_%03d.wav", turn))
	if err := os.WriteFile(replyPath, result.Audio, 0o644); err != nil {
		return fmt.Errorf("writing reply audio: %w", err)
	}
	log.Info("reply written", zap.String("path", replyPath))

	if player != "" {
		cmd := exec.CommandContext(ctx, player, replyPath)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			log.Warn("playing reply failed", zap.String("player", player), zap.Error(err))
		}
	}

	return nil
}

func printHistory(turns []models.ConversationTurn) {
	if len(turns) == 0 {
		fmt.Println("No conversation yet.")
		return
	}
	for _, t := range turns {
		label := "You"
		if t.Speaker == models.SpeakerAssistant {
			label = "Assistant"
		}
		fmt.Printf("[%s] %s: %s\n", t.At.Format("15:04:05"), label, t.Content)
	}
}

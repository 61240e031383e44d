package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type StorageService interface {
	// SaveFile writes content under the user's directory and returns the
	// stored file name and its full path.
	SaveFile(userID, fileName string, content []byte) (string, string, error)
	GetFilePath(userID, filename string) string
	EnsureUploadDir() error
}

type storageService struct {
	uploadPath string
}

func NewStorageService(uploadPath string) StorageService {
	return &storageService{
		uploadPath: uploadPath,
	}
}

func (s *storageService) EnsureUploadDir() error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	return nil
}

func (s *storageService) SaveFile(userID, fileName string, content []byte) (string, string, error) {
	userDir, err := s.userDir(userID)
	if err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(userDir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create user directory: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	uniqueFilename := fmt.Sprintf("cv_%s%s", uuid.New().String(), ext)
	filePath := filepath.Join(userDir, uniqueFilename)

	if err := os.WriteFile(filePath, content, 0644); err != nil {
		return "", "", fmt.Errorf("failed to save file: %w", err)
	}

	return uniqueFilename, filePath, nil
}

func (s *storageService) GetFilePath(userID, filename string) string {
	return filepath.Join(s.uploadPath, userID, filename)
}

// userDir keeps user ids from escaping the upload root.
func (s *storageService) userDir(userID string) (string, error) {
	clean := filepath.Base(filepath.Clean("/" + userID))
	if userID == "" || clean != userID || clean == "." || clean == "/" {
		return "", fmt.Errorf("invalid user id for storage: %q", userID)
	}
	return filepath.Join(s.uploadPath, clean), nil
}

package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"telegram-lead-scanner-go/internal/models"
)

// Store is a file-backed settings store. Last write wins, no locking on the
// file itself; the in-process mutex only guards concurrent handler access.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a settings store backed by the given file path
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted settings. A missing or corrupt file yields empty
// settings, not an error.
func (s *Store) Load() models.GlobalSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.Warnf("Failed to read settings file %s: %v", s.path, err)
		}
		return models.GlobalSettings{}
	}

	var settings models.GlobalSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		logrus.Warnf("Settings file %s is corrupt, starting empty: %v", s.path, err)
		return models.GlobalSettings{}
	}

	logrus.Infof("Loaded settings from %s (apiKey: %t, criteria: %t, sheets: %t)",
		s.path, settings.OpenRouterAPIKey != "", settings.LeadCriteria != "", settings.SheetsConfig != nil)
	return settings
}

// Save persists settings to the file. Called on every mutation (write-through).
func (s *Store) Save(settings models.GlobalSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}

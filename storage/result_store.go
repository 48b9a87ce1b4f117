package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	RecordTypeExtract = "extract"
	RecordTypeSearch  = "search"
)

// ResultRecord is the persisted outcome of one request. Records are
// write-once and never read back by the service.
type ResultRecord struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Query     string    `json:"query,omitempty"`
	URLs      []string  `json:"urls"`
	Summary   string    `json:"summary"`
	Model     string    `json:"model"`
	Time      float64   `json:"time"`
	CreatedAt time.Time `json:"created_at"`
}

// ResultStore appends one JSON file per request under a results directory.
type ResultStore struct {
	dir    string
	logger *zap.Logger
}

func NewResultStore(dir string, logger *zap.Logger) (*ResultStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	return &ResultStore{dir: dir, logger: logger}, nil
}

// Save writes the record to {timestamp}_{type}.json.
func (s *ResultStore) Save(record ResultRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result record: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.json", record.CreatedAt.Format("20060102_150405"), record.Type)
	path := filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write result record: %w", err)
	}

	s.logger.Debug("result record saved",
		zap.String("path", path),
		zap.String("type", record.Type))
	return nil
}

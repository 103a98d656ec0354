package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// ExportDocument is the JSON document written by Export.
type ExportDocument struct {
	Backend    string    `json:"backend"`
	ProjectID  int64     `json:"project_id"`
	DatasetID  int64     `json:"dataset_id"`
	ExportedAt time.Time `json:"exported_at"`
	Entries    []Entry   `json:"entries"`
}

// Export writes a dataset's cached annotations as an indented JSON document.
func (s *Store) Export(ctx context.Context, w io.Writer, backend string, projectID, datasetID int64) error {
	entries, err := s.List(ctx, backend, projectID, datasetID)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []Entry{}
	}

	doc := ExportDocument{
		Backend:    backend,
		ProjectID:  projectID,
		DatasetID:  datasetID,
		ExportedAt: time.Now().UTC(),
		Entries:    entries,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

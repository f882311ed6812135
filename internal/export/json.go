package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/tomw/arc-ci-ranker/internal/models"
)

// jsonRecord is the structured document form: the full record with both
// raw investigator lists plus the derived CI-only sublist.
type jsonRecord struct {
	models.GrantRecord
	ChiefInvestigators []models.Investigator `json:"chief_investigators"`
}

// WriteJSON serializes records to an indented JSON array.
func WriteJSON(w io.Writer, records []models.GrantRecord) error {
	docs := make([]jsonRecord, 0, len(records))
	for _, rec := range records {
		cis := rec.ChiefInvestigators()
		if cis == nil {
			cis = []models.Investigator{}
		}
		docs = append(docs, jsonRecord{GrantRecord: rec, ChiefInvestigators: cis})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(docs); err != nil {
		return fmt.Errorf("encoding JSON export: %w", err)
	}
	return nil
}

// WriteJSONFile writes the document form to path.
func WriteJSONFile(path string, records []models.GrantRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteJSON(f, records); err != nil {
		return err
	}
	return f.Close()
}

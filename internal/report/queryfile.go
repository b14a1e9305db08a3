// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/unitrad/internal/query"
	"github.com/pdiddy/unitrad/pkg/types"
)

// QueryFile is the on-disk form of a search and the snapshot it produced.
// A saved file can be reloaded to repeat the search or to review results
// without contacting the API.
type QueryFile struct {
	Query  types.Query   `yaml:"query"`
	Result ResultSummary `yaml:"result"`
	Books  []types.Book  `yaml:"books"`
}

// ResultSummary stores the session status next to the books.
type ResultSummary struct {
	UUID      string    `yaml:"uuid"`
	Version   int       `yaml:"version"`
	Running   bool      `yaml:"running"`
	Total     int       `yaml:"total"`
	Remains   []string  `yaml:"remains,omitempty"`
	Errors    []string  `yaml:"errors,omitempty"`
	Timestamp time.Time `yaml:"timestamp"`
}

// WriteQueryFile saves q and snap to a YAML file.
func WriteQueryFile(path string, q types.Query, snap types.Snapshot) error {
	qf := QueryFile{
		Query: query.Strip(q),
		Result: ResultSummary{
			UUID:      snap.UUID,
			Version:   snap.Version,
			Running:   snap.Running,
			Total:     len(snap.Books),
			Remains:   snap.Remains,
			Errors:    snap.Errors,
			Timestamp: time.Now(),
		},
		Books: snap.Books,
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}

// Snapshot rebuilds the saved snapshot.
func (qf *QueryFile) Snapshot() types.Snapshot {
	return types.Snapshot{
		UUID:    qf.Result.UUID,
		Version: qf.Result.Version,
		Running: qf.Result.Running,
		Books:   qf.Books,
		Remains: qf.Result.Remains,
		Errors:  qf.Result.Errors,
	}
}

// ReadQueryList loads a YAML sequence of queries, as used by batch runs.
func ReadQueryList(path string) ([]types.Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query list: %w", err)
	}
	var queries []types.Query
	if err := yaml.Unmarshal(data, &queries); err != nil {
		return nil, fmt.Errorf("parsing query list: %w", err)
	}
	for i, q := range queries {
		queries[i] = query.Strip(q)
	}
	return queries, nil
}

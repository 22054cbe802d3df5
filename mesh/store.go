package mesh

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Summary is the compact description of a Result used by the HTTP index and
// MQTT messages.
type Summary struct {
	Name        string     `json:"name"`
	RunID       string     `json:"runId"`
	Mode        Mode       `json:"mode"`
	Finder      FinderKind `json:"finder"`
	Address     string     `json:"address,omitempty"`
	Triangles   int        `json:"triangles"`
	Planes      int        `json:"planes"`
	Attachments int        `json:"attachments"`
	Score       float64    `json:"score"`
	Area        float64    `json:"area"`
	DurationMs  int64      `json:"durationMs"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Summary describes r as of now.
func (r *Result) Summary() Summary {
	s := Summary{
		Name:        r.Name,
		RunID:       r.RunID,
		Mode:        r.Mode,
		Finder:      r.Finder,
		Triangles:   len(r.Triangles),
		Planes:      len(r.UsedPlanes),
		Attachments: r.Attachments,
		Score:       r.Score,
		Area:        r.Area(),
		DurationMs:  r.Duration.Milliseconds(),
		UpdatedAt:   time.Now(),
	}
	if r.Cloud != nil && r.Cloud.Metadata != nil {
		s.Address = r.Cloud.Metadata.Address
	}
	return s
}

// ResultStore keeps the latest Result per building for HTTP endpoints
type ResultStore struct {
	mu        sync.RWMutex
	results   map[string]*Result
	summaries map[string]Summary
}

// NewResultStore creates an empty store
func NewResultStore() *ResultStore {
	return &ResultStore{
		results:   make(map[string]*Result),
		summaries: make(map[string]Summary),
	}
}

// Put stores r, replacing any earlier result for the same building.
func (s *ResultStore) Put(r *Result) {
	summary := r.Summary()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.Name] = r
	s.summaries[r.Name] = summary
}

// Get returns the latest result for name.
func (s *ResultStore) Get(name string) (*Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[name]
	return r, ok
}

// Len returns the number of buildings stored.
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// Summaries returns one summary per building, sorted by name.
func (s *ResultStore) Summaries() []Summary {
	s.mu.RLock()
	result := make([]Summary, 0, len(s.summaries))
	for _, v := range s.summaries {
		result = append(result, v)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// SaveSummaries writes the building index to disk as JSON.
func (s *ResultStore) SaveSummaries(path string) error {
	data, err := json.MarshalIndent(s.Summaries(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summaries: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write summaries: %w", err)
	}
	return nil
}

// LoadSummaries reads a building index written by SaveSummaries.
func LoadSummaries(path string) ([]Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read summaries: %w", err)
	}
	var summaries []Summary
	if err := json.Unmarshal(data, &summaries); err != nil {
		return nil, fmt.Errorf("unmarshal summaries: %w", err)
	}
	return summaries, nil
}

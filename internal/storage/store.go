package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/cellsim/internal/dynamo"
)

// Store persists runs under baseDir, one directory per run holding a
// metadata.json and a records.csv.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Kind       string             `json:"kind"` // "simulate" or "estimate"
	Timestamp  time.Time          `json:"timestamp"`
	Profile    string             `json:"profile,omitempty"`
	Dataset    string             `json:"dataset,omitempty"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Integrator string             `json:"integrator"`
	Steps      int                `json:"steps"`
	Skipped    int                `json:"skipped"`
	Warnings   []string           `json:"warnings,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

var recordHeader = []string{
	"time_s", "current_a", "voltage_v", "v_meas_v", "residual_v",
	"soc", "r_base_ohm", "temp_k",
}

// Save writes one completed run. The run ID combines the kind with a
// timestamp so repeated runs never collide within one second of resolution
// plus a counter suffix handled by the filesystem.
func (s *Store) Save(meta RunMetadata, result *dynamo.Result) (string, error) {
	if meta.ID == "" {
		meta.ID = fmt.Sprintf("%s_%d", meta.Kind, time.Now().UnixNano())
	}
	meta.Timestamp = time.Now()
	meta.Steps = result.StepsTaken
	meta.Skipped = result.Skipped
	meta.Metrics = result.Metrics
	for _, w := range result.Warnings {
		meta.Warnings = append(meta.Warnings, w.Error())
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "records.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if err := w.Write(recordHeader); err != nil {
		return "", err
	}
	for _, r := range result.Records {
		row := []string{
			fmtF(r.Time),
			fmtF(r.Current),
			fmtF(r.Voltage),
			fmtF(r.VMeas),
			fmtF(r.Residual),
			fmtF(r.SOC),
			fmtF(r.RBase),
			fmtF(r.TempK),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return meta.ID, w.Error()
}

func fmtF(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', 9, 64)
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadRecords reads a saved trajectory back. Empty cells round-trip to NaN,
// matching how Save writes them.
func (s *Store) LoadRecords(runID string) ([]dynamo.Record, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "records.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return []dynamo.Record{}, nil
	}

	records := make([]dynamo.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) != len(recordHeader) {
			continue
		}
		records = append(records, dynamo.Record{
			Time:     parseF(row[0]),
			Current:  parseF(row[1]),
			Voltage:  parseF(row[2]),
			VMeas:    parseF(row[3]),
			Residual: parseF(row[4]),
			SOC:      parseF(row[5]),
			RBase:    parseF(row[6]),
			TempK:    parseF(row[7]),
		})
	}
	return records, nil
}

func parseF(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

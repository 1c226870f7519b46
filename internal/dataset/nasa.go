// Package dataset reads the NASA Ames battery aging archive in its CSV
// distribution: a metadata.csv indexing the cycles and one timeseries file
// per cycle under data/.
package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/san-kum/cellsim/internal/dynamo"
)

type Loader struct {
	root string
}

func NewLoader(root string) *Loader {
	return &Loader{root: root}
}

// CycleMeta is one row of metadata.csv, restricted to the fields the
// estimator cares about.
type CycleMeta struct {
	UID       int
	BatteryID string
	Type      string
	AmbientC  float64
	Filename  string
	Capacity  float64 // Ah measured for discharge cycles, 0 when absent
}

// DischargeCycles lists the discharge cycles of one battery in test order.
func (l *Loader) DischargeCycles(batteryID string) ([]CycleMeta, error) {
	file, err := os.Open(filepath.Join(l.root, "metadata.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("metadata.csv is empty")
	}

	col := indexHeader(rows[0])
	required := []string{"uid", "battery_id", "type", "filename"}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("metadata.csv missing column %q", name)
		}
	}

	var cycles []CycleMeta
	for _, row := range rows[1:] {
		if field(row, col, "battery_id") != batteryID || field(row, col, "type") != "discharge" {
			continue
		}
		uid, err := strconv.Atoi(field(row, col, "uid"))
		if err != nil {
			continue
		}
		cycles = append(cycles, CycleMeta{
			UID:       uid,
			BatteryID: batteryID,
			Type:      "discharge",
			AmbientC:  parseFloat(field(row, col, "ambient_temperature")),
			Filename:  field(row, col, "filename"),
			Capacity:  parseFloat(field(row, col, "Capacity")),
		})
	}
	if len(cycles) == 0 {
		return nil, fmt.Errorf("no discharge cycles for battery %q", batteryID)
	}

	sort.Slice(cycles, func(i, j int) bool { return cycles[i].UID < cycles[j].UID })
	return cycles, nil
}

// LoadCycle reads one cycle timeseries into measurements. The archive logs
// discharge current as negative; measurements use the discharge-positive
// convention, so the sign is flipped here.
func (l *Loader) LoadCycle(meta CycleMeta) ([]dynamo.Measurement, error) {
	file, err := os.Open(filepath.Join(l.root, "data", meta.Filename))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("cycle %s has no samples", meta.Filename)
	}

	col := indexHeader(rows[0])
	for _, name := range []string{"Time", "Current_measured", "Voltage_measured"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("cycle %s missing column %q", meta.Filename, name)
		}
	}

	// Unparseable cells become NaN rather than dropping the row: the
	// estimator decides what to do with a bad sample.
	samples := make([]dynamo.Measurement, 0, len(rows)-1)
	for _, row := range rows[1:] {
		samples = append(samples, dynamo.Measurement{
			Time:    parseMeas(field(row, col, "Time")),
			Current: -parseMeas(field(row, col, "Current_measured")),
			Voltage: parseMeas(field(row, col, "Voltage_measured")),
			TempC:   parseMeas(field(row, col, "Temperature_measured")),
		})
	}
	return samples, nil
}

// LoadDischarge is the common path: the nth discharge cycle (1-based) of a
// battery, loaded in one call.
func (l *Loader) LoadDischarge(batteryID string, n int) ([]dynamo.Measurement, CycleMeta, error) {
	cycles, err := l.DischargeCycles(batteryID)
	if err != nil {
		return nil, CycleMeta{}, err
	}
	if n < 1 || n > len(cycles) {
		return nil, CycleMeta{}, fmt.Errorf("battery %q has %d discharge cycles, requested %d",
			batteryID, len(cycles), n)
	}
	meta := cycles[n-1]
	samples, err := l.LoadCycle(meta)
	return samples, meta, err
}

func indexHeader(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	return col
}

func field(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseMeas(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

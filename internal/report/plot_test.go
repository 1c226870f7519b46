package report

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/cellsim/internal/dynamo"
)

func sampleRecords() []dynamo.Record {
	records := make([]dynamo.Record, 100)
	for i := range records {
		t := float64(i)
		records[i] = dynamo.Record{
			Time:    t,
			Voltage: 4.1 - 0.005*t,
			VMeas:   math.NaN(), // simulation-only trace
			SOC:     1.0 - 0.008*t,
			RBase:   0.202,
			TempK:   298.15 + 0.01*t,
		}
	}
	return records
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plots")

	paths, err := WriteAll(dir, sampleRecords())
	if err != nil {
		t.Fatalf("WriteAll failed: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("wrote %d plots, want 3", len(paths))
	}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("missing plot %s: %v", path, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("empty plot %s", path)
		}
	}
}

func TestWriteAllEmpty(t *testing.T) {
	if _, err := WriteAll(t.TempDir(), nil); err == nil {
		t.Error("expected error for empty records")
	}
}

func TestVoltagePlotWithMeasurements(t *testing.T) {
	records := sampleRecords()
	for i := range records {
		records[i].VMeas = records[i].Voltage + 0.01
	}

	path := filepath.Join(t.TempDir(), "v.png")
	if err := VoltagePlot(path, records); err != nil {
		t.Fatalf("plot failed: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Error("plot file missing or empty")
	}
}

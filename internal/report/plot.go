// Package report renders run trajectories to PNG files for offline
// inspection: terminal voltage against measurements, SOC, and the learned
// resistance over time.
package report

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/cellsim/internal/dynamo"
)

var (
	predictedColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	measuredColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	socColor       = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	rColor         = color.RGBA{R: 148, G: 103, B: 189, A: 255}
)

// WriteAll renders the standard plot set for a run into outDir and returns
// the written file paths.
func WriteAll(outDir string, records []dynamo.Record) ([]string, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no records to plot")
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}

	written := make([]string, 0, 3)
	plots := []struct {
		name string
		fn   func(string, []dynamo.Record) error
	}{
		{"voltage.png", VoltagePlot},
		{"soc.png", SOCPlot},
		{"resistance.png", ResistancePlot},
	}
	for _, pl := range plots {
		path := filepath.Join(outDir, pl.name)
		if err := pl.fn(path, records); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// VoltagePlot draws predicted terminal voltage, with the measured trace
// overlaid when the run had one.
func VoltagePlot(path string, records []dynamo.Record) error {
	p := plot.New()
	p.Title.Text = "Terminal voltage"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Voltage (V)"

	predicted := linePoints(records, func(r dynamo.Record) float64 { return r.Voltage })
	line, err := plotter.NewLine(predicted)
	if err != nil {
		return err
	}
	line.Color = predictedColor
	p.Add(line)
	p.Legend.Add("predicted", line)

	measured := linePoints(records, func(r dynamo.Record) float64 { return r.VMeas })
	if len(measured) > 0 {
		mLine, err := plotter.NewLine(measured)
		if err != nil {
			return err
		}
		mLine.Color = measuredColor
		mLine.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
		p.Add(mLine)
		p.Legend.Add("measured", mLine)
	}

	return p.Save(10*vg.Inch, 5*vg.Inch, path)
}

func SOCPlot(path string, records []dynamo.Record) error {
	p := plot.New()
	p.Title.Text = "State of charge"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "SOC"
	p.Y.Min, p.Y.Max = 0, 1.05

	line, err := plotter.NewLine(linePoints(records, func(r dynamo.Record) float64 { return r.SOC }))
	if err != nil {
		return err
	}
	line.Color = socColor
	p.Add(line)

	return p.Save(10*vg.Inch, 5*vg.Inch, path)
}

// ResistancePlot shows the slow loop at work: the base resistance estimate
// over the run.
func ResistancePlot(path string, records []dynamo.Record) error {
	p := plot.New()
	p.Title.Text = "Base resistance estimate"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "R (ohm)"

	line, err := plotter.NewLine(linePoints(records, func(r dynamo.Record) float64 { return r.RBase }))
	if err != nil {
		return err
	}
	line.Color = rColor
	p.Add(line)

	return p.Save(10*vg.Inch, 5*vg.Inch, path)
}

// linePoints extracts finite samples only; NaN cells (pure simulation runs
// have no measured voltage) would otherwise break the axis ranging.
func linePoints(records []dynamo.Record, val func(dynamo.Record) float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(records))
	for _, r := range records {
		v := val(r)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: r.Time, Y: v})
	}
	return pts
}

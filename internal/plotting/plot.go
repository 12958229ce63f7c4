// Package plotting renders the end-of-recording performance timeline: a
// per-event-kind latency scatter over a memory-RSS line, read from the
// performance_stat/memory_stat tables.
package plotting

import (
	"fmt"
	"image/color"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/actiontrace/capture/internal/storage"
)

// PlotRenderer renders a recording's performance timeline to path. Callers
// needing a no-op (e.g. disabling the plot without touching call sites) can
// substitute their own implementation.
type PlotRenderer interface {
	Render(path string, perf []storage.PerformanceStatRow, mem []storage.MemoryStatRow) error
}

// GonumRenderer is the default PlotRenderer, backed by gonum.org/v1/plot.
type GonumRenderer struct{}

func (GonumRenderer) Render(path string, perf []storage.PerformanceStatRow, mem []storage.MemoryStatRow) error {
	p := plot.New()
	p.Title.Text = "Recording performance"
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "duration (ms) / RSS (MB)"

	if len(perf) == 0 && len(mem) == 0 {
		return fmt.Errorf("plotting: nothing to render")
	}

	var baseline int64
	if len(perf) > 0 {
		baseline = perf[0].StartTimeNanos
	} else if len(mem) > 0 {
		baseline = int64(mem[0].Timestamp * 1e9)
	}

	byKind := make(map[string]plotter.XYs)
	for _, row := range perf {
		x := float64(row.StartTimeNanos-baseline) / 1e9
		y := float64(row.EndTimeNanos-row.StartTimeNanos) / 1e6
		byKind[row.EventType] = append(byKind[row.EventType], plotter.XY{X: x, Y: y})
	}

	kinds := make([]string, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	palette := []color.Color{
		color.RGBA{R: 220, G: 50, B: 50, A: 255},
		color.RGBA{G: 140, B: 60, A: 255},
		color.RGBA{B: 200, A: 255},
		color.RGBA{R: 200, G: 140, A: 255},
	}

	for i, kind := range kinds {
		scatter, err := plotter.NewScatter(byKind[kind])
		if err != nil {
			return fmt.Errorf("plotting: build scatter for %s: %w", kind, err)
		}
		scatter.Color = palette[i%len(palette)]
		scatter.Radius = vg.Points(2)
		p.Add(scatter)
		p.Legend.Add(kind, scatter)
	}

	if len(mem) > 0 {
		pts := make(plotter.XYs, len(mem))
		for i, row := range mem {
			pts[i].X = float64(int64(row.Timestamp*1e9)-baseline) / 1e9
			pts[i].Y = row.MemoryUsageBytes / (1024 * 1024)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("plotting: build memory line: %w", err)
		}
		line.Color = color.Gray{Y: 96}
		p.Add(line)
		p.Legend.Add("RSS (MB)", line)
	}

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("plotting: save %s: %w", path, err)
	}
	return nil
}

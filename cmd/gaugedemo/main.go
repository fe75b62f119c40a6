// Command gaugedemo builds a couple of example gauges, prints a handful
// of queries against them, and renders their trajectories both as a
// static PNG (gonum/plot) and as an interactive HTML chart (go-echarts).
// It exists to exercise the gauge package end to end, the way the
// original project's monitor package renders sensor diagnostics.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/banshee-data/gauge/internal/config"
	"github.com/banshee-data/gauge/internal/gauge"
	"github.com/banshee-data/gauge/internal/monitoring"
	"github.com/banshee-data/gauge/internal/timeutil"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

func main() {
	var outputDir string
	var tolerancesPath string
	flag.StringVar(&outputDir, "out", "plots", "directory to write the rendered charts to")
	flag.StringVar(&tolerancesPath, "tolerances", "", "optional path to a tolerances JSON file (see config/tolerances.defaults.json)")
	flag.Parse()

	tol := config.EmptyTolerances().Resolve()
	if tolerancesPath != "" {
		loaded, err := config.LoadTolerances(tolerancesPath)
		if err != nil {
			log.Fatalf("load tolerances: %v", err)
		}
		tol = loaded.Resolve()
	}

	cfg := gauge.Config{
		Clock:      timeutil.RealClock{},
		Tolerances: gauge.Tolerances(tol),
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}

	battery := buildBattery(cfg)
	thermostat, target := buildThermostat(cfg)

	fmt.Println("battery state of charge:")
	reportGauge(battery, "battery", 0, 3600, 600)

	fmt.Println("\nthermostat vs. its moving target:")
	reportGauge(thermostat, "thermostat", 0, 1800, 300)
	reportGauge(target, "target", 0, 1800, 300)

	if t, err := battery.When(20, 0); err != nil {
		fmt.Printf("battery never reaches 20%%: %v\n", err)
	} else {
		fmt.Printf("battery reaches 20%% at t=%.1fs\n", t)
	}

	if err := renderPNG(filepath.Join(outputDir, "gauges.png"), map[string]*gauge.Gauge{
		"battery":    battery,
		"thermostat": thermostat,
		"target":     target,
	}, 0, 3600); err != nil {
		log.Fatalf("render PNG: %v", err)
	}
	if err := renderHTML(filepath.Join(outputDir, "gauges.html"), map[string]*gauge.Gauge{
		"battery":    battery,
		"thermostat": thermostat,
		"target":     target,
	}, 0, 3600, 120); err != nil {
		log.Fatalf("render HTML: %v", err)
	}
	fmt.Printf("\nwrote %s and %s\n", filepath.Join(outputDir, "gauges.png"), filepath.Join(outputDir, "gauges.html"))
}

// buildBattery models a state-of-charge gauge draining at 1%/min with a
// hard floor at 0 and ceiling at 100.
func buildBattery(cfg gauge.Config) *gauge.Gauge {
	g := gauge.NewWithConfig(cfg, 80)
	if err := g.SetRange(gauge.Constant(100), gauge.Constant(0)); err != nil {
		log.Fatalf("battery SetRange: %v", err)
	}
	drain, err := gauge.NewMomentum(-1.0/60, 0, math.Inf(1))
	if err != nil {
		log.Fatalf("battery momentum: %v", err)
	}
	if err := g.AddMomentum(drain); err != nil {
		log.Fatalf("battery AddMomentum: %v", err)
	}
	monitoring.Logf("[gaugedemo] battery %s draining at %.4f/s, floor=0 ceiling=100", g.ID(), drain.Velocity)
	return g
}

// buildThermostat models a room temperature gauge warming toward a
// target gauge that itself drifts downward - the "moving ceiling"
// scenario: the room is clamped to never exceed the target's current
// value, so it rides the target down once it catches up.
func buildThermostat(cfg gauge.Config) (room *gauge.Gauge, target *gauge.Gauge) {
	target = gauge.NewWithConfig(cfg, 22)
	cooling, err := gauge.NewMomentum(-0.001, 0, math.Inf(1))
	if err != nil {
		log.Fatalf("target momentum: %v", err)
	}
	if err := target.AddMomentum(cooling); err != nil {
		log.Fatalf("target AddMomentum: %v", err)
	}

	room = gauge.NewWithConfig(cfg, 18)
	if err := room.SetMax(gauge.FromGauge(target)); err != nil {
		log.Fatalf("room SetMax: %v", err)
	}
	warming, err := gauge.NewMomentum(0.01, 0, math.Inf(1))
	if err != nil {
		log.Fatalf("room momentum: %v", err)
	}
	if err := room.AddMomentum(warming); err != nil {
		log.Fatalf("room AddMomentum: %v", err)
	}
	monitoring.Logf("[gaugedemo] room %s tracks ceiling target %s", room.ID(), target.ID())
	return room, target
}

func reportGauge(g *gauge.Gauge, name string, from, to, step float64) {
	for t := from; t <= to; t += step {
		fmt.Printf("  %s@%.0fs = %.3f (v=%.5f/s)\n", name, t, g.ValueAt(t), g.VelocityAt(t))
	}
}

func sampleSeries(g *gauge.Gauge, from, to, step float64) (xs, ys []float64) {
	for t := from; t <= to; t += step {
		xs = append(xs, t)
		ys = append(ys, g.ValueAt(t))
	}
	return xs, ys
}

func renderPNG(path string, gauges map[string]*gauge.Gauge, from, to float64) error {
	p := plot.New()
	p.Title.Text = "gauge trajectories"
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "value"

	for name, g := range gauges {
		xs, ys := sampleSeries(g, from, to, (to-from)/200)
		pts := make(plotter.XYs, len(xs))
		for i := range xs {
			pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("build line for %s: %w", name, err)
		}
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(name, line)
	}

	return p.Save(12*vg.Inch, 6*vg.Inch, path)
}

func renderHTML(path string, gauges map[string]*gauge.Gauge, from, to, step float64) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "gauge trajectories"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "time (s)"}),
	)

	var xLabels []string
	for t := from; t <= to; t += step {
		xLabels = append(xLabels, fmt.Sprintf("%.0f", t))
	}
	line.SetXAxis(xLabels)

	for _, name := range []string{"battery", "thermostat", "target"} {
		g, ok := gauges[name]
		if !ok {
			continue
		}
		_, ys := sampleSeries(g, from, to, step)
		data := make([]opts.LineData, len(ys))
		for i, y := range ys {
			data[i] = opts.LineData{Value: y}
		}
		line.AddSeries(name, data)
	}

	page := components.NewPage()
	page.AddCharts(line)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}

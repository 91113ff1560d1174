// Package monitor renders a post-run HTML report of the landing controller
// using go-echarts: landability score spread per tick, the vehicle track in
// the XY plane, and the exploration goals it tried.
package monitor

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/perch-aero/safeland/internal/landing"
)

// TickSample is one tick's worth of report data.
type TickSample struct {
	GridSeq  int64
	State    landing.GPState
	Position landing.Vec3
	MinScore float64
	MaxScore float64
	Decision *bool // non-nil on the tick a verdict was finalized
}

// Recorder accumulates tick samples and exploration goals for one run.
type Recorder struct {
	label       string
	samples     []TickSample
	goals       []landing.Vec3
	lastDecided bool
}

// NewRecorder returns a recorder for a run labelled label.
func NewRecorder(label string) *Recorder {
	return &Recorder{label: label}
}

// Observe captures one tick from the generator. Call it after Tick returns so
// the sample reflects the published setpoint and any finalized decision.
func (r *Recorder) Observe(gridSeq int64, g *landing.WaypointGenerator, position landing.Vec3) {
	sample := TickSample{
		GridSeq:  gridSeq,
		State:    g.State(),
		Position: position,
	}
	sample.MinScore, sample.MaxScore = scoreSpread(g.Filter().Scores())
	if g.DecisionTaken() && !r.lastDecided {
		v := g.CanLand()
		sample.Decision = &v
	}
	r.lastDecided = g.DecisionTaken()
	r.samples = append(r.samples, sample)
}

// ObserveGoal captures an exploration goal handed out after a rejected site.
func (r *Recorder) ObserveGoal(goal landing.Vec3) {
	r.goals = append(r.goals, goal)
}

// Samples returns the recorded ticks.
func (r *Recorder) Samples() []TickSample { return r.samples }

// WriteReport renders the report page to w.
func (r *Recorder) WriteReport(w io.Writer) error {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("Landing Run: %s", r.label)
	page.AddCharts(r.scoreChart(), r.trackChart())
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// WriteReportFile renders the report page to an HTML file at path.
func (r *Recorder) WriteReportFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()
	if err := r.WriteReport(f); err != nil {
		return err
	}
	return f.Close()
}

func (r *Recorder) scoreChart() *charts.Line {
	x := make([]string, 0, len(r.samples))
	minSeries := make([]opts.LineData, 0, len(r.samples))
	maxSeries := make([]opts.LineData, 0, len(r.samples))
	for _, s := range r.samples {
		x = append(x, strconv.FormatInt(s.GridSeq, 10))
		minSeries = append(minSeries, opts.LineData{Value: s.MinScore})
		maxSeries = append(maxSeries, opts.LineData{Value: s.MaxScore})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Landability Scores", Subtitle: r.decisionSubtitle()}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "grid seq"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "score", Min: 0, Max: 1}),
	)
	line.SetXAxis(x).
		AddSeries("min score", minSeries).
		AddSeries("max score", maxSeries)
	return line
}

func (r *Recorder) trackChart() *charts.Scatter {
	track := make([]opts.ScatterData, 0, len(r.samples))
	maxAbs := 1.0
	for _, s := range r.samples {
		x, y := float64(s.Position.X), float64(s.Position.Y)
		if math.Abs(x) > maxAbs {
			maxAbs = math.Abs(x)
		}
		if math.Abs(y) > maxAbs {
			maxAbs = math.Abs(y)
		}
		track = append(track, opts.ScatterData{Value: []interface{}{x, y}})
	}
	goals := make([]opts.ScatterData, 0, len(r.goals))
	for _, g := range r.goals {
		x, y := float64(g.X), float64(g.Y)
		if math.Abs(x) > maxAbs {
			maxAbs = math.Abs(x)
		}
		if math.Abs(y) > maxAbs {
			maxAbs = math.Abs(y)
		}
		goals = append(goals, opts.ScatterData{Value: []interface{}{x, y}})
	}

	pad := maxAbs * 1.05
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "720px", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: "Vehicle Track", Subtitle: fmt.Sprintf("ticks=%d goals=%d", len(r.samples), len(r.goals))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)"}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)"}),
	)
	scatter.AddSeries("track", track, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	if len(goals) > 0 {
		scatter.AddSeries("exploration goals", goals, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))
	}
	return scatter
}

func (r *Recorder) decisionSubtitle() string {
	for _, s := range r.samples {
		if s.Decision != nil {
			if *s.Decision {
				return fmt.Sprintf("approved at seq %d", s.GridSeq)
			}
			return fmt.Sprintf("rejected at seq %d", s.GridSeq)
		}
	}
	return "no decision finalized"
}

func scoreSpread(scores []float32) (min, max float64) {
	if len(scores) == 0 {
		return 0, 0
	}
	min, max = float64(scores[0]), float64(scores[0])
	for _, s := range scores[1:] {
		if float64(s) < min {
			min = float64(s)
		}
		if float64(s) > max {
			max = float64(s)
		}
	}
	return min, max
}

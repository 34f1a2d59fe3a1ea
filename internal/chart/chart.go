// Package chart draws report chart specs as SVG with go-chart.
package chart

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"autosales/internal/core"
)

const (
	Width  = 640
	Height = 400
)

var (
	// ErrNoData means the chart has no points to draw.
	ErrNoData = errors.New("chart has no data")
	// ErrUnknownKind means the chart kind has no renderer.
	ErrUnknownKind = errors.New("unknown chart kind")
)

// Render writes spec as an SVG document to w.
func Render(spec core.ChartSpec, w io.Writer) error {
	if spec.Empty() {
		return ErrNoData
	}

	var err error
	switch spec.Kind {
	case core.ChartLine:
		err = renderLine(spec, w)
	case core.ChartBar:
		err = renderBar(spec, w)
	case core.ChartPie:
		err = renderPie(spec, w)
	case core.ChartGrouped:
		err = renderGrouped(spec, w)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}
	if err != nil {
		return fmt.Errorf("render %s chart %s: %w", spec.Kind, spec.ID, err)
	}
	return nil
}

// renderLine plots the first series. Numeric keys (years) go on a continuous
// axis; anything else (months) is placed at its index with a labelled tick.
func renderLine(spec core.ChartSpec, w io.Writer) error {
	points := spec.Series[0].Points
	xs, numeric := xValues(points)
	ys := make([]float64, len(points))
	for i, p := range points {
		ys[i] = p.Value
	}

	xAxis := gochart.XAxis{
		Name:           spec.XLabel,
		ValueFormatter: intFormatter,
		Range:          xRange(xs),
	}
	if !numeric {
		xAxis.Ticks = categoryTicks(points)
	}

	graph := gochart.Chart{
		Title:      spec.Title,
		Width:      Width,
		Height:     Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		XAxis:      xAxis,
		YAxis: gochart.YAxis{
			Name:           spec.YLabel,
			ValueFormatter: amountFormatter,
			Range:          yRange(ys),
		},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    spec.YLabel,
				XValues: xs,
				YValues: ys,
			},
		},
	}
	return graph.Render(gochart.SVG, w)
}

// renderGrouped draws one cluster of bars per x key, one bar per series
// coloured by series, with a colour key above the plot. Only the first bar of
// a cluster carries the x label.
func renderGrouped(spec core.ChartSpec, w io.Writer) error {
	values := make(map[string]map[int]float64)
	for si, s := range spec.Series {
		for _, p := range s.Points {
			if values[p.Key] == nil {
				values[p.Key] = make(map[int]float64)
			}
			values[p.Key][si] = p.Value
		}
	}

	keys := spec.Keys()
	sortKeys(keys)

	var bars []gochart.Value
	var ys []float64
	for _, key := range keys {
		label := key
		for si := range spec.Series {
			v, ok := values[key][si]
			if !ok {
				continue
			}
			color := gochart.GetDefaultColor(si)
			bars = append(bars, gochart.Value{
				Label: label,
				Value: v,
				Style: gochart.Style{
					FillColor:   color,
					StrokeColor: color,
					StrokeWidth: 1,
				},
			})
			ys = append(ys, v)
			label = ""
		}
	}

	names := make([]string, len(spec.Series))
	for i, s := range spec.Series {
		names[i] = s.Name
	}

	graph := gochart.BarChart{
		Title:  spec.Title,
		Width:  Width,
		Height: Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40 + legendHeight},
		},
		BarWidth:   barWidth(len(bars)),
		BarSpacing: 2,
		YAxis: gochart.YAxis{
			Name:           spec.YLabel,
			ValueFormatter: amountFormatter,
			Range:          yRange(ys),
		},
		Bars:     bars,
		Elements: []gochart.Renderable{colorKey(names)},
	}
	return graph.Render(gochart.SVG, w)
}

const legendHeight = 20

// colorKey draws a swatch and name per series in a row just above the
// canvas, matching the default colour sequence used for the bars.
func colorKey(names []string) gochart.Renderable {
	return func(r gochart.Renderer, canvas gochart.Box, defaults gochart.Style) {
		const swatch = 8
		x := canvas.Left
		y := canvas.Top - legendHeight
		r.SetFont(defaults.GetFont())
		r.SetFontSize(9)
		r.SetFontColor(drawing.ColorBlack)
		for i, name := range names {
			color := gochart.GetDefaultColor(i)
			r.SetFillColor(color)
			r.SetStrokeColor(color)
			r.SetStrokeWidth(1)
			r.MoveTo(x, y)
			r.LineTo(x+swatch, y)
			r.LineTo(x+swatch, y+swatch)
			r.LineTo(x, y+swatch)
			r.Close()
			r.FillStroke()

			r.Text(name, x+swatch+4, y+swatch)
			x += swatch + 4 + 6*len(name) + 12
		}
	}
}

// sortKeys orders x keys numerically when they all parse, lexically otherwise.
func sortKeys(keys []string) {
	nums := make(map[string]float64, len(keys))
	for _, k := range keys {
		f, err := strconv.ParseFloat(k, 64)
		if err != nil {
			sort.Strings(keys)
			return
		}
		nums[k] = f
	}
	sort.Slice(keys, func(i, j int) bool { return nums[keys[i]] < nums[keys[j]] })
}

// categoryTicks labels each point at its index. go-chart derives the axis
// range from custom ticks, so a lone point gets blank ticks on either side.
func categoryTicks(points []core.Point) []gochart.Tick {
	ticks := make([]gochart.Tick, 0, len(points)+2)
	if len(points) == 1 {
		ticks = append(ticks, gochart.Tick{Value: -1})
	}
	for i, p := range points {
		ticks = append(ticks, gochart.Tick{Value: float64(i), Label: p.Key})
	}
	if len(points) == 1 {
		ticks = append(ticks, gochart.Tick{Value: 1})
	}
	return ticks
}

// xValues parses numeric keys; if any key is not a number every point is
// placed at its index instead.
func xValues(points []core.Point) ([]float64, bool) {
	xs := make([]float64, len(points))
	for i, p := range points {
		f, err := strconv.ParseFloat(p.Key, 64)
		if err != nil {
			for j := range xs {
				xs[j] = float64(j)
			}
			return xs, false
		}
		xs[i] = f
	}
	return xs, true
}

// xRange pads a degenerate range, which go-chart refuses to draw, and
// otherwise lets go-chart derive the range from the data.
func xRange(xs []float64) gochart.Range {
	lo, hi, ok := bounds(xs)
	if !ok || lo != hi {
		return nil
	}
	return &gochart.ContinuousRange{Min: lo - 1, Max: hi + 1}
}

// yRange anchors the value axis at zero so bar heights and line levels are
// comparable across charts.
func yRange(ys []float64) gochart.Range {
	lo, hi, ok := bounds(ys)
	if !ok {
		return nil
	}
	if lo > 0 {
		lo = 0
	}
	if hi <= lo {
		hi = lo + 1
	}
	return &gochart.ContinuousRange{Min: lo, Max: hi * 1.05}
}

func bounds(vs []float64) (lo, hi float64, ok bool) {
	if len(vs) == 0 {
		return 0, 0, false
	}
	lo, hi = vs[0], vs[0]
	for _, v := range vs[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, true
}

func renderBar(spec core.ChartSpec, w io.Writer) error {
	points := spec.Series[0].Points
	bars := make([]gochart.Value, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		bars[i] = gochart.Value{Label: p.Key, Value: p.Value}
		ys[i] = p.Value
	}
	graph := gochart.BarChart{
		Title:  spec.Title,
		Width:  Width,
		Height: Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40},
		},
		BarWidth: barWidth(len(bars)),
		YAxis: gochart.YAxis{
			Name:           spec.YLabel,
			ValueFormatter: amountFormatter,
			Range:          yRange(ys),
		},
		Bars: bars,
	}
	return graph.Render(gochart.SVG, w)
}

func renderPie(spec core.ChartSpec, w io.Writer) error {
	points := spec.Series[0].Points
	values := make([]gochart.Value, 0, len(points))
	var total float64
	for _, p := range points {
		if p.Value <= 0 {
			continue
		}
		total += p.Value
		values = append(values, gochart.Value{Label: p.Key, Value: p.Value})
	}
	if total == 0 {
		return ErrNoData
	}
	for i := range values {
		values[i].Label = fmt.Sprintf("%s %.1f%%", values[i].Label, values[i].Value/total*100)
	}
	graph := gochart.PieChart{
		Title:  spec.Title,
		Width:  Width,
		Height: Height,
		Values: values,
	}
	return graph.Render(gochart.SVG, w)
}

func barWidth(n int) int {
	if n <= 0 {
		return 40
	}
	w := (Width - 100) / (2 * n)
	if w > 80 {
		return 80
	}
	if w < 8 {
		return 8
	}
	return w
}

func intFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.Itoa(int(f))
	}
	return fmt.Sprint(v)
}

func amountFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return fmt.Sprint(v)
}

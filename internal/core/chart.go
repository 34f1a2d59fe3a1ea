package core

// ChartKind selects how a ChartSpec is drawn.
type ChartKind string

const (
	ChartLine    ChartKind = "line"
	ChartBar     ChartKind = "bar"
	ChartPie     ChartKind = "pie"
	ChartGrouped ChartKind = "grouped"
)

// Point is one aggregated value keyed by its group label.
type Point struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// Series is an ordered list of points. Single series charts leave Name empty.
type Series struct {
	Name   string  `json:"name,omitempty"`
	Points []Point `json:"points"`
}

// ChartSpec is an aggregate table plus the presentation hints needed to draw it.
type ChartSpec struct {
	ID     string    `json:"id"`
	Kind   ChartKind `json:"kind"`
	Title  string    `json:"title"`
	XLabel string    `json:"x_label,omitempty"`
	YLabel string    `json:"y_label,omitempty"`
	Series []Series  `json:"series"`
}

// Empty reports whether the chart has nothing to draw. A pie needs at least
// one positive slice in its first series.
func (c ChartSpec) Empty() bool {
	if c.Kind == ChartPie {
		if len(c.Series) == 0 {
			return true
		}
		for _, p := range c.Series[0].Points {
			if p.Value > 0 {
				return false
			}
		}
		return true
	}
	for _, s := range c.Series {
		if len(s.Points) > 0 {
			return false
		}
	}
	return true
}

// Keys returns the distinct point keys across all series in first-seen order.
func (c ChartSpec) Keys() []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, s := range c.Series {
		for _, p := range s.Points {
			if _, ok := seen[p.Key]; ok {
				continue
			}
			seen[p.Key] = struct{}{}
			keys = append(keys, p.Key)
		}
	}
	return keys
}

// View is what the output region shows: either a prompt or charts.
type View struct {
	Selection Selection   `json:"selection"`
	Prompt    string      `json:"prompt,omitempty"`
	Charts    []ChartSpec `json:"charts,omitempty"`
}

// HasCharts reports whether the view renders charts rather than the prompt.
func (v View) HasCharts() bool {
	return len(v.Charts) > 0
}

// Chart looks up a chart by id.
func (v View) Chart(id string) (ChartSpec, bool) {
	for _, c := range v.Charts {
		if c.ID == id {
			return c, true
		}
	}
	return ChartSpec{}, false
}

// Rows lays charts out two per row, the grid used by the dashboard.
func (v View) Rows() [][]ChartSpec {
	var rows [][]ChartSpec
	for i := 0; i < len(v.Charts); i += 2 {
		end := i + 2
		if end > len(v.Charts) {
			end = len(v.Charts)
		}
		rows = append(rows, v.Charts[i:end])
	}
	return rows
}

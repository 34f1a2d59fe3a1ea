// Package dataset holds the sales table loaded at startup and the group-by
// aggregations the report views are built from.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"autosales/internal/core"
)

// ErrMissingColumns is returned when the CSV header lacks a required column.
var ErrMissingColumns = errors.New("missing required columns")

var errEmpty = errors.New("dataset has no rows")

var columnTypes = map[string]series.Type{
	core.ColYear:             series.Int,
	core.ColMonth:            series.String,
	core.ColVehicleType:      series.String,
	core.ColSales:            series.Float,
	core.ColAdExpenditure:    series.Float,
	core.ColRecession:        series.Int,
	core.ColUnemploymentRate: series.Float,
}

// Dataset is an immutable view over the sales rows. Filtering returns a new
// Dataset; the receiver is never modified, so a loaded Dataset can be shared
// by concurrent requests.
type Dataset struct {
	df       dataframe.DataFrame
	source   string
	loadedAt time.Time
}

// Group is one row of an aggregate table: the group-by key values in column
// order and the reduced value.
type Group struct {
	Keys  []string
	Value float64
}

// Parse reads a CSV with a header row. Columns other than the required ones
// are dropped.
func Parse(r io.Reader) (*Dataset, error) {
	df := dataframe.ReadCSV(r, dataframe.WithTypes(columnTypes))
	if df.Err != nil {
		return nil, fmt.Errorf("parse csv: %w", df.Err)
	}
	if err := checkColumns(df.Names()); err != nil {
		return nil, err
	}
	df = df.Select(core.RequiredColumns)
	if df.Err != nil {
		return nil, fmt.Errorf("select columns: %w", df.Err)
	}
	return &Dataset{df: df, loadedAt: time.Now()}, nil
}

func checkColumns(names []string) error {
	have := make(map[string]struct{}, len(names))
	for _, n := range names {
		have[strings.TrimSpace(n)] = struct{}{}
	}
	var missing []string
	for _, c := range core.RequiredColumns {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return d.df.Nrow()
}

// Source names where the rows were loaded from.
func (d *Dataset) Source() string {
	return d.source
}

// LoadedAt is when the rows were parsed.
func (d *Dataset) LoadedAt() time.Time {
	return d.loadedAt
}

// Where keeps rows whose column equals value.
func (d *Dataset) Where(col string, value any) *Dataset {
	if d.df.Nrow() == 0 {
		return d
	}
	return &Dataset{
		df: d.df.Filter(dataframe.F{
			Colname:    col,
			Comparator: series.Eq,
			Comparando: value,
		}),
		source:   d.source,
		loadedAt: d.loadedAt,
	}
}

// Years returns the distinct years present, ascending.
func (d *Dataset) Years() []int {
	if d.df.Nrow() == 0 {
		return nil
	}
	years, err := d.df.Col(core.ColYear).Int()
	if err != nil {
		return nil
	}
	seen := make(map[int]struct{})
	var out []int
	for _, y := range years {
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}

// Mean groups rows by the given columns and averages value within each group.
func (d *Dataset) Mean(value string, by ...string) ([]Group, error) {
	return d.aggregate(dataframe.Aggregation_MEAN, value, by)
}

// Sum groups rows by the given columns and sums value within each group.
func (d *Dataset) Sum(value string, by ...string) ([]Group, error) {
	return d.aggregate(dataframe.Aggregation_SUM, value, by)
}

func (d *Dataset) aggregate(typ dataframe.AggregationType, value string, by []string) ([]Group, error) {
	if len(by) == 0 {
		return nil, errors.New("aggregate: no group-by columns")
	}
	if d.df.Nrow() == 0 {
		return nil, nil
	}
	if d.df.Err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", value, d.df.Err)
	}

	groups := d.df.GroupBy(by...)
	if groups.Err != nil {
		return nil, fmt.Errorf("group %s by %v: %w", value, by, groups.Err)
	}
	agg := groups.Aggregation([]dataframe.AggregationType{typ}, []string{value})
	if agg.Err != nil {
		return nil, fmt.Errorf("aggregate %s by %v: %w", value, by, agg.Err)
	}

	keyCols := make([][]string, len(by))
	for i, col := range by {
		keyCols[i] = formatColumn(agg.Col(col))
	}
	values := agg.Col(fmt.Sprintf("%s_%s", value, typ)).Float()

	out := make([]Group, agg.Nrow())
	for row := range out {
		keys := make([]string, len(by))
		for i := range by {
			keys[i] = keyCols[i][row]
		}
		out[row] = Group{Keys: keys, Value: values[row]}
	}
	sortGroups(out, by)
	return out, nil
}

// formatColumn renders group keys without gota's fixed six-decimal floats.
func formatColumn(s series.Series) []string {
	switch s.Type() {
	case series.Float:
		fs := s.Float()
		out := make([]string, len(fs))
		for i, f := range fs {
			out[i] = strconv.FormatFloat(f, 'f', -1, 64)
		}
		return out
	default:
		return s.Records()
	}
}

// sortGroups orders groups by key columns: months by calendar position,
// numeric keys numerically, anything else lexically.
func sortGroups(groups []Group, by []string) {
	sort.SliceStable(groups, func(i, j int) bool {
		for c, col := range by {
			a, b := groups[i].Keys[c], groups[j].Keys[c]
			if a == b {
				continue
			}
			return keyLess(col, a, b)
		}
		return false
	})
}

func keyLess(col, a, b string) bool {
	if col == core.ColMonth {
		ai, bi := core.MonthIndex(a), core.MonthIndex(b)
		if ai != bi {
			return ai < bi
		}
		return a < b
	}
	af, aerr := strconv.ParseFloat(a, 64)
	bf, berr := strconv.ParseFloat(b, 64)
	if aerr == nil && berr == nil && !math.IsNaN(af) && !math.IsNaN(bf) {
		return af < bf
	}
	return a < b
}

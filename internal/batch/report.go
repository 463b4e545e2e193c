package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/elektrokombinacija/gridmapf/internal/core"
)

// Header returns the CSV column names: for every KPI its value, coefficient
// of variation, mean and standard deviation.
func Header() []string {
	h := []string{"run", "run_id", "outcome", "starts", "goals"}
	for _, kpi := range KPIs {
		h = append(h, kpi, kpi+"_cv", kpi+"_mean", kpi+"_std")
	}
	return append(h, "generated", "expanded")
}

// WriteCSV writes results with a header row.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	for i := range results {
		if err := cw.Write(row(&results[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func row(r *Result) []string {
	rec := []string{
		strconv.Itoa(r.Run),
		r.ID.String(),
		r.Outcome,
		formatLocations(r.Starts),
		formatLocations(r.Goals),
	}
	for k, kpi := range KPIs {
		var s Summary
		if k < len(r.Stats) {
			s = r.Stats[k]
		} else {
			s = nanSummary()
		}
		value := math.NaN()
		if r.Solved() {
			value = r.kpi(kpi)
		}
		rec = append(rec, formatFloat(value), formatFloat(s.CV), formatFloat(s.Mean), formatFloat(s.Std))
	}
	return append(rec, strconv.Itoa(r.Generated), strconv.Itoa(r.Expanded))
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'g', 6, 64)
}

// formatLocations renders cells as "r c;r c".
func formatLocations(ls []core.Location) string {
	parts := make([]string, len(ls))
	for i, l := range ls {
		parts[i] = fmt.Sprintf("%d %d", l.Row, l.Col)
	}
	return strings.Join(parts, ";")
}

func writeCSVFile(path string, results []Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

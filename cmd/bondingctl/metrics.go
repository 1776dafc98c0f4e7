// cmd/bondingctl/metrics.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// writeMetrics dumps the gathered families in the Prometheus text format.
func writeMetrics(path string, families []*dto.MetricFamily) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create metrics dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	defer f.Close()

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(f, mf); err != nil {
			return fmt.Errorf("failed to write %s: %w", mf.GetName(), err)
		}
	}
	return f.Close()
}

// renderMetrics prints one row per series; histograms show count and sum.
func renderMetrics(families []*dto.MetricFamily) string {
	rows := make([][]string, 0)
	for _, mf := range families {
		name := strings.TrimPrefix(mf.GetName(), "curvebond_")
		for _, m := range mf.GetMetric() {
			var value string
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				value = fmt.Sprintf("%.0f", m.GetCounter().GetValue())
			case dto.MetricType_GAUGE:
				value = fmt.Sprintf("%.0f", m.GetGauge().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				value = fmt.Sprintf("n=%d sum=%.4fs", h.GetSampleCount(), h.GetSampleSum())
			default:
				continue
			}
			rows = append(rows, []string{name, labelString(m.GetLabel()), value})
		}
	}
	if len(rows) == 0 {
		return ""
	}
	return titleStyle.Render("▶ metrics") + "\n" + table([]string{"metric", "labels", "value"}, rows) + "\n"
}

func labelString(labels []*dto.LabelPair) string {
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		v := l.GetValue()
		// адреса пулов слишком длинные для таблицы
		if len(v) > 12 {
			v = v[:4] + "…" + v[len(v)-4:]
		}
		parts = append(parts, l.GetName()+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

package formatter

import (
	"fmt"
	"sort"
	"strings"

	dto "github.com/prometheus/client_model/go"
)

// FormatMetrics renders gathered use-case counters and latency histograms.
func FormatMetrics(families []*dto.MetricFamily) string {
	var rows [][]string
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			labels := make([]string, 0, len(metric.GetLabel()))
			for _, lp := range metric.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			sort.Strings(labels)

			var value string
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				value = fmt.Sprintf("%g", metric.GetCounter().GetValue())
			case dto.MetricType_GAUGE:
				value = fmt.Sprintf("%g", metric.GetGauge().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := metric.GetHistogram()
				value = fmt.Sprintf("n=%d sum=%.4fs", h.GetSampleCount(), h.GetSampleSum())
			default:
				continue
			}
			rows = append(rows, []string{mf.GetName(), strings.Join(labels, " "), value})
		}
	}
	if len(rows) == 0 {
		return ""
	}
	return RenderTable([]string{"METRIC", "LABELS", "VALUE"}, rows)
}

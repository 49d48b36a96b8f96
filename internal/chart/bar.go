package chart

import (
	"bytes"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/iWorld-y/churn_radar/internal/churn"
)

// RenderBar 渲染以原因为横轴、次数为纵轴的柱状图，返回完整的 HTML 页面
func RenderBar(title string, reasons []churn.ReasonCount) (string, error) {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     "100%",
			Height:    "380px",
		}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Reason"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Count"}),
	)

	labels := make([]string, 0, len(reasons))
	data := make([]opts.BarData, 0, len(reasons))
	for _, r := range reasons {
		labels = append(labels, r.Reason)
		data = append(data, opts.BarData{Name: r.Reason, Value: r.Count})
	}
	bar.SetXAxis(labels).AddSeries("Count", data)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		return "", fmt.Errorf("render bar chart failed: %w", err)
	}
	return buf.String(), nil
}

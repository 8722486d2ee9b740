package render

import (
	"bytes"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	errs "github.com/matzehuels/boothplan/pkg/errors"
	"github.com/matzehuels/boothplan/pkg/pipeline"
)

// UsageChart renders a self-contained HTML page with one stacked bar per
// cluster: claimed units below, free units on top.
func UsageChart(usage []pipeline.ClusterUsage) ([]byte, error) {
	if len(usage) == 0 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "no clusters to chart")
	}

	names := make([]string, len(usage))
	claimed := make([]opts.BarData, len(usage))
	free := make([]opts.BarData, len(usage))
	var totalClaimed, total int
	for i, u := range usage {
		names[i] = u.Cluster
		claimed[i] = opts.BarData{Name: u.Cluster, Value: u.ClaimedUnits}
		free[i] = opts.BarData{Name: u.Cluster, Value: u.FreeUnits()}
		totalClaimed += u.ClaimedUnits
		total += u.TotalUnits
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Cluster usage", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Cluster usage",
			Subtitle: fmt.Sprintf("%d of %d units claimed", totalClaimed, total),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 40, Interval: "0"}}),
	)
	stack := charts.WithBarChartOpts(opts.BarChart{Stack: "units"})
	bar.SetXAxis(names).
		AddSeries("claimed", claimed, stack).
		AddSeries("free", free, stack)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		return nil, fmt.Errorf("render usage chart: %w", err)
	}
	return buf.Bytes(), nil
}

package reconstruct

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	plotTitle   = "Topic Membership by Version"
	areaOpacity = 0.5
	fullZoomPct = 100
)

// GenerateChart builds a stacked area chart of topic membership per version.
func GenerateChart(name string, states []State) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    plotTitle,
			Subtitle: subtitle(name, states),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Type: "scroll", Top: "5px"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: fullZoomPct}, opts.DataZoom{Type: "inside"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Version"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Membership"}),
	)

	labels := make([]string, len(states))
	for i, s := range states {
		labels[i] = s.Label
	}

	line.SetXAxis(labels)

	if len(states) == 0 {
		return line
	}

	memberships := make([][]float64, len(states))
	for i, s := range states {
		memberships[i] = s.Membership()
	}

	for topic := range len(states[0].Counts) {
		data := make([]opts.LineData, len(states))
		for i := range states {
			data[i] = opts.LineData{Value: memberships[i][topic]}
		}

		line.AddSeries(
			fmt.Sprintf("topic %d", topic),
			data,
			charts.WithLineChartOpts(opts.LineChart{Stack: "total"}),
			charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(areaOpacity)}),
		)
	}

	return line
}

func subtitle(name string, states []State) string {
	if len(states) == 0 {
		return "No data"
	}

	return fmt.Sprintf("%s: %d versions, %d topics", name, len(states), len(states[0].Counts))
}

// Plot renders the membership chart as HTML to w.
func Plot(w io.Writer, name string, states []State) error {
	err := GenerateChart(name, states).Render(w)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	return nil
}

// PlotFile renders the membership chart as HTML into path.
func PlotFile(path, name string, states []State) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plot: %w", err)
	}

	defer func() {
		closeErr := file.Close()
		if closeErr != nil && err == nil {
			err = fmt.Errorf("close plot: %w", closeErr)
		}
	}()

	return Plot(file, name, states)
}

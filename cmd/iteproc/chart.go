package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wcharczuk/go-chart/v2"

	"rescribe.xyz/ite"
)

// writeTimingChart renders a bar chart of per-stage durations next to
// outputPath, named <base>.timing.png.
//
// Grounded on rescribe-bookpipeline/graph.go's Graph/GraphOpts (a
// chart.Chart built from a ContinuousSeries of page confidences),
// rebuilt here as a BarChart of one bar per pipeline stage
// rather than a line over page number.
func writeTimingChart(outputPath string, log *ite.TimingLog) error {
	if len(log.Stages) == 0 {
		return nil
	}

	var bars []chart.Value
	for _, s := range log.Stages {
		bars = append(bars, chart.Value{
			Label: s.Stage,
			Value: s.Duration.Seconds() * 1000,
		})
	}

	barChart := chart.BarChart{
		Title:      "iteproc stage timings (ms)",
		Width:      1024,
		Height:     512,
		BarWidth:   40,
		XAxis:      chart.Style{StrokeColor: chart.ColorAlternateGray},
		YAxis:      chart.YAxis{Style: chart.Style{StrokeColor: chart.ColorAlternateGray}},
		Bars:       bars,
	}

	ext := filepath.Ext(outputPath)
	base := strings.TrimSuffix(outputPath, ext)
	chartPath := fmt.Sprintf("%s.timing.png", base)

	f, err := os.Create(chartPath)
	if err != nil {
		return err
	}
	defer f.Close()

	return barChart.Render(chart.PNG, f)
}

package decision

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/entrycheck/internal/models"
)

// RenderClosesChart renders a PNG line chart of the snapshot's close
// history with the stop-loss level drawn as a dashed horizontal line.
// Returns raw PNG bytes.
func RenderClosesChart(snapshot *models.StockSnapshot, stopLoss float64) ([]byte, error) {
	if len(snapshot.Closes) < 2 {
		return nil, fmt.Errorf("need at least 2 closes, got %d", len(snapshot.Closes))
	}

	xValues := make([]float64, len(snapshot.Closes))
	for i := range snapshot.Closes {
		xValues[i] = float64(i)
	}

	closeSeries := chart.ContinuousSeries{
		Name: "Close",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: snapshot.Closes,
	}

	stopY := make([]float64, len(xValues))
	for i := range stopY {
		stopY[i] = stopLoss
	}
	stopSeries := chart.ContinuousSeries{
		Name: "Stop Loss",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("dc2626"), // red-600
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: xValues,
		YValues: stopY,
	}

	title := "Closes"
	if snapshot.LongName != "" {
		title = snapshot.LongName
	}

	graph := chart.Chart{
		Title:  title,
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.2f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			closeSeries,
			stopSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}

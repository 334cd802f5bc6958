package simulate

import (
	"fmt"
	"strings"

	charts "github.com/vicanso/go-charts/v2"
)

// RenderChart draws a path as a PNG line chart for the demo screens.
func RenderChart(p Path) ([]byte, error) {
	labels := make([]string, len(p.Prices))
	for i := range labels {
		labels[i] = fmt.Sprintf("Day %d", i+1)
	}

	painter, err := charts.LineRender([][]float64{p.Prices},
		charts.TitleTextOptionFunc(strings.ToUpper(p.Seed)+" • simulated"),
		charts.XAxisDataOptionFunc(labels),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

// report renders an HTML summary of a show's event journal: counts per
// gesture type and event strengths over time. Intended for post-show
// review, not live monitoring.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/crowd-organ/gesture.host/internal/db"
)

var (
	dbPath  = flag.String("db", "gesture_events.db", "event journal path")
	outPath = flag.String("out", "gesture_report.html", "output HTML path")
	limit   = flag.Int("limit", 2000, "max events to plot")
	sinceMs = flag.Int64("since-ms", 0, "only count events at or after this unix-millis timestamp")
)

func main() {
	flag.Parse()

	journal, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open event journal: %v", err)
	}
	defer journal.Close()

	counts, err := journal.CountsByType(*sinceMs)
	if err != nil {
		log.Fatalf("failed to query event counts: %v", err)
	}
	events, err := journal.RecentEvents(*limit)
	if err != nil {
		log.Fatalf("failed to query events: %v", err)
	}
	if len(events) == 0 {
		log.Fatal("journal holds no events to report on")
	}

	page := components.NewPage()
	page.PageTitle = "Gesture Report"
	page.AddCharts(countsChart(counts), strengthChart(events))

	out, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("failed to create report file: %v", err)
	}
	defer out.Close()

	if err := page.Render(out); err != nil {
		log.Fatalf("failed to render report: %v", err)
	}
	log.Printf("wrote report for %d events to %s", len(events), *outPath)
}

func countsChart(counts map[string]int) *charts.Bar {
	types := make([]string, 0, len(counts))
	for gestureType := range counts {
		types = append(types, gestureType)
	}
	sort.Strings(types)

	values := make([]opts.BarData, 0, len(types))
	total := 0
	for _, gestureType := range types {
		values = append(values, opts.BarData{Value: counts[gestureType]})
		total += counts[gestureType]
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Gestures by Type", Subtitle: fmt.Sprintf("%d events total", total)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(types).
		AddSeries("events", values,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

func strengthChart(events []db.EventRow) *charts.Scatter {
	// RecentEvents returns newest first; plot oldest first.
	points := make([]opts.ScatterData, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		points = append(points, opts.ScatterData{
			Value: []interface{}{e.UnixMillis, e.Strength},
			Name:  e.Type,
		})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Event Strength Over Time", Subtitle: fmt.Sprintf("last %d events", len(events))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "time (ms)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "strength", Min: 0, Max: 1}),
	)
	scatter.AddSeries("strength", points, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	return scatter
}

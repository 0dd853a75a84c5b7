package web

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"bookshelf/library"
)

// renderStatsPage writes the statistics page: a status pie, a rating
// histogram and a monthly-additions line, all computed from the given
// records.
func renderStatsPage(w io.Writer, books []library.Book) error {
	page := components.NewPage()
	page.PageTitle = "Library Statistics"
	page.AddCharts(statusPie(books), ratingBar(books), monthlyLine(books))
	return page.Render(w)
}

func statusPie(books []library.Book) *charts.Pie {
	counts := library.CountByStatus(books)

	data := make([]opts.PieData, 0, 3)
	for _, s := range library.Statuses() {
		data = append(data, opts.PieData{Name: string(s), Value: counts[s]})
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Book Status Distribution"}))
	pie.AddSeries("status", data)
	return pie
}

func ratingBar(books []library.Book) *charts.Bar {
	hist := library.RatingHistogram(books)

	labels := make([]string, 0, 5)
	data := make([]opts.BarData, 0, 5)
	for r := 1; r <= 5; r++ {
		labels = append(labels, fmt.Sprintf("%d", r))
		data = append(data, opts.BarData{Value: hist[r]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Rating Distribution"}))
	bar.SetXAxis(labels).AddSeries("books", data)
	return bar
}

func monthlyLine(books []library.Book) *charts.Line {
	monthly := library.MonthlyAdditions(books)

	labels := make([]string, 0, len(monthly))
	data := make([]opts.LineData, 0, len(monthly))
	for _, mc := range monthly {
		labels = append(labels, mc.Month)
		data = append(data, opts.LineData{Value: mc.Count})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Monthly Book Additions"}))
	line.SetXAxis(labels).AddSeries("additions", data)
	return line
}

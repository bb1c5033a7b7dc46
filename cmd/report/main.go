// Command report runs the cleaning pipeline over a mortality CSV and prints
// the headline numbers plus the cities with the highest and lowest average
// mortality. Useful for eyeballing a dataset before serving it.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/healthgrid/govai/internal/core/canon"
	"github.com/healthgrid/govai/internal/core/table"
)

func main() {
	var (
		path   = flag.String("csv", "", "Path to the mortality CSV")
		cutoff = flag.Float64("cutoff", canon.DefaultScoreCutoff, "Fuzzy-match score cutoff (0-100)")
		topN   = flag.Int("top", 5, "How many cities to list from each end")
	)
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: report -csv <file> [-cutoff 90] [-top 5]")
		os.Exit(2)
	}

	f, err := os.Open(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open %s: %v\n", *path, err)
		os.Exit(1)
	}
	defer f.Close()

	tbl, err := table.ReadCSV(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read csv: %v\n", err)
		os.Exit(1)
	}
	if err := tbl.RequireColumns(table.ColCity, table.ColDeathsTotal); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	mapping := tbl.Canonicalize(canon.NewResolver(*cutoff))
	tbl.RewriteNumeric(table.NumericColumns...)

	metrics := tbl.Summary()
	fmt.Printf("Rows: %d   Cities: %d   Total deaths: %.0f   Avg births: %.0f\n\n",
		metrics.Rows, len(tbl.Distinct(table.ColCity)), metrics.TotalDeaths, metrics.AvgBirths)
	fmt.Printf("Canonical labels resolved: %d\n\n", len(mapping))

	type cityAvg struct {
		city string
		avg  float64
	}
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, row := range tbl.Rows {
		if v, ok := tbl.Float(row, table.ColDeathsTotal); ok {
			sums[row[table.ColCity]] += v
			counts[row[table.ColCity]]++
		}
	}
	var avgs []cityAvg
	for city, sum := range sums {
		avgs = append(avgs, cityAvg{city: city, avg: sum / float64(counts[city])})
	}
	sort.Slice(avgs, func(i, j int) bool {
		if avgs[i].avg != avgs[j].avg {
			return avgs[i].avg > avgs[j].avg
		}
		return avgs[i].city < avgs[j].city
	})

	n := *topN
	if n > len(avgs) {
		n = len(avgs)
	}
	fmt.Printf("Top %d cities by average mortality:\n", n)
	for _, a := range avgs[:n] {
		fmt.Printf("  %-24s %10.1f\n", a.city, a.avg)
	}
	fmt.Printf("\nBottom %d cities by average mortality:\n", n)
	for _, a := range avgs[len(avgs)-n:] {
		fmt.Printf("  %-24s %10.1f\n", a.city, a.avg)
	}
}

package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/YosysHQ/nextpnr-sub004/pnrctx"
)

// writeCongestionCSVs emits the optional congestion-history files as a
// final post-route snapshot: router2 does not expose a per-iteration
// hook to this package, so these files summarise the committed
// routing's wire usage by type and by tile once, rather than once per
// negotiation round.
func writeCongestionCSVs(ctx *pnrctx.Context, dir string) error {
	byType := map[string]int{}
	byXY := map[[2]int]int{}

	for _, net := range ctx.Nets.Sorted() {
		for w := range net.Wires {
			byType[ctx.Str(ctx.Arch.WireType(w))]++
			loc := ctx.Arch.WireLocation(w)
			byXY[[2]int{loc.X, loc.Y}]++
		}
	}

	totalByType := map[string]int{}
	for _, w := range ctx.Arch.Wires() {
		totalByType[ctx.Str(ctx.Arch.WireType(w))]++
	}
	var utilRows [][]string
	types := make([]string, 0, len(totalByType))
	for t := range totalByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		util := float64(byType[t]) / float64(totalByType[t])
		utilRows = append(utilRows, []string{t, fmt.Sprintf("%d", totalByType[t]), fmt.Sprintf("%.4f", util)})
	}

	if err := writeCSV(filepath.Join(dir, "congestion_by_wiretype.csv"), []string{"wiretype", "uses"}, sortedTypeCounts(byType)); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(dir, "utilisation_by_wiretype.csv"), []string{"wiretype", "wires", "utilisation"}, utilRows); err != nil {
		return err
	}
	return writeCSV(filepath.Join(dir, "congestion_by_xy.csv"), []string{"x", "y", "uses"}, sortedXYCounts(byXY))
}

func sortedTypeCounts(m map[string]int) [][]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, fmt.Sprintf("%d", m[k])})
	}
	return rows
}

func sortedXYCounts(m map[[2]int]int) [][]string {
	keys := make([][2]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{fmt.Sprintf("%d", k[0]), fmt.Sprintf("%d", k[1]), fmt.Sprintf("%d", m[k])})
	}
	return rows
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

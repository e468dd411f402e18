package main

import (
	"strconv"

	"github.com/YosysHQ/nextpnr-sub004/arch"
	"github.com/YosysHQ/nextpnr-sub004/idstring"
	"github.com/YosysHQ/nextpnr-sub004/pnrerror"
	"github.com/YosysHQ/nextpnr-sub004/testarch"
)

// buildDevice resolves chipArgs["family"] to an arch.Arch implementation.
// Only the "testarch" family is known to this binary: real FPGA families
// are external backend plugins that would register themselves here;
// testarch stands in both for --test and for running the pipeline
// against a project file with no family backend linked in.
func buildDevice(tbl *idstring.Table, chipArgs map[string]string) (arch.Arch, error) {
	family := chipArgs["family"]
	if family == "" {
		family = "testarch"
	}
	if family != "testarch" {
		return nil, pnrerror.NewCommandError("unknown architecture family %q (no backend linked in)", family)
	}

	width := intArg(chipArgs, "width", 4)
	height := intArg(chipArgs, "height", 4)

	d := testarch.NewBuilder(tbl).WithWidth(width).WithHeight(height).Build(chipArgs["device"])
	registerDemoCellTypes(d)
	return d, nil
}

// registerDemoCellTypes wires up the handful of cell types that testarch
// knows how to place (LUT4/DFF/IBUF/OBUF), so a project loaded against a
// freshly built testarch device can bind any of those types to a bel.
func registerDemoCellTypes(d *testarch.Device) {
	d.RegisterCellType("LUT4", testarch.TypeLUT4)
	d.RegisterCellType("DFF", testarch.TypeDFF)
	d.RegisterCellType("IBUF", testarch.TypeIBUF)
	d.RegisterCellType("OBUF", testarch.TypeOBUF)
}

func intArg(args map[string]string, key string, def int) int {
	s, ok := args[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

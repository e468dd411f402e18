package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/YosysHQ/nextpnr-sub004/idstring"
	"github.com/YosysHQ/nextpnr-sub004/netlist"
	"github.com/YosysHQ/nextpnr-sub004/place/heap"
	"github.com/YosysHQ/nextpnr-sub004/place/sa"
	"github.com/YosysHQ/nextpnr-sub004/pnrctx"
	"github.com/YosysHQ/nextpnr-sub004/pnrerror"
	"github.com/YosysHQ/nextpnr-sub004/project"
	"github.com/YosysHQ/nextpnr-sub004/route/router1"
	"github.com/YosysHQ/nextpnr-sub004/route/router2"
	"github.com/YosysHQ/nextpnr-sub004/testarch"
	"github.com/YosysHQ/nextpnr-sub004/timing"
)

// runArchCheck implements --test: build a small synthetic
// device and run archcheck() against it, reporting success or failure.
func runArchCheck(w io.Writer, seed int64) error {
	tbl := idstring.NewTable()
	d := testarch.NewBuilder(tbl).WithWidth(4).WithHeight(4).Build("selftest")
	registerDemoCellTypes(d)

	ctx := pnrctx.New(d, tbl)
	ctx.Seed(seed)

	if err := ctx.ArchCheck(); err != nil {
		exitCode = -1
		return err
	}
	fmt.Fprintln(w, "archcheck: OK")
	exitCode = 0
	return nil
}

// runPipeline is the pack->place->route data flow against a project
// file: --load supplies the netlist (this module has no netlist reader
// of its own), placement runs the selected placer, routing runs the
// selected router, and a post-route timing pass assigns final budgets;
// only the assumed clock period is printed, not per-port criticality or
// slack. --save writes the result back out for a round-trip.
func runPipeline(w io.Writer, f *cliFlags, seed int64, errs *pnrerror.Counter) error {
	if f.load == "" {
		return pnrerror.NewCommandError("no --load project given (this binary has no netlist reader; see --test to self-check a device)")
	}

	doc, err := project.ReadFile(f.load)
	if err != nil {
		return pnrerror.NewCommandError("%v", err)
	}

	tbl := idstring.NewTable()
	device, err := buildDevice(tbl, doc.ChipArgs)
	if err != nil {
		return err
	}

	ctx := pnrctx.New(device, tbl)
	ctx.Seed(seed)
	ctx.Errors = errs

	if err := project.Load(ctx, doc); err != nil {
		return err
	}

	applyFlagSettings(ctx, f)

	if !ctx.Arch.Pack() {
		return pnrerror.NewExecutionError("pack() reported failure")
	}
	if f.packOnly {
		return maybeSave(ctx, doc.ChipArgs, f.save)
	}

	timingDriven := settingBool(ctx, "timing_driven", !f.noTmDriv)
	periodPS := defaultPeriodPS(ctx, f.freqMHz)

	if err := runPlace(ctx, timingDriven, periodPS, f.ignoreLoops); err != nil {
		return err
	}
	if err := runRoute(ctx, timingDriven, periodPS, f.ignoreLoops); err != nil {
		return err
	}

	an, err := finalTiming(ctx, periodPS, f.ignoreLoops)
	if err != nil {
		return err
	}
	reportTiming(w, an, periodPS)

	if err := ctx.Check(); err != nil {
		return err
	}

	if settingBool(ctx, "router2/heatmap", false) {
		if err := writeCongestionCSVs(ctx, "."); err != nil {
			slog.Warn("congestion CSV emission failed", "error", err)
		}
	}

	return maybeSave(ctx, doc.ChipArgs, f.save)
}

func applyFlagSettings(ctx *pnrctx.Context, f *cliFlags) {
	if f.freqMHz > 0 {
		ctx.Settings["target_freq"] = pnrctx.FloatSetting(f.freqMHz * 1e6)
	}
	ctx.Settings["timing_driven"] = pnrctx.BoolSetting(!f.noTmDriv)
	ctx.Settings["slack_redist_iter"] = pnrctx.IntSetting(int64(f.slackRedist))
	ctx.Settings["placer1/constraintWeight"] = pnrctx.FloatSetting(f.cstrWeight)
}

func defaultPeriodPS(ctx *pnrctx.Context, freqMHz float64) int64 {
	hz := settingFloat(ctx, "target_freq", freqMHz*1e6)
	if hz <= 0 {
		return pnrctx.DelayFromNs(10) // 100MHz fallback for unconstrained clocks
	}
	return int64(1e12 / hz)
}

func runPlace(ctx *pnrctx.Context, timingDriven bool, periodPS int64, ignoreLoops bool) error {
	placerName := settingString(ctx, "placer", "sa")
	switch placerName {
	case "heap":
		opts := heap.DefaultOptions()
		opts.TimingDriven = timingDriven
		if timingDriven {
			opts.Criticality = zeroCriticality
		}
		return heap.New(ctx, opts).Run()
	case "sa", "":
		opts := sa.DefaultOptions()
		opts.TimingDriven = timingDriven
		if timingDriven {
			// No routing exists before placement, so criticality starts
			// flat; the router's timing-aware pass refines from here.
			opts.Criticality = zeroCriticality
		}
		return sa.New(ctx, opts).Run()
	default:
		return pnrerror.NewCommandError("unknown placer %q", placerName)
	}
}

func runRoute(ctx *pnrctx.Context, timingDriven bool, periodPS int64, ignoreLoops bool) error {
	routerName := settingString(ctx, "router", "router2")
	switch routerName {
	case "router1":
		opts := router1.DefaultOptions()
		return router1.New(ctx, opts).Run()
	case "router2", "":
		opts := router2.DefaultOptions()
		applyRouter2Settings(ctx, &opts)
		opts.TimingDriven = timingDriven
		if timingDriven {
			// First pass: no committed routing exists yet, so every
			// arc starts at criticality 0 (plain shortest-path cost).
			// A second, timing-aware pass follows once real route
			// delays are available (see retimeAndReroute).
			opts.Criticality = zeroCriticality
		}
		if err := router2.New(ctx, opts).Run(); err != nil {
			return err
		}
		if timingDriven {
			return retimeAndReroute(ctx, opts, periodPS, ignoreLoops)
		}
		return nil
	default:
		return pnrerror.NewCommandError("unknown router %q", routerName)
	}
}

func zeroCriticality(netlist.PortRef) float64 { return 0 }

// retimeAndReroute runs the timing analyser against the first routing
// pass's real delays, then reroutes with the router's own negotiated-
// congestion loop reweighted by that criticality: a net whose arcs are
// not congested but whose slack is poor still gets another shot at a
// faster path.
func retimeAndReroute(ctx *pnrctx.Context, opts router2.Options, periodPS int64, ignoreLoops bool) error {
	an := timing.New(ctx, periodPS, ignoreLoops)
	if err := an.Setup(routeDelayOf(ctx)); err != nil {
		return err
	}
	if err := an.Run(); err != nil {
		return err
	}
	an.AssignBudget()

	opts.Criticality = an.Criticality
	opts.SetupSlack = an.SetupSlack
	return router2.New(ctx, opts).Run()
}

func finalTiming(ctx *pnrctx.Context, periodPS int64, ignoreLoops bool) (*timing.Analyser, error) {
	an := timing.New(ctx, periodPS, ignoreLoops)
	if err := an.Setup(routeDelayOf(ctx)); err != nil {
		return nil, err
	}
	if err := an.Run(); err != nil {
		return nil, err
	}
	an.AssignBudget()
	return an, nil
}

func reportTiming(w io.Writer, an *timing.Analyser, periodPS int64) {
	fmt.Fprintf(w, "timing: assumed period %.2fns\n", float64(periodPS)/1000.0)
}

// routeDelayOf returns a timing.RouteDelayFunc that walks a net's
// committed wires backward from a user's sink wire to its source,
// summing the real architecture-provided wire/pip delays.
func routeDelayOf(ctx *pnrctx.Context) timing.RouteDelayFunc {
	return func(net *netlist.NetInfo, userIdx int) int64 {
		if userIdx < 0 || userIdx >= len(net.Users) {
			return 0
		}
		user := net.Users[userIdx]
		cell, ok := ctx.Cells.Get(user.Port.Cell)
		if !ok || !cell.HasBel {
			return 0
		}
		sinkWire, ok := ctx.Arch.BelPinWire(cell.Bel, user.Port.Port)
		if !ok {
			return 0
		}
		var delay int64
		cur := sinkWire
		for {
			pd, owned := net.Wires[cur]
			if !owned || !pd.HasPip {
				break
			}
			delay += ctx.Arch.PipDelay(pd.Pip) + ctx.Arch.WireDelay(cur)
			cur = ctx.Arch.PipSrcWire(pd.Pip)
		}
		return delay
	}
}

func applyRouter2Settings(ctx *pnrctx.Context, opts *router2.Options) {
	opts.BBMarginX = settingInt(ctx, "router2/bbMargin/x", opts.BBMarginX)
	opts.BBMarginY = settingInt(ctx, "router2/bbMargin/y", opts.BBMarginY)
	opts.InitCurrCongWeight = settingFloat(ctx, "router2/initCurrCongWeight", opts.InitCurrCongWeight)
	opts.HistCongWeight = settingFloat(ctx, "router2/histCongWeight", opts.HistCongWeight)
	opts.CurrCongWeightMult = settingFloat(ctx, "router2/currCongWeightMult", opts.CurrCongWeightMult)
	opts.EstimateWeight = settingFloat(ctx, "router2/estimateWeight", opts.EstimateWeight)
	opts.IpinCostAdder = settingFloat(ctx, "router2/ipinCostAdder", opts.IpinCostAdder)
	opts.BiasCostFactor = settingFloat(ctx, "router2/biasCostFactor", opts.BiasCostFactor)
	opts.BwdMaxIter = settingInt(ctx, "router2/bwdMaxIter", opts.BwdMaxIter)
	opts.GlbBwdMaxIter = settingInt(ctx, "router2/glbBwdMaxIter", opts.GlbBwdMaxIter)
	opts.TmgRipup = settingBool(ctx, "router2/tmg_ripup", opts.TmgRipup)
}

func maybeSave(ctx *pnrctx.Context, chipArgs map[string]string, path string) error {
	if path == "" {
		return nil
	}
	if err := project.SaveFile(ctx, chipArgs, path); err != nil {
		return pnrerror.NewCommandError("%v", err)
	}
	return nil
}

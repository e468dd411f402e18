package pnrctx_test

import (
	"fmt"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gopkg.in/yaml.v3"

	"github.com/YosysHQ/nextpnr-sub004/arch"
	"github.com/YosysHQ/nextpnr-sub004/idstring"
	"github.com/YosysHQ/nextpnr-sub004/netlist"
	"github.com/YosysHQ/nextpnr-sub004/place/sa"
	"github.com/YosysHQ/nextpnr-sub004/pnrctx"
	"github.com/YosysHQ/nextpnr-sub004/pnrerror"
	"github.com/YosysHQ/nextpnr-sub004/project"
	"github.com/YosysHQ/nextpnr-sub004/route/router2"
	"github.com/YosysHQ/nextpnr-sub004/testarch"
	"github.com/YosysHQ/nextpnr-sub004/timing"
)

func TestPnrctxE2E(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Pnrctx End-to-End Suite")
}

// Each spec below builds a testarch device and context, runs a
// pack(stub)->place->route pipeline, then checks the exact expected
// outcome. "pack" has no dedicated stage in this
// module (testarch.Device.Pack always reports true; cell creation
// stands in for it), so each pipeline starts directly from a netlist
// built against the device.

var _ = Describe("end-to-end: empty netlist on a tiny device", func() {
	It("places and routes nothing, leaving the empty-context checksum untouched", func() {
		tbl := idstring.NewTable()
		d := testarch.NewBuilder(tbl).WithWidth(2).WithHeight(2).Build("t0")
		Expect(d.Pack()).To(BeTrue())
		ctx := pnrctx.New(d, tbl)

		Expect(sa.New(ctx, sa.DefaultOptions()).Run()).To(Succeed())
		Expect(router2.New(ctx, router2.DefaultOptions()).Run()).To(Succeed())

		Expect(ctx.Cells.Len()).To(Equal(0))
		Expect(ctx.Nets.Len()).To(Equal(0))
		Expect(ctx.Checksum()).To(Equal(uint32(0x076f4b6d)))
		Expect(ctx.Check()).To(Succeed())
	})
})

var _ = Describe("end-to-end: single inverter", func() {
	It("binds I/O to their bels, the LUT to its bel, and routes both arcs in one pip each", func() {
		tbl := idstring.NewTable()
		d := testarch.NewBuilder(tbl).WithWidth(1).WithHeight(1).Build("t0")
		d.RegisterCellType("IBUF", testarch.TypeIBUF)
		d.RegisterCellType("INV", testarch.TypeLUT4)
		d.RegisterCellType("OBUF", testarch.TypeOBUF)
		Expect(d.Pack()).To(BeTrue())

		ctx := pnrctx.New(d, tbl)
		ctx.CreateCell("ibuf0", "IBUF")
		ctx.CreateCell("inv0", "INV")
		ctx.CreateCell("obuf0", "OBUF")
		ctx.CreateNet("n_in")
		ctx.CreateNet("n_out")

		Expect(ctx.ConnectPort(ctx.ID("ibuf0"), ctx.ID("O"), arch.DirOut, ctx.ID("n_in"))).To(Succeed())
		Expect(ctx.ConnectPort(ctx.ID("inv0"), ctx.ID("I0"), arch.DirIn, ctx.ID("n_in"))).To(Succeed())
		Expect(ctx.ConnectPort(ctx.ID("inv0"), ctx.ID("O"), arch.DirOut, ctx.ID("n_out"))).To(Succeed())
		Expect(ctx.ConnectPort(ctx.ID("obuf0"), ctx.ID("I"), arch.DirIn, ctx.ID("n_out"))).To(Succeed())

		Expect(sa.New(ctx, sa.DefaultOptions()).Run()).To(Succeed())
		Expect(router2.New(ctx, router2.DefaultOptions()).Run()).To(Succeed())
		Expect(ctx.Check()).To(Succeed())

		ibufBel, _ := d.TileBelByType(0, 0, testarch.TypeIBUF)
		lutBel, _ := d.TileBelByType(0, 0, testarch.TypeLUT4)
		obufBel, _ := d.TileBelByType(0, 0, testarch.TypeOBUF)

		boundIbuf, ok := ctx.GetBoundBelCell(ibufBel)
		Expect(ok).To(BeTrue())
		Expect(boundIbuf).To(Equal(ctx.ID("ibuf0")))
		boundLut, ok := ctx.GetBoundBelCell(lutBel)
		Expect(ok).To(BeTrue())
		Expect(boundLut).To(Equal(ctx.ID("inv0")))
		boundObuf, ok := ctx.GetBoundBelCell(obufBel)
		Expect(ok).To(BeTrue())
		Expect(boundObuf).To(Equal(ctx.ID("obuf0")))

		totalPips := 0
		var totalDelay int64
		for _, netName := range []string{"n_in", "n_out"} {
			net, ok := ctx.Nets.Get(ctx.ID(netName))
			Expect(ok).To(BeTrue())
			for w, pd := range net.Wires {
				if pd.HasPip {
					totalPips++
					totalDelay += d.PipDelay(pd.Pip) + d.WireDelay(w)
				}
			}
		}
		Expect(totalPips).To(Equal(2), "exactly two pips should carry I->LUT->O")
		Expect(totalDelay).To(Equal(int64(2 * (80 + 10))))
	})
})

var _ = Describe("end-to-end: contention over a shared wire", func() {
	It("routes a mandatory single-hop net and detours the other net around it", func() {
		tbl := idstring.NewTable()
		d := testarch.NewBuilder(tbl).WithWidth(4).WithHeight(3).Build("t0")
		d.RegisterCellType("IBUF", testarch.TypeIBUF)
		d.RegisterCellType("OBUF", testarch.TypeOBUF)
		Expect(d.Pack()).To(BeTrue())

		ctx := pnrctx.New(d, tbl)

		// netLong spans the entire middle row (0,1)->(3,1); its cheapest
		// path crosses (1,1), but it can detour the long way around via
		// row 2 if that tile is unavailable.
		ctx.CreateCell("src_long", "IBUF")
		ctx.CreateCell("dst_long", "OBUF")
		ctx.CreateNet("netLong")
		Expect(ctx.ConnectPort(ctx.ID("src_long"), ctx.ID("O"), arch.DirOut, ctx.ID("netLong"))).To(Succeed())
		Expect(ctx.ConnectPort(ctx.ID("dst_long"), ctx.ID("I"), arch.DirIn, ctx.ID("netLong"))).To(Succeed())

		// netShort has no alternative: it must cross (1,0)->(1,1) to
		// reach its sink, so it permanently occupies (1,1)'s bus wire.
		ctx.CreateCell("src_short", "IBUF")
		ctx.CreateCell("dst_short", "OBUF")
		ctx.CreateNet("netShort")
		Expect(ctx.ConnectPort(ctx.ID("src_short"), ctx.ID("O"), arch.DirOut, ctx.ID("netShort"))).To(Succeed())
		Expect(ctx.ConnectPort(ctx.ID("dst_short"), ctx.ID("I"), arch.DirIn, ctx.ID("netShort"))).To(Succeed())

		placeAt := func(cellName string, b arch.BelId) {
			Expect(ctx.BindBel(b, ctx.ID(cellName), netlist.StrengthUser)).To(Succeed())
		}
		longSrcBel, _ := d.TileBelByType(0, 1, testarch.TypeIBUF)
		longDstBel, _ := d.TileBelByType(3, 1, testarch.TypeOBUF)
		shortSrcBel, _ := d.TileBelByType(1, 0, testarch.TypeIBUF)
		shortDstBel, _ := d.TileBelByType(1, 1, testarch.TypeOBUF)
		placeAt("src_long", longSrcBel)
		placeAt("dst_long", longDstBel)
		placeAt("src_short", shortSrcBel)
		placeAt("dst_short", shortDstBel)

		Expect(router2.New(ctx, router2.DefaultOptions()).Run()).To(Succeed())
		Expect(ctx.Check()).To(Succeed())

		busAt := func(x, y int) arch.WireId {
			w, ok := d.WireByName(tbl.ID(fmt.Sprintf("T%d_%d/BUS", x, y)))
			Expect(ok).To(BeTrue())
			return w
		}
		sharedWire := busAt(1, 1)

		netShort, ok := ctx.Nets.Get(ctx.ID("netShort"))
		Expect(ok).To(BeTrue())
		_, ownsShared := netShort.Wires[sharedWire]
		Expect(ownsShared).To(BeTrue(), "netShort has no alternative and must own the contested wire")

		netLong, ok := ctx.Nets.Get(ctx.ID("netLong"))
		Expect(ok).To(BeTrue())
		_, longOwnsShared := netLong.Wires[sharedWire]
		Expect(longOwnsShared).To(BeFalse(), "netLong must have detoured around the wire netShort owns")
	})
})

var _ = Describe("end-to-end: timing-driven arc scheduling", func() {
	It("dispatches the critical arc first even when it is listed last", func() {
		tbl := idstring.NewTable()
		d := testarch.NewBuilder(tbl).WithWidth(2).WithHeight(1).Build("t0")
		d.RegisterCellType("IBUF", testarch.TypeIBUF)
		d.RegisterCellType("OBUF", testarch.TypeOBUF)
		Expect(d.Pack()).To(BeTrue())

		ctx := pnrctx.New(d, tbl)
		ctx.CreateCell("ibuf0", "IBUF")
		ctx.CreateCell("obufA", "OBUF")
		ctx.CreateCell("obufB", "OBUF")
		ctx.CreateNet("n0")
		Expect(ctx.ConnectPort(ctx.ID("ibuf0"), ctx.ID("O"), arch.DirOut, ctx.ID("n0"))).To(Succeed())
		Expect(ctx.ConnectPort(ctx.ID("obufA"), ctx.ID("I"), arch.DirIn, ctx.ID("n0"))).To(Succeed())
		Expect(ctx.ConnectPort(ctx.ID("obufB"), ctx.ID("I"), arch.DirIn, ctx.ID("n0"))).To(Succeed())

		ibufBel, _ := d.TileBelByType(0, 0, testarch.TypeIBUF)
		obufABel, _ := d.TileBelByType(0, 0, testarch.TypeOBUF)
		obufBBel, _ := d.TileBelByType(1, 0, testarch.TypeOBUF)
		Expect(ctx.BindBel(ibufBel, ctx.ID("ibuf0"), netlist.StrengthUser)).To(Succeed())
		Expect(ctx.BindBel(obufABel, ctx.ID("obufA"), netlist.StrengthUser)).To(Succeed())
		Expect(ctx.BindBel(obufBBel, ctx.ID("obufB"), netlist.StrengthUser)).To(Succeed())

		// The critical sink (obufB) is the SECOND user of the net, so
		// routing it first can only come from the criticality sort, not
		// from user order.
		refA := netlist.PortRef{Cell: ctx.ID("obufA"), Port: ctx.ID("I")}
		refB := netlist.PortRef{Cell: ctx.ID("obufB"), Port: ctx.ID("I")}
		critOf := map[netlist.PortRef]float64{refA: 0.0, refB: 1.0}

		var queries []netlist.PortRef
		opts := router2.DefaultOptions()
		opts.TimingDriven = true
		opts.Criticality = func(ref netlist.PortRef) float64 {
			queries = append(queries, ref)
			return critOf[ref]
		}

		Expect(router2.New(ctx, opts).Run()).To(Succeed())
		Expect(ctx.Check()).To(Succeed())

		n0, ok := ctx.Nets.Get(ctx.ID("n0"))
		Expect(ok).To(BeTrue())
		Expect(n0.Users).To(HaveLen(2))

		// The router queries each arc's criticality once more as it
		// dispatches the arc's search, so the final two queries of the
		// (single) routing round record the dispatch order: the critical
		// arc first, despite being listed after the non-critical one.
		Expect(len(queries)).To(BeNumerically(">=", 4))
		Expect(queries[len(queries)-2]).To(Equal(refB), "critical arc must dispatch first")
		Expect(queries[len(queries)-1]).To(Equal(refA))
	})
})

var _ = Describe("end-to-end: combinational loop", func() {
	buildLoopContext := func() (*pnrctx.Context, idstring.ID) {
		tbl := idstring.NewTable()
		d := testarch.NewBuilder(tbl).WithWidth(1).WithHeight(1).Build("t0")
		d.RegisterCellType("BUF", testarch.TypeLUT4)
		d.RegisterPortClass("BUF", "A", arch.ClassCombIn)
		d.RegisterPortClass("BUF", "Y", arch.ClassCombOut)
		d.RegisterCellDelay("BUF", "A", "Y", arch.DelayQuad{MaxRise: 100, MaxFall: 100})

		ctx := pnrctx.New(d, tbl)
		ctx.CreateCell("buf0", "BUF")
		ctx.CreateNet("loop")
		Expect(ctx.ConnectPort(ctx.ID("buf0"), ctx.ID("Y"), arch.DirOut, ctx.ID("loop"))).To(Succeed())
		Expect(ctx.ConnectPort(ctx.ID("buf0"), ctx.ID("A"), arch.DirIn, ctx.ID("loop"))).To(Succeed())
		return ctx, ctx.ID("buf0")
	}

	It("fails with an ExecutionError naming the loop's ports when ignore_loops is false", func() {
		ctx, _ := buildLoopContext()
		an := timing.New(ctx, pnrctx.DelayFromNs(10), false)
		err := an.Setup(nil)
		Expect(err).To(HaveOccurred())
		var execErr *pnrerror.ExecutionError
		Expect(err).To(BeAssignableToTypeOf(execErr))
		Expect(err.Error()).To(ContainSubstring("buf0.A"))
		Expect(err.Error()).To(ContainSubstring("buf0.Y"))
	})

	It("forces the cycle and keeps criticality in [0,1] when ignore_loops is true", func() {
		ctx, cellName := buildLoopContext()
		an := timing.New(ctx, pnrctx.DelayFromNs(10), true)
		Expect(an.Setup(nil)).To(Succeed())
		Expect(an.Run()).To(Succeed())

		for _, port := range []string{"A", "Y"} {
			crit := an.Criticality(netlist.PortRef{Cell: cellName, Port: ctx.ID(port)})
			Expect(crit).To(BeNumerically(">=", 0.0))
			Expect(crit).To(BeNumerically("<=", 1.0))
		}
	})
})

var _ = Describe("end-to-end: determinism", func() {
	runPipeline := func() *project.Document {
		tbl := idstring.NewTable()
		d := testarch.NewBuilder(tbl).WithWidth(3).WithHeight(3).Build("t0")
		d.RegisterCellType("IBUF", testarch.TypeIBUF)
		d.RegisterCellType("OBUF", testarch.TypeOBUF)
		d.RegisterCellType("LUT4", testarch.TypeLUT4)

		ctx := pnrctx.New(d, tbl)
		ctx.Seed(1234)

		ctx.CreateCell("i0", "IBUF")
		ctx.CreateCell("i1", "IBUF")
		ctx.CreateCell("l0", "LUT4")
		ctx.CreateCell("l1", "LUT4")
		ctx.CreateCell("o0", "OBUF")
		ctx.CreateNet("n0")
		ctx.CreateNet("n1")
		ctx.CreateNet("n2")

		Expect(ctx.ConnectPort(ctx.ID("i0"), ctx.ID("O"), arch.DirOut, ctx.ID("n0"))).To(Succeed())
		Expect(ctx.ConnectPort(ctx.ID("l0"), ctx.ID("I0"), arch.DirIn, ctx.ID("n0"))).To(Succeed())
		Expect(ctx.ConnectPort(ctx.ID("i1"), ctx.ID("O"), arch.DirOut, ctx.ID("n1"))).To(Succeed())
		Expect(ctx.ConnectPort(ctx.ID("l1"), ctx.ID("I0"), arch.DirIn, ctx.ID("n1"))).To(Succeed())
		Expect(ctx.ConnectPort(ctx.ID("l0"), ctx.ID("O"), arch.DirOut, ctx.ID("n2"))).To(Succeed())
		Expect(ctx.ConnectPort(ctx.ID("l1"), ctx.ID("I1"), arch.DirIn, ctx.ID("n2"))).To(Succeed())

		Expect(sa.New(ctx, sa.DefaultOptions()).Run()).To(Succeed())
		Expect(router2.New(ctx, router2.DefaultOptions()).Run()).To(Succeed())
		Expect(ctx.Check()).To(Succeed())

		doc, err := project.Save(ctx, map[string]string{"family": "testarch"})
		Expect(err).NotTo(HaveOccurred())
		return doc
	}

	It("produces byte-identical project saves across two runs with the same seed", func() {
		docA := runPipeline()
		docB := runPipeline()

		bytesA, err := yaml.Marshal(docA)
		Expect(err).NotTo(HaveOccurred())
		bytesB, err := yaml.Marshal(docB)
		Expect(err).NotTo(HaveOccurred())

		Expect(string(bytesA)).To(Equal(string(bytesB)))
	})
})

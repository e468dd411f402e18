package router1_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/YosysHQ/nextpnr-sub004/arch"
	"github.com/YosysHQ/nextpnr-sub004/idstring"
	"github.com/YosysHQ/nextpnr-sub004/netlist"
	"github.com/YosysHQ/nextpnr-sub004/pnrctx"
	"github.com/YosysHQ/nextpnr-sub004/route/router1"
	"github.com/YosysHQ/nextpnr-sub004/testarch"
)

func TestRouter1(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Router1 Suite")
}

var _ = Describe("Router.Run", func() {
	It("succeeds with no work on an empty netlist", func() {
		tbl := idstring.NewTable()
		d := testarch.NewBuilder(tbl).WithWidth(2).WithHeight(2).Build("t0")
		ctx := pnrctx.New(d, tbl)

		Expect(router1.New(ctx, router1.DefaultOptions()).Run()).To(Succeed())
	})

	It("routes a single inverter's two arcs in one pip each", func() {
		tbl := idstring.NewTable()
		d := testarch.NewBuilder(tbl).WithWidth(1).WithHeight(1).Build("t0")
		d.RegisterCellType("IBUF", testarch.TypeIBUF)
		d.RegisterCellType("INV", testarch.TypeLUT4)
		d.RegisterCellType("OBUF", testarch.TypeOBUF)

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

		ibufBel, _ := d.TileBelByType(0, 0, testarch.TypeIBUF)
		lutBel, _ := d.TileBelByType(0, 0, testarch.TypeLUT4)
		obufBel, _ := d.TileBelByType(0, 0, testarch.TypeOBUF)
		Expect(ctx.BindBel(ibufBel, ctx.ID("ibuf0"), netlist.StrengthUser)).To(Succeed())
		Expect(ctx.BindBel(lutBel, ctx.ID("inv0"), netlist.StrengthUser)).To(Succeed())
		Expect(ctx.BindBel(obufBel, ctx.ID("obuf0"), netlist.StrengthUser)).To(Succeed())

		Expect(router1.New(ctx, router1.DefaultOptions()).Run()).To(Succeed())
		Expect(ctx.Check()).To(Succeed())

		totalPips := 0
		for _, netName := range []string{"n_in", "n_out"} {
			net, ok := ctx.Nets.Get(ctx.ID(netName))
			Expect(ok).To(BeTrue())
			for _, pd := range net.Wires {
				if pd.HasPip {
					totalPips++
				}
			}
		}
		Expect(totalPips).To(Equal(2))
	})

	It("reroutes a net around a resource already ripped up by a higher-priority net", func() {
		tbl := idstring.NewTable()
		d := testarch.NewBuilder(tbl).WithWidth(4).WithHeight(3).Build("t0")
		d.RegisterCellType("IBUF", testarch.TypeIBUF)
		d.RegisterCellType("OBUF", testarch.TypeOBUF)

		ctx := pnrctx.New(d, tbl)
		ctx.CreateCell("src_long", "IBUF")
		ctx.CreateCell("dst_long", "OBUF")
		ctx.CreateNet("netLong")
		Expect(ctx.ConnectPort(ctx.ID("src_long"), ctx.ID("O"), arch.DirOut, ctx.ID("netLong"))).To(Succeed())
		Expect(ctx.ConnectPort(ctx.ID("dst_long"), ctx.ID("I"), arch.DirIn, ctx.ID("netLong"))).To(Succeed())

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

		Expect(router1.New(ctx, router1.DefaultOptions()).Run()).To(Succeed())
		Expect(ctx.Check()).To(Succeed())

		netShort, ok := ctx.Nets.Get(ctx.ID("netShort"))
		Expect(ok).To(BeTrue())
		netLong, ok := ctx.Nets.Get(ctx.ID("netLong"))
		Expect(ok).To(BeTrue())

		shared := false
		for w := range netShort.Wires {
			if _, ok := netLong.Wires[w]; ok {
				shared = true
			}
		}
		Expect(shared).To(BeFalse(), "no wire should be bound to both nets once routing succeeds")
	})
})

package timing_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/YosysHQ/nextpnr-sub004/arch"
	"github.com/YosysHQ/nextpnr-sub004/idstring"
	"github.com/YosysHQ/nextpnr-sub004/netlist"
	"github.com/YosysHQ/nextpnr-sub004/pnrctx"
	"github.com/YosysHQ/nextpnr-sub004/pnrerror"
	"github.com/YosysHQ/nextpnr-sub004/testarch"
	"github.com/YosysHQ/nextpnr-sub004/timing"
)

func TestTiming(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Timing Suite")
}

// period is the clk0 net's period; chosen arbitrarily but fixed so every
// expectation below is an exact, hand-computed integer.
const period = int64(10000)

// buildRegToReg wires ff0.Q -(n0)-> lut0.A -(comb, 300ps)-> lut0.Y
// -(n1)-> ff1.D, both flops clocked from the same clk0 net. Every edge
// on this single unbranched path carries the same arrival-minus-required
// value, so slack and criticality are identical and exact at every port.
func buildRegToReg() (*pnrctx.Context, *timing.Analyser) {
	tbl := idstring.NewTable()
	d := testarch.NewBuilder(tbl).Build("t0")

	d.RegisterPortClass("DFF", "Q", arch.ClassRegOut)
	d.RegisterPortClass("DFF", "D", arch.ClassRegIn)
	d.RegisterClockingInfo("DFF", "Q", arch.ClockPortInfo{
		ClockPort: tbl.ID("CLK"), Edge: arch.RisingEdge,
		ClockToQ: arch.DelayQuad{MaxRise: 200},
	})
	d.RegisterClockingInfo("DFF", "D", arch.ClockPortInfo{
		ClockPort: tbl.ID("CLK"), Edge: arch.RisingEdge,
		Setup: arch.DelayQuad{MaxRise: 150},
	})
	d.RegisterPortClass("LUT4", "A", arch.ClassCombIn)
	d.RegisterPortClass("LUT4", "Y", arch.ClassCombOut)
	d.RegisterCellDelay("LUT4", "A", "Y", arch.DelayQuad{MaxRise: 300})

	ctx := pnrctx.New(d, tbl)
	ctx.CreateCell("ff0", "DFF")
	ctx.CreateCell("lut0", "LUT4")
	ctx.CreateCell("ff1", "DFF")
	ctx.CreateNet("clk0")
	ctx.CreateNet("n0")
	ctx.CreateNet("n1")

	ExpectWithOffset(1, ctx.ConnectPort(ctx.ID("ff0"), ctx.ID("CLK"), arch.DirIn, ctx.ID("clk0"))).To(Succeed())
	ExpectWithOffset(1, ctx.ConnectPort(ctx.ID("ff1"), ctx.ID("CLK"), arch.DirIn, ctx.ID("clk0"))).To(Succeed())
	ExpectWithOffset(1, ctx.ConnectPort(ctx.ID("ff0"), ctx.ID("Q"), arch.DirOut, ctx.ID("n0"))).To(Succeed())
	ExpectWithOffset(1, ctx.ConnectPort(ctx.ID("lut0"), ctx.ID("A"), arch.DirIn, ctx.ID("n0"))).To(Succeed())
	ExpectWithOffset(1, ctx.ConnectPort(ctx.ID("lut0"), ctx.ID("Y"), arch.DirOut, ctx.ID("n1"))).To(Succeed())
	ExpectWithOffset(1, ctx.ConnectPort(ctx.ID("ff1"), ctx.ID("D"), arch.DirIn, ctx.ID("n1"))).To(Succeed())

	clk, ok := ctx.Nets.Get(ctx.ID("clk0"))
	ExpectWithOffset(1, ok).To(BeTrue())
	clk.HasClock = true
	clk.Clock.PeriodPS = period

	an := timing.New(ctx, period, false)
	ExpectWithOffset(1, an.Setup(nil)).To(Succeed())
	ExpectWithOffset(1, an.Run()).To(Succeed())
	return ctx, an
}

var _ = Describe("a single unbranched register-to-register path", func() {
	It("gives every port on the path the same exact slack and unit criticality", func() {
		ctx, an := buildRegToReg()

		wantSlack := int64(10650) // period + arrival - required, constant along the one path
		for _, ref := range []netlist.PortRef{
			{Cell: ctx.ID("ff0"), Port: ctx.ID("Q")},
			{Cell: ctx.ID("lut0"), Port: ctx.ID("A")},
			{Cell: ctx.ID("lut0"), Port: ctx.ID("Y")},
			{Cell: ctx.ID("ff1"), Port: ctx.ID("D")},
		} {
			Expect(an.SetupSlack(ref)).To(Equal(wantSlack), "ref %+v", ref)
			Expect(an.Criticality(ref)).To(BeNumerically("~", 1.0, 1e-9), "ref %+v", ref)
		}
	})

	It("distributes each arc's budget as slack divided by its hop count from the startpoint", func() {
		ctx, an := buildRegToReg()
		an.AssignBudget()

		n0, ok := ctx.Nets.Get(ctx.ID("n0"))
		Expect(ok).To(BeTrue())
		Expect(n0.Users).To(HaveLen(1))
		Expect(n0.Users[0].BudgetPS).To(Equal(int64(10650))) // 1 hop from ff0.Q

		n1, ok := ctx.Nets.Get(ctx.ID("n1"))
		Expect(ok).To(BeTrue())
		Expect(n1.Users).To(HaveLen(1))
		Expect(n1.Users[0].BudgetPS).To(Equal(int64(3550))) // 3 hops from ff0.Q, 10650/3

		clk0, ok := ctx.Nets.Get(ctx.ID("clk0"))
		Expect(ok).To(BeTrue())
		Expect(clk0.Users).To(HaveLen(2), "clk0 has no driver; its users are the two CLK inputs")
	})
})

var _ = Describe("asynchronous startpoint/endpoint ports", func() {
	It("reports zero slack and criticality, since only intra-clock-domain pairs are scored", func() {
		tbl := idstring.NewTable()
		d := testarch.NewBuilder(tbl).Build("t0")
		d.RegisterPortClass("IBUF", "O", arch.ClassStartpoint)
		d.RegisterPortClass("OBUF", "I", arch.ClassEndpoint)

		ctx := pnrctx.New(d, tbl)
		ctx.CreateCell("ibuf0", "IBUF")
		ctx.CreateCell("obuf0", "OBUF")
		ctx.CreateNet("n0")
		Expect(ctx.ConnectPort(ctx.ID("ibuf0"), ctx.ID("O"), arch.DirOut, ctx.ID("n0"))).To(Succeed())
		Expect(ctx.ConnectPort(ctx.ID("obuf0"), ctx.ID("I"), arch.DirIn, ctx.ID("n0"))).To(Succeed())

		an := timing.New(ctx, period, false)
		Expect(an.Setup(nil)).To(Succeed())
		Expect(an.Run()).To(Succeed())

		ref := netlist.PortRef{Cell: ctx.ID("obuf0"), Port: ctx.ID("I")}
		Expect(an.SetupSlack(ref)).To(Equal(int64(0)))
		Expect(an.Criticality(ref)).To(Equal(0.0))
	})
})

var _ = Describe("a combinational loop between two cells", func() {
	buildLoop := func() *pnrctx.Context {
		tbl := idstring.NewTable()
		d := testarch.NewBuilder(tbl).WithWidth(2).WithHeight(1).Build("t0")
		d.RegisterPortClass("BUF", "A", arch.ClassCombIn)
		d.RegisterPortClass("BUF", "Y", arch.ClassCombOut)
		d.RegisterCellDelay("BUF", "A", "Y", arch.DelayQuad{MaxRise: 50})

		ctx := pnrctx.New(d, tbl)
		ctx.CreateCell("buf0", "BUF")
		ctx.CreateCell("buf1", "BUF")
		ctx.CreateNet("fwd")
		ctx.CreateNet("back")
		Expect(ctx.ConnectPort(ctx.ID("buf0"), ctx.ID("Y"), arch.DirOut, ctx.ID("fwd"))).To(Succeed())
		Expect(ctx.ConnectPort(ctx.ID("buf1"), ctx.ID("A"), arch.DirIn, ctx.ID("fwd"))).To(Succeed())
		Expect(ctx.ConnectPort(ctx.ID("buf1"), ctx.ID("Y"), arch.DirOut, ctx.ID("back"))).To(Succeed())
		Expect(ctx.ConnectPort(ctx.ID("buf0"), ctx.ID("A"), arch.DirIn, ctx.ID("back"))).To(Succeed())
		return ctx
	}

	It("fails Setup with an ExecutionError when ignore_loops is false", func() {
		ctx := buildLoop()
		an := timing.New(ctx, period, false)
		err := an.Setup(nil)
		Expect(err).To(HaveOccurred())
		var execErr *pnrerror.ExecutionError
		Expect(err).To(BeAssignableToTypeOf(execErr))
	})

	It("breaks the cycle and still runs to completion when ignore_loops is true", func() {
		ctx := buildLoop()
		an := timing.New(ctx, period, true)
		Expect(an.Setup(nil)).To(Succeed())
		Expect(an.Run()).To(Succeed())

		for _, name := range []string{"buf0", "buf1"} {
			for _, port := range []string{"A", "Y"} {
				ref := netlist.PortRef{Cell: ctx.ID(name), Port: ctx.ID(port)}
				crit := an.Criticality(ref)
				Expect(crit).To(BeNumerically(">=", 0.0))
				Expect(crit).To(BeNumerically("<=", 1.0))
			}
		}
	})
})

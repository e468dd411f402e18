package heap_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/YosysHQ/nextpnr-sub004/arch"
	"github.com/YosysHQ/nextpnr-sub004/idstring"
	"github.com/YosysHQ/nextpnr-sub004/netlist"
	"github.com/YosysHQ/nextpnr-sub004/place/heap"
	"github.com/YosysHQ/nextpnr-sub004/pnrctx"
	"github.com/YosysHQ/nextpnr-sub004/testarch"
)

func TestHeap(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Heap Placer Suite")
}

func newChainContext(width, height int) (*pnrctx.Context, *testarch.Device) {
	tbl := idstring.NewTable()
	d := testarch.NewBuilder(tbl).WithWidth(width).WithHeight(height).Build("t0")
	d.RegisterCellType("LUT4", testarch.TypeLUT4)
	d.RegisterCellType("IBUF", testarch.TypeIBUF)
	d.RegisterCellType("OBUF", testarch.TypeOBUF)
	ctx := pnrctx.New(d, tbl)
	ctx.Seed(7)
	return ctx, d
}

var _ = Describe("Placer.Run", func() {
	It("does nothing and succeeds on an empty netlist", func() {
		ctx, _ := newChainContext(2, 2)
		Expect(heap.New(ctx, heap.DefaultOptions()).Run()).To(Succeed())
		Expect(ctx.Cells.Len()).To(Equal(0))
	})

	It("binds every free cell to a compatible bel, leaving no two cells sharing one", func() {
		ctx, d := newChainContext(3, 3)
		for i := 0; i < 4; i++ {
			ctx.CreateCell(nameN("lut", i), "LUT4")
		}
		ctx.CreateNet("chain0")
		Expect(ctx.ConnectPort(ctx.ID("lut0"), ctx.ID("O"), arch.DirOut, ctx.ID("chain0"))).To(Succeed())
		Expect(ctx.ConnectPort(ctx.ID("lut1"), ctx.ID("I0"), arch.DirIn, ctx.ID("chain0"))).To(Succeed())
		Expect(ctx.ConnectPort(ctx.ID("lut2"), ctx.ID("I0"), arch.DirIn, ctx.ID("chain0"))).To(Succeed())
		Expect(ctx.ConnectPort(ctx.ID("lut3"), ctx.ID("I0"), arch.DirIn, ctx.ID("chain0"))).To(Succeed())

		Expect(heap.New(ctx, heap.DefaultOptions()).Run()).To(Succeed())

		seen := map[arch.BelId]bool{}
		for _, name := range []string{"lut0", "lut1", "lut2", "lut3"} {
			cell, ok := ctx.Cells.Get(ctx.ID(name))
			Expect(ok).To(BeTrue())
			Expect(cell.HasBel).To(BeTrue())
			Expect(d.IsValidBelForCellType(cell.Type, cell.Bel)).To(BeTrue())
			Expect(seen[cell.Bel]).To(BeFalse(), "two cells bound to the same bel")
			seen[cell.Bel] = true
		}
		Expect(ctx.Check()).To(Succeed())
	})

	It("leaves a STRONG-bound cell untouched as a fixed anchor", func() {
		ctx, d := newChainContext(2, 2)
		ctx.CreateCell("pinned", "LUT4")
		ctx.CreateCell("free", "LUT4")
		ctx.CreateNet("n0")
		Expect(ctx.ConnectPort(ctx.ID("pinned"), ctx.ID("O"), arch.DirOut, ctx.ID("n0"))).To(Succeed())
		Expect(ctx.ConnectPort(ctx.ID("free"), ctx.ID("I0"), arch.DirIn, ctx.ID("n0"))).To(Succeed())

		pinnedBel, _ := d.TileBelByType(1, 1, testarch.TypeLUT4)
		Expect(ctx.BindBel(pinnedBel, ctx.ID("pinned"), netlist.StrengthStrong)).To(Succeed())

		Expect(heap.New(ctx, heap.DefaultOptions()).Run()).To(Succeed())

		cell, _ := ctx.Cells.Get(ctx.ID("pinned"))
		Expect(cell.Bel).To(Equal(pinnedBel))
		Expect(cell.BelStrength).To(Equal(netlist.StrengthStrong))
	})
})

func nameN(prefix string, n int) string {
	return prefix + string(rune('0'+n))
}

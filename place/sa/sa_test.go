package sa_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/YosysHQ/nextpnr-sub004/arch"
	"github.com/YosysHQ/nextpnr-sub004/idstring"
	"github.com/YosysHQ/nextpnr-sub004/netlist"
	"github.com/YosysHQ/nextpnr-sub004/place/sa"
	"github.com/YosysHQ/nextpnr-sub004/pnrctx"
	"github.com/YosysHQ/nextpnr-sub004/testarch"
)

func TestSA(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SA Placer Suite")
}

func newDevice(width, height int) (*pnrctx.Context, *testarch.Device) {
	tbl := idstring.NewTable()
	d := testarch.NewBuilder(tbl).WithWidth(width).WithHeight(height).Build("t0")
	d.RegisterCellType("LUT4", testarch.TypeLUT4)
	d.RegisterCellType("IBUF", testarch.TypeIBUF)
	d.RegisterCellType("OBUF", testarch.TypeOBUF)
	ctx := pnrctx.New(d, tbl)
	ctx.Seed(42)
	return ctx, d
}

var _ = Describe("Placer.Run", func() {
	It("succeeds and binds nothing on an empty netlist", func() {
		ctx, _ := newDevice(2, 2)
		Expect(sa.New(ctx, sa.DefaultOptions()).Run()).To(Succeed())
		Expect(ctx.Cells.Len()).To(Equal(0))
	})

	It("binds every autoplaced cell to a distinct, valid bel", func() {
		ctx, d := newDevice(3, 3)
		for _, name := range []string{"l0", "l1", "l2", "l3", "l4"} {
			ctx.CreateCell(name, "LUT4")
		}
		ctx.CreateNet("n0")
		Expect(ctx.ConnectPort(ctx.ID("l0"), ctx.ID("O"), arch.DirOut, ctx.ID("n0"))).To(Succeed())
		for _, name := range []string{"l1", "l2", "l3", "l4"} {
			Expect(ctx.ConnectPort(ctx.ID(name), ctx.ID("I0"), arch.DirIn, ctx.ID("n0"))).To(Succeed())
		}

		opts := sa.DefaultOptions()
		opts.InnerMoves = 5
		Expect(sa.New(ctx, opts).Run()).To(Succeed())

		seen := map[arch.BelId]bool{}
		for _, name := range []string{"l0", "l1", "l2", "l3", "l4"} {
			cell, ok := ctx.Cells.Get(ctx.ID(name))
			Expect(ok).To(BeTrue())
			Expect(cell.HasBel).To(BeTrue())
			Expect(d.IsValidBelForCellType(cell.Type, cell.Bel)).To(BeTrue())
			Expect(seen[cell.Bel]).To(BeFalse())
			seen[cell.Bel] = true
		}
		Expect(ctx.Check()).To(Succeed())
	})

	It("places a rigid cluster atomically via the backend's layout", func() {
		ctx, d := newDevice(2, 1)
		root := ctx.CreateCell("c_root", "LUT4")
		child := ctx.CreateCell("c_child", "LUT4")
		root.Children = []idstring.ID{child.Name}
		child.ClusterRoot = root.Name
		child.Dx = 1

		// The child always sits one tile east of the root.
		d.SetClusterLayout(func(rootName idstring.ID, rootBel arch.BelId) ([]arch.ClusterMember, bool) {
			loc := d.BelLocation(rootBel)
			childBel, ok := d.TileBelByType(loc.X+1, loc.Y, testarch.TypeLUT4)
			if !ok {
				return nil, false
			}
			return []arch.ClusterMember{
				{Cell: rootName, Bel: rootBel},
				{Cell: ctx.ID("c_child"), Bel: childBel},
			}, true
		})

		opts := sa.DefaultOptions()
		opts.InnerMoves = 3
		Expect(sa.New(ctx, opts).Run()).To(Succeed())

		rootCell, _ := ctx.Cells.Get(ctx.ID("c_root"))
		childCell, _ := ctx.Cells.Get(ctx.ID("c_child"))
		Expect(rootCell.HasBel).To(BeTrue())
		Expect(childCell.HasBel).To(BeTrue())
		rootLoc := d.BelLocation(rootCell.Bel)
		childLoc := d.BelLocation(childCell.Bel)
		Expect(childLoc.X).To(Equal(rootLoc.X + 1))
		Expect(childLoc.Y).To(Equal(rootLoc.Y))
		Expect(ctx.Check()).To(Succeed())
	})

	It("leaves a LOCKED cell's bel untouched", func() {
		ctx, d := newDevice(2, 2)
		ctx.CreateCell("locked0", "LUT4")
		ctx.CreateCell("free0", "LUT4")
		ctx.CreateNet("n0")
		Expect(ctx.ConnectPort(ctx.ID("locked0"), ctx.ID("O"), arch.DirOut, ctx.ID("n0"))).To(Succeed())
		Expect(ctx.ConnectPort(ctx.ID("free0"), ctx.ID("I0"), arch.DirIn, ctx.ID("n0"))).To(Succeed())

		lockedBel, _ := d.TileBelByType(0, 0, testarch.TypeLUT4)
		Expect(ctx.BindBel(lockedBel, ctx.ID("locked0"), netlist.StrengthLocked)).To(Succeed())

		opts := sa.DefaultOptions()
		opts.InnerMoves = 5
		Expect(sa.New(ctx, opts).Run()).To(Succeed())

		cell, _ := ctx.Cells.Get(ctx.ID("locked0"))
		Expect(cell.Bel).To(Equal(lockedBel))
		Expect(cell.BelStrength).To(Equal(netlist.StrengthLocked))
	})
})

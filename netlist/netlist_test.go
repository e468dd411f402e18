package netlist_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/YosysHQ/nextpnr-sub004/idstring"
	"github.com/YosysHQ/nextpnr-sub004/netlist"
)

func TestNetlist(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Netlist Suite")
}

var _ = Describe("CellInfo", func() {
	var tbl *idstring.Table

	BeforeEach(func() {
		tbl = idstring.NewTable()
	})

	It("starts with no bel and initialised maps", func() {
		c := netlist.NewCellInfo(tbl.ID("inv0"), tbl.ID("INV"))
		Expect(c.HasBel).To(BeFalse())
		Expect(c.Ports).To(BeEmpty())
		Expect(c.Params).To(BeEmpty())
		Expect(c.Attrs).To(BeEmpty())
	})

	It("is its own cluster root by default", func() {
		c := netlist.NewCellInfo(tbl.ID("inv0"), tbl.ID("INV"))
		Expect(c.IsClusterRoot()).To(BeTrue())
	})

	It("is not a cluster root when ClusterRoot names a different cell", func() {
		c := netlist.NewCellInfo(tbl.ID("ff1"), tbl.ID("DFF"))
		c.ClusterRoot = tbl.ID("ff0")
		Expect(c.IsClusterRoot()).To(BeFalse())
	})

	It("returns port names in ascending IdString order regardless of insertion order", func() {
		c := netlist.NewCellInfo(tbl.ID("lut0"), tbl.ID("LUT4"))
		c.Ports[tbl.ID("I3")] = &netlist.PortInfo{Name: tbl.ID("I3"), BusIndex: -1}
		c.Ports[tbl.ID("I0")] = &netlist.PortInfo{Name: tbl.ID("I0"), BusIndex: -1}
		c.Ports[tbl.ID("O")] = &netlist.PortInfo{Name: tbl.ID("O"), BusIndex: -1}

		names := c.SortedPortNames()
		Expect(names).To(HaveLen(3))
		for i := 1; i < len(names); i++ {
			Expect(names[i-1] < names[i]).To(BeTrue())
		}
	})
})

var _ = Describe("NetInfo", func() {
	It("starts driverless with an empty wire set", func() {
		tbl := idstring.NewTable()
		n := netlist.NewNetInfo(tbl.ID("net0"))
		Expect(n.Driver.Valid()).To(BeFalse())
		Expect(n.Wires).To(BeEmpty())
		Expect(n.SortedWires()).To(BeEmpty())
	})
})

var _ = Describe("Region.AddCell", func() {
	It("keeps members sorted by IdString and de-duplicates", func() {
		tbl := idstring.NewTable()
		r := &netlist.Region{Name: tbl.ID("r0")}
		c2, c1, c3 := tbl.ID("c2"), tbl.ID("c1"), tbl.ID("c3")
		r.AddCell(c2)
		r.AddCell(c1)
		r.AddCell(c3)
		r.AddCell(c1) // duplicate, should not be re-inserted

		Expect(r.Cells).To(HaveLen(3))
		for i := 1; i < len(r.Cells); i++ {
			Expect(r.Cells[i-1] < r.Cells[i]).To(BeTrue())
		}
	})
})

var _ = Describe("CellStore and NetStore", func() {
	It("round-trip Add/Get/Remove and iterate in sorted order", func() {
		tbl := idstring.NewTable()
		cs := netlist.NewCellStore()
		names := []string{"zcell", "acell", "mcell"}
		for _, n := range names {
			cs.Add(netlist.NewCellInfo(tbl.ID(n), tbl.ID("LUT4")))
		}
		Expect(cs.Len()).To(Equal(3))

		sorted := cs.Sorted()
		Expect(sorted).To(HaveLen(3))
		for i := 1; i < len(sorted); i++ {
			Expect(sorted[i-1].Name < sorted[i].Name).To(BeTrue())
		}

		_, ok := cs.Get(tbl.ID("acell"))
		Expect(ok).To(BeTrue())

		cs.Remove(tbl.ID("acell"))
		Expect(cs.Len()).To(Equal(2))
		_, ok = cs.Get(tbl.ID("acell"))
		Expect(ok).To(BeFalse())
	})

	It("does the same for nets", func() {
		tbl := idstring.NewTable()
		ns := netlist.NewNetStore()
		ns.Add(netlist.NewNetInfo(tbl.ID("n0")))
		ns.Add(netlist.NewNetInfo(tbl.ID("n1")))
		Expect(ns.Len()).To(Equal(2))
		ns.Remove(tbl.ID("n0"))
		Expect(ns.Len()).To(Equal(1))
		_, ok := ns.Get(tbl.ID("n1"))
		Expect(ok).To(BeTrue())
	})
})

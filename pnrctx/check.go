package pnrctx

import (
	"github.com/YosysHQ/nextpnr-sub004/arch"
	"github.com/YosysHQ/nextpnr-sub004/netlist"
	"github.com/YosysHQ/nextpnr-sub004/pnrerror"
)

// checksumSeed is also the checksum of an empty context: with no cells
// or nets to mix in, Checksum returns this constant untouched.
const checksumSeed uint32 = 0x076f4b6d

func mix32(h uint32) uint32 {
	h ^= h << 13
	h ^= h >> 17
	h ^= h << 5
	return h
}

// Checksum computes a stable 32-bit hash over the context's cells and
// nets using xor/shift mixing, for determinism testing:
// two contexts reached via equivalent sequences of operations must
// produce the same checksum.
func (c *Context) Checksum() uint32 {
	h := checksumSeed
	for _, cell := range c.Cells.Sorted() {
		h ^= mix32(uint32(cell.Name))
		h = mix32(h)
		if cell.HasBel {
			h ^= mix32(uint32(cell.Bel)<<1 | 1)
			h = mix32(h)
		}
		for _, pn := range cell.SortedPortNames() {
			p := cell.Ports[pn]
			h ^= mix32(uint32(pn)<<2 ^ uint32(p.Net))
			h = mix32(h)
		}
	}
	for _, net := range c.Nets.Sorted() {
		h ^= mix32(uint32(net.Name))
		h = mix32(h)
		for _, w := range net.SortedWires() {
			pd := net.Wires[w]
			var pipPart uint32
			if pd.HasPip {
				pipPart = uint32(pd.Pip) + 1
			}
			h ^= mix32(uint32(w)<<3 ^ pipPart)
			h = mix32(h)
		}
	}
	return h
}

// Check performs a full invariant scan and returns an
// InternalInconsistency describing the first violation found, or nil.
func (c *Context) Check() error {
	c.archMu.RLock()
	defer c.archMu.RUnlock()

	for b, cellName := range c.belBound {
		cell, ok := c.Cells.Get(cellName)
		if !ok || !cell.HasBel || cell.Bel != b {
			return pnrerror.NewInternalInconsistency(c.Checksum(),
				"bel/cell binding mismatch: bel bound to %s but cell does not point back", c.Str(cellName))
		}
	}
	for _, cell := range c.Cells.Sorted() {
		if !cell.HasBel {
			continue
		}
		boundCell, ok := c.belBound[cell.Bel]
		if !ok || boundCell != cell.Name {
			return pnrerror.NewInternalInconsistency(c.Checksum(),
				"cell %s points at a bel that does not point back", c.Str(cell.Name))
		}
	}

	for w, netName := range c.wireBound {
		net, ok := c.Nets.Get(netName)
		if !ok {
			return pnrerror.NewInternalInconsistency(c.Checksum(), "wire bound to unknown net %s", c.Str(netName))
		}
		if _, owned := net.Wires[w]; !owned {
			return pnrerror.NewInternalInconsistency(c.Checksum(),
				"wire bound to net %s but net does not list the wire", c.Str(netName))
		}
	}
	for _, net := range c.Nets.Sorted() {
		for w, pd := range net.Wires {
			boundNet, ok := c.wireBound[w]
			if !ok || boundNet != net.Name {
				return pnrerror.NewInternalInconsistency(c.Checksum(),
					"net %s lists wire not bound back to it", c.Str(net.Name))
			}
			if pd.HasPip {
				if c.Arch.PipDstWire(pd.Pip) != w {
					return pnrerror.NewInternalInconsistency(c.Checksum(),
						"net %s: pip driving wire does not target that wire", c.Str(net.Name))
				}
				src := c.Arch.PipSrcWire(pd.Pip)
				if _, srcOwned := net.Wires[src]; !srcOwned {
					return pnrerror.NewInternalInconsistency(c.Checksum(),
						"net %s: pip source wire not owned by the net", c.Str(net.Name))
				}
				boundPipNet, ok := c.pipBound[pd.Pip]
				if !ok || boundPipNet != net.Name {
					return pnrerror.NewInternalInconsistency(c.Checksum(),
						"net %s: driving pip not bound back to the net", c.Str(net.Name))
				}
			}
		}
	}

	for _, cell := range c.Cells.Sorted() {
		for _, pn := range cell.SortedPortNames() {
			port := cell.Ports[pn]
			if !port.Net.Valid() {
				continue
			}
			net, ok := c.Nets.Get(port.Net)
			if !ok {
				return pnrerror.NewInternalInconsistency(c.Checksum(),
					"cell %s port %s references unknown net", c.Str(cell.Name), c.Str(pn))
			}
			ref := netlist.PortRef{Cell: cell.Name, Port: pn}
			isDriver := net.Driver == ref
			userCount := 0
			for _, u := range net.Users {
				if u.Port == ref {
					userCount++
				}
			}
			if userCount > 1 {
				return pnrerror.NewInternalInconsistency(c.Checksum(),
					"net %s lists port %s.%s as a user more than once", c.Str(net.Name), c.Str(cell.Name), c.Str(pn))
			}
			if !isDriver && userCount == 0 {
				return pnrerror.NewInternalInconsistency(c.Checksum(),
					"cell %s port %s claims net %s but the net does not reference it back",
					c.Str(cell.Name), c.Str(pn), c.Str(net.Name))
			}
		}
	}

	return nil
}

// ArchCheck verifies the device database: every
// bel/wire/pip name round-trips through its name lookup, and every bel
// location resolves back to that bel via BelByLocation (where the
// backend exposes one at that exact location).
func (c *Context) ArchCheck() error {
	a := c.Arch
	for _, b := range a.Bels() {
		name := a.BelName(b)
		got, ok := a.BelByName(name)
		if !ok || got != b {
			return pnrerror.NewInternalInconsistency(c.Checksum(), "archcheck: bel %s does not round-trip by name", c.Str(name))
		}
		loc := a.BelLocation(b)
		if loc.X < 0 || loc.X >= a.GridDimX() || loc.Y < 0 || loc.Y >= a.GridDimY() {
			return pnrerror.NewInternalInconsistency(c.Checksum(), "archcheck: bel %s location out of range: %v", c.Str(name), loc)
		}
		atLoc, ok := a.BelByLocation(loc)
		if !ok || atLoc != b {
			return pnrerror.NewInternalInconsistency(c.Checksum(), "archcheck: bel %s does not round-trip by location %v", c.Str(name), loc)
		}
	}
	for _, w := range a.Wires() {
		name := a.WireName(w)
		got, ok := a.WireByName(name)
		if !ok || got != w {
			return pnrerror.NewInternalInconsistency(c.Checksum(), "archcheck: wire %s does not round-trip by name", c.Str(name))
		}
	}
	validWire := make(map[arch.WireId]bool, len(a.Wires()))
	for _, w := range a.Wires() {
		validWire[w] = true
	}
	for _, p := range a.Pips() {
		name := a.PipName(p)
		got, ok := a.PipByName(name)
		if !ok || got != p {
			return pnrerror.NewInternalInconsistency(c.Checksum(), "archcheck: pip %s does not round-trip by name", c.Str(name))
		}
		if !validWire[a.PipSrcWire(p)] || !validWire[a.PipDstWire(p)] {
			return pnrerror.NewInternalInconsistency(c.Checksum(), "archcheck: pip %s has invalid src/dst wire", c.Str(name))
		}
	}
	for x := 0; x < a.GridDimX(); x++ {
		for y := 0; y < a.GridDimY(); y++ {
			for _, b := range a.TileBels(x, y) {
				loc := a.BelLocation(b)
				if loc.X != x || loc.Y != y {
					return pnrerror.NewInternalInconsistency(c.Checksum(),
						"archcheck: bel %s reported by TileBels(%d,%d) but located at %v", c.Str(a.BelName(b)), x, y, loc)
				}
			}
		}
	}
	return nil
}


package pnrctx

import (
	"github.com/YosysHQ/nextpnr-sub004/arch"
	"github.com/YosysHQ/nextpnr-sub004/idstring"
	"github.com/YosysHQ/nextpnr-sub004/netlist"
	"github.com/YosysHQ/nextpnr-sub004/pnrerror"
)

// CheckBelAvail reports whether b currently has no bound cell.
func (c *Context) CheckBelAvail(b arch.BelId) bool {
	c.archMu.RLock()
	defer c.archMu.RUnlock()
	_, bound := c.belBound[b]
	return !bound
}

// CheckWireAvail reports whether w currently has no bound net.
func (c *Context) CheckWireAvail(w arch.WireId) bool {
	c.archMu.RLock()
	defer c.archMu.RUnlock()
	_, bound := c.wireBound[w]
	return !bound
}

// CheckPipAvail reports whether p currently has no bound net.
func (c *Context) CheckPipAvail(p arch.PipId) bool {
	c.archMu.RLock()
	defer c.archMu.RUnlock()
	_, bound := c.pipBound[p]
	return !bound
}

// GetBoundBelCell returns the cell bound to b, if any.
func (c *Context) GetBoundBelCell(b arch.BelId) (idstring.ID, bool) {
	c.archMu.RLock()
	defer c.archMu.RUnlock()
	cell, ok := c.belBound[b]
	return cell, ok
}

// GetBoundWireNet returns the net bound to w, if any.
func (c *Context) GetBoundWireNet(w arch.WireId) (idstring.ID, bool) {
	c.archMu.RLock()
	defer c.archMu.RUnlock()
	n, ok := c.wireBound[w]
	return n, ok
}

// GetBoundPipNet returns the net bound to p, if any.
func (c *Context) GetBoundPipNet(p arch.PipId) (idstring.ID, bool) {
	c.archMu.RLock()
	defer c.archMu.RUnlock()
	n, ok := c.pipBound[p]
	return n, ok
}

// IsBelLocationValid asks the backend whether the tile holding b is
// electrically consistent, under the shared arch lock (bind/unbind
// take it exclusively, validity-check reads share it).
func (c *Context) IsBelLocationValid(b arch.BelId) bool {
	c.archMu.RLock()
	defer c.archMu.RUnlock()
	return c.Arch.IsBelLocationValid(b)
}

// BindBel binds cell to bel b at the given strength. Precondition
// violations (b already bound, cell already bound elsewhere) are
// InternalInconsistency: the binding API's preconditions are
// programming errors, not recoverable user errors.
func (c *Context) BindBel(b arch.BelId, cellName idstring.ID, str netlist.PlaceStrength) error {
	cell, ok := c.Cells.Get(cellName)
	if !ok {
		return pnrerror.NewInternalInconsistency(c.Checksum(), "bind_bel: unknown cell %s", c.Str(cellName))
	}

	c.archMu.Lock()
	defer c.archMu.Unlock()

	if existing, bound := c.belBound[b]; bound {
		return pnrerror.NewInternalInconsistency(c.Checksum(), "bind_bel: bel already bound to %s", c.Str(existing))
	}
	if cell.HasBel {
		return pnrerror.NewInternalInconsistency(c.Checksum(), "bind_bel: cell %s already bound to a bel", c.Str(cellName))
	}

	c.belBound[b] = cellName
	cell.Bel = b
	cell.HasBel = true
	cell.BelStrength = str
	return nil
}

// UnbindBel removes the binding of b. Displacing a LOCKED-strength
// binding is a precondition violation: a LOCKED binding may never be
// displaced.
func (c *Context) UnbindBel(b arch.BelId) error {
	c.archMu.Lock()
	defer c.archMu.Unlock()

	cellName, bound := c.belBound[b]
	if !bound {
		return pnrerror.NewInternalInconsistency(c.Checksum(), "unbind_bel: bel not bound")
	}
	cell, ok := c.Cells.Get(cellName)
	if !ok {
		return pnrerror.NewInternalInconsistency(c.Checksum(), "unbind_bel: dangling cell ref")
	}
	if cell.BelStrength == netlist.StrengthLocked {
		return pnrerror.NewInternalInconsistency(c.Checksum(), "unbind_bel: bel binding for %s is LOCKED", c.Str(cellName))
	}
	delete(c.belBound, b)
	cell.HasBel = false
	cell.Bel = arch.InvalidBel
	cell.BelStrength = netlist.StrengthNone
	return nil
}

// CanDisplaceBel reports whether the binding currently at b may be
// displaced by an actor with the given strength: the router may displace
// up to STRONG, never LOCKED.
func (c *Context) CanDisplaceBel(b arch.BelId, byStrength netlist.PlaceStrength) bool {
	cellName, bound := c.GetBoundBelCell(b)
	if !bound {
		return true
	}
	cell, ok := c.Cells.Get(cellName)
	if !ok {
		return false
	}
	return cell.BelStrength < netlist.StrengthLocked && cell.BelStrength <= byStrength
}

// BindWire binds netName to occupy wire w, with no driving pip (i.e. w is
// the net's source wire).
func (c *Context) BindWire(w arch.WireId, netName idstring.ID, str netlist.PlaceStrength) error {
	net, ok := c.Nets.Get(netName)
	if !ok {
		return pnrerror.NewInternalInconsistency(c.Checksum(), "bind_wire: unknown net %s", c.Str(netName))
	}

	c.archMu.Lock()
	defer c.archMu.Unlock()

	if existing, bound := c.wireBound[w]; bound {
		return pnrerror.NewInternalInconsistency(c.Checksum(), "bind_wire: wire already bound to %s", c.Str(existing))
	}

	c.wireBound[w] = netName
	net.Wires[w] = netlist.PipDriver{Strength: str}
	return nil
}

// UnbindWire removes the binding of w (and the driving-pip record, if
// any existed; the caller is responsible for unbinding the pip itself
// first via UnbindPip if one drove w).
func (c *Context) UnbindWire(w arch.WireId) error {
	c.archMu.Lock()
	defer c.archMu.Unlock()

	netName, bound := c.wireBound[w]
	if !bound {
		return pnrerror.NewInternalInconsistency(c.Checksum(), "unbind_wire: wire not bound")
	}
	net, ok := c.Nets.Get(netName)
	if !ok {
		return pnrerror.NewInternalInconsistency(c.Checksum(), "unbind_wire: dangling net ref")
	}
	delete(c.wireBound, w)
	delete(net.Wires, w)
	return nil
}

// BindPip binds netName's occupation of p's destination wire, recording
// that p drove it. The destination wire must already be bound to
// netName (typically via a prior BindWire call for the same net); the
// source wire must also already be one of netName's wires.
func (c *Context) BindPip(p arch.PipId, netName idstring.ID, str netlist.PlaceStrength) error {
	net, ok := c.Nets.Get(netName)
	if !ok {
		return pnrerror.NewInternalInconsistency(c.Checksum(), "bind_pip: unknown net %s", c.Str(netName))
	}
	dst := c.Arch.PipDstWire(p)
	src := c.Arch.PipSrcWire(p)

	c.archMu.Lock()
	defer c.archMu.Unlock()

	if existing, bound := c.pipBound[p]; bound {
		return pnrerror.NewInternalInconsistency(c.Checksum(), "bind_pip: pip already bound to %s", c.Str(existing))
	}
	if _, dstIsNets := net.Wires[dst]; !dstIsNets {
		return pnrerror.NewInternalInconsistency(c.Checksum(), "bind_pip: destination wire not yet owned by net %s", c.Str(netName))
	}
	if _, srcIsNets := net.Wires[src]; !srcIsNets {
		return pnrerror.NewInternalInconsistency(c.Checksum(), "bind_pip: source wire not owned by net %s", c.Str(netName))
	}

	c.pipBound[p] = netName
	net.Wires[dst] = netlist.PipDriver{Pip: p, HasPip: true, Strength: str}
	return nil
}

// UnbindPip removes the binding of p, clearing the driving-pip record on
// its destination wire (the wire itself stays bound to the net; only the
// "how it was driven" fact is cleared).
func (c *Context) UnbindPip(p arch.PipId) error {
	c.archMu.Lock()
	defer c.archMu.Unlock()

	netName, bound := c.pipBound[p]
	if !bound {
		return pnrerror.NewInternalInconsistency(c.Checksum(), "unbind_pip: pip not bound")
	}
	net, ok := c.Nets.Get(netName)
	if !ok {
		return pnrerror.NewInternalInconsistency(c.Checksum(), "unbind_pip: dangling net ref")
	}
	delete(c.pipBound, p)
	dst := c.Arch.PipDstWire(p)
	if pd, ok := net.Wires[dst]; ok {
		pd.HasPip = false
		pd.Pip = 0
		net.Wires[dst] = pd
	}
	return nil
}

// RipUpNet unbinds every wire and pip currently occupied by netName,
// leaving it driverless-of-routing (its cell/port connections are
// untouched).
func (c *Context) RipUpNet(netName idstring.ID) error {
	net, ok := c.Nets.Get(netName)
	if !ok {
		return pnrerror.NewInternalInconsistency(c.Checksum(), "rip_up_net: unknown net %s", c.Str(netName))
	}
	wires := net.SortedWires()
	// Unbind pips first (dst-wire order doesn't matter since BindPip's
	// invariant is only checked at bind time), then wires.
	for _, w := range wires {
		if pd, ok := net.Wires[w]; ok && pd.HasPip {
			if err := c.UnbindPip(pd.Pip); err != nil {
				return err
			}
		}
	}
	for _, w := range wires {
		if _, ok := net.Wires[w]; ok {
			if err := c.UnbindWire(w); err != nil {
				return err
			}
		}
	}
	return nil
}

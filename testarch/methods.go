package testarch

import (
	"github.com/YosysHQ/nextpnr-sub004/arch"
	"github.com/YosysHQ/nextpnr-sub004/idstring"
)

// Compile-time assertion that *Device implements arch.Arch.
var _ arch.Arch = (*Device)(nil)

func (d *Device) Bels() []arch.BelId {
	out := make([]arch.BelId, len(d.bels))
	for i := range d.bels {
		out[i] = arch.BelId(i)
	}
	return out
}

func (d *Device) Wires() []arch.WireId {
	out := make([]arch.WireId, len(d.wires))
	for i := range d.wires {
		out[i] = arch.WireId(i)
	}
	return out
}

func (d *Device) Pips() []arch.PipId {
	out := make([]arch.PipId, len(d.pips))
	for i := range d.pips {
		out[i] = arch.PipId(i)
	}
	return out
}

func (d *Device) GridDimX() int { return d.width }
func (d *Device) GridDimY() int { return d.height }

func (d *Device) TileBels(x, y int) []arch.BelId {
	return d.tileBels[[2]int{x, y}]
}

func (d *Device) BelByName(name idstring.ID) (arch.BelId, bool) {
	id, ok := d.belByName[name]
	return id, ok
}

func (d *Device) WireByName(name idstring.ID) (arch.WireId, bool) {
	id, ok := d.wireByName[name]
	return id, ok
}

func (d *Device) PipByName(name idstring.ID) (arch.PipId, bool) {
	id, ok := d.pipByName[name]
	return id, ok
}

func (d *Device) BelByLocation(loc arch.Loc) (arch.BelId, bool) {
	id, ok := d.belAtLoc[loc]
	return id, ok
}

func (d *Device) BelName(b arch.BelId) idstring.ID  { return d.bels[b].name }
func (d *Device) WireName(w arch.WireId) idstring.ID { return d.wires[w].name }
func (d *Device) PipName(p arch.PipId) idstring.ID   { return d.pips[p].name }

func (d *Device) BelLocation(b arch.BelId) arch.Loc   { return d.bels[b].loc }
func (d *Device) BelType(b arch.BelId) idstring.ID     { return d.bels[b].typ }
func (d *Device) WireType(w arch.WireId) idstring.ID   { return d.wires[w].typ }
func (d *Device) PipLocation(p arch.PipId) arch.Loc   { return d.pips[p].loc }
func (d *Device) WireLocation(w arch.WireId) arch.Loc { return d.wires[w].loc }

func (d *Device) PipSrcWire(p arch.PipId) arch.WireId { return d.pips[p].src }
func (d *Device) PipDstWire(p arch.PipId) arch.WireId { return d.pips[p].dst }

func (d *Device) PipsDownhill(w arch.WireId) []arch.PipId { return d.wires[w].downhill }
func (d *Device) PipsUphill(w arch.WireId) []arch.PipId   { return d.wires[w].uphill }

func (d *Device) BelPins(b arch.BelId) []arch.BelPin { return d.bels[b].pins }

func (d *Device) BelPinWire(b arch.BelId, pin idstring.ID) (arch.WireId, bool) {
	w, ok := d.pinWire[belPinKey{bel: b, pin: pin}]
	return w, ok
}

func (d *Device) PipDelay(p arch.PipId) int64  { return d.pips[p].delay }
func (d *Device) WireDelay(w arch.WireId) int64 { return 10 }

func (d *Device) EstimateDelay(from, to arch.WireId) int64 {
	fl, tl := d.wires[from].loc, d.wires[to].loc
	dx, dy := fl.X-tl.X, fl.Y-tl.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return int64(dx+dy)*100 + 40
}

func (d *Device) PredictDelay(belA arch.BelId, pinA idstring.ID, belB arch.BelId, pinB idstring.ID) int64 {
	la, lb := d.bels[belA].loc, d.bels[belB].loc
	dx, dy := la.X-lb.X, la.Y-lb.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return int64(dx+dy)*140 + 80
}

func (d *Device) IsValidBelForCellType(cellType idstring.ID, b arch.BelId) bool {
	want, ok := d.cellToBelType[cellType]
	if !ok {
		return false
	}
	return want == d.bels[b].typ
}

func (d *Device) IsBelLocationValid(b arch.BelId) bool {
	return !d.locked[b]
}

// SetBelLocationInvalid lets a test simulate an electrically-conflicting
// tile.
func (d *Device) SetBelLocationInvalid(b arch.BelId, invalid bool) {
	d.locked[b] = invalid
}

func (d *Device) Pack() bool { return true }

func (d *Device) GetCellDelay(cellType, fromPort, toPort idstring.ID) (arch.DelayQuad, bool) {
	dq, ok := d.cellDelays[cellDelayKey{cellType: cellType, from: fromPort, to: toPort}]
	return dq, ok
}

func (d *Device) GetPortTimingClass(cellType, port idstring.ID) arch.TimingPortClass {
	cls, ok := d.portClass[portKey{cellType: cellType, port: port}]
	if !ok {
		return arch.ClassIgnore
	}
	return cls
}

func (d *Device) GetPortClockingInfo(cellType, port idstring.ID, index int) (arch.ClockPortInfo, bool) {
	infos := d.clockInfo[portKey{cellType: cellType, port: port}]
	if index < 0 || index >= len(infos) {
		return arch.ClockPortInfo{}, false
	}
	return infos[index], true
}

func (d *Device) NumClockingInfo(cellType, port idstring.ID) int {
	return len(d.clockInfo[portKey{cellType: cellType, port: port}])
}

func (d *Device) GetClusterPlacement(rootCell idstring.ID, rootBel arch.BelId) ([]arch.ClusterMember, bool) {
	if d.clusterLayout == nil {
		return nil, false
	}
	return d.clusterLayout(rootCell, rootBel)
}

// SetClusterLayout installs fn as the device's GetClusterPlacement
// answer, letting a test describe rigid cell groups (carry chains,
// memory macros) without a real family backend.
func (d *Device) SetClusterLayout(fn func(root idstring.ID, rootBel arch.BelId) ([]arch.ClusterMember, bool)) {
	d.clusterLayout = fn
}

func (d *Device) WireConstantValue(w arch.WireId) (int, bool) {
	c := d.wires[w].constant
	if c < 0 {
		return 0, false
	}
	return c, true
}

// RegisterCellType tells IsValidBelForCellType that cells of cellType may
// only be bound to bels of belType, mirroring a family backend's
// technology library.
func (d *Device) RegisterCellType(cellType, belType string) {
	d.cellToBelType[d.tbl.ID(cellType)] = d.tbl.ID(belType)
}

// RegisterCellDelay installs a combinational arc cellType.fromPort ->
// cellType.toPort for GetCellDelay.
func (d *Device) RegisterCellDelay(cellType, fromPort, toPort string, dq arch.DelayQuad) {
	d.cellDelays[cellDelayKey{
		cellType: d.tbl.ID(cellType),
		from:     d.tbl.ID(fromPort),
		to:       d.tbl.ID(toPort),
	}] = dq
}

// RegisterPortClass installs the GetPortTimingClass answer for
// cellType.port.
func (d *Device) RegisterPortClass(cellType, port string, cls arch.TimingPortClass) {
	d.portClass[portKey{cellType: d.tbl.ID(cellType), port: d.tbl.ID(port)}] = cls
}

// RegisterClockingInfo appends one ClockPortInfo entry for cellType.port,
// consumed by GetPortClockingInfo/NumClockingInfo in index order.
func (d *Device) RegisterClockingInfo(cellType, port string, info arch.ClockPortInfo) {
	k := portKey{cellType: d.tbl.ID(cellType), port: d.tbl.ID(port)}
	d.clockInfo[k] = append(d.clockInfo[k], info)
}

// RegisterConstantWire marks wireName as always driving the given
// constant value (0 or 1), for dedicated-constant net routing.
func (d *Device) RegisterConstantWire(wireName string, value int) {
	id, ok := d.wireByName[d.tbl.ID(wireName)]
	if !ok {
		panic("testarch: unknown wire " + wireName)
	}
	d.wires[id].constant = value
}

// TileBelByType returns the bel of the given type at (x,y), if any. Test
// helper so callers don't need to know tile bel ordering.
func (d *Device) TileBelByType(x, y int, typ string) (arch.BelId, bool) {
	typID := d.tbl.ID(typ)
	for _, b := range d.tileBels[[2]int{x, y}] {
		if d.bels[b].typ == typID {
			return b, true
		}
	}
	return arch.InvalidBel, false
}

// Package testarch is a small, synthetic arch.Arch implementation used
// by the placer/router/timing unit suites and by the CLI's --test path
// when no real family backend is linked. Devices are assembled with a
// chainable builder (WithWidth/WithHeight/Build).
package testarch

import (
	"fmt"

	"github.com/YosysHQ/nextpnr-sub004/arch"
	"github.com/YosysHQ/nextpnr-sub004/idstring"
)

// Bel types exposed by testarch devices.
const (
	TypeLUT4 = "LUT4"
	TypeDFF  = "DFF"
	TypeIBUF = "IBUF"
	TypeOBUF = "OBUF"
)

type belInfo struct {
	name idstring.ID
	typ  idstring.ID
	loc  arch.Loc
	pins []arch.BelPin
}

type wireInfo struct {
	name     idstring.ID
	typ      idstring.ID
	loc      arch.Loc
	constant int  // -1 = not a constant wire
	uphill   []arch.PipId
	downhill []arch.PipId
}

type pipInfo struct {
	name idstring.ID
	src  arch.WireId
	dst  arch.WireId
	loc  arch.Loc
	delay int64
}

// Device is a synthetic rectangular grid: each tile holds one LUT4, one
// DFF, one IBUF and one OBUF, fully cross-connected within the tile, plus
// a per-tile "BUS" wire chained to its North/South/East/West neighbours
// for longer routes.
type Device struct {
	tbl *idstring.Table

	width, height int

	bels  []belInfo
	wires []wireInfo
	pips  []pipInfo

	belByName  map[idstring.ID]arch.BelId
	wireByName map[idstring.ID]arch.WireId
	pipByName  map[idstring.ID]arch.PipId
	belAtLoc   map[arch.Loc]arch.BelId
	tileBels   map[[2]int][]arch.BelId

	// Cell-type -> bel-type compatibility, and per-cell-type
	// combinational/timing data, set up by the Builder.
	cellToBelType map[idstring.ID]idstring.ID
	cellDelays    map[cellDelayKey]arch.DelayQuad
	portClass     map[portKey]arch.TimingPortClass
	clockInfo     map[portKey][]arch.ClockPortInfo

	locked map[arch.BelId]bool // post-bind validity failures injected by tests

	pinWire map[belPinKey]arch.WireId

	clusterLayout func(root idstring.ID, rootBel arch.BelId) ([]arch.ClusterMember, bool)
}

type belPinKey struct {
	bel arch.BelId
	pin idstring.ID
}

type cellDelayKey struct {
	cellType, from, to idstring.ID
}

type portKey struct {
	cellType, port idstring.ID
}

// Builder constructs Device values with the chainable WithX/Build idiom.
type Builder struct {
	tbl           *idstring.Table
	width, height int
	withClockWire bool
}

// NewBuilder starts a Builder using the given (context-owned) interning
// table, so bel/wire/pip names share identifiers with the rest of the
// Context.
func NewBuilder(tbl *idstring.Table) Builder {
	return Builder{tbl: tbl, width: 1, height: 1, withClockWire: true}
}

func (b Builder) WithWidth(w int) Builder  { b.width = w; return b }
func (b Builder) WithHeight(h int) Builder { b.height = h; return b }

// Build constructs a Device of the configured dimensions.
func (b Builder) Build(name string) *Device {
	d := &Device{
		tbl:           b.tbl,
		width:         b.width,
		height:        b.height,
		belByName:     map[idstring.ID]arch.BelId{},
		wireByName:    map[idstring.ID]arch.WireId{},
		pipByName:     map[idstring.ID]arch.PipId{},
		belAtLoc:      map[arch.Loc]arch.BelId{},
		tileBels:      map[[2]int][]arch.BelId{},
		cellToBelType: map[idstring.ID]idstring.ID{},
		cellDelays:    map[cellDelayKey]arch.DelayQuad{},
		portClass:     map[portKey]arch.TimingPortClass{},
		clockInfo:     map[portKey][]arch.ClockPortInfo{},
		locked:        map[arch.BelId]bool{},
		pinWire:       map[belPinKey]arch.WireId{},
	}

	// Per-tile driver/sink wires and bels, fully cross-connected.
	driverWires := make([][]arch.WireId, b.width*b.height)
	sinkWires := make([][]arch.WireId, b.width*b.height)
	busWires := make([]arch.WireId, b.width*b.height)

	idx := func(x, y int) int { return y*b.width + x }

	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			loc := arch.Loc{X: x, Y: y, Z: 0}
			lut := d.addBel(fmt.Sprintf("T%d_%d/LUT", x, y), TypeLUT4, arch.Loc{X: x, Y: y, Z: 0})
			ff := d.addBel(fmt.Sprintf("T%d_%d/FF", x, y), TypeDFF, arch.Loc{X: x, Y: y, Z: 1})
			ibuf := d.addBel(fmt.Sprintf("T%d_%d/IBUF", x, y), TypeIBUF, arch.Loc{X: x, Y: y, Z: 2})
			obuf := d.addBel(fmt.Sprintf("T%d_%d/OBUF", x, y), TypeOBUF, arch.Loc{X: x, Y: y, Z: 3})

			lutO := d.addWire(fmt.Sprintf("T%d_%d/LUT_O", x, y), "OUT", loc)
			d.addBelPin(lut, "O", arch.DirOut, lutO)
			var lutIns []arch.WireId
			for i := 0; i < 4; i++ {
				w := d.addWire(fmt.Sprintf("T%d_%d/LUT_I%d", x, y, i), "IN", loc)
				d.addBelPin(lut, fmt.Sprintf("I%d", i), arch.DirIn, w)
				lutIns = append(lutIns, w)
			}

			ffD := d.addWire(fmt.Sprintf("T%d_%d/FF_D", x, y), "IN", loc)
			ffQ := d.addWire(fmt.Sprintf("T%d_%d/FF_Q", x, y), "OUT", loc)
			d.addBelPin(ff, "D", arch.DirIn, ffD)
			d.addBelPin(ff, "Q", arch.DirOut, ffQ)
			if b.withClockWire {
				clkWire := d.getOrAddWire("CLK", "GLOBAL", arch.Loc{})
				d.addBelPin(ff, "CLK", arch.DirIn, clkWire)
			}

			ibufO := d.addWire(fmt.Sprintf("T%d_%d/IBUF_O", x, y), "OUT", loc)
			d.addBelPin(ibuf, "O", arch.DirOut, ibufO)

			obufI := d.addWire(fmt.Sprintf("T%d_%d/OBUF_I", x, y), "IN", loc)
			d.addBelPin(obuf, "I", arch.DirIn, obufI)

			bus := d.addWire(fmt.Sprintf("T%d_%d/BUS", x, y), "BUS", loc)
			busWires[idx(x, y)] = bus

			drivers := []arch.WireId{lutO, ffQ, ibufO}
			sinks := append(append([]arch.WireId{}, lutIns...), ffD, obufI)
			driverWires[idx(x, y)] = drivers
			sinkWires[idx(x, y)] = sinks

			// Local crossbar: every driver -> every sink directly, and
			// every driver/sink also reaches the per-tile bus, so
			// longer routes have a hop onto the bus and back off.
			for _, dr := range drivers {
				for _, sk := range sinks {
					d.addPip(dr, sk, loc, 80)
				}
				d.addPip(dr, bus, loc, 40)
			}
			for _, sk := range sinks {
				d.addPip(bus, sk, loc, 40)
			}

			d.tileBels[[2]int{x, y}] = []arch.BelId{lut, ff, ibuf, obuf}
		}
	}

	// Chain bus wires between horizontally/vertically adjacent tiles so
	// a net can cross tile boundaries.
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			here := busWires[idx(x, y)]
			if x+1 < b.width {
				east := busWires[idx(x+1, y)]
				loc := arch.Loc{X: x, Y: y, Z: 0}
				d.addPip(here, east, loc, 100)
				d.addPip(east, here, loc, 100)
			}
			if y+1 < b.height {
				north := busWires[idx(x, y+1)]
				loc := arch.Loc{X: x, Y: y, Z: 0}
				d.addPip(here, north, loc, 100)
				d.addPip(north, here, loc, 100)
			}
		}
	}

	return d
}

func (d *Device) addBel(name, typ string, loc arch.Loc) arch.BelId {
	id := arch.BelId(len(d.bels))
	d.bels = append(d.bels, belInfo{name: d.tbl.ID(name), typ: d.tbl.ID(typ), loc: loc})
	d.belByName[d.tbl.ID(name)] = id
	d.belAtLoc[loc] = id
	return id
}

func (d *Device) addBelPin(b arch.BelId, pin string, dir arch.PortDir, w arch.WireId) {
	pinID := d.tbl.ID(pin)
	d.bels[b].pins = append(d.bels[b].pins, arch.BelPin{Name: pinID, Dir: dir})
	d.pinWire[belPinKey{bel: b, pin: pinID}] = w
}

func (d *Device) addWire(name, typ string, loc arch.Loc) arch.WireId {
	return d.getOrAddWire(name, typ, loc)
}

func (d *Device) getOrAddWire(name, typ string, loc arch.Loc) arch.WireId {
	nameID := d.tbl.ID(name)
	if id, ok := d.wireByName[nameID]; ok {
		return id
	}
	id := arch.WireId(len(d.wires))
	d.wires = append(d.wires, wireInfo{name: nameID, typ: d.tbl.ID(typ), loc: loc, constant: -1})
	d.wireByName[nameID] = id
	return id
}

func (d *Device) addPip(src, dst arch.WireId, loc arch.Loc, delay int64) arch.PipId {
	name := fmt.Sprintf("%s->%s", d.tbl.Str(d.wires[src].name), d.tbl.Str(d.wires[dst].name))
	nameID := d.tbl.ID(name)
	id := arch.PipId(len(d.pips))
	d.pips = append(d.pips, pipInfo{name: nameID, src: src, dst: dst, loc: loc, delay: delay})
	d.pipByName[nameID] = id
	d.wires[src].downhill = append(d.wires[src].downhill, id)
	d.wires[dst].uphill = append(d.wires[dst].uphill, id)
	return id
}

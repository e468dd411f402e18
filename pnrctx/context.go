// Package pnrctx implements the architecture-agnostic context and
// binding layer: the netlist data model, routing-resource
// binding, and the core invariant checks shared by every downstream
// stage (timing, placement, routing). It is the one place in this
// module allowed to mutate bel/wire/pip bindings outside the SA placer's
// and router's partitioned-parallel sections.
package pnrctx

import (
	"sync"

	"github.com/YosysHQ/nextpnr-sub004/arch"
	"github.com/YosysHQ/nextpnr-sub004/idstring"
	"github.com/YosysHQ/nextpnr-sub004/netlist"
	"github.com/YosysHQ/nextpnr-sub004/pnrerror"
)

// SettingValue is a small sum type over the settings-map value kinds
// (bool/int/float/string).
type SettingValue struct {
	kind byte // 'b', 'i', 'f', 's'
	b    bool
	i    int64
	f    float64
	s    string
}

func BoolSetting(v bool) SettingValue     { return SettingValue{kind: 'b', b: v} }
func IntSetting(v int64) SettingValue     { return SettingValue{kind: 'i', i: v} }
func FloatSetting(v float64) SettingValue { return SettingValue{kind: 'f', f: v} }
func StringSetting(v string) SettingValue { return SettingValue{kind: 's', s: v} }

// SettingKind distinguishes which field of a SettingValue holds the
// meaningful value, for code (e.g. project.Save) that needs to persist
// one without guessing from its zero value.
type SettingKind byte

const (
	SettingBool   SettingKind = 'b'
	SettingInt    SettingKind = 'i'
	SettingFloat  SettingKind = 'f'
	SettingString SettingKind = 's'
)

// Kind reports which of Bool/Int/Float/String holds v's value.
func (v SettingValue) Kind() SettingKind { return SettingKind(v.kind) }

func (v SettingValue) Bool() bool {
	if v.kind == 'b' {
		return v.b
	}
	return false
}
func (v SettingValue) Int() int64 {
	if v.kind == 'i' {
		return v.i
	}
	return 0
}
func (v SettingValue) Float() float64 {
	switch v.kind {
	case 'f':
		return v.f
	case 'i':
		return float64(v.i)
	}
	return 0
}
func (v SettingValue) String() string {
	if v.kind == 's' {
		return v.s
	}
	return ""
}

// Context is the single-writer (outside bounded SA/router parallelism)
// owner of the netlist, the device binding state and the process-wide-
// in-spirit identifier table (context-owned, never a package global, so
// two Contexts in one process cannot leak identifiers into each other).
type Context struct {
	Tbl  *idstring.Table
	Arch arch.Arch

	Cells   *netlist.CellStore
	Nets    *netlist.NetStore
	Regions map[idstring.ID]*netlist.Region

	Settings map[string]SettingValue

	// archMu guards the binding maps below: exclusive for bind/unbind,
	// shared for availability and validity reads.
	archMu sync.RWMutex

	belBound  map[arch.BelId]idstring.ID
	wireBound map[arch.WireId]idstring.ID
	pipBound  map[arch.PipId]idstring.ID

	rng *RNG

	// Yield is the cooperative pause-point hook for long-running
	// routines; batch mode wires a no-op.
	Yield func()

	Errors *pnrerror.Counter
}

// New constructs a Context over the given architecture backend and
// interning table. Pass a fresh idstring.Table unless deliberately
// sharing identifiers with another already-built structure (e.g. a
// testarch.Device built from the same table).
func New(a arch.Arch, tbl *idstring.Table) *Context {
	return &Context{
		Tbl:       tbl,
		Arch:      a,
		Cells:     netlist.NewCellStore(),
		Nets:      netlist.NewNetStore(),
		Regions:   map[idstring.ID]*netlist.Region{},
		Settings:  map[string]SettingValue{},
		belBound:  map[arch.BelId]idstring.ID{},
		wireBound: map[arch.WireId]idstring.ID{},
		pipBound:  map[arch.PipId]idstring.ID{},
		rng:       NewRNG(1),
		Yield:     func() {},
		Errors:    &pnrerror.Counter{},
	}
}

// ID interns s in the context's table.
func (c *Context) ID(s string) idstring.ID { return c.Tbl.ID(s) }

// Str resolves id back to its string.
func (c *Context) Str(id idstring.ID) string { return c.Tbl.Str(id) }

// Seed reseeds the context's deterministic RNG.
func (c *Context) Seed(seed int64) { c.rng.Seed(seed) }

// Rng exposes the deterministic RNG for use by the placer/router.
func (c *Context) Rng() *RNG { return c.rng }

// DelayFromNs converts a nanosecond delay to the picosecond unit used
// internally by DelayQuad and the timing analyser.
func DelayFromNs(ns float64) int64 { return int64(ns * 1000) }

// CreateCell creates and stores a new cell of the given type. Fails fast
// (panics) if name is already in use, matching the binding API's
// precondition-violation convention.
func (c *Context) CreateCell(name, typ string) *netlist.CellInfo {
	nameID := c.ID(name)
	if _, exists := c.Cells.Get(nameID); exists {
		panic("pnrctx: cell " + name + " already exists")
	}
	cell := netlist.NewCellInfo(nameID, c.ID(typ))
	c.Cells.Add(cell)
	return cell
}

// CreateNet creates and stores a new, driverless net.
func (c *Context) CreateNet(name string) *netlist.NetInfo {
	nameID := c.ID(name)
	if _, exists := c.Nets.Get(nameID); exists {
		panic("pnrctx: net " + name + " already exists")
	}
	net := netlist.NewNetInfo(nameID)
	c.Nets.Add(net)
	return net
}

// ConnectPort attaches cell.port (creating the PortInfo if new) to net as
// either its driver (dir == DirOut) or one more user. A port may carry
// only one net at a time; reconnecting first disconnects the old net.
func (c *Context) ConnectPort(cellName, portName idstring.ID, dir arch.PortDir, netName idstring.ID) error {
	cell, ok := c.Cells.Get(cellName)
	if !ok {
		return pnrerror.NewInternalInconsistency(c.Checksum(), "connect_port: unknown cell %s", c.Str(cellName))
	}
	net, ok := c.Nets.Get(netName)
	if !ok {
		return pnrerror.NewInternalInconsistency(c.Checksum(), "connect_port: unknown net %s", c.Str(netName))
	}

	port, exists := cell.Ports[portName]
	if exists && port.Net.Valid() {
		if err := c.DisconnectPort(cellName, portName); err != nil {
			return err
		}
	}
	if !exists {
		port = &netlist.PortInfo{Name: portName, BusIndex: -1}
		cell.Ports[portName] = port
	}
	port.Dir = dir
	port.Net = netName

	ref := netlist.PortRef{Cell: cellName, Port: portName}
	if dir == arch.DirOut {
		net.Driver = ref
	} else {
		net.Users = append(net.Users, netlist.NetUser{Port: ref})
	}
	return nil
}

// DisconnectPort removes cell.port from whatever net it is on.
func (c *Context) DisconnectPort(cellName, portName idstring.ID) error {
	cell, ok := c.Cells.Get(cellName)
	if !ok {
		return pnrerror.NewInternalInconsistency(c.Checksum(), "disconnect_port: unknown cell %s", c.Str(cellName))
	}
	port, ok := cell.Ports[portName]
	if !ok || !port.Net.Valid() {
		return nil
	}
	net, ok := c.Nets.Get(port.Net)
	if !ok {
		return pnrerror.NewInternalInconsistency(c.Checksum(), "disconnect_port: dangling net ref on %s.%s", c.Str(cellName), c.Str(portName))
	}
	ref := netlist.PortRef{Cell: cellName, Port: portName}
	if net.Driver == ref {
		net.Driver = netlist.PortRef{}
	}
	filtered := net.Users[:0]
	for _, u := range net.Users {
		if u.Port != ref {
			filtered = append(filtered, u)
		}
	}
	net.Users = filtered
	port.Net = idstring.Empty
	return nil
}

// Package netlist implements the architecture-agnostic netlist data
// model: cells, nets, ports and their cross-references, plus
// the region/cluster fields used by the placer. Objects are owned by
// their top-level store (CellStore, NetStore) and reference each other by
// idstring.ID, resolved through the store on access, rather than forming
// a cyclic pointer graph.
package netlist

import (
	"sort"

	"github.com/YosysHQ/nextpnr-sub004/arch"
	"github.com/YosysHQ/nextpnr-sub004/idstring"
	"github.com/YosysHQ/nextpnr-sub004/property"
)

// PlaceStrength orders how firmly a cell/wire/pip binding may be
// displaced, weakest first.
type PlaceStrength int

const (
	StrengthNone PlaceStrength = iota
	StrengthWeak
	StrengthStrong
	StrengthPlacer
	StrengthUser
	StrengthLocked
)

// PortRef names one port of one cell.
type PortRef struct {
	Cell idstring.ID
	Port idstring.ID
}

// Valid reports whether r names a cell (the zero PortRef is invalid).
func (r PortRef) Valid() bool { return r.Cell.Valid() }

// PortInfo is one named connection point of a CellInfo.
type PortInfo struct {
	Name idstring.ID
	Dir  arch.PortDir
	Net  idstring.ID // name of the connected NetInfo, or idstring.Empty
	// BusIndex is the index of this port within a bus (e.g. "D[3]"),
	// -1 for a scalar port.
	BusIndex int
}

// PipDriver records which pip (if any) drove a wire bound to a net, and
// how strongly.
type PipDriver struct {
	Pip      arch.PipId
	HasPip   bool
	Strength PlaceStrength
}

// Region constrains the set of bels a group of cells may be placed in.
type Region struct {
	Name     idstring.ID
	Cells    []idstring.ID // member cell names, kept sorted by ID
	BelTypes []idstring.ID // permitted bel types, empty = any
	// BBox is the (inclusive) bounding box of locations this region may
	// use; Constrained is false for an unconstrained placeholder region.
	BBox        arch.Loc
	BBoxHi      arch.Loc
	Constrained bool
}

// AddCell inserts name into the region's cell list, keeping it sorted by
// idstring.ID for deterministic iteration.
func (r *Region) AddCell(name idstring.ID) {
	i := sort.Search(len(r.Cells), func(i int) bool { return r.Cells[i] >= name })
	if i < len(r.Cells) && r.Cells[i] == name {
		return
	}
	r.Cells = append(r.Cells, idstring.Empty)
	copy(r.Cells[i+1:], r.Cells[i:])
	r.Cells[i] = name
}

// ClockConstraint describes a user-specified clock period for a net
// acting as a clock.
type ClockConstraint struct {
	PeriodPS int64
	HighPS   int64
	LowPS    int64
}

// CellInfo is one instance of a library cell in the netlist.
type CellInfo struct {
	Name idstring.ID
	Type idstring.ID

	Ports map[idstring.ID]*PortInfo

	Params map[idstring.ID]property.Property
	Attrs  map[idstring.ID]property.Property

	Bel         arch.BelId
	HasBel      bool
	BelStrength PlaceStrength

	Region idstring.ID // name of the constraining Region, or Empty

	// Cluster fields: a non-root member points at its root
	// via ClusterRoot and carries an offset relative to it; AbsZ, when
	// HasAbsZ, pins the member's Z coordinate absolutely (used for bels
	// that must sit at a fixed sub-tile slot regardless of the root's Z).
	ClusterRoot idstring.ID
	Dx, Dy, Dz  int
	AbsZ        int
	HasAbsZ     bool
	Children    []idstring.ID // sorted by ID
}

// IsClusterRoot reports whether c is the root of its own cluster (either
// unclustered, or explicitly the root of a multi-cell cluster).
func (c *CellInfo) IsClusterRoot() bool {
	return !c.ClusterRoot.Valid() || c.ClusterRoot == c.Name
}

// NewCellInfo allocates a CellInfo with its maps initialised.
func NewCellInfo(name, typ idstring.ID) *CellInfo {
	return &CellInfo{
		Name:   name,
		Type:   typ,
		Ports:  map[idstring.ID]*PortInfo{},
		Params: map[idstring.ID]property.Property{},
		Attrs:  map[idstring.ID]property.Property{},
		Bel:    arch.InvalidBel,
		AbsZ:   -1,
	}
}

// SortedPortNames returns the cell's port names in ascending IdString
// order, for deterministic iteration.
func (c *CellInfo) SortedPortNames() []idstring.ID {
	out := make([]idstring.ID, 0, len(c.Ports))
	for n := range c.Ports {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NetInfo is one electrical signal: a driver port and its users.
type NetInfo struct {
	Name   idstring.ID
	Driver PortRef
	Users  []NetUser

	// Wires enumerates every wire this net currently occupies, keyed by
	// the wire id, and (except at the source wire) the pip that drove it.
	Wires map[arch.WireId]PipDriver

	Clock    ClockConstraint
	HasClock bool

	// IsConstant marks a dedicated always-0/always-1 net: it has no
	// driver cell, and the router satisfies each sink by searching
	// backwards until any wire carrying the matching architecture
	// constant is reached.
	IsConstant bool
	ConstValue int
}

// NetUser is one sink port of a net, carrying the timing budget assigned
// to the driver->user arc by AssignBudget.
type NetUser struct {
	Port     PortRef
	BudgetPS int64
}

// NewNetInfo allocates a NetInfo with its maps initialised.
func NewNetInfo(name idstring.ID) *NetInfo {
	return &NetInfo{
		Name:  name,
		Wires: map[arch.WireId]PipDriver{},
	}
}

// SortedWires returns the net's occupied wires in ascending WireId order,
// for deterministic iteration.
func (n *NetInfo) SortedWires() []arch.WireId {
	out := make([]arch.WireId, 0, len(n.Wires))
	for w := range n.Wires {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CellStore owns all CellInfo values in a context, keyed by cell name.
type CellStore struct {
	cells map[idstring.ID]*CellInfo
}

func NewCellStore() *CellStore {
	return &CellStore{cells: map[idstring.ID]*CellInfo{}}
}

func (s *CellStore) Add(c *CellInfo)                   { s.cells[c.Name] = c }
func (s *CellStore) Get(name idstring.ID) (*CellInfo, bool) {
	c, ok := s.cells[name]
	return c, ok
}
func (s *CellStore) Remove(name idstring.ID) { delete(s.cells, name) }
func (s *CellStore) Len() int                { return len(s.cells) }

// Sorted returns all cells in ascending name-ID order.
func (s *CellStore) Sorted() []*CellInfo {
	out := make([]*CellInfo, 0, len(s.cells))
	for _, c := range s.cells {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// NetStore owns all NetInfo values in a context, keyed by net name.
type NetStore struct {
	nets map[idstring.ID]*NetInfo
}

func NewNetStore() *NetStore {
	return &NetStore{nets: map[idstring.ID]*NetInfo{}}
}

func (s *NetStore) Add(n *NetInfo)                  { s.nets[n.Name] = n }
func (s *NetStore) Get(name idstring.ID) (*NetInfo, bool) {
	n, ok := s.nets[name]
	return n, ok
}
func (s *NetStore) Remove(name idstring.ID) { delete(s.nets, name) }
func (s *NetStore) Len() int                { return len(s.nets) }

// Sorted returns all nets in ascending name-ID order.
func (s *NetStore) Sorted() []*NetInfo {
	out := make([]*NetInfo, 0, len(s.nets))
	for _, n := range s.nets {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Package project implements persisted-project (de)serialisation:
// saving and loading a structured YAML file capturing
// {chip_args, settings, cells, nets} so a placed-and-routed design can be
// round-tripped without re-invoking pack/place/route.
package project

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/YosysHQ/nextpnr-sub004/arch"
	"github.com/YosysHQ/nextpnr-sub004/idstring"
	"github.com/YosysHQ/nextpnr-sub004/netlist"
	"github.com/YosysHQ/nextpnr-sub004/pnrctx"
	"github.com/YosysHQ/nextpnr-sub004/pnrerror"
	"github.com/YosysHQ/nextpnr-sub004/property"
)

// Document is the on-disk shape of a persisted project.
type Document struct {
	ChipArgs map[string]string    `yaml:"chip_args,omitempty"`
	Settings map[string]settingDoc `yaml:"settings,omitempty"`
	Regions  []regionDoc           `yaml:"regions,omitempty"`
	Cells    []cellDoc             `yaml:"cells"`
	Nets     []netDoc              `yaml:"nets"`
}

type settingDoc struct {
	Kind  string `yaml:"kind"`
	Value string `yaml:"value"`
}

type regionDoc struct {
	Name        string   `yaml:"name"`
	Cells       []string `yaml:"cells,omitempty"`
	BelTypes    []string `yaml:"bel_types,omitempty"`
	BBox        [3]int   `yaml:"bbox,omitempty"`
	BBoxHi      [3]int   `yaml:"bbox_hi,omitempty"`
	Constrained bool     `yaml:"constrained,omitempty"`
}

type propDoc struct {
	Kind int    `yaml:"kind"` // property.Kind
	Text string `yaml:"text"`
}

type cellDoc struct {
	Name        string             `yaml:"name"`
	Type        string             `yaml:"type"`
	Params      map[string]propDoc `yaml:"params,omitempty"`
	Attrs       map[string]propDoc `yaml:"attrs,omitempty"`
	Bel         string             `yaml:"bel,omitempty"`
	BelStrength int                `yaml:"bel_strength,omitempty"`
	Region      string             `yaml:"region,omitempty"`
	ClusterRoot string             `yaml:"cluster_root,omitempty"`
	Dx          int                `yaml:"dx,omitempty"`
	Dy          int                `yaml:"dy,omitempty"`
	Dz          int                `yaml:"dz,omitempty"`
	AbsZ        int                `yaml:"abs_z,omitempty"`
	HasAbsZ     bool               `yaml:"has_abs_z,omitempty"`
}

type portRefDoc struct {
	Cell string `yaml:"cell"`
	Port string `yaml:"port"`
}

type clockDoc struct {
	PeriodPS int64 `yaml:"period_ps"`
	HighPS   int64 `yaml:"high_ps"`
	LowPS    int64 `yaml:"low_ps"`
}

type wireDoc struct {
	Wire     string `yaml:"wire"`
	Pip      string `yaml:"pip,omitempty"`
	HasPip   bool   `yaml:"has_pip,omitempty"`
	Strength int    `yaml:"strength"`
}

type netDoc struct {
	Name       string        `yaml:"name"`
	Driver     *portRefDoc   `yaml:"driver,omitempty"`
	Users      []portRefDoc  `yaml:"users,omitempty"`
	Clock      *clockDoc     `yaml:"clock,omitempty"`
	IsConstant bool          `yaml:"is_constant,omitempty"`
	ConstValue int           `yaml:"const_value,omitempty"`
	Wires      []wireDoc     `yaml:"wires,omitempty"`
}

// Save snapshots ctx into a Document. chipArgs is opaque to this
// package: the architecture backend decides what it needs to rebuild
// itself (device name, package, chipdb path, ...).
func Save(ctx *pnrctx.Context, chipArgs map[string]string) (*Document, error) {
	doc := &Document{
		ChipArgs: chipArgs,
		Settings: map[string]settingDoc{},
	}
	for key, val := range ctx.Settings {
		doc.Settings[key] = encodeSetting(val)
	}

	for _, r := range sortedRegions(ctx) {
		doc.Regions = append(doc.Regions, regionDoc{
			Name:        ctx.Str(r.Name),
			Cells:       idNames(ctx, r.Cells),
			BelTypes:    idNames(ctx, r.BelTypes),
			BBox:        [3]int{r.BBox.X, r.BBox.Y, r.BBox.Z},
			BBoxHi:      [3]int{r.BBoxHi.X, r.BBoxHi.Y, r.BBoxHi.Z},
			Constrained: r.Constrained,
		})
	}

	for _, c := range ctx.Cells.Sorted() {
		cd := cellDoc{
			Name:        ctx.Str(c.Name),
			Type:        ctx.Str(c.Type),
			BelStrength: int(c.BelStrength),
			Dx:          c.Dx,
			Dy:          c.Dy,
			Dz:          c.Dz,
			AbsZ:        c.AbsZ,
			HasAbsZ:     c.HasAbsZ,
		}
		if c.HasBel {
			cd.Bel = ctx.Str(ctx.Arch.BelName(c.Bel))
		}
		if c.Region.Valid() {
			cd.Region = ctx.Str(c.Region)
		}
		if c.ClusterRoot.Valid() {
			cd.ClusterRoot = ctx.Str(c.ClusterRoot)
		}
		if len(c.Params) > 0 {
			cd.Params = encodeProps(ctx, c.Params)
		}
		if len(c.Attrs) > 0 {
			cd.Attrs = encodeProps(ctx, c.Attrs)
		}
		doc.Cells = append(doc.Cells, cd)
	}

	for _, n := range ctx.Nets.Sorted() {
		nd := netDoc{Name: ctx.Str(n.Name)}
		if n.Driver.Valid() {
			nd.Driver = &portRefDoc{Cell: ctx.Str(n.Driver.Cell), Port: ctx.Str(n.Driver.Port)}
		}
		for _, u := range n.Users {
			nd.Users = append(nd.Users, portRefDoc{Cell: ctx.Str(u.Port.Cell), Port: ctx.Str(u.Port.Port)})
		}
		if n.HasClock {
			nd.Clock = &clockDoc{PeriodPS: n.Clock.PeriodPS, HighPS: n.Clock.HighPS, LowPS: n.Clock.LowPS}
		}
		nd.IsConstant = n.IsConstant
		nd.ConstValue = n.ConstValue
		for _, w := range n.SortedWires() {
			pd := n.Wires[w]
			wd := wireDoc{Wire: ctx.Str(ctx.Arch.WireName(w)), Strength: int(pd.Strength)}
			if pd.HasPip {
				wd.HasPip = true
				wd.Pip = ctx.Str(ctx.Arch.PipName(pd.Pip))
			}
			nd.Wires = append(nd.Wires, wd)
		}
		doc.Nets = append(doc.Nets, nd)
	}
	return doc, nil
}

// Load replays doc's cells, nets, ports and bindings into ctx, which
// must already have Arch set to a backend matching the device the
// project was saved from. Settings and regions are applied before cells
// so region membership checks during placement see a complete picture.
func Load(ctx *pnrctx.Context, doc *Document) error {
	for key, sd := range doc.Settings {
		val, err := decodeSetting(sd)
		if err != nil {
			return err
		}
		ctx.Settings[key] = val
	}

	for _, rd := range doc.Regions {
		region := &netlist.Region{
			Name:        ctx.ID(rd.Name),
			Constrained: rd.Constrained,
			BBox:        arch.Loc{X: rd.BBox[0], Y: rd.BBox[1], Z: rd.BBox[2]},
			BBoxHi:      arch.Loc{X: rd.BBoxHi[0], Y: rd.BBoxHi[1], Z: rd.BBoxHi[2]},
		}
		for _, c := range rd.Cells {
			region.Cells = append(region.Cells, ctx.ID(c))
		}
		for _, bt := range rd.BelTypes {
			region.BelTypes = append(region.BelTypes, ctx.ID(bt))
		}
		ctx.Regions[region.Name] = region
	}

	for _, cd := range doc.Cells {
		cell := ctx.CreateCell(cd.Name, cd.Type)
		cell.Dx, cell.Dy, cell.Dz = cd.Dx, cd.Dy, cd.Dz
		cell.AbsZ, cell.HasAbsZ = cd.AbsZ, cd.HasAbsZ
		if cd.Region != "" {
			cell.Region = ctx.ID(cd.Region)
		}
		if cd.ClusterRoot != "" {
			cell.ClusterRoot = ctx.ID(cd.ClusterRoot)
		}
		for name, pd := range cd.Params {
			cell.Params[ctx.ID(name)] = decodeProp(pd)
		}
		for name, pd := range cd.Attrs {
			cell.Attrs[ctx.ID(name)] = decodeProp(pd)
		}
	}

	for _, nd := range doc.Nets {
		net := ctx.CreateNet(nd.Name)
		if nd.Clock != nil {
			net.HasClock = true
			net.Clock = netlist.ClockConstraint{PeriodPS: nd.Clock.PeriodPS, HighPS: nd.Clock.HighPS, LowPS: nd.Clock.LowPS}
		}
		net.IsConstant = nd.IsConstant
		net.ConstValue = nd.ConstValue
		if nd.Driver != nil {
			if err := ctx.ConnectPort(ctx.ID(nd.Driver.Cell), ctx.ID(nd.Driver.Port), arch.DirOut, net.Name); err != nil {
				return err
			}
		}
		for _, u := range nd.Users {
			if err := ctx.ConnectPort(ctx.ID(u.Cell), ctx.ID(u.Port), arch.DirIn, net.Name); err != nil {
				return err
			}
		}
	}

	for _, cd := range doc.Cells {
		if cd.Bel == "" {
			continue
		}
		b, ok := ctx.Arch.BelByName(ctx.ID(cd.Bel))
		if !ok {
			return pnrerror.NewCommandError("project: unknown bel %q for cell %q", cd.Bel, cd.Name)
		}
		if err := ctx.BindBel(b, ctx.ID(cd.Name), netlist.PlaceStrength(cd.BelStrength)); err != nil {
			return err
		}
	}

	for _, nd := range doc.Nets {
		if err := bindNetWires(ctx, nd); err != nil {
			return err
		}
	}
	return nil
}

// bindNetWires binds a net's recorded wires/pips in topological
// (upstream-bound-first) order, mirroring route/router2's final commit
// pass: a wire with no pip is a source wire and can bind immediately; a
// wire driven by a pip can only bind once its pip's source wire is
// already bound.
func bindNetWires(ctx *pnrctx.Context, nd netDoc) error {
	byWire := make(map[string]wireDoc, len(nd.Wires))
	remaining := make([]wireDoc, 0, len(nd.Wires))
	for _, wd := range nd.Wires {
		byWire[wd.Wire] = wd
		remaining = append(remaining, wd)
	}
	bound := map[string]bool{}

	for len(remaining) > 0 {
		progressed := false
		var next []wireDoc
		for _, wd := range remaining {
			ready := !wd.HasPip
			var pipSrcName string
			if wd.HasPip {
				p, ok := ctx.Arch.PipByName(ctx.ID(wd.Pip))
				if !ok {
					return pnrerror.NewCommandError("project: unknown pip %q in net %q", wd.Pip, nd.Name)
				}
				pipSrcName = ctx.Str(ctx.Arch.WireName(ctx.Arch.PipSrcWire(p)))
				ready = bound[pipSrcName]
			}
			if !ready {
				next = append(next, wd)
				continue
			}
			w, ok := ctx.Arch.WireByName(ctx.ID(wd.Wire))
			if !ok {
				return pnrerror.NewCommandError("project: unknown wire %q in net %q", wd.Wire, nd.Name)
			}
			if err := ctx.BindWire(w, ctx.ID(nd.Name), netlist.PlaceStrength(wd.Strength)); err != nil {
				return err
			}
			if wd.HasPip {
				p, _ := ctx.Arch.PipByName(ctx.ID(wd.Pip))
				if err := ctx.BindPip(p, ctx.ID(nd.Name), netlist.PlaceStrength(wd.Strength)); err != nil {
					return err
				}
			}
			bound[wd.Wire] = true
			progressed = true
		}
		if !progressed {
			return pnrerror.NewCommandError("project: cyclic or dangling wire bindings in net %q", nd.Name)
		}
		remaining = next
	}
	return nil
}

// SaveFile marshals ctx to path as YAML.
func SaveFile(ctx *pnrctx.Context, chipArgs map[string]string, path string) error {
	doc, err := Save(ctx, chipArgs)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("project: marshal: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("project: write %s: %w", path, err)
	}
	return nil
}

// ReadFile parses path into a Document without touching any Context.
// Callers that need to pick an architecture backend from ChipArgs before
// a Context can even be constructed (cmd/pnr's --load flow) call this
// first, then pass the same Document to Load once ctx exists.
func ReadFile(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("project: read %s: %w", path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("project: unmarshal %s: %w", path, err)
	}
	return &doc, nil
}

// LoadFile reads path and replays it into ctx via Load.
func LoadFile(ctx *pnrctx.Context, path string) (map[string]string, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := Load(ctx, doc); err != nil {
		return nil, err
	}
	return doc.ChipArgs, nil
}

func sortedRegions(ctx *pnrctx.Context) []*netlist.Region {
	out := make([]*netlist.Region, 0, len(ctx.Regions))
	for _, r := range ctx.Regions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func idNames(ctx *pnrctx.Context, ids []idstring.ID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = ctx.Str(id)
	}
	return out
}

func encodeProps(ctx *pnrctx.Context, props map[idstring.ID]property.Property) map[string]propDoc {
	out := make(map[string]propDoc, len(props))
	for name, p := range props {
		out[ctx.Str(name)] = propDoc{Kind: int(p.Kind()), Text: property.FromTextual(p.String())}
	}
	return out
}

func decodeProp(pd propDoc) property.Property {
	return property.ParseTextual(pd.Text)
}

func encodeSetting(v pnrctx.SettingValue) settingDoc {
	switch v.Kind() {
	case pnrctx.SettingBool:
		return settingDoc{Kind: "bool", Value: fmt.Sprintf("%v", v.Bool())}
	case pnrctx.SettingInt:
		return settingDoc{Kind: "int", Value: fmt.Sprintf("%d", v.Int())}
	case pnrctx.SettingFloat:
		return settingDoc{Kind: "float", Value: fmt.Sprintf("%v", v.Float())}
	default:
		return settingDoc{Kind: "string", Value: v.String()}
	}
}

func decodeSetting(sd settingDoc) (pnrctx.SettingValue, error) {
	switch sd.Kind {
	case "bool":
		return pnrctx.BoolSetting(sd.Value == "true"), nil
	case "int":
		var i int64
		if _, err := fmt.Sscanf(sd.Value, "%d", &i); err != nil {
			return pnrctx.SettingValue{}, fmt.Errorf("project: bad int setting %q: %w", sd.Value, err)
		}
		return pnrctx.IntSetting(i), nil
	case "float":
		var f float64
		if _, err := fmt.Sscanf(sd.Value, "%g", &f); err != nil {
			return pnrctx.SettingValue{}, fmt.Errorf("project: bad float setting %q: %w", sd.Value, err)
		}
		return pnrctx.FloatSetting(f), nil
	case "string":
		return pnrctx.StringSetting(sd.Value), nil
	default:
		return pnrctx.SettingValue{}, fmt.Errorf("project: unknown setting kind %q", sd.Kind)
	}
}

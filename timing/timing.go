// Package timing implements the static timing analyser:
// a DAG over cell ports, labelled by timing class, walked in topological
// order to produce per-domain arrival/required times and, from those,
// per-port criticality and setup slack for the placer and router.
//
// Keys into the per-port state are plain comparable structs used
// directly as map keys; netlist.PortRef already names a (cell, port)
// pair, so it is reused rather than duplicated.
package timing

import (
	"fmt"
	"math"
	"sort"

	"github.com/YosysHQ/nextpnr-sub004/arch"
	"github.com/YosysHQ/nextpnr-sub004/idstring"
	"github.com/YosysHQ/nextpnr-sub004/netlist"
	"github.com/YosysHQ/nextpnr-sub004/pnrctx"
	"github.com/YosysHQ/nextpnr-sub004/pnrerror"
)

type arcKind int

const (
	arcSetup arcKind = iota
	arcClockToQ
)

// cellArc records one setup or clock-to-Q relationship between a
// registered port and its clock port on the same cell.
type cellArc struct {
	kind      arcKind
	clockPort idstring.ID
	value     arch.DelayQuad
	edge      arch.ClockEdge
}

// fwdEdge is a forward timing edge: either a combinational cell arc
// (input port -> output port) or a net arc (driver port -> user port).
type fwdEdge struct {
	to      netlist.PortRef
	delayPS int64
}

type portData struct {
	ref        netlist.PortRef
	class      arch.TimingPortClass
	cellArcs   []cellArc // setup/clock-to-Q records, only on REG_IN/REG_OUT ports
	fanout     []fwdEdge
	faninCount int

	arrival  map[int]int64
	required map[int]int64
	pathLen  map[int]int
}

type domainKey struct {
	Clock idstring.ID
	Edge  arch.ClockEdge
}

// asyncClock is the clock identity used for the single shared domain
// that STARTPOINT/ENDPOINT ports with no associated clock fall into.
const asyncClock = idstring.Empty

type domainInfo struct {
	key         domainKey
	periodPS    int64
	startpoints []netlist.PortRef
	endpoints   []netlist.PortRef
}

// RouteDelayFunc supplies the routing delay of one net arc (driver to
// the i'th user), used while building net edges. The router supplies the
// actual routed delay once routing exists; before routing (or when
// timing-driven placement needs an estimate) callers may wire in
// arch.PredictDelay instead.
type RouteDelayFunc func(net *netlist.NetInfo, userIdx int) int64

// Analyser is one run of the timing analyser over a Context's current
// netlist and routing state.
type Analyser struct {
	ctx         *pnrctx.Context
	ignoreLoops bool

	ports       map[netlist.PortRef]*portData
	domainIndex map[domainKey]int
	domains     []domainInfo
	topoOrder   []netlist.PortRef

	defaultPeriodPS int64

	worstSlackPS map[int]int64
	critCache    map[netlist.PortRef]float64
	slackCache   map[netlist.PortRef]int64
}

// New constructs an Analyser. defaultPeriodPS is the clock period assumed
// for nets with no explicit ClockConstraint, normally derived from the
// `target_freq` setting.
func New(ctx *pnrctx.Context, defaultPeriodPS int64, ignoreLoops bool) *Analyser {
	return &Analyser{
		ctx:             ctx,
		ignoreLoops:     ignoreLoops,
		defaultPeriodPS: defaultPeriodPS,
		ports:           map[netlist.PortRef]*portData{},
	}
}

func refLess(a, b netlist.PortRef) bool {
	if a.Cell != b.Cell {
		return a.Cell < b.Cell
	}
	return a.Port < b.Port
}

func (a *Analyser) portNet(cell *netlist.CellInfo, port idstring.ID) idstring.ID {
	p, ok := cell.Ports[port]
	if !ok {
		return idstring.Empty
	}
	return p.Net
}

// Setup performs labelling, arc extraction and
// topological ordering. It must be re-run whenever the netlist's
// port-level connectivity changes (e.g. a net is rerouted so the set of
// sinks or routed delay would differ) before calling Run.
func (a *Analyser) Setup(routeDelay RouteDelayFunc) error {
	a.ports = map[netlist.PortRef]*portData{}

	for _, cell := range a.ctx.Cells.Sorted() {
		for _, portName := range cell.SortedPortNames() {
			ref := netlist.PortRef{Cell: cell.Name, Port: portName}
			a.ports[ref] = &portData{
				ref:   ref,
				class: a.ctx.Arch.GetPortTimingClass(cell.Type, portName),
			}
		}
	}

	// Combinational cell arcs and registered setup/clock-to-Q arcs.
	for _, cell := range a.ctx.Cells.Sorted() {
		portNames := cell.SortedPortNames()
		for _, outName := range portNames {
			outPort := cell.Ports[outName]
			if outPort.Dir == arch.DirIn {
				continue
			}
			outRef := netlist.PortRef{Cell: cell.Name, Port: outName}
			for _, inName := range portNames {
				inPort := cell.Ports[inName]
				if inPort.Dir == arch.DirOut {
					continue
				}
				dq, ok := a.ctx.Arch.GetCellDelay(cell.Type, inName, outName)
				if !ok {
					continue
				}
				inRef := netlist.PortRef{Cell: cell.Name, Port: inName}
				a.ports[inRef].fanout = append(a.ports[inRef].fanout, fwdEdge{to: outRef, delayPS: dq.Delay()})
				a.ports[outRef].faninCount++
			}
		}

		for _, portName := range portNames {
			ref := netlist.PortRef{Cell: cell.Name, Port: portName}
			pd := a.ports[ref]
			n := a.ctx.Arch.NumClockingInfo(cell.Type, portName)
			for i := 0; i < n; i++ {
				info, ok := a.ctx.Arch.GetPortClockingInfo(cell.Type, portName, i)
				if !ok {
					continue
				}
				switch pd.class {
				case arch.ClassRegIn:
					pd.cellArcs = append(pd.cellArcs, cellArc{kind: arcSetup, clockPort: info.ClockPort, value: info.Setup, edge: info.Edge})
				case arch.ClassRegOut:
					pd.cellArcs = append(pd.cellArcs, cellArc{kind: arcClockToQ, clockPort: info.ClockPort, value: info.ClockToQ, edge: info.Edge})
				}
			}
		}
	}

	// Net arcs.
	if routeDelay == nil {
		routeDelay = func(*netlist.NetInfo, int) int64 { return 0 }
	}
	for _, net := range a.ctx.Nets.Sorted() {
		if !net.Driver.Valid() {
			continue
		}
		driverPD, ok := a.ports[net.Driver]
		if !ok {
			continue
		}
		for i, u := range net.Users {
			userPD, ok := a.ports[u.Port]
			if !ok {
				continue
			}
			driverPD.fanout = append(driverPD.fanout, fwdEdge{to: u.Port, delayPS: routeDelay(net, i)})
			userPD.faninCount++
		}
	}

	return a.topoSort()
}

// topoSort runs Kahn's algorithm seeded by zero-fanin ports, breaking
// any remaining combinational loop by forcing the lowest-IdString
// remaining port into the order, so the result is reproducible
// independent of map iteration order.
func (a *Analyser) topoSort() error {
	var allRefs []netlist.PortRef
	for ref := range a.ports {
		allRefs = append(allRefs, ref)
	}
	sort.Slice(allRefs, func(i, j int) bool { return refLess(allRefs[i], allRefs[j]) })

	inDegree := make(map[netlist.PortRef]int, len(allRefs))
	for _, ref := range allRefs {
		inDegree[ref] = a.ports[ref].faninCount
	}

	var queue []netlist.PortRef
	queued := make(map[netlist.PortRef]bool, len(allRefs))
	for _, ref := range allRefs {
		if inDegree[ref] == 0 {
			queue = append(queue, ref)
			queued[ref] = true
		}
	}

	processed := make(map[netlist.PortRef]bool, len(allRefs))
	var order []netlist.PortRef
	loopPort := netlist.PortRef{}
	sawLoop := false

	for len(processed) < len(allRefs) {
		if len(queue) == 0 {
			var remaining []netlist.PortRef
			for _, ref := range allRefs {
				if !processed[ref] {
					remaining = append(remaining, ref)
				}
			}
			if len(remaining) == 0 {
				break
			}
			sort.Slice(remaining, func(i, j int) bool { return refLess(remaining[i], remaining[j]) })
			cut := remaining[0]
			if !sawLoop {
				loopPort = cut
				sawLoop = true
			}
			if !a.ignoreLoops {
				return pnrerror.NewExecutionError(
					"combinational loop detected involving ports %s, broken at %s.%s",
					a.portList(remaining), a.ctx.Str(loopPort.Cell), a.ctx.Str(loopPort.Port))
			}
			queue = append(queue, cut)
			queued[cut] = true
		}

		cur := queue[0]
		queue = queue[1:]
		if processed[cur] {
			continue
		}
		processed[cur] = true
		order = append(order, cur)
		for _, e := range a.ports[cur].fanout {
			inDegree[e.to]--
			if inDegree[e.to] <= 0 && !queued[e.to] {
				queue = append(queue, e.to)
				queued[e.to] = true
			}
		}
	}

	a.topoOrder = order
	return nil
}

// portList renders a set of port refs for an error message, capped so a
// large design's loop report stays readable.
func (a *Analyser) portList(refs []netlist.PortRef) string {
	const maxListed = 8
	var out string
	for i, ref := range refs {
		if i == maxListed {
			out += fmt.Sprintf(" and %d more", len(refs)-maxListed)
			break
		}
		if i > 0 {
			out += ", "
		}
		out += a.ctx.Str(ref.Cell) + "." + a.ctx.Str(ref.Port)
	}
	return out
}

func (a *Analyser) domainID(k domainKey) int {
	if id, ok := a.domainIndex[k]; ok {
		return id
	}
	id := len(a.domains)
	period := a.defaultPeriodPS
	if k.Clock.Valid() {
		if net, ok := a.ctx.Nets.Get(k.Clock); ok && net.HasClock && net.Clock.PeriodPS > 0 {
			period = net.Clock.PeriodPS
		}
	}
	a.domains = append(a.domains, domainInfo{key: k, periodPS: period})
	a.domainIndex[k] = id
	return id
}

// discoverDomains finds every (clock net, edge) domain and its
// startpoints/endpoints.
func (a *Analyser) discoverDomains() {
	a.domainIndex = map[domainKey]int{}
	a.domains = nil

	for _, ref := range a.topoOrder {
		pd := a.ports[ref]
		cell, _ := a.ctx.Cells.Get(ref.Cell)
		switch pd.class {
		case arch.ClassRegOut:
			for _, ca := range pd.cellArcs {
				if ca.kind != arcClockToQ {
					continue
				}
				dk := domainKey{Clock: a.portNet(cell, ca.clockPort), Edge: ca.edge}
				id := a.domainID(dk)
				a.domains[id].startpoints = append(a.domains[id].startpoints, ref)
			}
		case arch.ClassGenClock:
			netID := a.portNet(cell, ref.Port)
			dk := domainKey{Clock: netID, Edge: arch.RisingEdge}
			id := a.domainID(dk)
			a.domains[id].startpoints = append(a.domains[id].startpoints, ref)
		case arch.ClassStartpoint:
			dk := domainKey{Clock: asyncClock, Edge: arch.RisingEdge}
			id := a.domainID(dk)
			a.domains[id].startpoints = append(a.domains[id].startpoints, ref)
		}
	}

	for _, ref := range a.topoOrder {
		pd := a.ports[ref]
		cell, _ := a.ctx.Cells.Get(ref.Cell)
		switch pd.class {
		case arch.ClassRegIn:
			for _, ca := range pd.cellArcs {
				if ca.kind != arcSetup {
					continue
				}
				dk := domainKey{Clock: a.portNet(cell, ca.clockPort), Edge: ca.edge}
				id := a.domainID(dk)
				a.domains[id].endpoints = append(a.domains[id].endpoints, ref)
			}
		case arch.ClassEndpoint:
			dk := domainKey{Clock: asyncClock, Edge: arch.RisingEdge}
			id := a.domainID(dk)
			a.domains[id].endpoints = append(a.domains[id].endpoints, ref)
		}
	}
}

// forwardPass seeds startpoint arrival
// times and propagate max(arrival+delay) along the topological order.
func (a *Analyser) forwardPass() {
	for _, dom := range a.domains {
		id := a.domainIndex[dom.key]
		for _, sp := range dom.startpoints {
			pd := a.ports[sp]
			var base int64
			for _, ca := range pd.cellArcs {
				if ca.kind == arcClockToQ {
					base = ca.value.Delay()
				}
			}
			if pd.arrival == nil {
				pd.arrival = map[int]int64{}
			}
			if pd.pathLen == nil {
				pd.pathLen = map[int]int{}
			}
			pd.arrival[id] = base
			pd.pathLen[id] = 0
		}
	}

	for _, ref := range a.topoOrder {
		pd := a.ports[ref]
		for _, e := range pd.fanout {
			to := a.ports[e.to]
			if to.arrival == nil {
				to.arrival = map[int]int64{}
			}
			if to.pathLen == nil {
				to.pathLen = map[int]int{}
			}
			for domID, arr := range pd.arrival {
				cand := arr + e.delayPS
				if cur, ok := to.arrival[domID]; !ok || cand > cur {
					to.arrival[domID] = cand
					to.pathLen[domID] = pd.pathLen[domID] + 1
				}
			}
		}
	}
}

// backwardPass seeds endpoint required
// times and propagate min(required-delay) against the topological order.
func (a *Analyser) backwardPass() {
	for _, dom := range a.domains {
		id := a.domainIndex[dom.key]
		for _, ep := range dom.endpoints {
			pd := a.ports[ep]
			var setup int64
			for _, ca := range pd.cellArcs {
				if ca.kind == arcSetup {
					setup = ca.value.Delay()
				}
			}
			if pd.required == nil {
				pd.required = map[int]int64{}
			}
			pd.required[id] = -setup
		}
	}

	for i := len(a.topoOrder) - 1; i >= 0; i-- {
		pd := a.ports[a.topoOrder[i]]
		for _, e := range pd.fanout {
			to := a.ports[e.to]
			for domID, req := range to.required {
				cand := req - e.delayPS
				if pd.required == nil {
					pd.required = map[int]int64{}
				}
				if cur, ok := pd.required[domID]; !ok || cand < cur {
					pd.required[domID] = cand
				}
			}
		}
	}
}

// computeSlackCriticality derives slack and criticality, restricted for
// now to intra-clock domain pairs: a port's
// slack/criticality is computed only from domains with a real clock, the
// worst such slack in each domain normalising every arc's criticality.
func (a *Analyser) computeSlackCriticality() {
	worst := make(map[int]int64, len(a.domains))
	for id := range a.domains {
		worst[id] = math.MaxInt64
	}
	for _, pd := range a.ports {
		for domID, arr := range pd.arrival {
			req, ok := pd.required[domID]
			if !ok {
				continue
			}
			dom := a.domains[domID]
			if dom.key.Clock == asyncClock {
				continue
			}
			slack := dom.periodPS + arr - req
			if slack < worst[domID] {
				worst[domID] = slack
			}
		}
	}
	a.worstSlackPS = worst

	a.critCache = map[netlist.PortRef]float64{}
	a.slackCache = map[netlist.PortRef]int64{}
	for ref, pd := range a.ports {
		bestSlack := int64(math.MaxInt64)
		bestCrit := 0.0
		for domID, arr := range pd.arrival {
			req, ok := pd.required[domID]
			if !ok {
				continue
			}
			dom := a.domains[domID]
			if dom.key.Clock == asyncClock {
				continue
			}
			slack := dom.periodPS + arr - req
			if slack < bestSlack {
				bestSlack = slack
			}
			if dom.periodPS > 0 {
				crit := 1 - float64(slack-worst[domID])/float64(dom.periodPS)
				if crit < 0 {
					crit = 0
				}
				if crit > 1 {
					crit = 1
				}
				if crit > bestCrit {
					bestCrit = crit
				}
			}
		}
		if bestSlack == math.MaxInt64 {
			bestSlack = 0
		}
		a.critCache[ref] = bestCrit
		a.slackCache[ref] = bestSlack
	}
}

// Run performs domain discovery, both propagation passes and the
// slack/criticality derivation against the arcs Setup built.
// Call after every Setup.
func (a *Analyser) Run() error {
	a.discoverDomains()
	a.forwardPass()
	a.backwardPass()
	a.computeSlackCriticality()
	return nil
}

// Criticality returns the normalised [0,1] criticality of the arc
// terminating at ref, 0 if ref is not timed (no domain reaches it).
func (a *Analyser) Criticality(ref netlist.PortRef) float64 {
	return a.critCache[ref]
}

// SetupSlack returns the worst intra-clock slack (in picoseconds) at
// ref, 0 if ref is not timed.
func (a *Analyser) SetupSlack(ref netlist.PortRef) int64 {
	return a.slackCache[ref]
}

// AssignBudget evenly distributes each timed user's slack across the
// arcs of its path: the per-arc share is
// the sink's slack divided by the number of hops from its domain's
// startpoint, giving the router a per-net-arc delay target.
func (a *Analyser) AssignBudget() {
	for _, net := range a.ctx.Nets.Sorted() {
		if !net.Driver.Valid() {
			continue
		}
		for i := range net.Users {
			sinkRef := net.Users[i].Port
			pd, ok := a.ports[sinkRef]
			if !ok {
				continue
			}
			slack := a.slackCache[sinkRef]
			pathLen := 1
			for domID, pl := range pd.pathLen {
				if _, ok := pd.arrival[domID]; !ok {
					continue
				}
				if pl > pathLen {
					pathLen = pl
				}
			}
			budget := slack / int64(pathLen)
			if budget < 0 {
				budget = 0
			}
			net.Users[i].BudgetPS = budget
		}
	}
}

// Package router2 implements the negotiated-congestion router, the
// default: each net's arcs are routed independently by a bidirectional
// meet-in-the-middle A*, allowed to overlap during negotiation, with
// the resulting overuse punished more heavily every iteration
// (historical congestion cost) until a conflict-free assignment
// emerges.
package router2

import (
	"container/heap"
	"math"
	"sort"
	"sync"

	arc "github.com/YosysHQ/nextpnr-sub004/arch"
	"github.com/YosysHQ/nextpnr-sub004/idstring"
	"github.com/YosysHQ/nextpnr-sub004/netlist"
	"github.com/YosysHQ/nextpnr-sub004/partition"
	"github.com/YosysHQ/nextpnr-sub004/pnrctx"
	"github.com/YosysHQ/nextpnr-sub004/pnrerror"
)

// Options tunes the router, named after the `router2/...` settings
// keys.
type Options struct {
	BBMarginX, BBMarginY int
	InitCurrCongWeight   float64
	HistCongWeight       float64
	CurrCongWeightMult   float64
	EstimateWeight       float64
	IpinCostAdder        float64
	BiasCostFactor       float64
	BwdMaxIter           int // backward-queue pop budget while the bounding box applies
	GlbBwdMaxIter        int // backward-queue pop budget once the box is dropped
	MaxIterations        int
	MaxFailBeforeExpand  int // consecutive congested iterations before a net's box grows

	TimingDriven bool
	Criticality  func(ref netlist.PortRef) float64

	// TmgRipup reschedules arcs whose setup slack is below
	// SlackRipupThresholdPS even when none of their wires is overused,
	// so the next iteration may find a faster path.
	TmgRipup              bool
	SlackRipupThresholdPS int64
	SetupSlack            func(ref netlist.PortRef) int64
}

func DefaultOptions() Options {
	return Options{
		BBMarginX: 2, BBMarginY: 2,
		InitCurrCongWeight:    0.5,
		HistCongWeight:        1.0,
		CurrCongWeightMult:    2.0,
		EstimateWeight:        1.0,
		IpinCostAdder:         0,
		BiasCostFactor:        0.25,
		BwdMaxIter:            20,
		GlbBwdMaxIter:         200,
		MaxIterations:         200,
		MaxFailBeforeExpand:   3,
		SlackRipupThresholdPS: 20,
	}
}

type wireUse struct {
	pip    arc.PipId
	hasPip bool
	count  int // how many user-arcs of the net share this wire
}

type wireState struct {
	currCong     int
	histCongCost float64
	unavailable  bool
	reservedNet  idstring.ID
	hasReserved  bool
}

type arcState struct {
	sinkWire arc.WireId
	sinkRef  netlist.PortRef
	routed   bool
}

// netState is one net's per_net_data: its source wire, the set of wires
// (and the pip that drives each, ref-counted) it currently occupies, and
// the per-user arc state.
type netState struct {
	name    idstring.ID
	srcWire arc.WireId
	hasSrc  bool

	// constVal is meaningful only when isConst: the net has no driver
	// and each sink routes backwards to any wire carrying this value.
	isConst  bool
	constVal int

	wires map[arc.WireId]*wireUse
	arcs  []arcState

	bbox        partition.Box
	cx, cy      int
	hpwl        int
	consecFails int
}

// Router is one routing run over a Context whose cells are already
// placed.
type Router struct {
	ctx  *pnrctx.Context
	opts Options

	wireStates map[arc.WireId]*wireState
	nets       map[idstring.ID]*netState
	netOrder   []idstring.ID

	currCongWeight float64
}

func New(ctx *pnrctx.Context, opts Options) *Router {
	return &Router{
		ctx:            ctx,
		opts:           opts,
		wireStates:     map[arc.WireId]*wireState{},
		nets:           map[idstring.ID]*netState{},
		currCongWeight: opts.InitCurrCongWeight,
	}
}

func (r *Router) wireState(w arc.WireId) *wireState {
	ws, ok := r.wireStates[w]
	if !ok {
		ws = &wireState{histCongCost: 1}
		r.wireStates[w] = ws
	}
	return ws
}

// Run routes every net with a driver (or constant marker) and at least
// one user, iterating the negotiation loop until no wire is shared by
// more than one net, then commits the result into the context's binding
// layer.
func (r *Router) Run() error {
	if err := r.setupNets(); err != nil {
		return err
	}
	r.reserveWires()

	threaded := partition.UseThreads(r.ctx.Nets.Len())

	for iteration := 1; ; iteration++ {
		if iteration > r.opts.MaxIterations {
			return pnrerror.NewExecutionError("router2: failed to converge after %d iterations", r.opts.MaxIterations)
		}

		pending := r.netsToRoute(iteration)
		if err := r.routeRound(pending, threaded); err != nil {
			return err
		}

		overused := r.recomputeCongestion()
		if overused == 0 {
			break
		}
		r.currCongWeight = r.opts.InitCurrCongWeight + float64(iteration)*r.opts.CurrCongWeightMult
		r.ctx.Yield()
	}

	return r.commit()
}

// setupNets builds per-net bounding boxes and per-arc sink wires.
// Every wire of the device gets its state record
// created here, single-threaded, so the parallel routing phases never
// grow the map concurrently. A connected net whose driver or user cell
// has no bel is a hard routing failure: the router runs after placement
// and every endpoint must be placed.
func (r *Router) setupNets() error {
	for _, w := range r.ctx.Arch.Wires() {
		r.wireState(w)
	}

	for _, net := range r.ctx.Nets.Sorted() {
		if len(net.Users) == 0 {
			continue
		}
		if !net.Driver.Valid() && !net.IsConstant {
			continue
		}

		ns := &netState{name: net.Name, wires: map[arc.WireId]*wireUse{}}
		var minX, minY, maxX, maxY int
		haveLoc := false
		grow := func(loc arc.Loc) {
			if !haveLoc {
				minX, minY, maxX, maxY = loc.X, loc.Y, loc.X, loc.Y
				haveLoc = true
				return
			}
			if loc.X < minX {
				minX = loc.X
			}
			if loc.X > maxX {
				maxX = loc.X
			}
			if loc.Y < minY {
				minY = loc.Y
			}
			if loc.Y > maxY {
				maxY = loc.Y
			}
		}

		if net.Driver.Valid() {
			driverCell, ok := r.ctx.Cells.Get(net.Driver.Cell)
			if !ok || !driverCell.HasBel {
				return pnrerror.NewExecutionError("router2: driver cell %s of net %s is not placed",
					r.ctx.Str(net.Driver.Cell), r.ctx.Str(net.Name))
			}
			srcWire, ok := r.ctx.Arch.BelPinWire(driverCell.Bel, net.Driver.Port)
			if !ok {
				return pnrerror.NewExecutionError("router2: no wire for driver pin %s.%s of net %s",
					r.ctx.Str(net.Driver.Cell), r.ctx.Str(net.Driver.Port), r.ctx.Str(net.Name))
			}
			ns.srcWire = srcWire
			ns.hasSrc = true
			grow(r.ctx.Arch.BelLocation(driverCell.Bel))
		} else {
			ns.isConst = true
			ns.constVal = net.ConstValue
		}

		for _, u := range net.Users {
			userCell, ok := r.ctx.Cells.Get(u.Port.Cell)
			if !ok || !userCell.HasBel {
				return pnrerror.NewExecutionError("router2: user cell %s of net %s is not placed",
					r.ctx.Str(u.Port.Cell), r.ctx.Str(net.Name))
			}
			sinkWire, ok := r.ctx.Arch.BelPinWire(userCell.Bel, u.Port.Port)
			if !ok {
				return pnrerror.NewExecutionError("router2: no wire for user pin %s.%s of net %s",
					r.ctx.Str(u.Port.Cell), r.ctx.Str(u.Port.Port), r.ctx.Str(net.Name))
			}
			ns.arcs = append(ns.arcs, arcState{sinkWire: sinkWire, sinkRef: u.Port})
			grow(r.ctx.Arch.BelLocation(userCell.Bel))
		}
		if len(ns.arcs) == 0 {
			continue
		}

		ns.bbox = r.clampBox(minX-r.opts.BBMarginX, minY-r.opts.BBMarginY,
			maxX+r.opts.BBMarginX, maxY+r.opts.BBMarginY)
		ns.cx, ns.cy = (minX+maxX)/2, (minY+maxY)/2
		ns.hpwl = (maxX - minX) + (maxY - minY)
		if ns.hpwl < 1 {
			ns.hpwl = 1
		}

		r.nets[net.Name] = ns
		r.netOrder = append(r.netOrder, net.Name)
	}
	sort.Slice(r.netOrder, func(i, j int) bool { return r.netOrder[i] < r.netOrder[j] })
	return nil
}

func (r *Router) clampBox(x0, y0, x1, y1 int) partition.Box {
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 >= r.ctx.Arch.GridDimX() {
		x1 = r.ctx.Arch.GridDimX() - 1
	}
	if y1 >= r.ctx.Arch.GridDimY() {
		y1 = r.ctx.Arch.GridDimY() - 1
	}
	return partition.Box{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// reserveWires is the fixed-point reservation pass: a wire with
// exactly one uphill pip whose source is itself
// uniquely traceable to one net's source wire is reserved to that net,
// so two nets never contend for a resource only one of them can reach.
func (r *Router) reserveWires() {
	srcOwner := map[arc.WireId]idstring.ID{}
	for name, ns := range r.nets {
		if ns.hasSrc {
			srcOwner[ns.srcWire] = name
		}
	}
	for pass := 0; pass < 4; pass++ {
		changed := false
		for _, w := range r.ctx.Arch.Wires() {
			ws := r.wireState(w)
			if ws.hasReserved {
				continue
			}
			uphill := r.ctx.Arch.PipsUphill(w)
			if len(uphill) != 1 {
				continue
			}
			src := r.ctx.Arch.PipSrcWire(uphill[0])
			if owner, ok := srcOwner[src]; ok {
				ws.hasReserved = true
				ws.reservedNet = owner
				srcOwner[w] = owner
				changed = true
				continue
			}
			if srcWs, ok := r.wireStates[src]; ok && srcWs.hasReserved {
				ws.hasReserved = true
				ws.reservedNet = srcWs.reservedNet
				srcOwner[w] = srcWs.reservedNet
				changed = true
			}
		}
		if !changed {
			break
		}
	}
}

// netsToRoute selects which nets need (re)routing this iteration: every
// net on iteration 1, otherwise any net touching an overused wire, plus
// (with tmg_ripup) any net with a slack-failing user. A net congested
// for MaxFailBeforeExpand consecutive iterations gets its bounding box
// grown before the next attempt.
func (r *Router) netsToRoute(iteration int) []idstring.ID {
	if iteration == 1 {
		return append([]idstring.ID{}, r.netOrder...)
	}
	var out []idstring.ID
	for _, name := range r.netOrder {
		ns := r.nets[name]
		congested := false
		for w := range ns.wires {
			if r.wireState(w).currCong > 1 {
				congested = true
				break
			}
		}
		if congested {
			ns.consecFails++
			if ns.consecFails >= r.opts.MaxFailBeforeExpand {
				ns.bbox = r.clampBox(ns.bbox.X0-r.opts.BBMarginX, ns.bbox.Y0-r.opts.BBMarginY,
					ns.bbox.X1+r.opts.BBMarginX, ns.bbox.Y1+r.opts.BBMarginY)
				ns.consecFails = 0
			}
			out = append(out, name)
			continue
		}
		ns.consecFails = 0
		if r.opts.TmgRipup && r.opts.SetupSlack != nil {
			for _, as := range ns.arcs {
				if r.opts.SetupSlack(as.sinkRef) < r.opts.SlackRipupThresholdPS {
					out = append(out, name)
					break
				}
			}
		}
	}
	return out
}

// netCriticality returns the worst criticality among a net's arcs, for
// scheduling most-critical-first.
func (r *Router) netCriticality(net *netlist.NetInfo) float64 {
	if !r.opts.TimingDriven || r.opts.Criticality == nil {
		return 0
	}
	var worst float64
	for _, u := range net.Users {
		if c := r.opts.Criticality(u.Port); c > worst {
			worst = c
		}
	}
	return worst
}

func (r *Router) routeRound(pending []idstring.ID, threaded bool) error {
	type scored struct {
		name idstring.ID
		crit float64
	}
	jobs := make([]scored, 0, len(pending))
	for _, name := range pending {
		net, ok := r.ctx.Nets.Get(name)
		if !ok {
			continue
		}
		jobs = append(jobs, scored{name, r.netCriticality(net)})
	}
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].crit > jobs[j].crit })

	if !threaded {
		for _, j := range jobs {
			if _, err := r.routeNet(r.nets[j.name], nil); err != nil {
				return err
			}
		}
		return nil
	}

	// A net goes to the first quadrant whose box fully contains its
	// bounding box; anything spanning a boundary falls to the final
	// single-threaded pass. The quadrant split sits at the median of the
	// nets' centre positions, so each quadrant gets a balanced net share
	// rather than a balanced tile share.
	byBox := map[int][]idstring.ID{}
	var global []idstring.ID
	midX, midY := r.medianSplit()
	phases := partition.PlanAt(midX, midY, r.ctx.Arch.GridDimX(), r.ctx.Arch.GridDimY())
	quadrants := phases[0].Boxes
	for _, j := range jobs {
		ns := r.nets[j.name]
		placed := false
		for bi, box := range quadrants {
			if within(ns.bbox, box) {
				byBox[bi] = append(byBox[bi], j.name)
				placed = true
				break
			}
		}
		if !placed {
			global = append(global, j.name)
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, len(quadrants))
	deferredByBox := make([][]idstring.ID, len(quadrants))
	for bi, box := range quadrants {
		bi, box := bi, box
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, name := range byBox[bi] {
				deferred, err := r.routeNet(r.nets[name], &box)
				if err != nil {
					errs[bi] = err
					return
				}
				if deferred {
					deferredByBox[bi] = append(deferredByBox[bi], name)
				}
			}
		}()
	}
	wg.Wait()
	for _, e := range errs {
		if e != nil {
			return e
		}
	}

	// Arcs a worker could not complete inside its partition retry here,
	// unconstrained.
	for _, d := range deferredByBox {
		global = append(global, d...)
	}
	for _, name := range global {
		if _, err := r.routeNet(r.nets[name], nil); err != nil {
			return err
		}
	}
	return nil
}

// medianSplit returns the median of the routable nets' centre
// positions, the split point the partition phases balance around.
func (r *Router) medianSplit() (midX, midY int) {
	var xs, ys []int
	for _, name := range r.netOrder {
		ns := r.nets[name]
		xs = append(xs, ns.cx)
		ys = append(ys, ns.cy)
	}
	if len(xs) == 0 {
		return r.ctx.Arch.GridDimX() / 2, r.ctx.Arch.GridDimY() / 2
	}
	sort.Ints(xs)
	sort.Ints(ys)
	return xs[len(xs)/2], ys[len(ys)/2]
}

func within(inner, outer partition.Box) bool {
	return inner.X0 >= outer.X0 && inner.X1 <= outer.X1 && inner.Y0 >= outer.Y0 && inner.Y1 <= outer.Y1
}

// routeNet rips up and reroutes every arc of ns, most-critical first.
// Inside a worker partition a failed arc is deferred (the global pass
// retries it); single-threaded, a failed in-box arc gets one retry
// without the bounding box before the failure is fatal.
func (r *Router) routeNet(ns *netState, workerBox *partition.Box) (deferred bool, err error) {
	net, ok := r.ctx.Nets.Get(ns.name)
	if !ok {
		return false, pnrerror.NewInternalInconsistency(r.ctx.Checksum(), "router2: unknown net %s", r.ctx.Str(ns.name))
	}
	for i := range ns.arcs {
		r.ripUpArc(ns, i)
	}

	type job struct {
		idx  int
		crit float64
	}
	jobs := make([]job, 0, len(ns.arcs))
	for i := range ns.arcs {
		crit := 0.0
		if r.opts.TimingDriven && r.opts.Criticality != nil && i < len(net.Users) {
			crit = r.opts.Criticality(net.Users[i].Port)
		}
		jobs = append(jobs, job{idx: i, crit: crit})
	}
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].crit > jobs[j].crit })

	for _, j := range jobs {
		// Re-query at dispatch time: the search weights the arc by its
		// criticality as it actually runs, in scheduled order.
		crit := 0.0
		if r.opts.TimingDriven && r.opts.Criticality != nil && j.idx < len(net.Users) {
			crit = r.opts.Criticality(net.Users[j.idx].Port)
		}
		searchBox := ns.bbox
		if workerBox != nil {
			searchBox = *workerBox
		}
		if arcErr := r.routeArc(ns, j.idx, crit, &searchBox); arcErr != nil {
			if workerBox != nil {
				deferred = true
				continue
			}
			if err2 := r.routeArc(ns, j.idx, crit, nil); err2 != nil {
				return false, err2
			}
		}
	}
	return deferred, nil
}

// addArcUse ref-counts wire onto ns, bumping the device-wide congestion
// count only on the first arc of this net to use it.
func (r *Router) addArcUse(ns *netState, wire arc.WireId, pip arc.PipId, hasPip bool) {
	wu, ok := ns.wires[wire]
	if !ok {
		wu = &wireUse{pip: pip, hasPip: hasPip}
		ns.wires[wire] = wu
	}
	wu.count++
	if wu.count == 1 {
		r.wireState(wire).currCong++
	}
}

func (r *Router) removeArcUse(ns *netState, wire arc.WireId) (pip arc.PipId, hasPip bool, ok bool) {
	wu, ok := ns.wires[wire]
	if !ok {
		return 0, false, false
	}
	wu.count--
	if wu.count <= 0 {
		r.wireState(wire).currCong--
		delete(ns.wires, wire)
	}
	return wu.pip, wu.hasPip, true
}

func (r *Router) ripUpArc(ns *netState, idx int) {
	as := &ns.arcs[idx]
	if !as.routed {
		return
	}
	cursor := as.sinkWire
	for {
		pip, hasPip, ok := r.removeArcUse(ns, cursor)
		if !ok || !hasPip {
			break
		}
		cursor = r.ctx.Arch.PipSrcWire(pip)
		if ns.hasSrc && cursor == ns.srcWire {
			break
		}
	}
	as.routed = false
}

type visitedEntry struct {
	cost   float64
	pip    arc.PipId
	hasPip bool
}

type queueItem struct {
	wire    arc.WireId
	cost    float64
	togo    float64
	randtag int
}

type priorityQueue []queueItem

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	ti, tj := pq[i].cost+pq[i].togo, pq[j].cost+pq[j].togo
	if ti != tj {
		return ti < tj
	}
	if pq[i].randtag != pq[j].randtag {
		return pq[i].randtag < pq[j].randtag
	}
	return pq[i].wire < pq[j].wire
}
func (pq priorityQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x any)   { *pq = append(*pq, x.(queueItem)) }
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	it := old[n-1]
	*pq = old[:n-1]
	return it
}

// search carries one arc route's transient state: a forward frontier
// expanding downhill from the net's existing tree, a backward frontier
// expanding uphill from the sink, and the visited maps both use for the
// meet-in-the-middle test. Each routeArc call owns one, so parallel
// workers never share search state.
type search struct {
	visitedFwd map[arc.WireId]visitedEntry // pip = uphill pip that drove the wire
	visitedBwd map[arc.WireId]visitedEntry // pip = downhill pip toward the sink
	fwdQ, bwdQ priorityQueue
	rng        *pnrctx.RNG
}

func (s *search) pushFwd(it queueItem) {
	it.randtag = s.rng.Intn(1 << 30)
	heap.Push(&s.fwdQ, it)
}

func (s *search) pushBwd(it queueItem) {
	it.randtag = s.rng.Intn(1 << 30)
	heap.Push(&s.bwdQ, it)
}

// routeArc performs one arc's bidirectional A*: the forward queue
// starts at the source wire and the net's
// already-routed wires near the sink, the backward queue at the sink;
// termination occurs when one side dequeues a wire the other side has
// visited. For a dedicated-constant net forward expansion is skipped
// entirely and the backward search stops at any wire whose constant
// value matches.
func (r *Router) routeArc(ns *netState, idx int, crit float64, box *partition.Box) error {
	sink := ns.arcs[idx].sinkWire
	critWeight := math.Max(0.05, 1-crit*crit)

	// Trivial case: the sink is already part of this net's tree (a
	// previous arc's path ran through it). Re-walk the existing pips to
	// credit this arc's use of them.
	if _, ok := ns.wires[sink]; ok {
		r.creditExistingPath(ns, idx)
		return nil
	}
	if ns.hasSrc && sink == ns.srcWire {
		ns.arcs[idx].routed = true
		return nil
	}

	s := &search{
		visitedFwd: map[arc.WireId]visitedEntry{},
		visitedBwd: map[arc.WireId]visitedEntry{},
		rng:        pnrctx.NewRNG(int64(ns.name)<<20 ^ int64(idx+1)),
	}
	heap.Init(&s.fwdQ)
	heap.Init(&s.bwdQ)

	if !ns.isConst {
		var seeds []arc.WireId
		for w := range ns.wires {
			seeds = append(seeds, w)
		}
		if ns.hasSrc {
			seeds = append(seeds, ns.srcWire)
		}
		sort.Slice(seeds, func(i, j int) bool { return seeds[i] < seeds[j] })
		for _, w := range seeds {
			if _, ok := s.visitedFwd[w]; ok {
				continue
			}
			s.visitedFwd[w] = visitedEntry{cost: 0}
			s.pushFwd(queueItem{wire: w, cost: 0, togo: r.togoCost(ns, w, sink, critWeight)})
		}
	}
	s.visitedBwd[sink] = visitedEntry{cost: 0}
	s.pushBwd(queueItem{wire: sink, cost: 0, togo: r.bwdTogoCost(ns, sink, critWeight)})

	bwdBudget := r.opts.GlbBwdMaxIter
	if box != nil {
		bwdBudget = r.opts.BwdMaxIter
	}
	if ns.isConst {
		// Constant nets have no forward frontier; the backward search is
		// the whole search and must not be starved.
		bwdBudget = math.MaxInt
	}

	for s.fwdQ.Len() > 0 || (s.bwdQ.Len() > 0 && bwdBudget > 0) {
		if s.fwdQ.Len() > 0 {
			it := heap.Pop(&s.fwdQ).(queueItem)
			if it.cost <= s.visitedFwd[it.wire].cost+1e-9 {
				if _, met := s.visitedBwd[it.wire]; met {
					r.commitArcPath(ns, idx, s, it.wire)
					return nil
				}
				r.expandFwd(ns, s, it, sink, critWeight, box)
			}
		}

		if s.bwdQ.Len() > 0 && bwdBudget > 0 {
			bwdBudget--
			it := heap.Pop(&s.bwdQ).(queueItem)
			if it.cost <= s.visitedBwd[it.wire].cost+1e-9 {
				if ns.isConst {
					if v, ok := r.ctx.Arch.WireConstantValue(it.wire); ok && v == ns.constVal {
						r.commitConstPath(ns, idx, s, it.wire)
						return nil
					}
					if _, owned := ns.wires[it.wire]; owned {
						r.commitConstPath(ns, idx, s, it.wire)
						return nil
					}
				} else if _, met := s.visitedFwd[it.wire]; met {
					r.commitArcPath(ns, idx, s, it.wire)
					return nil
				}
				r.expandBwd(ns, s, it, critWeight, box)
			}
		}
	}
	return pnrerror.NewExecutionError("router2: failed to route arc of net %s to sink wire %s",
		r.ctx.Str(ns.name), r.ctx.Str(r.ctx.Arch.WireName(sink)))
}

func (r *Router) expandFwd(ns *netState, s *search, it queueItem, sink arc.WireId, critWeight float64, box *partition.Box) {
	for _, p := range r.ctx.Arch.PipsDownhill(it.wire) {
		dst := r.ctx.Arch.PipDstWire(p)
		if box != nil {
			loc := r.ctx.Arch.WireLocation(dst)
			if !box.Contains(loc.X, loc.Y) {
				continue
			}
		}
		if !r.wireUsable(ns, dst) {
			continue
		}
		newCost := it.cost + r.scoreWire(ns, dst, p, true, critWeight)
		if prev, ok := s.visitedFwd[dst]; ok && prev.cost <= newCost+1e-9 {
			continue
		}
		s.visitedFwd[dst] = visitedEntry{cost: newCost, pip: p, hasPip: true}
		s.pushFwd(queueItem{wire: dst, cost: newCost, togo: r.togoCost(ns, dst, sink, critWeight)})
	}
}

func (r *Router) expandBwd(ns *netState, s *search, it queueItem, critWeight float64, box *partition.Box) {
	for _, p := range r.ctx.Arch.PipsUphill(it.wire) {
		src := r.ctx.Arch.PipSrcWire(p)
		if box != nil {
			loc := r.ctx.Arch.WireLocation(src)
			if !box.Contains(loc.X, loc.Y) {
				continue
			}
		}
		if !r.wireUsable(ns, src) {
			continue
		}
		// Stepping back from it.wire through p means it.wire would be
		// driven by p on the final path, so its score is paid here.
		newCost := it.cost + r.scoreWire(ns, it.wire, p, true, critWeight)
		if prev, ok := s.visitedBwd[src]; ok && prev.cost <= newCost+1e-9 {
			continue
		}
		s.visitedBwd[src] = visitedEntry{cost: newCost, pip: p, hasPip: true}
		s.pushBwd(queueItem{wire: src, cost: newCost, togo: r.bwdTogoCost(ns, src, critWeight)})
	}
}

func (r *Router) wireUsable(ns *netState, w arc.WireId) bool {
	ws := r.wireState(w)
	if ws.unavailable {
		return false
	}
	if ws.hasReserved && ws.reservedNet != ns.name {
		return false
	}
	return true
}

// scoreWire prices one wire for one arc: base delay scaled by the
// historical and present congestion factors, discounted for wires the
// net's other arcs already use, plus a centre-of-net bias.
func (r *Router) scoreWire(ns *netState, wire arc.WireId, pip arc.PipId, hasPip bool, critWeight float64) float64 {
	ws := r.wireState(wire)
	var baseCost float64
	if hasPip {
		baseCost = float64(r.ctx.Arch.PipDelay(pip) + r.ctx.Arch.WireDelay(wire))
	} else {
		baseCost = float64(r.ctx.Arch.WireDelay(wire))
	}

	overuse := ws.currCong
	selfUse := 0
	if wu, ok := ns.wires[wire]; ok {
		overuse--
		selfUse = wu.count
	}
	if overuse < 0 {
		overuse = 0
	}

	present := 1 + float64(overuse)*r.currCongWeight*critWeight
	hist := 1 + critWeight*(ws.histCongCost-1)

	var bias float64
	if hasPip && len(ns.arcs) > 0 {
		ploc := r.ctx.Arch.PipLocation(pip)
		bias = r.opts.BiasCostFactor * (baseCost / float64(len(ns.arcs))) *
			(float64(absInt(ploc.X-ns.cx)+absInt(ploc.Y-ns.cy)) / float64(ns.hpwl))
	}

	return baseCost*hist*present/(1+float64(selfUse)*critWeight) + bias
}

// togoCost is the admissible remaining-distance heuristic.
func (r *Router) togoCost(ns *netState, wire, sink arc.WireId, critWeight float64) float64 {
	selfUse := 0
	if wu, ok := ns.wires[wire]; ok {
		selfUse = wu.count
	}
	est := float64(r.ctx.Arch.EstimateDelay(wire, sink)) * r.opts.EstimateWeight
	return est/(1+float64(selfUse)*critWeight) + r.opts.IpinCostAdder
}

// bwdTogoCost estimates the remaining backward distance to the net's
// source region; constant nets have no source, so their backward search
// degrades to Dijkstra (togo 0) until a matching constant wire appears.
func (r *Router) bwdTogoCost(ns *netState, wire arc.WireId, critWeight float64) float64 {
	if !ns.hasSrc {
		return 0
	}
	selfUse := 0
	if wu, ok := ns.wires[wire]; ok {
		selfUse = wu.count
	}
	est := float64(r.ctx.Arch.EstimateDelay(ns.srcWire, wire)) * r.opts.EstimateWeight
	return est / (1 + float64(selfUse)*critWeight)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// creditExistingPath bumps the ref count of every wire on the already-
// present tree path from this arc's sink back to the source.
func (r *Router) creditExistingPath(ns *netState, idx int) {
	cursor := ns.arcs[idx].sinkWire
	for {
		wu, ok := ns.wires[cursor]
		if !ok {
			break
		}
		wu.count++
		if !wu.hasPip {
			break
		}
		cursor = r.ctx.Arch.PipSrcWire(wu.pip)
		if ns.hasSrc && cursor == ns.srcWire {
			break
		}
	}
	ns.arcs[idx].routed = true
}

// commitArcPath reconstructs the discovered route through the midpoint
// (forward pips back from midpoint to source, backward pips forward
// from midpoint to sink) and ref-counts every wire onto ns.
func (r *Router) commitArcPath(ns *netState, idx int, s *search, mid arc.WireId) {
	// Midpoint back to the forward seed (source or existing tree).
	cursor := mid
	for {
		ve := s.visitedFwd[cursor]
		if !ve.hasPip {
			// A forward seed: the source wire, or a wire of the existing
			// tree whose shared trunk this arc now also uses.
			if wu, ok := ns.wires[cursor]; ok && wu.count > 0 {
				r.creditTrunk(ns, cursor)
			}
			break
		}
		r.addArcUse(ns, cursor, ve.pip, true)
		cursor = r.ctx.Arch.PipSrcWire(ve.pip)
	}

	// Midpoint forward to the sink.
	cursor = mid
	for cursor != ns.arcs[idx].sinkWire {
		ve := s.visitedBwd[cursor]
		if !ve.hasPip {
			break
		}
		next := r.ctx.Arch.PipDstWire(ve.pip)
		r.addArcUse(ns, next, ve.pip, true)
		cursor = next
	}
	ns.arcs[idx].routed = true
}

// commitConstPath handles a constant net's backward-only search result:
// root becomes (or already is) a tree root with no driving pip, and the
// backward chain from root to the sink is added on top.
func (r *Router) commitConstPath(ns *netState, idx int, s *search, root arc.WireId) {
	if wu, ok := ns.wires[root]; ok && wu.count > 0 {
		r.creditTrunk(ns, root)
	} else {
		r.addArcUse(ns, root, 0, false)
	}

	cursor := root
	for cursor != ns.arcs[idx].sinkWire {
		ve := s.visitedBwd[cursor]
		if !ve.hasPip {
			break
		}
		next := r.ctx.Arch.PipDstWire(ve.pip)
		r.addArcUse(ns, next, ve.pip, true)
		cursor = next
	}
	ns.arcs[idx].routed = true
}

// creditTrunk walks an existing tree path from wire back toward the
// root, bumping each wire's ref count for the arc that now shares it.
func (r *Router) creditTrunk(ns *netState, wire arc.WireId) {
	cursor := wire
	for {
		wu, ok := ns.wires[cursor]
		if !ok {
			break
		}
		wu.count++
		if !wu.hasPip {
			break
		}
		cursor = r.ctx.Arch.PipSrcWire(wu.pip)
		if ns.hasSrc && cursor == ns.srcWire {
			break
		}
	}
}

// recomputeCongestion refreshes every touched wire's historical
// congestion cost from its current overuse and returns how many wires
// remain overused.
func (r *Router) recomputeCongestion() int {
	overused := 0
	for _, ws := range r.wireStates {
		if ws.currCong > 1 {
			ws.histCongCost += float64(ws.currCong-1) * r.opts.HistCongWeight
			if ws.histCongCost > 1e9 {
				ws.histCongCost = 1e9
			}
			overused++
		}
	}
	return overused
}

// commit binds every net's final routing tree into the context, at
// StrengthWeak (a router binding is the most easily displaced kind).
// Roots (the source wire, or a
// constant net's reached constant wires) bind first, then each
// pip-driven wire once its pip's source wire is bound.
func (r *Router) commit() error {
	for _, name := range r.netOrder {
		ns := r.nets[name]
		if err := r.ctx.RipUpNet(name); err != nil {
			return err
		}

		bound := map[arc.WireId]bool{}
		if ns.hasSrc {
			if err := r.ctx.BindWire(ns.srcWire, name, netlist.StrengthWeak); err != nil {
				return err
			}
			bound[ns.srcWire] = true
		}

		wires := make([]arc.WireId, 0, len(ns.wires))
		for w := range ns.wires {
			wires = append(wires, w)
		}
		sort.Slice(wires, func(i, j int) bool { return wires[i] < wires[j] })

		var remaining []arc.WireId
		for _, w := range wires {
			if bound[w] {
				continue
			}
			if !ns.wires[w].hasPip {
				if err := r.ctx.BindWire(w, name, netlist.StrengthWeak); err != nil {
					return err
				}
				bound[w] = true
				continue
			}
			remaining = append(remaining, w)
		}

		for len(remaining) > 0 {
			progressed := false
			var next []arc.WireId
			for _, w := range remaining {
				wu := ns.wires[w]
				if !bound[r.ctx.Arch.PipSrcWire(wu.pip)] {
					next = append(next, w)
					continue
				}
				if err := r.ctx.BindWire(w, name, netlist.StrengthWeak); err != nil {
					return err
				}
				if err := r.ctx.BindPip(wu.pip, name, netlist.StrengthWeak); err != nil {
					return err
				}
				bound[w] = true
				progressed = true
			}
			if !progressed {
				return pnrerror.NewInternalInconsistency(r.ctx.Checksum(),
					"router2: disconnected routing tree for net %s", r.ctx.Str(name))
			}
			remaining = next
		}
	}
	return nil
}

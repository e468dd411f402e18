// Package sa implements the simulated-annealing detail placer: random
// initial placement (with ripup when every matching bel is already
// taken), then repeated random bel-swap attempts accepted by the
// Metropolis criterion, with temperature and search diameter adapted
// from the acceptance rate every outer iteration.
//
// The xorshift generator itself lives in pnrctx.RNG (context-owned, not
// a package global); this package only consumes it.
package sa

import (
	"math"
	"sort"
	"sync"

	"github.com/YosysHQ/nextpnr-sub004/arch"
	"github.com/YosysHQ/nextpnr-sub004/idstring"
	"github.com/YosysHQ/nextpnr-sub004/netlist"
	"github.com/YosysHQ/nextpnr-sub004/partition"
	"github.com/YosysHQ/nextpnr-sub004/pnrctx"
	"github.com/YosysHQ/nextpnr-sub004/pnrerror"
)

// Options tunes the SA placer. Cost is
// total_HPWL + TimingWeight * sum(predicted_delay * crit^CritExponent)
// when TimingDriven is set (the wirelength coefficient is normalised
// to 1).
type Options struct {
	InitialTemp         float64
	MaxNoProgressRounds int
	InnerMoves          int // swap attempts per autoplaced cell per outer iteration

	TimingDriven bool
	TimingWeight float64
	CritExponent float64
	Criticality  func(ref netlist.PortRef) float64
}

func DefaultOptions() Options {
	return Options{
		InitialTemp:         10000,
		MaxNoProgressRounds: 5,
		InnerMoves:          15,
		TimingWeight:        1,
		CritExponent:        2,
	}
}

// belView is one worker's private cell-to-bel snapshot: cost
// calculations read it instead of the live binding state, so another
// thread's concurrent moves cannot perturb this thread's cost
// arithmetic mid-evaluation.
type belView map[idstring.ID]arch.BelId

// netBB is the per-axis bounding structure of one net: the extent on
// each axis plus how many pins sit at each extreme. Knowing the pin
// count at a bound lets a move be priced without rescanning the net's
// pins unless the moved pin vacated a bound it held alone.
type netBB struct {
	x0, x1, y0, y1     int
	nx0, nx1, ny0, ny1 int
}

func (b *netBB) hpwl() float64 {
	return float64((b.x1 - b.x0) + (b.y1 - b.y0))
}

// axis returns the bound/count fields for one axis (0=X, 1=Y).
func (b *netBB) axis(i int) (lo, nLo, hi, nHi *int) {
	if i == 0 {
		return &b.x0, &b.nx0, &b.x1, &b.nx1
	}
	return &b.y0, &b.ny0, &b.y1, &b.ny1
}

// boundChange classifies what an inflight move did to one net's bound
// on one axis.
type boundChange uint8

const (
	boundNoChange boundChange = iota
	boundInwards
	boundOutwards
	boundFullRecompute
)

type arcRef struct {
	net, user int
}

// Placer runs the SA detail-placement algorithm over a Context whose
// free cells have not yet been bound to bels (or were bound by a prior
// analytic placement pass and are being refined in place).
type Placer struct {
	ctx  *pnrctx.Context
	opts Options

	autoplaced []idstring.ID
	locked     map[arch.BelId]bool

	fastBels   map[idstring.ID]map[[2]int][]arch.BelId
	belTypeOf  map[idstring.ID]idstring.ID
	maxX, maxY int
	diameter   int

	netsFlat []*netlist.NetInfo
	netIndex map[idstring.ID]int
	userIdx  []map[netlist.PortRef]int

	currCost float64
	temp     float64

	costMu sync.Mutex
}

func New(ctx *pnrctx.Context, opts Options) *Placer {
	return &Placer{
		ctx:       ctx,
		opts:      opts,
		locked:    map[arch.BelId]bool{},
		belTypeOf: map[idstring.ID]idstring.ID{},
		temp:      opts.InitialTemp,
	}
}

func (p *Placer) timingOn() bool {
	return p.opts.TimingDriven && p.opts.Criticality != nil
}

// Run performs initial placement followed by the annealing loop, and
// finishes with a post-placement IsBelLocationValid sweep.
func (p *Placer) Run() error {
	if err := p.placeInitial(); err != nil {
		return err
	}
	p.indexNets()
	p.buildFastBels()
	p.initialCost()

	threaded := partition.UseThreads(p.ctx.Nets.Len())

	noProgress := 0
	avgCost := p.currCost
	for iter := 1; ; iter++ {
		nMove, nAccept := 0, 0
		improved := false

		for m := 0; m < p.opts.InnerMoves; m++ {
			mv, acc, imp, err := p.swapPass(threaded)
			if err != nil {
				return err
			}
			nMove += mv
			nAccept += acc
			improved = improved || imp
		}

		if improved {
			noProgress = 0
		} else {
			noProgress++
		}
		if p.temp <= 1e-3 && noProgress >= p.opts.MaxNoProgressRounds {
			break
		}

		var raccept float64
		if nMove > 0 {
			raccept = float64(nAccept) / float64(nMove)
		}
		m := p.maxX
		if p.maxY > m {
			m = p.maxY
		}
		m++
		switch {
		case p.currCost > 0 && p.currCost < 0.95*avgCost:
			avgCost = 0.8*avgCost + 0.2*p.currCost
		case raccept >= 0.8:
			p.temp *= 0.7
		case raccept > 0.6:
			if p.diameter < m {
				p.diameter++
			} else {
				p.temp *= 0.9
			}
		case raccept > 0.4:
			p.temp *= 0.95
		default:
			if p.diameter > 1 {
				p.diameter--
			} else {
				p.temp *= 0.8
			}
		}
		p.ctx.Yield()
	}

	return p.checkFinalValidity()
}

func (p *Placer) checkFinalValidity() error {
	for _, b := range p.ctx.Arch.Bels() {
		if !p.ctx.IsBelLocationValid(b) {
			return pnrerror.NewExecutionError("post-placement validity check failed for bel %s", p.ctx.Str(p.ctx.Arch.BelName(b)))
		}
	}
	return nil
}

// resolveBelType finds one bel type compatible with cellType, caching
// the result (in practice one cell type maps to exactly one bel type).
func (p *Placer) resolveBelType(cellType idstring.ID) (idstring.ID, bool) {
	if t, ok := p.belTypeOf[cellType]; ok {
		return t, true
	}
	for _, b := range p.ctx.Arch.Bels() {
		if p.ctx.Arch.IsValidBelForCellType(cellType, b) {
			t := p.ctx.Arch.BelType(b)
			p.belTypeOf[cellType] = t
			return t, true
		}
	}
	return idstring.Empty, false
}

// placeInitial: cells already bound (by a prior placement pass, or a
// user LOCKED/USER constraint) are left in place and their bel marked
// locked; every other cell is placed onto a randomly chosen free
// compatible bel, displacing (and immediately re-placing) an occupant
// when none is free. Cluster roots place their whole cluster atomically
// via GetClusterPlacement; non-root cluster members are carried by
// their root and never placed independently.
func (p *Placer) placeInitial() error {
	var autoplaced []idstring.ID
	for _, cell := range p.ctx.Cells.Sorted() {
		if cell.HasBel {
			p.locked[cell.Bel] = true
			continue
		}
		if !cell.IsClusterRoot() {
			continue
		}
		autoplaced = append(autoplaced, cell.Name)
	}
	p.autoplaced = autoplaced

	queue := append([]idstring.ID{}, autoplaced...)
	rng := p.ctx.Rng()
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		cell, ok := p.ctx.Cells.Get(name)
		if !ok {
			return pnrerror.NewInternalInconsistency(p.ctx.Checksum(), "place_sa: unknown cell %s", p.ctx.Str(name))
		}
		if len(cell.Children) > 0 {
			if err := p.placeClusterInitial(cell, rng); err != nil {
				return err
			}
			continue
		}
		displaced, err := p.placeOneInitial(name, rng)
		if err != nil {
			return err
		}
		if displaced.Valid() {
			queue = append([]idstring.ID{displaced}, queue...)
		}
	}
	return nil
}

func (p *Placer) placeOneInitial(name idstring.ID, rng *pnrctx.RNG) (idstring.ID, error) {
	cell, ok := p.ctx.Cells.Get(name)
	if !ok {
		return idstring.Empty, pnrerror.NewInternalInconsistency(p.ctx.Checksum(), "place_sa: unknown cell %s", p.ctx.Str(name))
	}

	var bestBel, ripupBel arch.BelId = arch.InvalidBel, arch.InvalidBel
	bestScore, bestRipupScore := math.Inf(1), math.Inf(1)
	var ripupCell idstring.ID

	for _, b := range p.ctx.Arch.Bels() {
		if !p.ctx.Arch.IsValidBelForCellType(cell.Type, b) {
			continue
		}
		score := rng.Float64()
		if p.ctx.CheckBelAvail(b) {
			if score <= bestScore {
				bestScore, bestBel = score, b
			}
		} else if !p.locked[b] && score <= bestRipupScore {
			occupant, _ := p.ctx.GetBoundBelCell(b)
			bestRipupScore, ripupBel, ripupCell = score, b, occupant
		}
	}

	if bestBel == arch.InvalidBel {
		if ripupBel == arch.InvalidBel {
			return idstring.Empty, pnrerror.NewExecutionError("place_sa: failed to place cell %s of type %s", p.ctx.Str(name), p.ctx.Str(cell.Type))
		}
		if err := p.ctx.UnbindBel(ripupBel); err != nil {
			return idstring.Empty, err
		}
		bestBel = ripupBel
	} else {
		ripupCell = idstring.Empty
	}

	if err := p.ctx.BindBel(bestBel, name, netlist.StrengthPlacer); err != nil {
		return idstring.Empty, err
	}
	return ripupCell, nil
}

// placeClusterInitial tries every root-compatible bel (in a
// deterministically shuffled order) until GetClusterPlacement yields a
// layout whose member bels are all free and type-compatible, then binds
// the whole cluster.
func (p *Placer) placeClusterInitial(root *netlist.CellInfo, rng *pnrctx.RNG) error {
	var candidates []int32
	for _, b := range p.ctx.Arch.Bels() {
		if p.ctx.Arch.IsValidBelForCellType(root.Type, b) {
			candidates = append(candidates, int32(b))
		}
	}
	for _, c := range pnrctx.SortedShuffle(rng, candidates) {
		members, ok := p.clusterLayout(root.Name, arch.BelId(c))
		if !ok {
			continue
		}
		for _, m := range members {
			if err := p.ctx.BindBel(m.Bel, m.Cell, netlist.StrengthPlacer); err != nil {
				return err
			}
		}
		return nil
	}
	return pnrerror.NewExecutionError("place_sa: failed to place cluster rooted at %s", p.ctx.Str(root.Name))
}

// clusterLayout asks the backend for the cluster's layout anchored at
// rootBel and vets it: every member bel must exist, be free (or about to
// be vacated by a member), and accept its member's cell type.
func (p *Placer) clusterLayout(rootName idstring.ID, rootBel arch.BelId) ([]arch.ClusterMember, bool) {
	members, ok := p.ctx.Arch.GetClusterPlacement(rootName, rootBel)
	if !ok {
		return nil, false
	}
	memberSet := map[idstring.ID]bool{}
	for _, m := range members {
		memberSet[m.Cell] = true
	}
	for _, m := range members {
		cell, ok := p.ctx.Cells.Get(m.Cell)
		if !ok || m.Bel == arch.InvalidBel {
			return nil, false
		}
		if !p.ctx.Arch.IsValidBelForCellType(cell.Type, m.Bel) {
			return nil, false
		}
		if occupant, bound := p.ctx.GetBoundBelCell(m.Bel); bound && !memberSet[occupant] {
			return nil, false
		}
		if p.locked[m.Bel] {
			return nil, false
		}
	}
	return members, true
}

// buildFastBels groups every bel by (type, x, y) for the diameter-limited
// random search randomBelForCell performs.
func (p *Placer) buildFastBels() {
	p.fastBels = map[idstring.ID]map[[2]int][]arch.BelId{}
	for _, b := range p.ctx.Arch.Bels() {
		loc := p.ctx.Arch.BelLocation(b)
		t := p.ctx.Arch.BelType(b)
		if p.fastBels[t] == nil {
			p.fastBels[t] = map[[2]int][]arch.BelId{}
		}
		key := [2]int{loc.X, loc.Y}
		p.fastBels[t][key] = append(p.fastBels[t][key], b)
		if loc.X > p.maxX {
			p.maxX = loc.X
		}
		if loc.Y > p.maxY {
			p.maxY = loc.Y
		}
	}
	p.diameter = p.maxX
	if p.maxY > p.diameter {
		p.diameter = p.maxY
	}
	p.diameter++
}

// indexNets flattens the net store into index order so per-net cost
// state can live in slices, and maps each user PortRef back to its
// index for timing-arc lookup.
func (p *Placer) indexNets() {
	p.netsFlat = p.ctx.Nets.Sorted()
	p.netIndex = make(map[idstring.ID]int, len(p.netsFlat))
	p.userIdx = make([]map[netlist.PortRef]int, len(p.netsFlat))
	for i, net := range p.netsFlat {
		p.netIndex[net.Name] = i
		m := make(map[netlist.PortRef]int, len(net.Users))
		for ui, u := range net.Users {
			m[u.Port] = ui
		}
		p.userIdx[i] = m
	}
}

// snapshotBels builds a fresh cell-to-bel view from the live bindings.
// Called single-threaded, between parallel phases.
func (p *Placer) snapshotBels() belView {
	view := belView{}
	for _, cell := range p.ctx.Cells.Sorted() {
		if cell.HasBel {
			view[cell.Name] = cell.Bel
		}
	}
	return view
}

// computeNetBB fully rescans a net's pins (driver and users) to rebuild
// its bounding structure against view.
func (p *Placer) computeNetBB(net *netlist.NetInfo, view belView) netBB {
	var bb netBB
	first := true
	add := func(cellName idstring.ID) {
		bel, ok := view[cellName]
		if !ok {
			return
		}
		loc := p.ctx.Arch.BelLocation(bel)
		if first {
			bb = netBB{x0: loc.X, x1: loc.X, y0: loc.Y, y1: loc.Y, nx0: 1, nx1: 1, ny0: 1, ny1: 1}
			first = false
			return
		}
		if loc.X < bb.x0 {
			bb.x0, bb.nx0 = loc.X, 1
		} else if loc.X == bb.x0 {
			bb.nx0++
		}
		if loc.X > bb.x1 {
			bb.x1, bb.nx1 = loc.X, 1
		} else if loc.X == bb.x1 {
			bb.nx1++
		}
		if loc.Y < bb.y0 {
			bb.y0, bb.ny0 = loc.Y, 1
		} else if loc.Y == bb.y0 {
			bb.ny0++
		}
		if loc.Y > bb.y1 {
			bb.y1, bb.ny1 = loc.Y, 1
		} else if loc.Y == bb.y1 {
			bb.ny1++
		}
	}
	if net.Driver.Valid() {
		add(net.Driver.Cell)
	}
	for _, u := range net.Users {
		add(u.Port.Cell)
	}
	return bb
}

// arcTimingCost prices one driver-to-user arc: the backend's predicted
// delay weighted by criticality^gamma.
func (p *Placer) arcTimingCost(net *netlist.NetInfo, ui int, view belView) float64 {
	if !net.Driver.Valid() {
		return 0
	}
	drvBel, ok := view[net.Driver.Cell]
	if !ok {
		return 0
	}
	u := net.Users[ui]
	userBel, ok := view[u.Port.Cell]
	if !ok {
		return 0
	}
	crit := p.opts.Criticality(u.Port)
	predicted := float64(p.ctx.Arch.PredictDelay(drvBel, net.Driver.Port, userBel, u.Port.Port))
	return p.opts.TimingWeight * predicted * math.Pow(crit, p.opts.CritExponent)
}

func (p *Placer) initialCost() {
	view := p.snapshotBels()
	p.currCost = 0
	for _, net := range p.netsFlat {
		bb := p.computeNetBB(net, view)
		p.currCost += bb.hpwl()
		if p.timingOn() {
			for ui := range net.Users {
				p.currCost += p.arcTimingCost(net, ui, view)
			}
		}
	}
}

// swapWorker is one worker's private pricing state: the cell-to-bel
// view, the committed per-net bounding structures and per-arc timing
// costs, and the inflight-move change tracking.
type swapWorker struct {
	p    *Placer
	rng  *pnrctx.RNG
	view belView

	bounds  []netBB
	arcCost [][]float64

	// Inflight move state, reset between moves.
	newBounds     []netBB
	changed       [2][]boundChange
	changedNets   [2][]int
	timingChanged [][]bool
	changedArcs   []arcRef
	newArcCosts   []float64
	wirelenDelta  float64
	timingDelta   float64
}

// newWorker snapshots the committed bounds and arc costs against view.
// Called single-threaded, before the worker's goroutine starts.
func (p *Placer) newWorker(rng *pnrctx.RNG, view belView) *swapWorker {
	w := &swapWorker{p: p, rng: rng, view: view}
	n := len(p.netsFlat)
	w.bounds = make([]netBB, n)
	w.newBounds = make([]netBB, n)
	w.changed[0] = make([]boundChange, n)
	w.changed[1] = make([]boundChange, n)
	w.timingChanged = make([][]bool, n)
	if p.timingOn() {
		w.arcCost = make([][]float64, n)
	}
	for i, net := range p.netsFlat {
		w.bounds[i] = p.computeNetBB(net, view)
		w.newBounds[i] = w.bounds[i]
		w.timingChanged[i] = make([]bool, len(net.Users))
		if p.timingOn() {
			costs := make([]float64, len(net.Users))
			for ui := range net.Users {
				costs[ui] = p.arcTimingCost(net, ui, view)
			}
			w.arcCost[i] = costs
		}
	}
	return w
}

// resetMove discards the inflight change tracking, restoring newBounds
// to the committed bounds.
func (w *swapWorker) resetMove() {
	for axis := 0; axis < 2; axis++ {
		for _, idx := range w.changedNets[axis] {
			w.newBounds[idx] = w.bounds[idx]
			w.changed[axis][idx] = boundNoChange
		}
		w.changedNets[axis] = w.changedNets[axis][:0]
	}
	for _, a := range w.changedArcs {
		w.timingChanged[a.net][a.user] = false
	}
	w.changedArcs = w.changedArcs[:0]
	w.newArcCosts = w.newArcCosts[:0]
	w.wirelenDelta = 0
	w.timingDelta = 0
}

// commitMove publishes the inflight bounds and arc costs as the new
// committed state, then clears the tracking.
func (w *swapWorker) commitMove() {
	for axis := 0; axis < 2; axis++ {
		for _, idx := range w.changedNets[axis] {
			w.bounds[idx] = w.newBounds[idx]
		}
	}
	for i, a := range w.changedArcs {
		w.arcCost[a.net][a.user] = w.newArcCosts[i]
	}
	w.resetMove()
}

func (w *swapWorker) markArc(net, user int) {
	if w.timingChanged[net][user] {
		return
	}
	w.timingChanged[net][user] = true
	w.changedArcs = append(w.changedArcs, arcRef{net: net, user: user})
}

// computeChangesForCell folds one cell's move into the inflight
// bounding structures, classifying the effect on each touched net per
// axis. A bound only needs a full pin rescan when the moved pin vacated
// an extreme it held alone; every other case adjusts the bound and its
// occupancy count in place.
func (w *swapWorker) computeChangesForCell(cell *netlist.CellInfo, oldBel, newBel arch.BelId) {
	newLoc := w.p.ctx.Arch.BelLocation(newBel)
	oldLoc := w.p.ctx.Arch.BelLocation(oldBel)
	for _, pn := range cell.SortedPortNames() {
		port := cell.Ports[pn]
		if !port.Net.Valid() {
			continue
		}
		idx, ok := w.p.netIndex[port.Net]
		if !ok {
			continue
		}
		nb := &w.newBounds[idx]
		for axis := 0; axis < 2; axis++ {
			newPos, oldPos := newLoc.X, oldLoc.X
			if axis == 1 {
				newPos, oldPos = newLoc.Y, oldLoc.Y
			}
			lo, nLo, hi, nHi := nb.axis(axis)
			change := &w.changed[axis][idx]

			// Lower bound.
			switch {
			case newPos < *lo:
				*lo, *nLo = newPos, 1
				if *change == boundNoChange {
					*change = boundOutwards
					w.changedNets[axis] = append(w.changedNets[axis], idx)
				}
			case newPos == *lo && oldPos > *lo:
				*nLo++
				if *change == boundNoChange {
					*change = boundOutwards
					w.changedNets[axis] = append(w.changedNets[axis], idx)
				}
			case oldPos == *lo && newPos > *lo:
				if *change == boundNoChange {
					w.changedNets[axis] = append(w.changedNets[axis], idx)
				}
				if *nLo == 1 {
					// Last pin on the bound left it.
					*change = boundFullRecompute
				} else {
					*nLo--
					if *change == boundNoChange {
						*change = boundInwards
					}
				}
			}

			// Upper bound.
			switch {
			case newPos > *hi:
				*hi, *nHi = newPos, 1
				if *change == boundNoChange {
					*change = boundOutwards
					w.changedNets[axis] = append(w.changedNets[axis], idx)
				}
			case newPos == *hi && oldPos < *hi:
				*nHi++
				if *change == boundNoChange {
					*change = boundOutwards
					w.changedNets[axis] = append(w.changedNets[axis], idx)
				}
			case oldPos == *hi && newPos < *hi:
				if *change == boundNoChange {
					w.changedNets[axis] = append(w.changedNets[axis], idx)
				}
				if *nHi == 1 {
					*change = boundFullRecompute
				} else {
					*nHi--
					if *change == boundNoChange {
						*change = boundInwards
					}
				}
			}
		}

		if w.p.timingOn() {
			net := w.p.netsFlat[idx]
			if port.Dir == arch.DirOut {
				for ui := range net.Users {
					w.markArc(idx, ui)
				}
			} else if ui, ok := w.p.userIdx[idx][netlist.PortRef{Cell: cell.Name, Port: pn}]; ok {
				w.markArc(idx, ui)
			}
		}
	}
}

// computeTotalChange resolves the inflight move's cost delta. Only nets
// classified for a full recompute on an axis rescan their pins, and a
// net already recomputed for the X pass is not recomputed again for Y.
func (w *swapWorker) computeTotalChange() float64 {
	xa, ya := w.changedNets[0], w.changedNets[1]
	for _, idx := range xa {
		if w.changed[0][idx] == boundFullRecompute {
			w.newBounds[idx] = w.p.computeNetBB(w.p.netsFlat[idx], w.view)
		}
	}
	for _, idx := range ya {
		if w.changed[0][idx] != boundFullRecompute && w.changed[1][idx] == boundFullRecompute {
			w.newBounds[idx] = w.p.computeNetBB(w.p.netsFlat[idx], w.view)
		}
	}
	for _, idx := range xa {
		w.wirelenDelta += w.newBounds[idx].hpwl() - w.bounds[idx].hpwl()
	}
	for _, idx := range ya {
		if w.changed[0][idx] == boundNoChange {
			w.wirelenDelta += w.newBounds[idx].hpwl() - w.bounds[idx].hpwl()
		}
	}
	for _, a := range w.changedArcs {
		nc := w.p.arcTimingCost(w.p.netsFlat[a.net], a.user, w.view)
		w.timingDelta += nc - w.arcCost[a.net][a.user]
		w.newArcCosts = append(w.newArcCosts, nc)
	}
	return w.wirelenDelta + w.timingDelta
}

// randomBelForCell searches a window of at most diameter
// tiles around (x,y) for a compatible, unlocked bel, optionally confined
// to box (the partitioned-threading case). Bounded attempt count in
// place of an unconditional retry loop, since a bogus architecture
// could otherwise spin forever.
func (p *Placer) randomBelForCell(rng *pnrctx.RNG, cellType idstring.ID, x, y int, box *partition.Box) arch.BelId {
	t, ok := p.resolveBelType(cellType)
	if !ok {
		return arch.InvalidBel
	}
	lox, loy := x-p.diameter, y-p.diameter
	if lox < 0 {
		lox = 0
	}
	if loy < 0 {
		loy = 0
	}
	span := 2*p.diameter + 1
	for attempt := 0; attempt < 500; attempt++ {
		nx := lox + rng.Intn(span)
		ny := loy + rng.Intn(span)
		if box != nil && !box.Contains(nx, ny) {
			continue
		}
		bels := p.fastBels[t][[2]int{nx, ny}]
		if len(bels) == 0 {
			continue
		}
		bel := bels[rng.Intn(len(bels))]
		if p.locked[bel] {
			continue
		}
		return bel
	}
	return arch.InvalidBel
}

// trySwap: unbind cell (and newBel's occupant, if any), validate both
// placements, price the move incrementally against the worker's private
// view, and accept or roll back by the Metropolis criterion.
func (p *Placer) trySwap(cellName idstring.ID, newBel arch.BelId, w *swapWorker) (accepted, improved bool, err error) {
	cell, ok := p.ctx.Cells.Get(cellName)
	if !ok {
		return false, false, pnrerror.NewInternalInconsistency(p.ctx.Checksum(), "place_sa: unknown cell %s", p.ctx.Str(cellName))
	}
	oldBel, ok := w.view[cellName]
	if !ok {
		return false, false, nil
	}
	otherName, hasOther := p.ctx.GetBoundBelCell(newBel)

	if err := p.ctx.UnbindBel(oldBel); err != nil {
		return false, false, err
	}
	if hasOther {
		if err := p.ctx.UnbindBel(newBel); err != nil {
			return false, false, err
		}
	}

	valid := p.ctx.Arch.IsValidBelForCellType(cell.Type, newBel)
	var otherCell *netlist.CellInfo
	if valid && hasOther {
		otherCell, _ = p.ctx.Cells.Get(otherName)
		valid = p.ctx.Arch.IsValidBelForCellType(otherCell.Type, oldBel)
	}
	if !valid {
		return false, false, p.restore(cellName, oldBel, otherName, newBel, hasOther)
	}

	if err := p.ctx.BindBel(newBel, cellName, netlist.StrengthPlacer); err != nil {
		return false, false, err
	}
	if hasOther {
		if err := p.ctx.BindBel(oldBel, otherName, netlist.StrengthPlacer); err != nil {
			return false, false, err
		}
	}

	if !p.ctx.IsBelLocationValid(newBel) || (hasOther && !p.ctx.IsBelLocationValid(oldBel)) {
		if err := p.ctx.UnbindBel(newBel); err != nil {
			return false, false, err
		}
		if hasOther {
			if err := p.ctx.UnbindBel(oldBel); err != nil {
				return false, false, err
			}
		}
		return false, false, p.restore(cellName, oldBel, otherName, newBel, hasOther)
	}

	// Price the move against the private view.
	w.resetMove()
	w.view[cellName] = newBel
	if hasOther {
		w.view[otherName] = oldBel
	}
	w.computeChangesForCell(cell, oldBel, newBel)
	if hasOther {
		w.computeChangesForCell(otherCell, newBel, oldBel)
	}
	d := w.computeTotalChange()

	accept := d < 0 || (p.temp > 1e-6 && w.rng.Float64() <= math.Exp(-d/p.temp))
	if accept {
		w.commitMove()
		p.costMu.Lock()
		p.currCost += d
		p.costMu.Unlock()
		return true, d < 0, nil
	}

	w.resetMove()
	w.view[cellName] = oldBel
	if hasOther {
		w.view[otherName] = newBel
	}
	if err := p.ctx.UnbindBel(newBel); err != nil {
		return false, false, err
	}
	if hasOther {
		if err := p.ctx.UnbindBel(oldBel); err != nil {
			return false, false, err
		}
	}
	return false, false, p.restore(cellName, oldBel, otherName, newBel, hasOther)
}

func (p *Placer) restore(cellName idstring.ID, oldBel arch.BelId, otherName idstring.ID, newBel arch.BelId, hasOther bool) error {
	if err := p.ctx.BindBel(oldBel, cellName, netlist.StrengthPlacer); err != nil {
		return err
	}
	if hasOther {
		if err := p.ctx.BindBel(newBel, otherName, netlist.StrengthPlacer); err != nil {
			return err
		}
	}
	return nil
}

// tryClusterSwap proposes moving a whole cluster so its root lands on
// newRootBel, with the member layout supplied by GetClusterPlacement.
// No displacement: the move is rejected outright if any target bel is
// held by a non-member.
func (p *Placer) tryClusterSwap(root *netlist.CellInfo, newRootBel arch.BelId, w *swapWorker) (accepted, improved bool, err error) {
	members, ok := p.clusterLayout(root.Name, newRootBel)
	if !ok {
		return false, false, nil
	}

	old := make(map[idstring.ID]arch.BelId, len(members))
	for _, m := range members {
		b, ok := w.view[m.Cell]
		if !ok {
			return false, false, nil
		}
		old[m.Cell] = b
	}

	for _, m := range members {
		if err := p.ctx.UnbindBel(old[m.Cell]); err != nil {
			return false, false, err
		}
	}
	rollback := func() error {
		for _, m := range members {
			if err := p.ctx.UnbindBel(m.Bel); err != nil {
				return err
			}
		}
		for _, m := range members {
			if err := p.ctx.BindBel(old[m.Cell], m.Cell, netlist.StrengthPlacer); err != nil {
				return err
			}
		}
		return nil
	}

	for _, m := range members {
		if !p.ctx.CheckBelAvail(m.Bel) {
			// A member's target clashes with another member's old bel that
			// has not been vacated in this ordering; bail out.
			for _, mm := range members {
				if bound, _ := p.ctx.GetBoundBelCell(mm.Bel); bound.Valid() {
					_ = p.ctx.UnbindBel(mm.Bel)
				}
			}
			for _, mm := range members {
				if err := p.ctx.BindBel(old[mm.Cell], mm.Cell, netlist.StrengthPlacer); err != nil {
					return false, false, err
				}
			}
			return false, false, nil
		}
		if err := p.ctx.BindBel(m.Bel, m.Cell, netlist.StrengthPlacer); err != nil {
			return false, false, err
		}
	}

	for _, m := range members {
		if !p.ctx.IsBelLocationValid(m.Bel) {
			return false, false, rollback()
		}
	}

	// Price the whole-cluster move against the private view.
	w.resetMove()
	for _, m := range members {
		w.view[m.Cell] = m.Bel
	}
	for _, m := range members {
		cell, ok := p.ctx.Cells.Get(m.Cell)
		if !ok {
			continue
		}
		w.computeChangesForCell(cell, old[m.Cell], m.Bel)
	}
	d := w.computeTotalChange()

	accept := d < 0 || (p.temp > 1e-6 && w.rng.Float64() <= math.Exp(-d/p.temp))
	if accept {
		w.commitMove()
		p.costMu.Lock()
		p.currCost += d
		p.costMu.Unlock()
		return true, d < 0, nil
	}

	w.resetMove()
	for _, m := range members {
		w.view[m.Cell] = old[m.Cell]
	}
	return false, false, rollback()
}

func (p *Placer) attemptMove(name idstring.ID, w *swapWorker, box *partition.Box) (moved, accepted, improved bool, err error) {
	cell, ok := p.ctx.Cells.Get(name)
	if !ok {
		return false, false, false, nil
	}
	bel, ok := w.view[name]
	if !ok {
		return false, false, false, nil
	}
	loc := p.ctx.Arch.BelLocation(bel)
	if box != nil && !box.Contains(loc.X, loc.Y) {
		return false, false, false, nil
	}
	newBel := p.randomBelForCell(w.rng, cell.Type, loc.X, loc.Y, box)
	if newBel == arch.InvalidBel || newBel == bel {
		return false, false, false, nil
	}
	if box != nil {
		nloc := p.ctx.Arch.BelLocation(newBel)
		if !box.Contains(nloc.X, nloc.Y) {
			return false, false, false, nil
		}
	}
	if len(cell.Children) > 0 {
		if box != nil {
			// Member bels may land outside the worker's partition; leave
			// cluster moves to the unboxed (global) pass.
			return false, false, false, nil
		}
		acc, imp, err := p.tryClusterSwap(cell, newBel, w)
		return true, acc, imp, err
	}
	acc, imp, err := p.trySwap(name, newBel, w)
	return true, acc, imp, err
}

// medianSplit picks the split point for the partition phases as the
// median of the autoplaced cells' current positions, so each side of a
// split carries a balanced share of movable cells rather than a
// balanced tile share.
func (p *Placer) medianSplit(view belView) (midX, midY int) {
	var xs, ys []int
	for _, name := range p.autoplaced {
		if b, ok := view[name]; ok {
			loc := p.ctx.Arch.BelLocation(b)
			xs = append(xs, loc.X)
			ys = append(ys, loc.Y)
		}
	}
	if len(xs) == 0 {
		return (p.maxX + 1) / 2, (p.maxY + 1) / 2
	}
	sort.Ints(xs)
	sort.Ints(ys)
	return xs[len(xs)/2], ys[len(ys)/2]
}

// swapPass runs one sweep of "attempt one swap per autoplaced cell",
// either single-threaded or partitioned across partition phases split
// at the cell-position median, and returns the move/accept/improved
// tallies. Each worker gets its own RNG and pricing state (seeded and
// snapshotted deterministically before the phase starts).
func (p *Placer) swapPass(threaded bool) (moves, accepts int, improved bool, err error) {
	if !threaded {
		w := p.newWorker(p.ctx.Rng(), p.snapshotBels())
		for _, name := range p.autoplaced {
			mv, acc, imp, e := p.attemptMove(name, w, nil)
			if e != nil {
				return moves, accepts, improved, e
			}
			if mv {
				moves++
			}
			if acc {
				accepts++
			}
			improved = improved || imp
		}
		return moves, accepts, improved, nil
	}

	midX, midY := p.medianSplit(p.snapshotBels())
	for _, phase := range partition.PlanAt(midX, midY, p.maxX+1, p.maxY+1) {
		if phase.Global {
			mv, acc, imp, e := p.swapPass(false)
			moves += mv
			accepts += acc
			improved = improved || imp
			if e != nil {
				return moves, accepts, improved, e
			}
			continue
		}
		// Seed every worker's RNG and pricing state before any goroutine
		// starts, so neither read races a running worker.
		workers := make([]*swapWorker, len(phase.Boxes))
		for boxIdx := range phase.Boxes {
			rng := pnrctx.NewRNG(int64(p.ctx.Rng().Intn(1<<31)) ^ int64(boxIdx)*7919)
			workers[boxIdx] = p.newWorker(rng, p.snapshotBels())
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		var phaseErr error
		for boxIdx, box := range phase.Boxes {
			box := box
			w := workers[boxIdx]
			wg.Add(1)
			go func() {
				defer wg.Done()
				var lm, la int
				var li bool
				for _, name := range p.autoplaced {
					mv, acc, imp, e := p.attemptMove(name, w, &box)
					if e != nil {
						mu.Lock()
						if phaseErr == nil {
							phaseErr = e
						}
						mu.Unlock()
						return
					}
					if mv {
						lm++
					}
					if acc {
						la++
					}
					li = li || imp
				}
				mu.Lock()
				moves += lm
				accepts += la
				improved = improved || li
				mu.Unlock()
			}()
		}
		wg.Wait()
		if phaseErr != nil {
			return moves, accepts, improved, phaseErr
		}
	}
	return moves, accepts, improved, nil
}

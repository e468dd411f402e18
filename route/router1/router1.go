// Package router1 is the simpler maze-router fallback (select it with
// the "router" setting): a plain A* search per net against the
// context's exclusive bel/wire/pip bindings, with an optional ripup
// mode that lets a search displace a lower-priority net's resource and
// pay an escalating penalty for doing so again.
//
// The cumulative delay already reached at each of a net's previously
// routed wires is not retained once the path is committed, so when a
// later arc of the same net reseeds the search from those wires it
// assumes a delay of 0 there; this only skews the cost estimate, and
// the timing analyser re-measures every committed arc afterwards.
package router1

import (
	"container/heap"

	"github.com/YosysHQ/nextpnr-sub004/arch"
	"github.com/YosysHQ/nextpnr-sub004/idstring"
	"github.com/YosysHQ/nextpnr-sub004/netlist"
	"github.com/YosysHQ/nextpnr-sub004/pnrctx"
	"github.com/YosysHQ/nextpnr-sub004/pnrerror"
)

// Options tunes the router.
type Options struct {
	Ripup            bool
	RipupPenalty     int64
	RipupPenaltyStep int64
	MaxIterations    int
}

func DefaultOptions() Options {
	return Options{Ripup: true, RipupPenalty: 100, RipupPenaltyStep: 100, MaxIterations: 100}
}

type netWireKey struct {
	net  idstring.ID
	wire arch.WireId
}
type netPipKey struct {
	net idstring.ID
	pip arch.PipId
}

// scoreboard tallies how often each resource has been ripped up, so
// repeat offenders become increasingly expensive to contest.
type scoreboard struct {
	wireScores    map[arch.WireId]int64
	pipScores     map[arch.PipId]int64
	netWireScores map[netWireKey]int64
	netPipScores  map[netPipKey]int64
}

func newScoreboard() *scoreboard {
	return &scoreboard{
		wireScores:    map[arch.WireId]int64{},
		pipScores:     map[arch.PipId]int64{},
		netWireScores: map[netWireKey]int64{},
		netPipScores:  map[netPipKey]int64{},
	}
}

// Router is one routing run over a Context whose cells are already
// placed.
type Router struct {
	ctx    *pnrctx.Context
	opts   Options
	scores *scoreboard

	// ripped collects nets whose routing was displaced by another net's
	// commit, so the pass can reroute them before declaring itself clean.
	ripped map[idstring.ID]bool
}

func New(ctx *pnrctx.Context, opts Options) *Router {
	return &Router{ctx: ctx, opts: opts, scores: newScoreboard(), ripped: map[idstring.ID]bool{}}
}

// Run repeatedly re-routes every connected net (shuffled into a fresh
// deterministic order each pass) until an iteration completes with no
// failures, escalating the ripup penalty after every failed pass.
func (r *Router) Run() error {
	var names []idstring.ID
	for _, net := range r.ctx.Nets.Sorted() {
		if net.Driver.Valid() && len(net.Users) > 0 {
			names = append(names, net.Name)
		}
	}
	ids := make([]int32, len(names))
	idx := make(map[int32]idstring.ID, len(names))
	for i, n := range names {
		ids[i] = int32(n)
		idx[int32(n)] = n
	}

	for iter := 1; iter <= r.opts.MaxIterations; iter++ {
		order := pnrctx.SortedShuffle(r.ctx.Rng(), ids)
		failed := 0
		for _, id := range order {
			if err := r.routeNet(idx[id]); err != nil {
				failed++
				if !r.opts.Ripup {
					return err
				}
			}
		}

		// Nets displaced by a later net's commit must be rerouted before
		// this pass may count as clean; ripping up during these reroutes
		// re-feeds the queue until it drains or the budget runs out.
		for drain := 0; len(r.ripped) > 0; drain++ {
			if drain > 4*len(ids)+16 {
				failed++
				break
			}
			name := r.popRipped()
			if err := r.routeNet(name); err != nil {
				failed++
				if !r.opts.Ripup {
					return err
				}
			}
		}

		if failed == 0 {
			return nil
		}
		r.opts.RipupPenalty += r.opts.RipupPenaltyStep
	}
	return pnrerror.NewExecutionError("router1: failed to converge after %d iterations", r.opts.MaxIterations)
}

// popRipped removes and returns the lowest-ID ripped net, for a
// deterministic drain order.
func (r *Router) popRipped() idstring.ID {
	var min idstring.ID
	first := true
	for n := range r.ripped {
		if first || n < min {
			min = n
			first = false
		}
	}
	delete(r.ripped, min)
	return min
}

func (r *Router) routeNet(name idstring.ID) error {
	net, ok := r.ctx.Nets.Get(name)
	if !ok || !net.Driver.Valid() {
		return nil
	}
	driverCell, ok := r.ctx.Cells.Get(net.Driver.Cell)
	if !ok || !driverCell.HasBel {
		return nil
	}
	srcWire, ok := r.ctx.Arch.BelPinWire(driverCell.Bel, net.Driver.Port)
	if !ok {
		return nil
	}

	delete(r.ripped, name)
	if err := r.ctx.RipUpNet(name); err != nil {
		return err
	}
	if err := r.ctx.BindWire(srcWire, name, netlist.StrengthWeak); err != nil {
		return err
	}

	for _, u := range net.Users {
		userCell, ok := r.ctx.Cells.Get(u.Port.Cell)
		if !ok || !userCell.HasBel {
			continue
		}
		dstWire, ok := r.ctx.Arch.BelPinWire(userCell.Bel, u.Port.Port)
		if !ok {
			continue
		}
		if _, bound := r.ctx.GetBoundWireNet(dstWire); bound {
			if n, _ := r.ctx.GetBoundWireNet(dstWire); n == name {
				continue // already part of this net's tree (shared sink, unusual but harmless)
			}
		}
		if err := r.routeArc(name, dstWire); err != nil {
			return err
		}
	}
	return nil
}

type queuedWire struct {
	wire    arch.WireId
	pip     arch.PipId
	hasPip  bool
	delay   int64
	togo    int64
	randtag int
}

type priorityQueue []queuedWire

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	li, lj := pq[i].delay+pq[i].togo, pq[j].delay+pq[j].togo
	if li != lj {
		return li < lj
	}
	return pq[i].randtag < pq[j].randtag
}
func (pq priorityQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x any)   { *pq = append(*pq, x.(queuedWire)) }
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	it := old[n-1]
	*pq = old[:n-1]
	return it
}

// routeArc searches from every wire currently in net's tree to dst,
// optionally displacing lower-priority nets' resources, then commits
// the discovered path.
func (r *Router) routeArc(name idstring.ID, dst arch.WireId) error {
	net, _ := r.ctx.Nets.Get(name)
	rng := r.ctx.Rng()

	visited := map[arch.WireId]queuedWire{}
	pq := &priorityQueue{}
	heap.Init(pq)

	for w := range net.Wires {
		q := queuedWire{wire: w, delay: 0, togo: r.ctx.Arch.EstimateDelay(w, dst), randtag: rng.Intn(1 << 30)}
		visited[w] = q
		heap.Push(pq, q)
	}
	if len(net.Wires) == 0 {
		return pnrerror.NewInternalInconsistency(r.ctx.Checksum(), "router1: net %s has no seed wires", r.ctx.Str(name))
	}

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(queuedWire)
		if v, ok := visited[cur.wire]; ok && cur.delay > v.delay {
			continue
		}
		if cur.wire == dst {
			break
		}
		for _, pip := range r.ctx.Arch.PipsDownhill(cur.wire) {
			nextWire := r.ctx.Arch.PipDstWire(pip)
			nextDelay := cur.delay + r.ctx.Arch.PipDelay(pip) + r.ctx.Arch.WireDelay(nextWire)
			foundRipupNet := false

			if !r.ctx.CheckWireAvail(nextWire) {
				if !r.opts.Ripup {
					continue
				}
				n, _ := r.ctx.GetBoundWireNet(nextWire)
				if !n.Valid() || n == name {
					continue
				}
				nextDelay += (r.scores.wireScores[nextWire] * r.opts.RipupPenalty) / 8
				nextDelay += r.scores.netWireScores[netWireKey{n, nextWire}] * r.opts.RipupPenalty
				foundRipupNet = true
			}
			if !r.ctx.CheckPipAvail(pip) {
				if !r.opts.Ripup {
					continue
				}
				n, _ := r.ctx.GetBoundPipNet(pip)
				if !n.Valid() || n == name {
					continue
				}
				nextDelay += (r.scores.pipScores[pip] * r.opts.RipupPenalty) / 8
				nextDelay += r.scores.netPipScores[netPipKey{n, pip}] * r.opts.RipupPenalty
				foundRipupNet = true
			}
			if foundRipupNet {
				nextDelay += r.opts.RipupPenalty
			}

			if v, ok := visited[nextWire]; ok && v.delay <= nextDelay {
				continue
			}
			q := queuedWire{
				wire: nextWire, pip: pip, hasPip: true,
				delay: nextDelay, togo: r.ctx.Arch.EstimateDelay(nextWire, dst),
				randtag: rng.Intn(1 << 30),
			}
			visited[nextWire] = q
			heap.Push(pq, q)
		}
	}

	if _, ok := visited[dst]; !ok {
		return pnrerror.NewExecutionError("router1: failed to route net %s to sink wire %s", r.ctx.Str(name), r.ctx.Str(r.ctx.Arch.WireName(dst)))
	}
	return r.commitPath(name, dst, visited)
}

// commitPath walks from dst back to the first wire already owned by
// name (a seed of the existing tree), ripping up any conflicting net it
// must displace along the way, then binds every wire/pip in the new
// stretch.
func (r *Router) commitPath(name idstring.ID, dst arch.WireId, visited map[arch.WireId]queuedWire) error {
	var chain []queuedWire
	cursor := dst
	for {
		if n, bound := r.ctx.GetBoundWireNet(cursor); bound && n == name {
			break
		}
		q, ok := visited[cursor]
		if !ok {
			return pnrerror.NewInternalInconsistency(r.ctx.Checksum(), "router1: broken path reconstruction for net %s", r.ctx.Str(name))
		}
		chain = append(chain, q)
		if !q.hasPip {
			break
		}
		cursor = r.ctx.Arch.PipSrcWire(q.pip)
	}

	for i := len(chain) - 1; i >= 0; i-- {
		q := chain[i]
		if !r.ctx.CheckWireAvail(q.wire) {
			if !r.opts.Ripup {
				return pnrerror.NewExecutionError("router1: wire contention routing net %s", r.ctx.Str(name))
			}
			if n, bound := r.ctx.GetBoundWireNet(q.wire); bound && n != name {
				if err := r.ctx.RipUpNet(n); err != nil {
					return err
				}
				r.ripped[n] = true
				r.scores.wireScores[q.wire]++
				r.scores.netWireScores[netWireKey{n, q.wire}]++
			}
		}
		if err := r.ctx.BindWire(q.wire, name, netlist.StrengthWeak); err != nil {
			return err
		}
		if q.hasPip {
			if !r.ctx.CheckPipAvail(q.pip) {
				if !r.opts.Ripup {
					return pnrerror.NewExecutionError("router1: pip contention routing net %s", r.ctx.Str(name))
				}
				if n, bound := r.ctx.GetBoundPipNet(q.pip); bound && n != name {
					if err := r.ctx.RipUpNet(n); err != nil {
						return err
					}
					r.ripped[n] = true
					r.scores.pipScores[q.pip]++
					r.scores.netPipScores[netPipKey{n, q.pip}]++
				}
			}
			if err := r.ctx.BindPip(q.pip, name, netlist.StrengthWeak); err != nil {
				return err
			}
		}
	}
	return nil
}

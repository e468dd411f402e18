// Package heap implements the analytic (quadratic-programming) placer:
// a bound2bound net model solved per axis by
// Jacobi-preconditioned conjugate gradient, legalised onto real bels by
// recursive bisection.
//
// The sparse SPD solve is a few dozen lines of plain Go; it needs no
// general linear-algebra dependency.
package heap

import (
	"math"
	"sort"

	"github.com/YosysHQ/nextpnr-sub004/arch"
	"github.com/YosysHQ/nextpnr-sub004/idstring"
	"github.com/YosysHQ/nextpnr-sub004/netlist"
	"github.com/YosysHQ/nextpnr-sub004/pnrctx"
	"github.com/YosysHQ/nextpnr-sub004/pnrerror"
)

// Options tunes the analytic placer.
type Options struct {
	MaxIterations    int
	ConvergenceDelta float64 // stop when total wirelength change falls below this
	TimingDriven     bool
	CritExponent     float64 // gamma in (1+lambda*crit)^gamma
	CritLambda       float64
	Criticality      func(ref netlist.PortRef) float64 // nil when !TimingDriven
}

func DefaultOptions() Options {
	return Options{
		MaxIterations:    30,
		ConvergenceDelta: 1.0,
		CritExponent:     2.0,
		CritLambda:       4.0,
	}
}

// Placer runs the analytic placement algorithm over a Context.
type Placer struct {
	ctx  *pnrctx.Context
	opts Options

	free      []idstring.ID // free (placeable) cells, sorted by name
	freeIndex map[idstring.ID]int
	posX      []float64
	posY      []float64

	fixedPos map[idstring.ID][2]float64 // locked cells, keyed by name

	belTypeOf map[idstring.ID]idstring.ID // cell type -> compatible bel type, resolved once
}

// New constructs a Placer. Call Run to perform the global solve and
// legalisation loop.
func New(ctx *pnrctx.Context, opts Options) *Placer {
	return &Placer{ctx: ctx, opts: opts, freeIndex: map[idstring.ID]int{}, fixedPos: map[idstring.ID][2]float64{}, belTypeOf: map[idstring.ID]idstring.ID{}}
}

// Run performs the iterate-until-converged solve/legalise loop and
// binds every free cell to a bel at PlaceStrength
// PLACER. Cells already bound at STRONG/USER/LOCKED strength are treated
// as fixed anchors and left untouched.
func (p *Placer) Run() error {
	p.collectCells()
	if len(p.free) == 0 {
		return nil
	}
	p.seedInitialPositions()

	lastWL := math.Inf(1)
	for iter := 0; iter < p.opts.MaxIterations; iter++ {
		p.solveAxis(0)
		p.solveAxis(1)

		assignment, err := p.legalise()
		if err != nil {
			return err
		}
		// Anchor positions at the legal bel location for the next solve's RHS.
		for cell, bel := range assignment {
			loc := p.ctx.Arch.BelLocation(bel)
			idx := p.freeIndex[cell]
			p.posX[idx] = float64(loc.X)
			p.posY[idx] = float64(loc.Y)
		}

		wl := p.totalHPWL()
		if math.Abs(lastWL-wl) < p.opts.ConvergenceDelta {
			lastWL = wl
			break
		}
		lastWL = wl
	}

	// Final legalisation + bind pass.
	assignment, err := p.legalise()
	if err != nil {
		return err
	}
	cells := make([]idstring.ID, 0, len(assignment))
	for c := range assignment {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i] < cells[j] })
	for _, c := range cells {
		if err := p.ctx.BindBel(assignment[c], c, netlist.StrengthPlacer); err != nil {
			return err
		}
	}
	return nil
}

func (p *Placer) collectCells() {
	for _, cell := range p.ctx.Cells.Sorted() {
		if cell.HasBel && cell.BelStrength >= netlist.StrengthStrong && cell.BelStrength != netlist.StrengthPlacer {
			loc := p.ctx.Arch.BelLocation(cell.Bel)
			p.fixedPos[cell.Name] = [2]float64{float64(loc.X), float64(loc.Y)}
			continue
		}
		if cell.HasBel {
			// Already weakly/placer-bound from a previous run: unbind so
			// this pass can re-place it.
			_ = p.ctx.UnbindBel(cell.Bel)
		}
		p.freeIndex[cell.Name] = len(p.free)
		p.free = append(p.free, cell.Name)
	}
	p.posX = make([]float64, len(p.free))
	p.posY = make([]float64, len(p.free))
}

// seedInitialPositions places every free cell at the device centre,
// jittered deterministically so the initial system is not perfectly
// degenerate.
func (p *Placer) seedInitialPositions() {
	cx := float64(p.ctx.Arch.GridDimX()) / 2
	cy := float64(p.ctx.Arch.GridDimY()) / 2
	rng := p.ctx.Rng()
	for i := range p.free {
		p.posX[i] = cx + float64(rng.Intn(5)-2)
		p.posY[i] = cy + float64(rng.Intn(5)-2)
	}
}

func (p *Placer) position(cell idstring.ID) (pos [2]float64, isFree bool) {
	if idx, ok := p.freeIndex[cell]; ok {
		return [2]float64{p.posX[idx], p.posY[idx]}, true
	}
	if fp, ok := p.fixedPos[cell]; ok {
		return fp, false
	}
	return [2]float64{}, false
}

// netCells returns every cell participating in net (driver + users),
// deduplicated, sorted by name.
func netCells(net *netlist.NetInfo) []idstring.ID {
	seen := map[idstring.ID]bool{}
	var out []idstring.ID
	if net.Driver.Valid() && !seen[net.Driver.Cell] {
		seen[net.Driver.Cell] = true
		out = append(out, net.Driver.Cell)
	}
	for _, u := range net.Users {
		if !seen[u.Port.Cell] {
			seen[u.Port.Cell] = true
			out = append(out, u.Port.Cell)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// sparseSystem is a simple sparse SPD system Ax = rhs, built per axis.
type sparseSystem struct {
	n    int
	diag []float64
	off  []map[int]float64 // row -> col -> weight, symmetric (mirrored on insert)
	rhs  []float64
}

func newSparseSystem(n int) *sparseSystem {
	s := &sparseSystem{n: n, diag: make([]float64, n), rhs: make([]float64, n), off: make([]map[int]float64, n)}
	for i := range s.off {
		s.off[i] = map[int]float64{}
	}
	return s
}

func (s *sparseSystem) addEdge(i, j int, w float64) {
	if i == j {
		s.diag[i] += 2 * w
		return
	}
	s.diag[i] += w
	s.diag[j] += w
	s.off[i][j] += -w
	s.off[j][i] += -w
}

func (s *sparseSystem) addAnchor(i int, w, target float64) {
	s.diag[i] += w
	s.rhs[i] += w * target
}

// multiply computes A*x into out.
func (s *sparseSystem) multiply(x, out []float64) {
	for i := 0; i < s.n; i++ {
		v := s.diag[i] * x[i]
		for j, w := range s.off[i] {
			v += w * x[j]
		}
		out[i] = v
	}
}

// solveCG solves Ax = rhs with Jacobi-preconditioned conjugate
// gradient, ample for systems this well conditioned.
func (s *sparseSystem) solveCG(x0 []float64, maxIter int, tol float64) []float64 {
	n := s.n
	x := make([]float64, n)
	copy(x, x0)

	r := make([]float64, n)
	ax := make([]float64, n)
	s.multiply(x, ax)
	for i := range r {
		r[i] = s.rhs[i] - ax[i]
	}

	precond := func(v []float64) []float64 {
		z := make([]float64, n)
		for i := range v {
			d := s.diag[i]
			if d == 0 {
				d = 1
			}
			z[i] = v[i] / d
		}
		return z
	}

	z := precond(r)
	p := make([]float64, n)
	copy(p, z)
	rz := dot(r, z)

	for iter := 0; iter < maxIter; iter++ {
		s.multiply(p, ax)
		denom := dot(p, ax)
		if denom == 0 {
			break
		}
		alpha := rz / denom
		for i := 0; i < n; i++ {
			x[i] += alpha * p[i]
			r[i] -= alpha * ax[i]
		}
		if norm(r) < tol {
			break
		}
		z = precond(r)
		rzNew := dot(r, z)
		if rz == 0 {
			break
		}
		beta := rzNew / rz
		for i := 0; i < n; i++ {
			p[i] = z[i] + beta*p[i]
		}
		rz = rzNew
	}
	return x
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func norm(a []float64) float64 {
	return math.Sqrt(dot(a, a))
}

// solveAxis builds and solves the bound2bound system for one axis (0=X,
// 1=Y) and writes the result back into p.posX/p.posY.
func (p *Placer) solveAxis(axis int) {
	n := len(p.free)
	sys := newSparseSystem(n)

	for _, net := range p.ctx.Nets.Sorted() {
		cells := netCells(net)
		if len(cells) < 2 {
			continue
		}
		type pinPos struct {
			cell idstring.ID
			pos  float64
		}
		pins := make([]pinPos, 0, len(cells))
		for _, c := range cells {
			pos, _ := p.position(c)
			pins = append(pins, pinPos{cell: c, pos: pos[axis]})
		}
		sort.Slice(pins, func(i, j int) bool { return pins[i].pos < pins[j].pos })
		lo, hi := pins[0], pins[len(pins)-1]
		span := hi.pos - lo.pos
		if span < 0.001 {
			span = 0.001
		}
		k := float64(len(pins))
		weight := p.timingWeight(net) / (k * span)

		connect := func(a, b pinPos) {
			if a.cell == b.cell {
				return
			}
			ia, aIsFree := p.freeIndex[a.cell]
			ib, bIsFree := p.freeIndex[b.cell]
			switch {
			case aIsFree && bIsFree:
				sys.addEdge(ia, ib, weight)
			case aIsFree && !bIsFree:
				sys.addAnchor(ia, weight, b.pos)
			case !aIsFree && bIsFree:
				sys.addAnchor(ib, weight, a.pos)
			}
		}
		for _, mid := range pins[1 : len(pins)-1] {
			connect(lo, mid)
			connect(hi, mid)
		}
		connect(lo, hi)
	}

	var x0 []float64
	if axis == 0 {
		x0 = p.posX
	} else {
		x0 = p.posY
	}
	solved := sys.solveCG(x0, 2*n+10, 1e-6)
	if axis == 0 {
		p.posX = solved
	} else {
		p.posY = solved
	}
}

// timingWeight applies the (1+lambda*crit)^gamma multiplier when
// timing-driven placement is enabled.
func (p *Placer) timingWeight(net *netlist.NetInfo) float64 {
	if !p.opts.TimingDriven || p.opts.Criticality == nil {
		return 1
	}
	var worst float64
	for _, u := range net.Users {
		if c := p.opts.Criticality(u.Port); c > worst {
			worst = c
		}
	}
	return math.Pow(1+p.opts.CritLambda*worst, p.opts.CritExponent)
}

// totalHPWL is the plain (non-timing-weighted) half-perimeter wirelength
// across every net, used as the convergence signal.
func (p *Placer) totalHPWL() float64 {
	var total float64
	for _, net := range p.ctx.Nets.Sorted() {
		cells := netCells(net)
		if len(cells) == 0 {
			continue
		}
		minX, maxX := math.Inf(1), math.Inf(-1)
		minY, maxY := math.Inf(1), math.Inf(-1)
		for _, c := range cells {
			pos, _ := p.position(c)
			if pos[0] < minX {
				minX = pos[0]
			}
			if pos[0] > maxX {
				maxX = pos[0]
			}
			if pos[1] < minY {
				minY = pos[1]
			}
			if pos[1] > maxY {
				maxY = pos[1]
			}
		}
		total += (maxX - minX) + (maxY - minY)
	}
	return total
}

// resolveBelType finds one bel type in the device compatible with
// cellType, caching the result. Architectures are assumed to map each
// cell type to exactly one bel type.
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

// legalise performs recursive-bisection legalisation: cells are
// grouped by required bel type, then each group is
// bisected alternately on X/Y, balancing cell demand against bel supply,
// until a region holds a single bel or a single cell, whose cells are
// then snapped to the nearest unused bels of that region.
func (p *Placer) legalise() (map[idstring.ID]arch.BelId, error) {
	groups := map[idstring.ID][]idstring.ID{}
	for _, cellName := range p.free {
		cell, ok := p.ctx.Cells.Get(cellName)
		if !ok {
			continue
		}
		belType, ok := p.resolveBelType(cell.Type)
		if !ok {
			return nil, pnrerror.NewInternalInconsistency(p.ctx.Checksum(),
				"heap: no bel type compatible with cell %s (type %s)", p.ctx.Str(cell.Name), p.ctx.Str(cell.Type))
		}
		groups[belType] = append(groups[belType], cellName)
	}

	assignment := map[idstring.ID]arch.BelId{}
	belTypes := make([]idstring.ID, 0, len(groups))
	for t := range groups {
		belTypes = append(belTypes, t)
	}
	sort.Slice(belTypes, func(i, j int) bool { return belTypes[i] < belTypes[j] })

	for _, belType := range belTypes {
		cells := groups[belType]
		var bels []arch.BelId
		for _, b := range p.ctx.Arch.Bels() {
			if p.ctx.Arch.BelType(b) == belType && p.ctx.CheckBelAvail(b) {
				bels = append(bels, b)
			}
		}
		sort.Slice(cells, func(i, j int) bool { return cells[i] < cells[j] })
		p.bisect(cells, bels, 0, assignment)
	}
	return assignment, nil
}

func (p *Placer) bisect(cells []idstring.ID, bels []arch.BelId, axis int, out map[idstring.ID]arch.BelId) {
	if len(cells) == 0 || len(bels) == 0 {
		return
	}
	if len(bels) == 1 || len(cells) == 1 {
		// Snap: assign the nearest unused bel(s) to the remaining cells.
		remaining := append([]arch.BelId{}, bels...)
		for _, c := range cells {
			if len(remaining) == 0 {
				break
			}
			pos, _ := p.position(c)
			bestIdx, bestDist := 0, math.Inf(1)
			for i, b := range remaining {
				loc := p.ctx.Arch.BelLocation(b)
				d := math.Abs(pos[0]-float64(loc.X)) + math.Abs(pos[1]-float64(loc.Y))
				if d < bestDist {
					bestDist, bestIdx = d, i
				}
			}
			out[c] = remaining[bestIdx]
			remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		}
		return
	}

	sort.Slice(cells, func(i, j int) bool {
		pi, _ := p.position(cells[i])
		pj, _ := p.position(cells[j])
		return pi[axis] < pj[axis]
	})
	sort.Slice(bels, func(i, j int) bool {
		li, lj := p.ctx.Arch.BelLocation(bels[i]), p.ctx.Arch.BelLocation(bels[j])
		if axis == 0 {
			return li.X < lj.X
		}
		return li.Y < lj.Y
	})

	cellSplit := len(cells) / 2
	belSplit := int(float64(len(bels)) * float64(cellSplit) / float64(len(cells)))
	if belSplit < 1 {
		belSplit = 1
	}
	if belSplit > len(bels)-1 {
		belSplit = len(bels) - 1
	}
	nextAxis := 1 - axis
	p.bisect(cells[:cellSplit], bels[:belSplit], nextAxis, out)
	p.bisect(cells[cellSplit:], bels[belSplit:], nextAxis, out)
}

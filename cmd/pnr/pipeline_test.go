package main

import (
	"bytes"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/YosysHQ/nextpnr-sub004/arch"
	"github.com/YosysHQ/nextpnr-sub004/idstring"
	"github.com/YosysHQ/nextpnr-sub004/pnrctx"
	"github.com/YosysHQ/nextpnr-sub004/pnrerror"
	"github.com/YosysHQ/nextpnr-sub004/project"
	"github.com/YosysHQ/nextpnr-sub004/testarch"
)

func TestCmdPnr(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "cmd/pnr Suite")
}

// writeUnplacedProject saves a small unplaced/unrouted inverter chain, the
// shape --load expects to hand off to pack/place/route.
func writeUnplacedProject(path string) {
	tbl := idstring.NewTable()
	d := testarch.NewBuilder(tbl).WithWidth(4).WithHeight(4).Build("t0")
	registerDemoCellTypes(d)
	ctx := pnrctx.New(d, tbl)

	ctx.CreateCell("ibuf0", "IBUF")
	ctx.CreateCell("inv0", "LUT4")
	ctx.CreateCell("obuf0", "OBUF")
	ctx.CreateNet("n_in")
	ctx.CreateNet("n_out")
	Expect(ctx.ConnectPort(ctx.ID("ibuf0"), ctx.ID("O"), arch.DirOut, ctx.ID("n_in"))).To(Succeed())
	Expect(ctx.ConnectPort(ctx.ID("inv0"), ctx.ID("I0"), arch.DirIn, ctx.ID("n_in"))).To(Succeed())
	Expect(ctx.ConnectPort(ctx.ID("inv0"), ctx.ID("O"), arch.DirOut, ctx.ID("n_out"))).To(Succeed())
	Expect(ctx.ConnectPort(ctx.ID("obuf0"), ctx.ID("I"), arch.DirIn, ctx.ID("n_out"))).To(Succeed())

	chipArgs := map[string]string{"family": "testarch", "width": "4", "height": "4"}
	Expect(project.SaveFile(ctx, chipArgs, path)).To(Succeed())
}

var _ = Describe("runArchCheck", func() {
	It("reports success against a synthetic device", func() {
		var out bytes.Buffer
		Expect(runArchCheck(&out, 1)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("archcheck: OK"))
	})
})

var _ = Describe("runPipeline", func() {
	It("places, routes, and saves an unplaced project end to end", func() {
		dir := GinkgoT().TempDir()
		loadPath := filepath.Join(dir, "in.yaml")
		savePath := filepath.Join(dir, "out.yaml")
		writeUnplacedProject(loadPath)

		f := &cliFlags{load: loadPath, save: savePath}
		errs := &pnrerror.Counter{}
		var out bytes.Buffer

		Expect(runPipeline(&out, f, 1, errs)).To(Succeed())
		Expect(errs.ExitCode()).To(Equal(0))

		doc, err := project.ReadFile(savePath)
		Expect(err).NotTo(HaveOccurred())
		foundRouted := false
		for _, n := range doc.Nets {
			if len(n.Wires) > 0 {
				foundRouted = true
			}
		}
		Expect(foundRouted).To(BeTrue(), "saved project should contain routed wires")
	})

	It("rejects a missing --load with a CommandError", func() {
		f := &cliFlags{}
		errs := &pnrerror.Counter{}
		var out bytes.Buffer

		err := runPipeline(&out, f, 1, errs)
		Expect(err).To(BeAssignableToTypeOf(&pnrerror.CommandError{}))
	})
})

var _ = Describe("applyFlagSettings / defaultPeriodPS", func() {
	It("derives the clock period from --freq in MHz", func() {
		tbl := idstring.NewTable()
		d := testarch.NewBuilder(tbl).WithWidth(1).WithHeight(1).Build("t0")
		ctx := pnrctx.New(d, tbl)

		f := &cliFlags{freqMHz: 200}
		applyFlagSettings(ctx, f)

		period := defaultPeriodPS(ctx, f.freqMHz)
		Expect(period).To(Equal(int64(5000)))
	})

	It("falls back to a 100MHz assumption when unconstrained", func() {
		tbl := idstring.NewTable()
		d := testarch.NewBuilder(tbl).WithWidth(1).WithHeight(1).Build("t0")
		ctx := pnrctx.New(d, tbl)

		period := defaultPeriodPS(ctx, 0)
		Expect(period).To(Equal(pnrctx.DelayFromNs(10)))
	})
})


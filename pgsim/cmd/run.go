package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/lpwr/sim"
	"github.com/sarchlab/lpwr/simulation"
)

type runOptions struct {
	ctrls         string
	durationMs    uint64
	seed          int64
	busyUs        uint64
	idleUs        uint64
	thresholdUs   uint64
	swWakeRate    float64
	snapFaultRate float64
	seqFaultRate  float64
	clientUs      uint64
	recoveryUs    uint64
	monitor       bool
	monitorPort   int
	open          bool
	wait          bool
	db            string
	noDB          bool
	uniqueIDs     bool
	logEvents     bool
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation and print the gating statistics.",
	Long: "`run --ctrls GR:gc6,NVD:ei:5` runs a chip with a GC6 graphics " +
		"controller and an engine-idle video controller that wakes up every " +
		"5 ms.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, runOpts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.StringVar(&runOpts.ctrls, "ctrls", "GR:gc6,NVD:ei,NVENC:ei,MS:psi",
		"Controllers as name:kind[:autoWakeupMs], separated by commas.")
	f.Uint64Var(&runOpts.durationMs, "duration-ms", 10,
		"Simulated time with traffic, in ms.")
	f.Int64Var(&runOpts.seed, "seed", 1, "Seed of the random sources.")
	f.Uint64Var(&runOpts.busyUs, "busy-us", 50, "Mean busy period, in µs.")
	f.Uint64Var(&runOpts.idleUs, "idle-us", 300, "Mean idle period, in µs.")
	f.Uint64Var(&runOpts.thresholdUs, "threshold-us", 20,
		"Initial idle threshold, in µs.")
	f.Float64Var(&runOpts.swWakeRate, "sw-wake-rate", 0.2,
		"Share of gated arrivals also announced by software.")
	f.Float64Var(&runOpts.snapFaultRate, "snap-fault-rate", 0,
		"Share of gated arrivals that raise a faulty idle-snap.")
	f.Float64Var(&runOpts.seqFaultRate, "seq-fault-rate", 0,
		"Failure rate of the sequencer steps.")
	f.Uint64Var(&runOpts.clientUs, "client-period-us", 0,
		"Period of the perf client, in µs. 0 disables it.")
	f.Uint64Var(&runOpts.recoveryUs, "fault-recovery-us", 1000,
		"Time before an idle-snap fault is cleared, in µs. 0 never clears.")
	f.BoolVar(&runOpts.monitor, "monitor", false, "Start the monitor.")
	f.IntVar(&runOpts.monitorPort, "monitor-port", 0,
		"Port of the monitor. 0 picks a random port.")
	f.BoolVar(&runOpts.open, "open", false, "Open the monitor in a browser.")
	f.BoolVar(&runOpts.wait, "wait", false,
		"Keep the monitor running after the simulation until interrupted.")
	f.StringVar(&runOpts.db, "db", "",
		"Name of the database, without extension. Empty picks a unique name.")
	f.BoolVar(&runOpts.noDB, "no-db", false, "Do not record the run.")
	f.BoolVar(&runOpts.uniqueIDs, "unique-ids", false,
		"Use globally unique event IDs.")
	f.BoolVar(&runOpts.logEvents, "log-events", false,
		"Print every event. Requires -v.")
}

func buildSimulation(opts runOptions) (*simulation.Simulation, error) {
	ctrls, err := simulation.ParseCtrlSpecs(opts.ctrls)
	if err != nil {
		return nil, err
	}

	if opts.open && !opts.monitor {
		return nil, fmt.Errorf("--open requires --monitor")
	}

	b := simulation.MakeBuilder().
		WithCtrls(ctrls).
		WithDuration(sim.Milliseconds(opts.durationMs)).
		WithSeed(opts.seed).
		WithTraffic(sim.Microseconds(opts.busyUs), sim.Microseconds(opts.idleUs)).
		WithIdleThresholdUs(opts.thresholdUs).
		WithSWWakeRate(opts.swWakeRate).
		WithSnapFaultRate(opts.snapFaultRate).
		WithSequencerFaultRate(opts.seqFaultRate).
		WithClientPeriod(sim.Microseconds(opts.clientUs)).
		WithFaultRecovery(sim.Microseconds(opts.recoveryUs)).
		WithLogger(newLogger())

	if opts.logEvents {
		b = b.WithEventLogging()
	}

	if opts.monitor {
		b = b.WithMonitorPort(opts.monitorPort)
	} else {
		b = b.WithoutMonitoring()
	}

	if opts.noDB {
		b = b.WithoutRecording()
	} else {
		b = b.WithOutputFileName(opts.db)
	}

	return b.Build(), nil
}

func run(cmd *cobra.Command, opts runOptions) error {
	if opts.uniqueIDs {
		sim.UseUniqueIDGenerator()
	}

	s, err := buildSimulation(opts)
	if err != nil {
		return err
	}
	defer s.Terminate()

	if opts.open {
		url := fmt.Sprintf("http://localhost:%d/api/ctrls", s.MonitorPort())
		if err := browser.OpenURL(url); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open %s: %v\n", url, err)
		}
	}

	report, err := s.Run()
	if err != nil {
		return err
	}

	report.Print(cmd.OutOrStdout())

	if opts.monitor && opts.wait {
		fmt.Fprintln(os.Stderr, "Simulation done. Press Ctrl-C to exit.")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		<-ctx.Done()
	}

	return nil
}

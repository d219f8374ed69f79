package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/dsmath/internal/automation"
	"github.com/san-kum/dsmath/internal/compiler"
	"github.com/san-kum/dsmath/internal/config"
	"github.com/san-kum/dsmath/internal/deriv"
	"github.com/san-kum/dsmath/internal/experiment"
	"github.com/san-kum/dsmath/internal/export"
	"github.com/san-kum/dsmath/internal/finitediff"
	"github.com/san-kum/dsmath/internal/logging"
	"github.com/san-kum/dsmath/internal/metrics"
	"github.com/san-kum/dsmath/internal/optim"
	"github.com/san-kum/dsmath/internal/storage"
	"github.com/san-kum/dsmath/internal/sweep"
	"github.com/san-kum/dsmath/internal/tui"
	"github.com/san-kum/dsmath/internal/viz"
)

var (
	dataDir     string
	verbose     bool
	showMetrics bool
	// Layout
	parameters  int
	order       int
	layoutOrder int
	tuneOrder   int
	// Finite differences
	points int
	step   float64
	// Sweep range
	from    float64
	to      float64
	by      float64
	workers int
	// Config file
	configFile string
	// Preset name
	preset string
	// Output
	format    string
	output    string
	save      bool
	plotOrder int
	runOrder  int
	series    bool
	svgFile   string
	// Tuning grid
	pointsList []int
	minStep    float64
	maxStep    float64
	numSteps   int
)

// app holds the state shared by every command of one invocation.
type app struct {
	log       *slog.Logger
	metrics   *metrics.Collector
	compilers *compiler.Registry
	functions *experiment.Registry
}

var cli *app

func main() {
	rootCmd := &cobra.Command{
		Use:          "dsmath",
		Short:        "automatic and finite differences derivatives lab",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			collector := metrics.New()
			cli = &app{
				log:       logging.Setup(verbose),
				metrics:   collector,
				compilers: compiler.NewRegistry(compiler.WithBuildHook(collector.BuildHook())),
				functions: experiment.NewRegistry(),
			}
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			stats := cli.compilers.Stats()
			cli.log.Debug("compiler registry", "lookups", stats.Lookups, "built", stats.Built)
			if !showMetrics {
				return nil
			}
			fmt.Println()
			return cli.metrics.Dump(os.Stdout)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".dsmath", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&showMetrics, "metrics", false, "print collected metrics on exit")

	sizesCmd := &cobra.Command{
		Use:   "sizes",
		Short: "print the number of coefficients per (parameters, order)",
		Args:  cobra.NoArgs,
		RunE:  printSizes,
	}
	sizesCmd.Flags().IntVarP(&parameters, "parameters", "p", 3, "free parameters")
	sizesCmd.Flags().IntVarP(&layoutOrder, "order", "o", 3, "derivation order")

	indicesCmd := &cobra.Command{
		Use:   "indices [parameters] [order]",
		Short: "print the multi-index stored at every offset",
		Args:  cobra.ExactArgs(2),
		RunE:  printIndices,
	}

	evalCmd := &cobra.Command{
		Use:   "eval [function] [x]",
		Short: "evaluate the exact derivatives of a reference function",
		Args:  cobra.ExactArgs(2),
		RunE:  evalFunction,
	}
	evalCmd.Flags().IntVarP(&layoutOrder, "order", "o", 3, "derivation order")
	evalCmd.Flags().StringVar(&format, "format", "table", "output format (table, json, yaml)")

	compareCmd := &cobra.Command{
		Use:   "compare [function] [x]",
		Short: "compare finite differences with exact derivatives at one point",
		Args:  cobra.ExactArgs(2),
		RunE:  compareAt,
	}
	compareCmd.Flags().IntVarP(&order, "order", "o", config.DefaultOrder, "derivation order")
	compareCmd.Flags().IntVar(&points, "points", config.DefaultPoints, "sample points")
	compareCmd.Flags().Float64Var(&step, "step", config.DefaultStep, "distance between sample points")

	sweepCmd := &cobra.Command{
		Use:   "sweep [function]",
		Short: "measure finite differences errors over a range",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().IntVarP(&order, "order", "o", config.DefaultOrder, "derivation order")
	sweepCmd.Flags().IntVar(&points, "points", config.DefaultPoints, "sample points")
	sweepCmd.Flags().Float64Var(&step, "step", config.DefaultStep, "distance between sample points")
	sweepCmd.Flags().Float64Var(&from, "from", config.DefaultRangeFrom, "first abscissa")
	sweepCmd.Flags().Float64Var(&to, "to", config.DefaultRangeTo, "end of the abscissa range (excluded)")
	sweepCmd.Flags().Float64Var(&by, "by", config.DefaultRangeStep, "distance between abscissas")
	sweepCmd.Flags().IntVar(&workers, "workers", config.DefaultWorkers, "parallel workers")
	sweepCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	sweepCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	sweepCmd.Flags().BoolVar(&save, "save", false, "store the run")
	sweepCmd.Flags().IntVar(&plotOrder, "plot", -1, "plot the errors of this derivation order")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
	listCmd.Flags().StringVar(&output, "output", config.DefaultOutput, "runs directory under the data directory")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the errors of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVarP(&runOrder, "order", "o", 1, "derivation order")
	plotCmd.Flags().StringVar(&output, "output", config.DefaultOutput, "runs directory under the data directory")
	plotCmd.Flags().BoolVar(&series, "series", false, "plot exact and approximated values instead of errors")
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "also write the errors of every order to this svg file")

	presetsCmd := &cobra.Command{
		Use:   "presets [function]",
		Short: "list available presets for a function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for function: %s\n", args[0])
				return nil
			}
			rows := make([][]string, 0, len(presets))
			for _, name := range presets {
				p := config.GetPreset(args[0], name)
				rows = append(rows, []string{
					name,
					strconv.Itoa(p.Points),
					formatFloat(p.Step),
					strconv.Itoa(p.Order),
					fmt.Sprintf("[%g, %g) by %g", p.Range.From, p.Range.To, p.Range.Step),
				})
			}
			fmt.Println(viz.Table([]string{"PRESET", "POINTS", "STEP", "ORDER", "RANGE"}, rows))
			return nil
		},
	}

	functionsCmd := &cobra.Command{
		Use:   "functions",
		Short: "list reference functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows [][]string
			for _, name := range cli.functions.ListFunctions() {
				f, err := cli.functions.GetFunction(name)
				if err != nil {
					return err
				}
				rows = append(rows, []string{name, f.Description, fmt.Sprintf("[%g, %g]", f.Domain[0], f.Domain[1])})
			}
			fmt.Println(viz.Table([]string{"NAME", "DEFINITION", "DOMAIN"}, rows))
			return nil
		},
	}

	tuneCmd := &cobra.Command{
		Use:   "tune [function]",
		Short: "search the points and step minimizing the error of one derivative",
		Args:  cobra.ExactArgs(1),
		RunE:  tune,
	}
	tuneCmd.Flags().IntVarP(&tuneOrder, "order", "o", 1, "derivation order to minimize")
	tuneCmd.Flags().IntSliceVar(&pointsList, "points", []int{3, 5, 7, 9}, "candidate sample points")
	tuneCmd.Flags().Float64Var(&minStep, "min-step", 1e-6, "smallest candidate step")
	tuneCmd.Flags().Float64Var(&maxStep, "max-step", 1, "largest candidate step")
	tuneCmd.Flags().IntVar(&numSteps, "steps", 13, "candidate steps, geometrically spaced")
	tuneCmd.Flags().IntVar(&workers, "workers", config.DefaultWorkers, "parallel workers")

	runCmd := &cobra.Command{
		Use:   "run [scenario.yaml]",
		Short: "run a scripted sequence of sweeps",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	runCmd.Flags().BoolVar(&save, "save", false, "store every run")

	exploreCmd := &cobra.Command{
		Use:   "explore",
		Short: "interactive finite differences explorer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.Run(cli.functions, cli.compilers)
		},
	}

	rootCmd.AddCommand(sizesCmd, indicesCmd, evalCmd, compareCmd, sweepCmd, listCmd, plotCmd, presetsCmd, functionsCmd, tuneCmd, runCmd, exploreCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}

func parseFloatArg(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return v, nil
}

func printSizes(cmd *cobra.Command, args []string) error {
	c, err := cli.compilers.Compiler(parameters, layoutOrder)
	if err != nil {
		return err
	}

	headers := []string{"PARAMS"}
	for o := 0; o <= layoutOrder; o++ {
		headers = append(headers, fmt.Sprintf("o=%d", o))
	}
	var rows [][]string
	for p, row := range c.Sizes() {
		cells := []string{strconv.Itoa(p)}
		for _, size := range row {
			cells = append(cells, strconv.Itoa(size))
		}
		rows = append(rows, cells)
	}

	fmt.Println(viz.Title.Render(fmt.Sprintf("coefficients up to %d parameters and order %d", parameters, layoutOrder)))
	fmt.Println(viz.Table(headers, rows))
	return nil
}

func printIndices(cmd *cobra.Command, args []string) error {
	p, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid parameters %q: %w", args[0], err)
	}
	o, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid order %q: %w", args[1], err)
	}

	c, err := cli.compilers.Compiler(p, o)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, c.Size())
	for i := range c.Size() {
		orders, err := c.PartialDerivativeOrders(i)
		if err != nil {
			return err
		}
		total := 0
		parts := make([]string, len(orders))
		for k, n := range orders {
			parts[k] = strconv.Itoa(n)
			total += n
		}
		rows = append(rows, []string{strconv.Itoa(i), "(" + strings.Join(parts, ", ") + ")", strconv.Itoa(total)})
	}

	fmt.Println(viz.Table([]string{"OFFSET", "ORDERS", "TOTAL"}, rows))
	return nil
}

func evalFunction(cmd *cobra.Command, args []string) error {
	f, err := cli.functions.GetFunction(args[0])
	if err != nil {
		return err
	}
	x0, err := parseFloatArg("abscissa", args[1])
	if err != nil {
		return err
	}

	c, err := cli.compilers.Compiler(1, layoutOrder)
	if err != nil {
		return err
	}
	x, err := deriv.Variable(c, 0, x0)
	if err != nil {
		return err
	}
	y := f.Exact(x)

	if format != "table" {
		return storage.ExportTriples(os.Stdout, format, []deriv.Triple{y.Triple()})
	}

	rows := make([][]string, 0, layoutOrder+1)
	for n := 0; n <= layoutOrder; n++ {
		v, err := y.PartialDerivative(n)
		if err != nil {
			return err
		}
		rows = append(rows, []string{strconv.Itoa(n), formatFloat(v)})
	}
	fmt.Println(viz.Title.Render(fmt.Sprintf("%s at x = %g", f.Description, x0)))
	fmt.Println(viz.Table([]string{"ORDER", "DERIVATIVE"}, rows))
	return nil
}

func compareAt(cmd *cobra.Command, args []string) error {
	x0, err := parseFloatArg("abscissa", args[1])
	if err != nil {
		return err
	}

	e, err := experiment.New(cli.functions, cli.compilers, experiment.Config{
		Function: args[0],
		Points:   points,
		Step:     step,
		Order:    order,
	}, finitediff.WithObserver(cli.metrics))
	if err != nil {
		return err
	}

	cmp, err := e.At(x0)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(cmp.Exact))
	for n, errN := range cmp.Errors() {
		rows = append(rows, []string{
			strconv.Itoa(n),
			formatFloat(cmp.Exact[n]),
			formatFloat(cmp.Approx[n]),
			viz.ErrorStyle(errN).Render(fmt.Sprintf("%.3e", errN)),
		})
	}
	fmt.Println(viz.Title.Render(fmt.Sprintf("%s at x = %g, %d points, step %g", args[0], x0, points, step)))
	fmt.Println(viz.Table([]string{"ORDER", "EXACT", "FINITE DIFF", "ERROR"}, rows))
	return nil
}

// sweepConfig resolves the sweep settings: defaults, then preset, then
// config file, then explicitly set flags.
func sweepConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		if len(args) == 0 {
			return nil, fmt.Errorf("a preset needs a function name")
		}
		p := config.GetPreset(args[0], preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(args[0]))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if len(args) > 0 {
		cfg.Function = args[0]
	}
	flags := cmd.Flags()
	if flags.Changed("order") {
		cfg.Order = order
	}
	if flags.Changed("points") {
		cfg.Points = points
	}
	if flags.Changed("step") {
		cfg.Step = step
	}
	if flags.Changed("from") {
		cfg.Range.From = from
	}
	if flags.Changed("to") {
		cfg.Range.To = to
	}
	if flags.Changed("by") {
		cfg.Range.Step = by
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := sweepConfig(cmd, args)
	if err != nil {
		return err
	}

	e, err := experiment.New(cli.functions, cli.compilers, cfg.Experiment(), finitediff.WithObserver(cli.metrics))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli.log.Info("sweep started", "function", cfg.Function, "points", cfg.Points, "step", cfg.Step,
		"order", cfg.Order, "workers", cfg.Workers)
	start := time.Now()
	result, err := sweep.Run(ctx, e, cfg.Range, cfg.Workers)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	cli.metrics.ObserveSweep(cfg.Function, elapsed, result.MaxError)
	cli.log.Info("sweep done", "samples", len(result.Samples), "elapsed", elapsed.Round(time.Millisecond))

	rows := make([][]string, 0, len(result.MaxError))
	for n, maxErr := range result.MaxError {
		rows = append(rows, []string{
			strconv.Itoa(n),
			viz.ErrorStyle(maxErr).Render(fmt.Sprintf("%.3e", maxErr)),
			viz.Sparkline(viz.Log10Errors(result.Samples, n), 40),
		})
	}
	fmt.Println(viz.Title.Render(fmt.Sprintf("%s over [%g, %g), %d points, step %g",
		cfg.Function, cfg.Range.From, cfg.Range.To, cfg.Points, cfg.Step)))
	fmt.Println(viz.Table([]string{"ORDER", "MAX ERROR", "LOG10 ERROR ALONG X"}, rows))

	if plotOrder >= 0 {
		graph, err := viz.PlotErrors(result.Samples, plotOrder, 80, 12)
		if err != nil {
			return err
		}
		fmt.Println(graph)
	}

	if save {
		st := storage.New(filepath.Join(dataDir, cfg.Output), storage.WithLogger(cli.log))
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(cfg.Experiment(), cfg.Range, result)
		if err != nil {
			return err
		}
		fmt.Println(viz.Subtle.Render("saved run " + runID))
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(filepath.Join(dataDir, output), storage.WithLogger(cli.log))
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		worst := 0.0
		if len(run.MaxError) > 0 {
			worst = run.MaxError[len(run.MaxError)-1]
		}
		rows = append(rows, []string{
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			strconv.Itoa(run.Points),
			formatFloat(run.Step),
			strconv.Itoa(run.Order),
			strconv.Itoa(run.Samples),
			fmt.Sprintf("%.3e", worst),
		})
	}
	fmt.Println(viz.Table([]string{"ID", "TIME", "POINTS", "STEP", "ORDER", "SAMPLES", "MAX ERR (TOP ORDER)"}, rows))
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(filepath.Join(dataDir, output), storage.WithLogger(cli.log))
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("function: %s\n", meta.Function)
	fmt.Printf("samples: %d\n\n", len(samples))

	var graph string
	if series {
		graph, err = viz.PlotSeries(samples, runOrder, 80, 12)
	} else {
		graph, err = viz.PlotErrors(samples, runOrder, 80, 12)
	}
	if err != nil {
		return err
	}
	fmt.Println(graph)

	if svgFile != "" {
		svg, err := export.ErrorsToSVG(samples, 800, 400)
		if err != nil {
			return err
		}
		if err := os.WriteFile(svgFile, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Println(viz.Subtle.Render("wrote " + svgFile))
	}
	return nil
}

func tune(cmd *cobra.Command, args []string) error {
	f, err := cli.functions.GetFunction(args[0])
	if err != nil {
		return err
	}
	if minStep <= 0 || maxStep < minStep {
		return fmt.Errorf("invalid step bounds [%g, %g]", minStep, maxStep)
	}

	candidates := make([]float64, len(pointsList))
	for i, n := range pointsList {
		candidates[i] = float64(n)
	}
	g := optim.NewGridSearch([]string{"points", "step"}, [][]float64{candidates, optim.Geometric(minStep, maxStep, numSteps)})

	build := func(p map[string]float64) (*experiment.Experiment, error) {
		return experiment.New(cli.functions, cli.compilers, experiment.Config{
			Function: f.Name,
			Points:   int(p["points"]),
			Step:     p["step"],
			Order:    tuneOrder,
		}, finitediff.WithObserver(cli.metrics))
	}
	r := sweep.Range{From: f.Domain[0], To: f.Domain[1], Step: (f.Domain[1] - f.Domain[0]) / 100}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	best, all, err := g.Search(ctx, build, r, workers, tuneOrder)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(all))
	for _, c := range all {
		mark := ""
		if c.Params["points"] == best.Params["points"] && c.Params["step"] == best.Params["step"] {
			mark = "◀"
		}
		rows = append(rows, []string{
			strconv.Itoa(int(c.Params["points"])),
			fmt.Sprintf("%.3g", c.Params["step"]),
			viz.ErrorStyle(c.Error).Render(fmt.Sprintf("%.3e", c.Error)),
			mark,
		})
	}
	fmt.Println(viz.Title.Render(fmt.Sprintf("%s, derivative %d over [%g, %g)", f.Name, tuneOrder, r.From, r.To)))
	fmt.Println(viz.Table([]string{"POINTS", "STEP", "MAX ERROR", ""}, rows))
	fmt.Printf("best: %d points, step %.3g, max error %.3e\n", int(best.Params["points"]), best.Params["step"], best.Error)
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	results, err := automation.RunScenario(ctx, scenario, cli.functions, cli.compilers, cli.log,
		finitediff.WithObserver(cli.metrics))
	if err != nil {
		return err
	}
	cli.log.Info("scenario done", "name", scenario.Name, "steps", len(results),
		"elapsed", time.Since(start).Round(time.Millisecond))

	var rows [][]string
	for i, r := range results {
		cli.metrics.ObserveSweep(r.Config.Function, r.Elapsed, r.Result.MaxError)

		id := ""
		if save {
			st := storage.New(filepath.Join(dataDir, r.Config.Output), storage.WithLogger(cli.log))
			if err := st.Init(); err != nil {
				return err
			}
			id, err = st.Save(r.Config.Experiment(), r.Config.Range, r.Result)
			if err != nil {
				return err
			}
		}

		worst := r.Result.MaxError[len(r.Result.MaxError)-1]
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			r.Config.Function,
			strconv.Itoa(r.Config.Points),
			formatFloat(r.Config.Step),
			strconv.Itoa(r.Config.Order),
			viz.ErrorStyle(worst).Render(fmt.Sprintf("%.3e", worst)),
			r.SaveAs,
			id,
		})
	}

	fmt.Println(viz.Title.Render(scenario.Name))
	if scenario.Description != "" {
		fmt.Println(viz.Subtle.Render(scenario.Description))
	}
	fmt.Println(viz.Table([]string{"STEP", "FUNCTION", "POINTS", "STEP SIZE", "ORDER", "MAX ERR (TOP ORDER)", "LABEL", "RUN"}, rows))
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/ritzau/faultgraph/pkg/analysis"
	"github.com/ritzau/faultgraph/pkg/config"
	"github.com/ritzau/faultgraph/pkg/cycles"
	"github.com/ritzau/faultgraph/pkg/dsep"
	"github.com/ritzau/faultgraph/pkg/graph"
	"github.com/ritzau/faultgraph/pkg/logging"
	"github.com/ritzau/faultgraph/pkg/output"
	"github.com/ritzau/faultgraph/pkg/pubsub"
	"github.com/ritzau/faultgraph/pkg/telemetry"
	"github.com/ritzau/faultgraph/pkg/web"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const usage = `Usage: faultgraph <command> [flags]

Commands:
  diagnose --nominal FILE --degraded FILE   Rank root causes for a telemetry pair
  graph                                     Print the knowledge base structure
  paths NODE                                Print causal paths from NODE to root causes
  dsep --x X --z Z [--given a,b]            Check d-separation between two nodes
  validate                                  Check structural assumptions of the knowledge base
  serve                                     Start the HTTP API

Run 'faultgraph <command> --help' for flags.
`

// errUsage is returned for malformed command lines
var errUsage = errors.New("invalid usage")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds what every command needs
type app struct {
	cfg    *config.Config
	graph  *graph.CausalGraph
	out    io.Writer
	flags  *pflag.FlagSet
	ranker *analysis.Ranker
	dsep   *dsep.Analyzer
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(out, usage)
		if len(args) == 0 {
			return fmt.Errorf("%w: no command given", errUsage)
		}
		return nil
	}

	command := args[0]
	commands := map[string]func(*app) error{
		"diagnose": (*app).diagnose,
		"graph":    (*app).printGraph,
		"paths":    (*app).paths,
		"dsep":     (*app).dseparation,
		"validate": (*app).validate,
		"serve":    (*app).serve,
	}
	handler, ok := commands[command]
	if !ok {
		fmt.Fprint(out, usage)
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}

	flags := pflag.NewFlagSet("faultgraph "+command, pflag.ContinueOnError)
	flags.SetOutput(out)
	config.RegisterFlags(flags)
	switch command {
	case "diagnose":
		flags.String("nominal", "", "Nominal telemetry JSON file")
		flags.String("degraded", "", "Degraded telemetry JSON file")
	case "dsep":
		flags.String("x", "", "First node")
		flags.String("z", "", "Second node")
		flags.StringSlice("given", nil, "Conditioning set")
	}
	if err := flags.Parse(args[1:]); err != nil {
		return err
	}

	a, err := newApp(flags, out)
	if err != nil {
		return err
	}
	return handler(a)
}

func newApp(flags *pflag.FlagSet, out io.Writer) (*app, error) {
	cfg, err := config.Load(flags, config.DefaultFile)
	if err != nil {
		return nil, err
	}
	if err := setupLogging(cfg); err != nil {
		return nil, err
	}

	opts := []graph.Option{
		graph.WithMaxPaths(cfg.MaxPaths),
		graph.WithPathCacheSize(cfg.PathCacheSize),
	}
	var cg *graph.CausalGraph
	if cfg.Graph == "" {
		cg, err = graph.Default(opts...)
	} else {
		cg, err = graph.LoadFile(cfg.Graph, opts...)
	}
	if err != nil {
		return nil, err
	}

	loops := cycles.FindFeedbackLoops(cg)
	for _, loop := range loops {
		logging.Debug("knowledge base contains a feedback loop", "nodes", loop.Nodes)
	}
	logging.Debug("knowledge base loaded",
		"nodes", len(cg.Nodes()), "edges", len(cg.Edges()), "feedbackLoops", len(loops))

	return &app{
		cfg:   cfg,
		graph: cg,
		out:   out,
		flags: flags,
		ranker: analysis.NewRanker(cg,
			analysis.WithThreshold(cfg.DeviationThreshold),
			analysis.WithMaxDepth(cfg.MaxPathDepth)),
		dsep: dsep.New(cg, cfg.MaxPathDepth),
	}, nil
}

func setupLogging(cfg *config.Config) error {
	level, err := logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt)
	if err != nil {
		return err
	}
	if cfg.LogJSON {
		logging.SetJSONOutput(level)
	} else {
		logging.SetLevel(level)
	}
	return nil
}

func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) diagnose() error {
	nominalPath, _ := a.flags.GetString("nominal")
	degradedPath, _ := a.flags.GetString("degraded")
	if nominalPath == "" || degradedPath == "" {
		return fmt.Errorf("%w: diagnose needs --nominal and --degraded", errUsage)
	}

	nominal, err := telemetry.ReadFile(nominalPath)
	if err != nil {
		return err
	}
	degraded, err := telemetry.ReadFile(degradedPath)
	if err != nil {
		return err
	}

	anomalies, err := a.ranker.Detect(nominal, degraded)
	if err != nil {
		return err
	}
	hypotheses := a.ranker.AnalyzeAnomalies(anomalies)
	logging.Info("diagnosis complete", "anomalies", anomalies.Len(), "hypotheses", len(hypotheses))

	if a.cfg.JSON {
		return a.printJSON(hypotheses)
	}
	output.PrintDiagnosis(a.out, anomalies, hypotheses)
	return nil
}

func (a *app) printGraph() error {
	if a.cfg.JSON {
		return a.printJSON(a.graph.Snapshot())
	}
	output.PrintGraphStructure(a.out, a.graph)
	output.PrintFeedbackLoops(a.out, cycles.FindFeedbackLoops(a.graph))
	return nil
}

func (a *app) paths() error {
	if a.flags.NArg() != 1 {
		return fmt.Errorf("%w: paths needs exactly one node", errUsage)
	}
	node := a.flags.Arg(0)
	if !a.graph.HasNode(node) {
		return fmt.Errorf("%w: %s", graph.ErrUnknownNode, node)
	}

	paths := a.graph.PathsToRoot(node, a.cfg.MaxPathDepth)
	if a.cfg.JSON {
		return a.printJSON(paths)
	}
	output.PrintPaths(a.out, a.graph, node, paths)
	return nil
}

func (a *app) dseparation() error {
	x, _ := a.flags.GetString("x")
	z, _ := a.flags.GetString("z")
	given, _ := a.flags.GetStringSlice("given")
	if x == "" || z == "" {
		return fmt.Errorf("%w: dsep needs --x and --z", errUsage)
	}

	res, err := a.dsep.AreDSeparated(x, z, given)
	if err != nil {
		return err
	}
	if a.cfg.JSON {
		return a.printJSON(res)
	}
	output.PrintDSeparationReport(a.out, []dsep.AssumptionResult{{
		Assumption: dsep.Assumption{Name: "query", Description: x + " vs " + z, X: x, Z: z, Given: given},
		Result:     res,
	}})
	return nil
}

func (a *app) validate() error {
	results := a.dsep.ValidateAssumptions()
	if a.cfg.JSON {
		type entry struct {
			Name  string `json:"name"`
			Valid bool   `json:"valid"`
		}
		entries := make([]entry, 0, len(results))
		for _, r := range results {
			entries = append(entries, entry{Name: r.Name, Valid: r.Valid()})
		}
		if err := a.printJSON(entries); err != nil {
			return err
		}
	} else {
		output.PrintDSeparationReport(a.out, a.dsep.Check(dsep.ReportCases))
		output.PrintAssumptions(a.out, results)
		output.PrintFeedbackLoops(a.out, cycles.FindFeedbackLoops(a.graph))
	}

	if !dsep.AllValid(results) {
		return errors.New("causal assumptions failed validation")
	}
	return nil
}

func (a *app) serve() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	server := web.NewServer(a.graph, a.ranker, a.dsep,
		web.WithMaxDepth(a.cfg.MaxPathDepth),
		web.WithRegistry(reg))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(ctx, a.cfg.Port)
	})
	g.Go(func() error {
		return logDiagnoses(ctx, server.Publisher())
	})
	return g.Wait()
}

// logDiagnoses writes a log line for every diagnosis served until ctx is done
func logDiagnoses(ctx context.Context, publisher pubsub.Publisher) error {
	sub, err := publisher.Subscribe(ctx, pubsub.TopicDiagnoses)
	if err != nil {
		return fmt.Errorf("failed to subscribe to diagnoses: %w", err)
	}
	defer sub.Close()

	for event := range sub.Events() {
		var diag pubsub.DiagnosisEvent
		if err := json.Unmarshal(event.Data, &diag); err != nil {
			logging.Warn("malformed diagnosis event", "version", event.Version, "error", err)
			continue
		}
		top := ""
		if len(diag.Hypotheses) > 0 {
			top = diag.Hypotheses[0].Name
		}
		logging.Debug("diagnosis served", "id", diag.ID, "type", event.Type,
			"anomalies", len(diag.Anomalies), "top", top)
	}
	return nil
}

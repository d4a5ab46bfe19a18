package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/chrissnell/glacierfront/internal/app"
	"github.com/chrissnell/glacierfront/internal/constants"
	"github.com/chrissnell/glacierfront/internal/log"
	"github.com/chrissnell/glacierfront/internal/sweep"
	"github.com/chrissnell/glacierfront/pkg/ablation"
	"github.com/chrissnell/glacierfront/pkg/config"
)

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to configuration source:\n\t\t\t  YAML: config.yaml\n\t\t\t  SQLite: config.db")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	scenario := flag.String("scenario", "", "Evaluate the named scenario and print the frontal ablation rate")
	sweepName := flag.String("sweep", "", "Run the named sweep and print its summary")
	serve := flag.Bool("serve", false, "Run the REST server")
	verbose := flag.Bool("verbose", false, "Print and log every intermediate quantity of an evaluation")
	jsonOut := flag.Bool("json", false, "Print results as JSON")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("glacierfront %s\n", constants.Version)
		os.Exit(0)
	}

	// Verbose traces are logged at debug level
	if err := log.Init(*debug || *verbose); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *scenario == "" && *sweepName == "" && !*serve {
		fmt.Fprintln(os.Stderr, "nothing to do: pass -scenario, -sweep or -serve")
		flag.Usage()
		os.Exit(2)
	}

	cfgData, err := loadConfig(*cfgFile, *cfgBackend)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	application, err := app.New(cfgData, log.GetSugaredLogger())
	if err != nil {
		log.Errorf("Application error: %v", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if *scenario != "" {
		res, err := application.Evaluate(*scenario, *verbose)
		if err != nil {
			log.Errorf("Evaluation failed: %v", err)
			os.Exit(1)
		}
		if err := printResult(os.Stdout, *scenario, res, *jsonOut); err != nil {
			log.Errorf("Could not print result: %v", err)
			os.Exit(1)
		}
	}

	if *sweepName != "" {
		run, err := application.Sweep(ctx, *sweepName)
		if run != nil {
			if perr := printSweep(os.Stdout, run, *jsonOut); perr != nil {
				log.Errorf("Could not print sweep: %v", perr)
			}
		}
		if err != nil {
			log.Errorf("Sweep failed: %v", err)
			os.Exit(1)
		}
	}

	if *serve {
		if err := application.Serve(ctx); err != nil {
			log.Errorf("Application error: %v", err)
			os.Exit(1)
		}
	}
}

func loadConfig(cfgFile, cfgBackend string) (*config.ConfigData, error) {
	filename, _ := filepath.Abs(cfgFile)

	var provider config.ConfigProvider
	var err error

	switch cfgBackend {
	case "yaml":
		provider = config.NewYAMLProvider(filename)
	case "sqlite":
		provider, err = config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}
	defer provider.Close()

	cfgData, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config file. Did you pass the -config flag? Run with -h for help: %w", err)
	}

	return cfgData, nil
}

func printResult(w io.Writer, name string, res ablation.Result, asJSON bool) error {
	if asJSON {
		out := map[string]any{
			"scenario":    name,
			"rate":        jsonFloat(res.Rate),
			"dl_dt":       jsonFloat(res.DLDt),
			"numerator":   jsonFloat(res.Numerator),
			"denominator": jsonFloat(res.Denominator),
			"condition":   res.Condition,
		}
		if t := res.Trace; t != nil {
			out["trace"] = map[string]any{
				"h_terminus":   jsonFloat(t.HTerminus),
				"h_adjacent":   jsonFloat(t.HAdjacent),
				"hy_terminus":  jsonFloat(t.HyTerminus),
				"hy_adjacent":  jsonFloat(t.HyAdjacent),
				"u_terminus":   jsonFloat(t.UTerminus),
				"u_adjacent":   jsonFloat(t.UAdjacent),
				"dx":           jsonFloat(t.Dx),
				"dh_dx":        jsonFloat(t.DHDx),
				"dhy_dx":       jsonFloat(t.DHyDx),
				"du_dx":        jsonFloat(t.DUDx),
				"mass_balance": jsonFloat(t.MassBalance),
			}
		}
		return writeJSON(w, out)
	}

	fmt.Fprintf(w, "scenario:    %s\n", name)
	fmt.Fprintf(w, "rate:        %g m/yr\n", res.Rate)
	fmt.Fprintf(w, "dL/dt:       %g m/yr\n", res.DLDt)
	fmt.Fprintf(w, "numerator:   %g\n", res.Numerator)
	fmt.Fprintf(w, "denominator: %g\n", res.Denominator)
	fmt.Fprintf(w, "condition:   %s\n", res.Condition)

	if t := res.Trace; t != nil {
		fmt.Fprintf(w, "H  terminus/adjacent:  %g / %g m\n", t.HTerminus, t.HAdjacent)
		fmt.Fprintf(w, "Hy terminus/adjacent:  %g / %g m\n", t.HyTerminus, t.HyAdjacent)
		fmt.Fprintf(w, "U  terminus/adjacent:  %g / %g m/yr\n", t.UTerminus, t.UAdjacent)
		fmt.Fprintf(w, "dx: %g  dH/dx: %g  dHy/dx: %g  dU/dx: %g\n", t.Dx, t.DHDx, t.DHyDx, t.DUDx)
		fmt.Fprintf(w, "mass balance: %g\n", t.MassBalance)
	}
	return nil
}

func printSweep(w io.Writer, run *sweep.Run, asJSON bool) error {
	s := run.Summary

	if asJSON {
		points := make([]map[string]any, 0, len(run.Points))
		for _, p := range run.Points {
			pt := map[string]any{"index": p.Index, "value": p.Value}
			if p.Err != nil {
				pt["error"] = p.Err.Error()
			} else {
				pt["rate"] = jsonFloat(p.Result.Rate)
				pt["condition"] = p.Result.Condition
			}
			points = append(points, pt)
		}
		return writeJSON(w, map[string]any{
			"run_id":          run.ID.String(),
			"sweep":           run.Spec.Name,
			"parameter":       run.Spec.Parameter,
			"points":          points,
			"ill_conditioned": s.IllConditioned,
			"failed":          s.Failed,
			"mean_rate":       jsonFloat(s.MeanRate),
			"stddev_rate":     jsonFloat(s.StdDevRate),
			"sign_changes":    s.SignChanges,
		})
	}

	fmt.Fprintf(w, "sweep %s (%s over %s), run %s\n", run.Spec.Name, run.Spec.Parameter, run.Spec.Scenario, run.ID)
	for _, p := range run.Points {
		if p.Err != nil {
			fmt.Fprintf(w, "  %4d  %-14g  error: %v\n", p.Index, p.Value, p.Err)
			continue
		}
		fmt.Fprintf(w, "  %4d  %-14g  %-14g  %s\n", p.Index, p.Value, p.Result.Rate, p.Result.Condition)
	}
	fmt.Fprintf(w, "points %d, ill-conditioned %d, failed %d, sign changes %d\n",
		s.Points, s.IllConditioned, s.Failed, s.SignChanges)
	fmt.Fprintf(w, "rate mean %g, stddev %g, min %g, max %g\n", s.MeanRate, s.StdDevRate, s.MinRate, s.MaxRate)
	return nil
}

// jsonFloat drops values encoding/json cannot represent
func jsonFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

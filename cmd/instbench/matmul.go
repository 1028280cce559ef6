package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nersc/instbench/benchmark"
	"github.com/nersc/instbench/errors"
	"github.com/nersc/instbench/instrument"
	"github.com/nersc/instbench/math2/pstats"
	"github.com/nersc/instbench/matmul"
	"github.com/nersc/instbench/stats"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatDump  = "dump"
)

func newMatmulCmd(e *env) *cobra.Command {
	var (
		size, ientry, nitr int64
		format             string
		showStats          bool
		repeat             int
	)

	cmd := &cobra.Command{
		Use:   "matmul [language]",
		Short: "Run the matmul benchmark for c or cxx",
		Long: `Runs the instrumented matrix multiply for the given language (c or cxx,
case-insensitive) and prints one row per sample.  Without an argument the
language comes from the config file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case formatTable, formatJSON, formatDump:
			default:
				return errors.Newf("unknown format %q", format)
			}
			if repeat < 1 {
				return errors.Newf("--repeat must be positive, got %d", repeat)
			}

			req := e.cfg.Request()
			if len(args) == 1 {
				req.Language = args[0]
			}
			overrideInt64(cmd.Flags(), "size", &req.Size, size)
			overrideInt64(cmd.Flags(), "ientry", &req.IEntry, ientry)
			overrideInt64(cmd.Flags(), "nitr", &req.NItr, nitr)

			factory := stats.NewMemoryFactory()
			bench := matmul.NewBench(matmul.BenchParams{Stats: factory})
			d := benchmark.NewDispatcher(benchmark.DispatcherParams{
				C:           bench.ExecuteC,
				CXX:         bench.ExecuteCXX,
				Diagnostics: cmd.ErrOrStderr(),
				Logger:      &e.logger,
				Stats:       factory,
			})

			runs := make([]*instrument.RuntimeData, 0, repeat)
			for i := 0; i < repeat; i++ {
				data := d.Do(req)
				if data == nil {
					return errNoResult
				}
				runs = append(runs, data)
			}
			data := runs[len(runs)-1]
			e.logger.Info().
				Str("language", req.Language).
				Str("plan", matmul.PlanString(req.Size, req.IEntry)).
				Int64("entries", data.Entries()).
				Msg("matmul finished")

			out := cmd.OutOrStdout()
			var err error
			switch format {
			case formatTable:
				err = writeTable(out, data)
				if err == nil && repeat > 1 {
					err = writeTimingSummary(out, runs)
				}
			case formatJSON:
				err = writeJSON(out, data)
			case formatDump:
				spew.Fdump(out, data.Samples())
			}
			if err != nil {
				return err
			}
			if showStats {
				return writeStats(out, factory)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Int64Var(&size, "size", benchmark.DefaultSize, "matrix order")
	flags.Int64Var(&ientry, "ientry", benchmark.DefaultIEntry, "most instrumentation marks per multiply")
	flags.Int64Var(&nitr, "nitr", benchmark.DefaultNItr, "multiplies per sample")
	flags.StringVarP(&format, "format", "f", formatTable, "output format (table, json, dump)")
	flags.BoolVar(&showStats, "stats", false, "print the collected stats after the samples")
	flags.IntVar(&repeat, "repeat", 1, "run the benchmark this many times; the table format adds timing percentiles")
	return cmd
}

// Flags only override the config file when given explicitly.
func overrideInt64(fs *pflag.FlagSet, name string, dst *int64, v int64) {
	if fs.Changed(name) {
		*dst = v
	}
}

func writeTable(w io.Writer, data *instrument.RuntimeData) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "i\tinst_count\ttiming\tinst_per_sec\toverhead")
	for _, s := range data.Samples() {
		fmt.Fprintf(tw, "%d\t%d\t%.6g\t%.6g\t%.6g\n",
			s.Index, s.InstCount, s.Timing, s.InstPerSec, s.Overhead)
	}
	return tw.Flush()
}

var summaryPctls = []int{50, 90}

// Per-sample timing spread across runs.  Every run of a request has the
// same entries, so samples line up by index.
func writeTimingSummary(w io.Writer, runs []*instrument.RuntimeData) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "\ntiming over %d runs\n", len(runs))
	fmt.Fprintln(tw, "i\tmin\tp50\tp90\tmax")
	for i := int64(0); i < runs[0].Entries(); i++ {
		timings := make([]float64, len(runs))
		for r, data := range runs {
			timings[r] = data.Timing()[i]
		}
		ps, err := pstats.NewPStats(timings, summaryPctls)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%d\t%.6g\t%.6g\t%.6g\t%.6g\n",
			i, ps.Min, ps.P[50], ps.P[90], ps.Max)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, data *instrument.RuntimeData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func writeStats(w io.Writer, factory *stats.MemoryFactory) error {
	values := factory.Values()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "\nstat\tvalue")
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%g\n", k, values[k])
	}
	return tw.Flush()
}

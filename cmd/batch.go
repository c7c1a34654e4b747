package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/explain-cli/internal/store"
	"github.com/KaramelBytes/explain-cli/internal/utils"
)

var (
	batchFlags     mineFlags
	batchOutputDir string
	batchParallel  int
	batchQuiet     bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <files...>",
	Short: "Explain outliers in several CSV/TSV/XLSX files concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		c, err := requireConfig()
		if err != nil {
			return err
		}
		p, err := batchFlags.resolve(cmd, c)
		if err != nil {
			return err
		}

		limit := batchParallel
		if limit <= 0 {
			limit = runtime.NumCPU()
		}
		ids := make([]string, len(files))
		results := make([]*outcome, len(files))
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(limit)
		for i, path := range files {
			ids[i] = store.NewID()
			g.Go(func() error {
				log := logger.With(zap.String("run_id", ids[i]), zap.String("file", filepath.Base(path)))
				res, err := explainFile(ctx, log, path, p)
				if err != nil {
					return fmt.Errorf("%s: %w", filepath.Base(path), err)
				}
				results[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		total := len(files)
		for i, res := range results {
			if !batchQuiet {
				fmt.Fprintf(w, "[%d/%d] %s: %d outliers, %d itemsets\n", i+1, total, filepath.Base(res.path),
					res.explanation.NumOutliers(), res.explanation.Len())
			}
			out, err := render(res.snapshot, p.format)
			if err != nil {
				return err
			}
			if batchOutputDir != "" {
				target := filepath.Join(batchOutputDir, outputName(res.path, p.format, i, results))
				if err := utils.WriteOutput(target, out); err != nil {
					return err
				}
				if !batchQuiet {
					fmt.Fprintf(w, "✓ Wrote %s\n", target)
				}
			} else if !batchQuiet {
				fmt.Fprintln(w, string(out))
			}
			if batchFlags.save {
				if err := saveRun(c.RunsDir, ids[i], p, res); err != nil {
					return err
				}
				if !batchQuiet {
					fmt.Fprintf(w, "✓ Saved run %s\n", ids[i])
				}
			}
		}
		return nil
	},
}

// expandInputs resolves globs and literal paths into a sorted, de-duplicated file list.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

// outputName derives "<stem>.explain.<ext>", adding a numeric suffix when earlier inputs share
// the same stem (same base name in another directory, or another extension).
func outputName(path, format string, idx int, all []*outcome) string {
	ext := map[string]string{"table": "txt", "json": "json", "yaml": "yaml", "yml": "yaml"}[format]
	if ext == "" {
		ext = "md"
	}
	stem := func(p string) string { return strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)) }
	base := stem(path)
	dup := 0
	for j := 0; j < idx; j++ {
		if stem(all[j].path) == base {
			dup++
		}
	}
	if dup > 0 {
		base = fmt.Sprintf("%s__%d", base, dup+1)
	}
	return base + ".explain." + ext
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchFlags.register(batchCmd.Flags())
	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "", "write one explanation per input into this directory")
	batchCmd.Flags().IntVar(&batchParallel, "parallel", 0, "files processed at once (0 = number of CPUs)")
	batchCmd.Flags().BoolVar(&batchQuiet, "quiet", false, "suppress progress and non-essential output")
	_ = batchCmd.MarkFlagRequired("attrs")
}

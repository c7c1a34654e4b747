package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/explain-cli/internal/store"
	"github.com/KaramelBytes/explain-cli/internal/utils"
)

var (
	runFlags  mineFlags
	runOutput string
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Label outliers in a CSV/TSV/XLSX file and explain them",
	Example: `  explain run devices.csv --attrs location,version --metric usage
  explain run devices.csv -a location,version -m usage --percentile 2 --low --no-combinations
  explain run labeled.csv -a location,version --classifier label --predicate "==1" -f json -o out.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		p, err := runFlags.resolve(cmd, c)
		if err != nil {
			return err
		}
		id := store.NewID()
		log := logger.With(zap.String("run_id", id))

		res, err := explainFile(cmd.Context(), log, args[0], p)
		if err != nil {
			return err
		}
		out, err := render(res.snapshot, p.format)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if runOutput != "" {
			if err := utils.WriteOutput(runOutput, out); err != nil {
				return err
			}
			fmt.Fprintf(w, "✓ Wrote explanation to %s (%d itemsets)\n", runOutput, res.explanation.Len())
		} else {
			fmt.Fprint(w, string(out))
		}
		if res.explanation.NumOutliers() == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "⚠ No rows matched the outlier predicate")
		}
		if runFlags.save {
			if err := saveRun(c.RunsDir, id, p, res); err != nil {
				return err
			}
			fmt.Fprintf(w, "✓ Saved run %s\n", id)
		}
		return nil
	},
}

func saveRun(dir, id string, p *plan, res *outcome) error {
	s, err := store.Open(dir)
	if err != nil {
		return err
	}
	return s.Save(&store.Record{
		ID:         id,
		Source:     res.path,
		Metric:     p.metric,
		Classifier: p.classifier,
		Predicate:  p.predicate,
		Result:     res.snapshot,
	})
}

func init() {
	rootCmd.AddCommand(runCmd)
	runFlags.register(runCmd.Flags())
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "optional path to write the explanation")
	_ = runCmd.MarkFlagRequired("attrs")
}

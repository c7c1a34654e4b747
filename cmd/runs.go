package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/explain-cli/internal/store"
)

var runsShowFormat string

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List or show saved explanation runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		all, err := s.List()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(all) == 0 {
			fmt.Fprintln(w, "(no saved runs)")
			return nil
		}
		for _, r := range all {
			fmt.Fprintf(w, "- %s  %s  %s  outliers=%d itemsets=%d\n",
				r.ID[:min(len(r.ID), 8)], r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Result.Source,
				r.Result.NumOutliers, len(r.Result.Itemsets))
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved run by id or unique id prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		r, err := s.Load(args[0])
		if err != nil {
			return err
		}
		out, err := render(r.Result, runsShowFormat)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Run %s (%s, classifier %s)\n\n", r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Classifier)
		fmt.Fprint(w, string(out))
		return nil
	},
}

func openStore() (*store.Store, error) {
	c, err := requireConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(c.RunsDir)
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsShowCmd.Flags().StringVarP(&runsShowFormat, "format", "f", "markdown", "output format: markdown | table | json | yaml")
}

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/explain-cli/internal/classify"
	cfgpkg "github.com/KaramelBytes/explain-cli/internal/config"
	"github.com/KaramelBytes/explain-cli/internal/dataframe"
	"github.com/KaramelBytes/explain-cli/internal/summary"
	"github.com/KaramelBytes/explain-cli/internal/utils"
)

// mineFlags are the loading, labeling and mining flags shared by run and batch.
type mineFlags struct {
	attrs       []string
	columnTypes []string
	metric      string
	classifier  string
	percentile  float64
	low         bool
	high        bool
	madThr      float64
	labelColumn string
	predicate   string
	minSupport  float64
	minRR       float64
	noCombos    bool
	maxOrder    int
	workers     int
	format      string
	save        bool
	sheetName   string
	sheetIndex  int
	delimiter   string
	decimal     string
	thousands   string
	maxRows     int
}

func (f *mineFlags) register(fs *pflag.FlagSet) {
	fs.StringSliceVarP(&f.attrs, "attrs", "a", nil, "comma-separated categorical columns to build explanations from (required)")
	fs.StringSliceVar(&f.columnTypes, "column-type", nil, "pin a column type as name:numeric|categorical (repeatable)")
	fs.StringVarP(&f.metric, "metric", "m", "", "numeric column the classifier scores (percentile, mad)")
	fs.StringVar(&f.classifier, "classifier", "", "outlier labeling: percentile | mad | label (default from config)")
	fs.Float64Var(&f.percentile, "percentile", 0, "percentile classifier: percent of rows flagged in each included tail")
	fs.BoolVar(&f.low, "low", false, "percentile classifier: flag the low tail")
	fs.BoolVar(&f.high, "high", false, "percentile classifier: flag the high tail")
	fs.Float64Var(&f.madThr, "mad-threshold", 0, "mad classifier: robust |z| cutoff")
	fs.StringVar(&f.labelColumn, "label-column", "", "numeric outlier label column (default _OUTLIER)")
	fs.StringVar(&f.predicate, "predicate", "", "outlier predicate on the label: ==1, >0.5, <0, ...")
	fs.Float64Var(&f.minSupport, "min-support", 0, "minimum fraction of outliers an itemset must cover")
	fs.Float64Var(&f.minRR, "min-risk-ratio", 0, "minimum risk ratio of a reported itemset")
	fs.BoolVar(&f.noCombos, "no-combinations", false, "only report single attribute-value itemsets")
	fs.IntVar(&f.maxOrder, "max-order", 0, "largest itemset size (0 = number of attributes)")
	fs.IntVar(&f.workers, "workers", 0, "parallel counting goroutines (0 = GOMAXPROCS)")
	fs.StringVarP(&f.format, "format", "f", "markdown", "output format: markdown | table | json | yaml")
	fs.BoolVar(&f.save, "save", false, "save the run under runs_dir")
	fs.StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to load")
	fs.IntVar(&f.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	fs.StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	fs.StringVar(&f.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	fs.StringVar(&f.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	fs.IntVar(&f.maxRows, "max-rows", 0, "maximum rows to load (0 = config max_rows)")
}

// plan is the resolved configuration of one run: config values overridden by changed flags.
type plan struct {
	load       dataframe.LoadOptions
	sheetName  string
	sheetIndex int
	classifier string
	metric     string
	percentile float64
	low, high  bool
	madThr     float64
	predicate  string
	opts       summary.Options
	format     string
}

func (f *mineFlags) resolve(cmd *cobra.Command, c *cfgpkg.Global) (*plan, error) {
	changed := cmd.Flags().Changed
	p := &plan{
		load:       dataframe.DefaultLoadOptions(),
		sheetName:  f.sheetName,
		sheetIndex: f.sheetIndex,
		classifier: c.Classifier,
		metric:     strings.TrimSpace(f.metric),
		percentile: c.Percentile,
		low:        c.IncludeLow,
		high:       c.IncludeHigh,
		madThr:     c.MADThreshold,
		predicate:  c.OutlierPredicate,
		format:     strings.ToLower(strings.TrimSpace(f.format)),
	}
	p.load.MaxRows = c.MaxRows
	if changed("max-rows") {
		p.load.MaxRows = f.maxRows
	}
	switch f.delimiter {
	case "":
	case ",":
		p.load.Delimiter = ','
	case "\t", "tab":
		p.load.Delimiter = '\t'
	case ";":
		p.load.Delimiter = ';'
	default:
		return nil, fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
	}
	switch strings.ToLower(strings.TrimSpace(f.decimal)) {
	case ",", "comma":
		p.load.DecimalSeparator = ','
	case ".", "dot":
		p.load.DecimalSeparator = '.'
	case "":
	default:
		return nil, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", f.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(f.thousands)) {
	case ",":
		p.load.ThousandsSeparator = ','
	case ".":
		p.load.ThousandsSeparator = '.'
	case "space", " ":
		p.load.ThousandsSeparator = ' '
	case "":
	default:
		return nil, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", f.thousands)
	}
	if len(f.columnTypes) > 0 {
		p.load.ColumnTypes = map[string]dataframe.ColType{}
		for _, pin := range f.columnTypes {
			name, kind, ok := strings.Cut(pin, ":")
			if !ok {
				return nil, fmt.Errorf("invalid --column-type %q (use name:numeric|categorical)", pin)
			}
			t, err := dataframe.ParseColType(strings.ToLower(strings.TrimSpace(kind)))
			if err != nil {
				return nil, err
			}
			p.load.ColumnTypes[strings.TrimSpace(name)] = t
		}
	}

	if changed("classifier") {
		p.classifier = strings.ToLower(strings.TrimSpace(f.classifier))
	}
	if changed("percentile") {
		p.percentile = f.percentile
	}
	// --low/--high select tails explicitly; naming only one drops the other
	if changed("low") || changed("high") {
		p.low, p.high = f.low, f.high
	}
	if changed("mad-threshold") {
		p.madThr = f.madThr
	}
	if changed("predicate") {
		p.predicate = f.predicate
	}
	switch p.classifier {
	case "percentile", "mad":
		if p.metric == "" {
			return nil, fmt.Errorf("--metric is required with the %s classifier", p.classifier)
		}
	case "label":
	default:
		return nil, fmt.Errorf("invalid --classifier: %s (use percentile, mad or label)", p.classifier)
	}
	switch p.format {
	case "markdown", "md", "table", "json", "yaml", "yml":
	default:
		return nil, fmt.Errorf("unsupported --format: %s (use markdown, table, json or yaml)", f.format)
	}

	pred, err := summary.ParsePredicate(p.predicate)
	if err != nil {
		return nil, err
	}
	opts := summary.DefaultOptions()
	opts.Attributes = trimAll(f.attrs)
	opts.MinSupport = c.MinSupport
	opts.MinRiskRatio = c.MinRiskRatio
	opts.UseAttributeCombinations = c.UseAttributeCombinations
	opts.MaxOrder = c.MaxOrder
	opts.Workers = c.Workers
	opts.OutlierColumn = c.OutlierColumn
	opts.Predicate = pred
	if changed("min-support") {
		opts.MinSupport = f.minSupport
	}
	if changed("min-risk-ratio") {
		opts.MinRiskRatio = f.minRR
	}
	if f.noCombos {
		opts.UseAttributeCombinations = false
	}
	if changed("max-order") {
		opts.MaxOrder = f.maxOrder
	}
	if changed("workers") {
		opts.Workers = f.workers
	}
	if changed("label-column") {
		opts.OutlierColumn = f.labelColumn
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	p.opts = opts
	return p, nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// outcome is the result of running one file through the pipeline.
type outcome struct {
	path        string
	explanation *summary.Explanation
	snapshot    summary.Snapshot
}

// explainFile loads, labels and mines one file, recording a timing per stage.
func explainFile(ctx context.Context, log *zap.Logger, path string, p *plan) (*outcome, error) {
	var timings []summary.Timing
	stage := func(name string, start time.Time) {
		d := time.Since(start)
		timings = append(timings, summary.Timing{Stage: name, Duration: d})
		log.Debug("stage done", zap.String("stage", name), zap.Duration("elapsed", d))
	}

	start := time.Now()
	df, err := loadFrame(path, p)
	if err != nil {
		return nil, err
	}
	stage("Loading", start)
	log.Info("loaded", zap.String("file", filepath.Base(path)), zap.Int("rows", df.NumRows()))
	if log.Core().Enabled(zap.DebugLevel) {
		for _, a := range p.opts.Attributes {
			log.Debug("attribute", zap.String("name", a), zap.Int("distinct", len(df.Distinct(a))))
		}
	}

	start = time.Now()
	labeled, err := classifyFrame(df, p)
	if err != nil {
		return nil, err
	}
	stage("Classification", start)
	log.Info("labeled", zap.String("classifier", p.classifier),
		zap.Int("outlier_labels", classify.CountOutliers(labeled, p.opts.OutlierColumn)))

	start = time.Now()
	exp, err := summary.New(p.opts, log).Summarize(ctx, labeled)
	if err != nil {
		return nil, err
	}
	stage("Summarization", start)

	snap := exp.Snapshot(filepath.Base(path))
	snap.Timings = timings
	return &outcome{path: path, explanation: exp, snapshot: snap}, nil
}

func loadFrame(path string, p *plan) (*dataframe.DataFrame, error) {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return dataframe.LoadXLSX(path, p.load, p.sheetName, p.sheetIndex)
	}
	return dataframe.LoadCSV(path, p.load)
}

func classifyFrame(df *dataframe.DataFrame, p *plan) (*dataframe.DataFrame, error) {
	switch p.classifier {
	case "percentile":
		c := classify.NewPercentileClassifier(p.metric)
		c.Percentile = p.percentile
		c.IncludeLow = p.low
		c.IncludeHigh = p.high
		c.OutputColumn = p.opts.OutlierColumn
		return c.Classify(df)
	case "mad":
		c := classify.NewMADClassifier(p.metric)
		c.Threshold = p.madThr
		c.OutputColumn = p.opts.OutlierColumn
		return c.Classify(df)
	default:
		return df, nil
	}
}

// render formats a snapshot for output.
func render(snap summary.Snapshot, format string) ([]byte, error) {
	switch format {
	case "table":
		return []byte(snap.Table() + "\n"), nil
	case "json":
		b, err := utils.PrettyJSON(snap)
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case "yaml", "yml":
		b, err := yaml.Marshal(snap)
		if err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		return b, nil
	default:
		return []byte(snap.Markdown()), nil
	}
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/leengari/query-advisor/internal/advisor"
	"github.com/leengari/query-advisor/internal/config"
	"github.com/leengari/query-advisor/internal/domain/query"
	"github.com/leengari/query-advisor/internal/logging"
	"github.com/leengari/query-advisor/internal/parser"
	"github.com/leengari/query-advisor/internal/plan"
	"github.com/leengari/query-advisor/internal/stats"
)

// queryFile is the on-disk form of a query description: the tables it
// touches, the columns it selects, per-table filter expressions, and the
// join clauses in the order the query writes them.
type queryFile struct {
	Tables []string            `json:"tables"`
	Select map[string][]string `json:"select"`
	Where  map[string]string   `json:"where"`
	Joins  []string            `json:"joins"`
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	catalogPath := flag.String("catalog", "catalog.json", "Path to statistics catalog JSON file")
	queryPath := flag.String("query", "", "Path to query description JSON file")
	explain := flag.Bool("explain", false, "Print every candidate considered, not just the winner")
	asJSON := flag.Bool("json", false, "Emit the report as JSON")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, closeFn := logging.SetupLogger(cfg.Logging)
	defer closeFn()
	slog.SetDefault(logger)

	if *queryPath == "" {
		fmt.Fprintln(os.Stderr, "usage: advisor -catalog catalog.json -query query.json [-explain] [-json]")
		os.Exit(2)
	}

	cat, err := stats.LoadCatalog(*catalogPath, logger)
	if err != nil {
		slog.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}

	store := stats.NewStore(stats.NewFixedSource(cat.Tables), logger)
	store.Load(cat.Tables)

	q, err := loadQuery(*queryPath)
	if err != nil {
		slog.Error("failed to load query", "error", err)
		os.Exit(1)
	}

	analyzer := advisor.NewAnalyzer(cfg, store, logger)
	analyzer.AddObserver(advisor.NewLoggingObserver(logger))

	report, err := analyzer.Analyze(context.Background(), q)
	if err != nil {
		slog.Error("analysis failed", "error", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			slog.Error("failed to encode report", "error", err)
			os.Exit(1)
		}
		return
	}

	printReport(report, *explain)
}

func loadQuery(path string) (*query.Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}

	var qf queryFile
	if err := json.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("failed to parse query file: %w", err)
	}
	if len(qf.Tables) == 0 {
		return nil, fmt.Errorf("query file %s names no tables", path)
	}

	q := &query.Query{
		Tables:  qf.Tables,
		Columns: qf.Select,
		Filters: make(map[string]query.Predicate, len(qf.Where)),
	}

	for table, expr := range qf.Where {
		pred, err := parser.ParsePredicate(expr)
		if err != nil {
			return nil, fmt.Errorf("filter on %s: %w", table, err)
		}
		q.Filters[table] = pred
	}

	for _, clause := range qf.Joins {
		edge, err := parser.ParseJoinEdge(clause)
		if err != nil {
			return nil, fmt.Errorf("join %q: %w", clause, err)
		}
		q.Joins = append(q.Joins, *edge)
	}

	return q, nil
}

func printReport(report *advisor.Report, explain bool) {
	fmt.Printf("Analysis %s\n\n", report.ID)
	fmt.Println("Chosen plan:")
	fmt.Print(report.PlanText)
	fmt.Printf("\nEstimated cost: %.2f  rows: %.0f\n", report.Cost, report.Rows)
	if report.Truncated {
		fmt.Println("(enumeration truncated; plan is best-effort)")
	}

	if len(report.Findings) > 0 {
		fmt.Printf("\nFindings (%d):\n", len(report.Findings))
		for i, f := range report.Findings {
			fmt.Printf("%d. %s\n", i+1, f.String())
		}
	} else {
		fmt.Println("\nNo findings.")
	}

	if !explain || report.Result == nil {
		return
	}

	fmt.Println("\n--- Candidates ---")
	for _, table := range sortedKeys(report.Result.ScanCandidates) {
		fmt.Printf("\nScan candidates for %s:\n", table)
		for _, cand := range report.Result.ScanCandidates[table] {
			marker := "  "
			if chosen, ok := report.Result.ScanChoices[table]; ok && chosen == cand {
				marker = "* "
			}
			fmt.Printf("%s%s (cost=%.2f rows=%.0f)\n", marker, cand.Describe(), cand.Cost(), cand.Rows())
		}
	}

	for i, step := range report.Result.JoinSteps {
		fmt.Printf("\nJoin step %d: %s.%s %s %s.%s\n", i+1,
			step.Edge.LeftTable, step.Edge.LeftColumn,
			step.Edge.Operator,
			step.Edge.RightTable, step.Edge.RightColumn)
		for _, cand := range step.Candidates {
			marker := "  "
			if cand == step.Chosen {
				marker = "* "
			}
			fmt.Printf("%s%s (cost=%.2f rows=%.0f)\n", marker, cand.Describe(), cand.Cost(), cand.Rows())
		}
	}
}

func sortedKeys(m map[string][]plan.Node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

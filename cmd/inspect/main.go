package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/henrypygall05-byte/planning-engine-api/internal/feedback"
	"github.com/henrypygall05-byte/planning-engine-api/internal/precedent"
	"github.com/henrypygall05-byte/planning-engine-api/internal/weights"
)

// #region main

func main() {
	weightsPath := flag.String("weights", "", "dump the weights file")
	feedbackPath := flag.String("feedback", "", "tail the feedback log")
	dbPath := flag.String("db", "", "list stored precedent applications")
	last := flag.Int("last", 10, "number of records to show")
	flag.Parse()

	switch {
	case *weightsPath != "":
		if err := dumpWeights(*weightsPath); err != nil {
			fail(err)
		}
	case *feedbackPath != "":
		if err := tailFeedback(*feedbackPath, *last); err != nil {
			fail(err)
		}
	case *dbPath != "":
		if err := listPrecedents(*dbPath, *last); err != nil {
			fail(err)
		}
	default:
		fmt.Fprintln(os.Stderr, "usage: inspect --weights path | --feedback path [--last N] | --db path [--last N]")
		os.Exit(2)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// #endregion main

// #region modes

func dumpWeights(path string) error {
	cfg, err := weights.NewStore(path).Load()
	if err != nil {
		return err
	}
	return printJSON(cfg)
}

func tailFeedback(path string, n int) error {
	recs, err := feedback.NewLog(path).Tail(n)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		fmt.Printf("%s  q=%3d  %-24s  div=%v irr=%v  %s\n",
			rec.TS.Format("2006-01-02 15:04:05"),
			rec.QualityScore,
			rec.Decision,
			rec.Flags.LowDocDiversity,
			rec.Flags.Irrelevance,
			truncate(rec.Proposal, 60),
		)
	}
	return nil
}

func listPrecedents(path string, n int) error {
	store, err := precedent.NewStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	apps, err := store.List(n)
	if err != nil {
		return err
	}
	for _, app := range apps {
		fmt.Printf("%-16s  %-10s  %s  %s\n",
			app.ApplicationRef, app.Decision, app.DecidedDate, truncate(app.Proposal, 60))
	}
	return nil
}

// #endregion modes

// #region helpers

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// #endregion helpers

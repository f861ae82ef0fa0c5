package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/henrypygall05-byte/planning-engine-api/internal/pipeline"
	"github.com/henrypygall05-byte/planning-engine-api/internal/quality"
)

// #region main

func main() {
	payloadPath := flag.String("payload", "", "path to a rendered payload JSON")
	flag.Parse()

	if *payloadPath == "" {
		fmt.Fprintln(os.Stderr, "usage: quality --payload payload.json")
		os.Exit(2)
	}

	payload, err := pipeline.LoadPayload(*payloadPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	report := quality.Score(payload.Policy.Citations, payload.Policy.Evidence)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal report: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

// #endregion main

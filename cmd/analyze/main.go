// Command analyze runs the analysis pipeline against a local .xlsx or .csv
// file and prints the resulting report as JSON. It needs no database and no
// API key.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"spcflow/adapters/excel"
	"spcflow/adapters/llm/heuristic"
	"spcflow/domain/core"
	"spcflow/internal/analysis"
	"spcflow/internal/testkit"
)

func main() {
	identifierColumn := flag.String("identifier", "", "column to use for point labels")
	chunkSize := flag.Int("chunk-size", analysis.DefaultChunkSize, "rows per analysis chunk")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <dataset.xlsx|dataset.csv>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)

	reader := excel.NewDataReader(path)
	table, err := reader.ReadData()
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}

	repo := testkit.NewInMemoryReportRepository()
	interp := heuristic.NewInterpreter()
	pipeline := analysis.NewPipeline(repo, interp, interp, nil, analysis.Options{ChunkSize: *chunkSize})

	rep, err := pipeline.Run(context.Background(), core.NewDatasetID(), table.ToRows(), *identifierColumn)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		log.Fatalf("Failed to encode report: %v", err)
	}
}

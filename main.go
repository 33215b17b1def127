package main

import (
	"fmt"
	"os"

	"jamledger/stmt-ingest/cmd/categories"
	"jamledger/stmt-ingest/cmd/categorize"
	"jamledger/stmt-ingest/cmd/clean"
	"jamledger/stmt-ingest/cmd/extract"
	"jamledger/stmt-ingest/cmd/importer"
	"jamledger/stmt-ingest/cmd/root"
	"jamledger/stmt-ingest/cmd/train"
)

func init() {
	root.Init()

	root.Cmd.AddCommand(importer.Cmd)
	root.Cmd.AddCommand(clean.Cmd)
	root.Cmd.AddCommand(extract.Cmd)
	root.Cmd.AddCommand(categorize.Cmd)
	root.Cmd.AddCommand(categories.Cmd)
	root.Cmd.AddCommand(train.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Command npz-dump decodes a predictions archive and prints the parsed camera
// summary to stdout as JSON (or CBOR with -cbor, for piping into other tools).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/fxamacker/cbor/v2"

	"github.com/reconlab/scene.report/internal/prediction"
	"github.com/reconlab/scene.report/internal/report"
)

func main() {
	align := flag.Bool("align180", false, "apply 180-degree yaw alignment to camera poses")
	useCBOR := flag.Bool("cbor", false, "emit CBOR instead of JSON")
	fields := flag.Bool("fields", false, "list archive fields with dtype and shape, then exit")
	stats := flag.Bool("stats", false, "include confidence statistics")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] predictions.npz\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	rec, sum, err := prediction.ParseArchiveFile(flag.Arg(0), *align)
	if err != nil {
		log.Fatalf("failed to parse %s: %v", flag.Arg(0), err)
	}

	if *fields {
		names := make([]string, 0, len(rec.Fields))
		for name := range rec.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			arr := rec.Fields[name]
			fmt.Printf("%-20s %-8s %v\n", name, arr.DType, arr.Shape)
		}
		return
	}

	out := struct {
		*prediction.Summary
		ConfStats *report.ConfStats `json:"confStats,omitempty" cbor:"confStats,omitempty"`
	}{Summary: sum}

	if *stats {
		if cs, ok := report.ConfidenceStats(rec); ok {
			out.ConfStats = &cs
		}
	}

	if *useCBOR {
		payload, err := cbor.Marshal(&out)
		if err != nil {
			log.Fatalf("failed to encode summary: %v", err)
		}
		os.Stdout.Write(payload)
		return
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&out); err != nil {
		log.Fatalf("failed to encode summary: %v", err)
	}
}

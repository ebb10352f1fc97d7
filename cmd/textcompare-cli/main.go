package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"yashubustudio/textcompare/compare"
)

type cliOptions struct {
	configPath   string
	corpusPath   string
	corpusColumn string
	inputText    string
	inputPath    string
	advanced     bool
	outputPath   string
	stdout       bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		log.Fatalf("textcompare-cli: %v", err)
	}
	if err := run(opts); err != nil {
		log.Fatalf("textcompare-cli: %v", err)
	}
}

func parseFlags() (cliOptions, error) {
	var opts cliOptions
	flag.StringVar(&opts.configPath, "config", "", "Path to config.json (default: ./config.json)")
	flag.StringVar(&opts.corpusPath, "corpus", "", "Text/CSV/TSV file containing candidate texts")
	flag.StringVar(&opts.corpusColumn, "corpus-column", "", "Column name or #index holding candidate texts")
	flag.StringVar(&opts.inputText, "input", "", "Single input text to compare against the corpus")
	flag.StringVar(&opts.inputPath, "input-file", "", "File of input texts, one per line")
	flag.BoolVar(&opts.advanced, "advanced", false, "Use semantic embedding similarity (requires configured model)")
	flag.StringVar(&opts.outputPath, "output", "", "CSV file to write results (omit for stdout only)")
	flag.BoolVar(&opts.stdout, "stdout", true, "Print results to STDOUT")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s --corpus FILE --input TEXT [options]\n\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	opts.configPath = strings.TrimSpace(opts.configPath)
	opts.corpusPath = strings.TrimSpace(opts.corpusPath)
	opts.inputPath = strings.TrimSpace(opts.inputPath)
	opts.outputPath = strings.TrimSpace(opts.outputPath)

	if opts.corpusPath == "" {
		flag.Usage()
		return opts, errors.New("missing required --corpus file")
	}
	if opts.inputText == "" && opts.inputPath == "" {
		flag.Usage()
		return opts, errors.New("provide --input or --input-file")
	}
	return opts, nil
}

func run(opts cliOptions) error {
	cfg, err := compare.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	candidates, err := compare.ParseCandidateFileWithOptions(opts.corpusPath, compare.CandidateParseOptions{Column: opts.corpusColumn})
	if err != nil {
		return fmt.Errorf("read corpus: %w", err)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	comparerOpts := []compare.Option{compare.WithLogger(logger)}
	if opts.advanced {
		embedder, err := compare.NewOrtEmbedder(cfg.Embedder)
		if err != nil {
			return fmt.Errorf("init embedder: %w", err)
		}
		comparerOpts = append(comparerOpts, compare.WithTokenEmbedder(embedder))
	}

	comparer, err := compare.NewTextComparer(candidates, comparerOpts...)
	if err != nil {
		return fmt.Errorf("build comparer: %w", err)
	}
	defer comparer.Close()

	inputs, err := collectInputs(opts)
	if err != nil {
		return err
	}

	results, err := comparer.CompareAll(context.Background(), inputs, opts.advanced)
	if err != nil {
		return fmt.Errorf("compare: %w", err)
	}

	if opts.outputPath != "" {
		if err := writeResultCSV(opts.outputPath, inputs, results); err != nil {
			return err
		}
		fmt.Printf("Results written to %s\n", opts.outputPath)
	}
	if opts.stdout {
		printResults(inputs, results)
	}
	return nil
}

func collectInputs(opts cliOptions) ([]string, error) {
	if opts.inputPath != "" {
		inputs, err := compare.ParseCandidateFile(opts.inputPath)
		if err != nil {
			return nil, fmt.Errorf("read input file: %w", err)
		}
		return inputs, nil
	}
	return []string{opts.inputText}, nil
}

func writeResultCSV(path string, inputs []string, results []compare.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	header := []string{"input", "closest", "score", "similar"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, res := range results {
		row := []string{
			inputs[i],
			res.Closest,
			fmt.Sprintf("%.4f", res.Score),
			joinSimilar(res.Similar),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush result: %w", err)
	}
	return nil
}

func joinSimilar(matches []compare.Match) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = fmt.Sprintf("%s (%.4f)", m.Text, m.Score)
	}
	return strings.Join(parts, "; ")
}

func printResults(inputs []string, results []compare.Result) {
	for i, res := range results {
		fmt.Printf("%d. %s\n", i+1, inputs[i])
		fmt.Printf("    closest: %s (score=%.4f)\n", res.Closest, res.Score)
		if len(res.Similar) == 0 {
			fmt.Println("    similar: none")
			continue
		}
		fmt.Println("    similar:")
		for _, m := range res.Similar {
			fmt.Printf("      - %s (score=%.4f)\n", m.Text, m.Score)
		}
	}
}

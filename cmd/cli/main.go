// Command cli analyzes billing documents from the terminal: run the LLM
// extractor over local files, feed pre-extracted facts through the
// reconciliation core offline, and browse challenge scenarios.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbilldozer/medbilldozer/internal/analyzer"
	"github.com/medbilldozer/medbilldozer/internal/challenge"
	"github.com/medbilldozer/medbilldozer/internal/logger"
	"github.com/medbilldozer/medbilldozer/internal/recon"
	"github.com/medbilldozer/medbilldozer/internal/session"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "analyze":
		runAnalyze(log)
	case "matrix":
		runMatrix(log)
	case "scenarios":
		runScenarios(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("medBillDozer CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  analyze    Analyze billing documents and print findings + coverage matrix")
	fmt.Println("  matrix     Build the coverage matrix from pre-extracted facts JSON files")
	fmt.Println("  scenarios  List challenge scenarios")
	fmt.Println("  help       Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runAnalyze(log zerolog.Logger) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	model := fs.String("model", analyzer.DefaultModelName, "Gemini model for document analysis")
	asJSON := fs.Bool("json", false, "print results as JSON")
	fs.Parse(os.Args[2:])

	files := fs.Args()
	if len(files) == 0 {
		log.Fatal().Msg("Usage: cli analyze [-model NAME] [-json] FILE...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	gemini, err := analyzer.NewGeminiAnalyzer(ctx, *model, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create analyzer")
	}

	store := session.NewStore(log)
	s := store.CreateSession()

	for _, path := range files {
		text, err := os.ReadFile(path)
		if err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("Failed to read document")
		}

		doc := analyzer.Document{
			DocumentID: uuid.NewString(),
			Name:       filepath.Base(path),
			Text:       string(text),
		}

		log.Info().Str("file", path).Msg("Analyzing document")
		analysis, err := gemini.AnalyzeDocument(ctx, doc)
		if err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("Analysis failed")
		}

		s.AddDocument(doc, analysis)
	}

	if *asJSON {
		printJSON(map[string]interface{}{
			"documents": s.Documents(),
			"findings":  s.Findings(),
			"coverage":  s.Matrix(),
		})
		return
	}

	printFindings(s.Findings())
	printMatrix(s.Matrix())
}

// runMatrix exercises the reconciliation core without any network call:
// each input file holds one document's pre-extracted facts as JSON, e.g.
// {"document_id": "receipt-1", "facts": {"receipt_items": [...]}}.
func runMatrix(log zerolog.Logger) {
	fs := flag.NewFlagSet("matrix", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "print the matrix as JSON")
	fs.Parse(os.Args[2:])

	files := fs.Args()
	if len(files) == 0 {
		log.Fatal().Msg("Usage: cli matrix [-json] FACTS_FILE...")
	}

	normalizer := recon.NewNormalizer(log)
	var transactions []recon.NormalizedTransaction

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("Failed to read facts file")
		}

		var doc struct {
			DocumentID string                 `json:"document_id"`
			Facts      map[string]interface{} `json:"facts"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("Failed to parse facts file")
		}
		if doc.DocumentID == "" {
			doc.DocumentID = filepath.Base(path)
		}

		facts := recon.DecodeFacts(doc.Facts)
		txs := recon.CollectTransactions(normalizer, facts, doc.DocumentID)
		transactions = append(transactions, txs...)

		log.Info().
			Str("document_id", doc.DocumentID).
			Int("items", facts.ItemCount()).
			Int("transactions", len(txs)).
			Msg("Facts loaded")
	}

	rows := recon.BuildCoverageMatrix(transactions)

	if *asJSON {
		printJSON(rows)
		return
	}
	printMatrix(rows)
}

func runScenarios(log zerolog.Logger) {
	fs := flag.NewFlagSet("scenarios", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "print scenarios as JSON")
	fs.Parse(os.Args[2:])

	scenarios := challenge.Scenarios()

	if *asJSON {
		printJSON(scenarios)
		return
	}

	fmt.Printf("\n=== Challenge Scenarios (%d) ===\n", len(scenarios))
	for _, s := range scenarios {
		fmt.Printf("\n%s  [%s, %d pts]\n", s.ID, s.Difficulty, s.MaxPoints())
		fmt.Printf("  %s\n", s.Title)
	}
	fmt.Println()
}

func printFindings(findings []session.DocumentFinding) {
	fmt.Printf("\n=== Findings (%d) ===\n", len(findings))
	for i, f := range findings {
		fmt.Printf("\n%d. [%s] %s\n", i+1, f.Severity, f.Summary)
		fmt.Printf("   Code:     %s\n", f.Code)
		fmt.Printf("   Document: %s\n", f.DocumentName)
		if f.Detail != "" {
			fmt.Printf("   Detail:   %s\n", f.Detail)
		}
		if f.Amount != nil {
			fmt.Printf("   Amount:   $%.2f\n", *f.Amount)
		}
	}
}

func printMatrix(rows []recon.CoverageRow) {
	fmt.Printf("\n=== Coverage Matrix (%d rows) ===\n", len(rows))
	for i, row := range rows {
		fmt.Printf("\n%d. %s\n", i+1, row.Description)
		if row.Date != nil {
			fmt.Printf("   Date:      %s\n", row.Date)
		}
		fmt.Printf("   Receipt:   %s\n", amountWithDoc(row.ReceiptAmount, row.ReceiptDoc))
		fmt.Printf("   FSA:       %s\n", amountWithDoc(row.FSAAmount, row.FSADoc))
		fmt.Printf("   Insurance: %s\n", amountWithDoc(row.InsuranceAmount, row.InsuranceDoc))
		fmt.Printf("   Status:    %s\n", row.Status)
	}
	fmt.Println()
}

func amountWithDoc(amount *float64, doc string) string {
	if amount == nil && doc == "" {
		return "-"
	}
	s := "?"
	if amount != nil {
		s = fmt.Sprintf("$%.2f", *amount)
	}
	if doc != "" {
		s += fmt.Sprintf(" (%s)", doc)
	}
	return s
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
		os.Exit(1)
	}
}

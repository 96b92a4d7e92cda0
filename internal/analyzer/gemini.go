package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/medbilldozer/medbilldozer/internal/recon"
)

// DefaultModelName is the Gemini model used for document analysis.
// Override via NewGeminiAnalyzer's model argument or the -model flag.
const DefaultModelName = "gemini-2.5-flash"

// GeminiAnalyzer implements Analyzer on top of the Gemini API. The client
// reads GEMINI_API_KEY from the environment.
type GeminiAnalyzer struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

// NewGeminiAnalyzer creates a Gemini-backed analyzer. An empty model
// selects DefaultModelName.
func NewGeminiAnalyzer(ctx context.Context, model string, log zerolog.Logger) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiAnalyzer: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiAnalyzer{client: client, model: model, log: log}, nil
}

// AnalyzeDocument sends the document to the model and decodes the strict
// JSON response into an Analysis.
func (a *GeminiAnalyzer) AnalyzeDocument(ctx context.Context, doc Document) (*Analysis, error) {
	parts := []*genai.Part{{Text: buildAnalysisPrompt()}}

	if len(doc.Data) > 0 {
		mime := doc.MIMEType
		if mime == "" {
			mime = "application/pdf"
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: mime, Data: doc.Data},
		})
	} else {
		parts = append(parts, &genai.Part{Text: "DOCUMENT:\n" + doc.Text})
	}

	contents := []*genai.Content{{Role: "user", Parts: parts}}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("AnalyzeDocument: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("AnalyzeDocument: empty response from model")
	}

	clean := cleanModelJSON(rawText)

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return nil, fmt.Errorf("AnalyzeDocument: unmarshal model JSON: %w\nraw response: %s", err, rawText)
	}

	analysis := decodeAnalysis(raw)
	a.log.Info().
		Str("document_id", doc.DocumentID).
		Str("document_type", string(analysis.DocumentType)).
		Int("items", analysis.Facts.ItemCount()).
		Int("findings", len(analysis.Findings)).
		Msg("Document analyzed")

	return analysis, nil
}

// buildAnalysisPrompt enumerates the recognized facts keys and finding
// codes so the model output matches the decoding contract.
func buildAnalysisPrompt() string {
	return "You are a healthcare billing auditor analyzing a billing document " +
		"(medical bill, pharmacy receipt, insurance EOB, FSA statement, or insurance claim history).\n\n" +
		"Task:\n" +
		"- Classify the document and extract ALL line items.\n" +
		"- Flag billing irregularities (duplicate charges, upcoding, unbundling, balance billing, math errors).\n" +
		"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
		"- Output a single JSON object.\n\n" +
		"The object must have these fields:\n" +
		"- \"document_type\": one of \"medical_bill\", \"pharmacy_receipt\", \"insurance_eob\", \"fsa_statement\", \"insurance_claim_history\", \"unknown\"\n" +
		"- \"facts\": object with line-item lists by category:\n" +
		"  - \"receipt_items\": [{\"description\": string, \"amount\": number, \"date\": \"YYYY-MM-DD\" or null}]\n" +
		"  - \"fsa_claim_items\": [{\"description\": string, \"amount_reimbursed\": number, \"date_submitted\": \"YYYY-MM-DD\" or null}]\n" +
		"  - \"insurance_claim_items\": [{\"description\": string, \"insurance_paid\": number, \"date_of_service\": \"YYYY-MM-DD\" or null}] (only for insurance claim histories)\n" +
		"  - \"medical_line_items\": [{\"description\": string, \"cpt_code\": string or null, \"billed_amount\": number, \"allowed_amount\": number or null, \"patient_responsibility\": number or null, \"date_of_service\": \"YYYY-MM-DD\" or null}]\n" +
		"- \"findings\": [{\"code\": string, \"severity\": \"low\"|\"medium\"|\"high\", \"summary\": string, \"detail\": string, \"amount\": number or null}]\n\n" +
		"Rules:\n" +
		"- Populate only the line-item lists that match the document type; leave the rest as empty arrays.\n" +
		"- Dates in ISO format \"YYYY-MM-DD\"; use null if a date cannot be determined.\n" +
		"- Amounts as plain numbers, no currency symbols.\n" +
		"- Finding codes: \"duplicate_charge\", \"upcoding\", \"unbundling\", \"balance_billing\", \"math_error\", \"other\".\n\n" +
		"Return ONLY valid raw JSON.\n" +
		"Do NOT wrap the response in code fences.\n" +
		"Do NOT use ```json or any Markdown.\n" +
		"Output must begin with \"{\" and end with \"}\".\n"
}

// cleanModelJSON strips Markdown fences and surrounding junk when the
// model ignores the raw-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			// Single-line weirdness; just return as-is.
			return s
		}
		s = strings.TrimSpace(s)
	}

	// Remove trailing ``` if present.
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Extra safety: if there's still junk around the JSON object,
	// keep only from the first '{' to the last '}'.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = s[start : end+1]
			s = strings.TrimSpace(s)
		}
	}

	return s
}

// decodeAnalysis converts decoded model JSON into an Analysis. Decoding is
// lenient throughout: a field the model got wrong is absent, never fatal.
func decodeAnalysis(raw map[string]interface{}) *Analysis {
	analysis := &Analysis{
		DocumentType:   decodeDocumentType(raw["document_type"]),
		RawModelOutput: raw,
	}

	if facts, ok := raw["facts"].(map[string]interface{}); ok {
		analysis.Facts = recon.DecodeFacts(facts)
	}

	if findings, ok := raw["findings"].([]interface{}); ok {
		for _, elem := range findings {
			obj, ok := elem.(map[string]interface{})
			if !ok {
				continue
			}
			f := decodeFinding(obj)
			if f.Summary == "" && f.Code == "" {
				continue
			}
			analysis.Findings = append(analysis.Findings, f)
		}
	}

	return analysis
}

func decodeDocumentType(v interface{}) DocumentType {
	s, _ := v.(string)
	switch DocumentType(strings.TrimSpace(strings.ToLower(s))) {
	case DocTypeMedicalBill:
		return DocTypeMedicalBill
	case DocTypePharmacyReceipt:
		return DocTypePharmacyReceipt
	case DocTypeInsuranceEOB:
		return DocTypeInsuranceEOB
	case DocTypeFSAStatement:
		return DocTypeFSAStatement
	case DocTypeInsuranceClaimHistory:
		return DocTypeInsuranceClaimHistory
	}
	return DocTypeUnknown
}

func decodeFinding(obj map[string]interface{}) Finding {
	f := Finding{
		Code:    stringField(obj, "code"),
		Summary: stringField(obj, "summary"),
		Detail:  stringField(obj, "detail"),
		Amount:  recon.ParseMoney(obj["amount"]),
	}
	switch Severity(strings.ToLower(stringField(obj, "severity"))) {
	case SeverityHigh:
		f.Severity = SeverityHigh
	case SeverityMedium:
		f.Severity = SeverityMedium
	default:
		f.Severity = SeverityLow
	}
	return f
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

// Ensure GeminiAnalyzer implements the Analyzer interface.
var _ Analyzer = (*GeminiAnalyzer)(nil)

// Package analyzer is the fact-extraction seam: it turns a raw billing
// document into structured facts (line items per source category) and a
// list of flagged billing irregularities. The recon package consumes the
// facts; the dashboard renders the findings.
package analyzer

import (
	"context"

	"github.com/medbilldozer/medbilldozer/internal/recon"
)

// DocumentType is the detected kind of billing document.
type DocumentType string

const (
	DocTypeMedicalBill           DocumentType = "medical_bill"
	DocTypePharmacyReceipt       DocumentType = "pharmacy_receipt"
	DocTypeInsuranceEOB          DocumentType = "insurance_eob"
	DocTypeFSAStatement          DocumentType = "fsa_statement"
	DocTypeInsuranceClaimHistory DocumentType = "insurance_claim_history"
	DocTypeUnknown               DocumentType = "unknown"
)

// Severity grades a finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Document is one billing document submitted for analysis, either pasted
// text or an uploaded file.
type Document struct {
	// DocumentID is the stable identifier referenced by coverage rows.
	DocumentID string `json:"document_id"`

	// Name is the user-facing label (filename or a short title).
	Name string `json:"name"`

	// Text is the document body for pasted documents.
	Text string `json:"text,omitempty"`

	// MIMEType and Data carry an uploaded file (e.g. application/pdf).
	// When Data is set, Text may be empty.
	MIMEType string `json:"mime_type,omitempty"`
	Data     []byte `json:"-"`
}

// Finding is one flagged billing irregularity.
type Finding struct {
	// Code is a short machine-readable label, e.g. "duplicate_charge",
	// "upcoding", "balance_billing".
	Code string `json:"code"`

	Severity Severity `json:"severity"`

	// Summary is a one-line description; Detail explains the evidence.
	Summary string `json:"summary"`
	Detail  string `json:"detail,omitempty"`

	// Amount is the dollar impact when the model could quantify it.
	Amount *float64 `json:"amount,omitempty"`
}

// Analysis is the full extraction result for one document.
type Analysis struct {
	DocumentType DocumentType        `json:"document_type"`
	Facts        recon.DocumentFacts `json:"facts"`
	Findings     []Finding           `json:"findings,omitempty"`

	// RawModelOutput keeps the decoded model JSON for debugging and
	// benchmark comparison. Not part of the downstream contract.
	RawModelOutput map[string]interface{} `json:"-"`
}

// Analyzer extracts facts and findings from a document. Implementations
// may call out to an LLM provider; tests substitute a mock.
type Analyzer interface {
	AnalyzeDocument(ctx context.Context, doc Document) (*Analysis, error)
}

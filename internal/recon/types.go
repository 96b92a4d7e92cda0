// Package recon normalizes line items extracted from healthcare billing
// documents and reconciles them across documents into a coverage matrix.
//
// The package is pure and in-memory: it performs no I/O and holds no state
// between calls. Upstream fact extraction and downstream rendering live
// elsewhere; recon owns the representation in between.
package recon

import (
	"cloud.google.com/go/civil"
)

// SourceCategory identifies which kind of document a line item came from.
// It determines both the amount field consulted during normalization and
// the coverage-matrix column the resulting transaction populates.
type SourceCategory string

const (
	CategoryReceipt         SourceCategory = "receipt"
	CategoryFSAClaim        SourceCategory = "fsa_claim"
	CategoryInsuranceClaim  SourceCategory = "insurance_claim"
	CategoryMedicalLineItem SourceCategory = "medical_line_item"
)

// Valid reports whether c is one of the recognized source categories.
func (c SourceCategory) Valid() bool {
	switch c {
	case CategoryReceipt, CategoryFSAClaim, CategoryInsuranceClaim, CategoryMedicalLineItem:
		return true
	}
	return false
}

// Status classifies a reconciled transaction by which source categories
// were found for it. The values are plain labels; any emoji or color
// decoration belongs to the presentation layer.
type Status string

const (
	// StatusReimbursed: a receipt exists and an FSA reimbursement was
	// found for it. From the consumer's perspective the loop is closed,
	// regardless of what insurance paid.
	StatusReimbursed Status = "Reimbursed"

	// StatusMissingFSA: a receipt exists and insurance paid something,
	// but no FSA reimbursement was found. Candidate for an unfiled claim.
	StatusMissingFSA Status = "Missing FSA"

	// StatusNotCovered: a receipt exists with no insurance payment on
	// record at all. Flags possible denied or never-submitted claims.
	StatusNotCovered Status = "Not Covered"

	// StatusInformational: the row exists only from FSA or insurance
	// data with no corresponding receipt. Useful for audit trails but
	// not actionable.
	StatusInformational Status = "Informational"
)

// RawLineItem is one line item as produced by the fact-extraction layer,
// before normalization. Fields are optional because each source category
// populates a different subset; absent means the extractor did not report
// the field for this item.
//
// Date fields are kept as raw strings here: extractor output is not
// trusted to be well-formed, and normalization decides what parses.
type RawLineItem struct {
	Description string `json:"description"`

	// Receipt fields.
	Amount *float64 `json:"amount,omitempty"`
	Date   string   `json:"date,omitempty"`

	// FSA claim fields.
	AmountReimbursed *float64 `json:"amount_reimbursed,omitempty"`
	DateSubmitted    string   `json:"date_submitted,omitempty"`

	// Insurance claim fields.
	InsurancePaid *float64 `json:"insurance_paid,omitempty"`
	DateOfService string   `json:"date_of_service,omitempty"`

	// Medical bill fields.
	CPTCode               string   `json:"cpt_code,omitempty"`
	BilledAmount          *float64 `json:"billed_amount,omitempty"`
	AllowedAmount         *float64 `json:"allowed_amount,omitempty"`
	PatientResponsibility *float64 `json:"patient_responsibility,omitempty"`
}

// NormalizedTransaction is the canonical representation of one line-item
// occurrence. Instances are created by the normalizer and never mutated
// afterwards; treat them as values.
type NormalizedTransaction struct {
	// Description preserves the extractor's original casing for display.
	// Matching uses the fingerprint, not this field.
	Description string `json:"description"`

	// Date is the category-appropriate calendar date, nil when the item
	// carried no parseable date (aggregate FSA summaries, for example).
	Date *civil.Date `json:"date,omitempty"`

	// Amount is the monetary figure relevant to this source category:
	// receipt charge, FSA reimbursement, insurance payment, or patient
	// responsibility. Always non-negative and rounded to cents; nil
	// means "present but unquantified".
	Amount *float64 `json:"amount,omitempty"`

	SourceCategory   SourceCategory `json:"source_category"`
	SourceDocumentID string         `json:"source_document_id"`

	// Fingerprint is the cross-document matching key. See Fingerprint.
	Fingerprint string `json:"fingerprint"`
}

// CoverageRow is one reconciled real-world transaction, aggregating up to
// one occurrence from each source category that shares a fingerprint.
// Doc references are purely referential: deleting or reprocessing the
// originating document does not invalidate a previously built row.
type CoverageRow struct {
	Description string      `json:"description"`
	Date        *civil.Date `json:"date,omitempty"`

	ReceiptAmount   *float64 `json:"receipt_amount,omitempty"`
	FSAAmount       *float64 `json:"fsa_amount,omitempty"`
	InsuranceAmount *float64 `json:"insurance_amount,omitempty"`

	ReceiptDoc   string `json:"receipt_doc,omitempty"`
	FSADoc       string `json:"fsa_doc,omitempty"`
	InsuranceDoc string `json:"insurance_doc,omitempty"`

	// Status is derived from the three amount columns on every rebuild;
	// it is never persisted independently of its inputs.
	Status Status `json:"status"`
}

// DocumentFacts is the fact-extraction output for one document: the
// recognized line-item lists, already decoded into RawLineItems. Lists the
// extractor did not produce are simply empty.
type DocumentFacts struct {
	ReceiptItems        []RawLineItem `json:"receipt_items,omitempty"`
	FSAClaimItems       []RawLineItem `json:"fsa_claim_items,omitempty"`
	InsuranceClaimItems []RawLineItem `json:"insurance_claim_items,omitempty"`
	MedicalLineItems    []RawLineItem `json:"medical_line_items,omitempty"`
}

// ItemCount returns the total number of line items across all categories.
func (f DocumentFacts) ItemCount() int {
	return len(f.ReceiptItems) + len(f.FSAClaimItems) + len(f.InsuranceClaimItems) + len(f.MedicalLineItems)
}

// cloneFloat copies an optional amount so callers can hold rows without
// aliasing the transactions they were folded from.
func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// cloneDate copies an optional calendar date.
func cloneDate(d *civil.Date) *civil.Date {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

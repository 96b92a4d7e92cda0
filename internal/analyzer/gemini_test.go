package analyzer

import (
	"encoding/json"
	"testing"
)

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "already clean",
			input: `{"document_type": "medical_bill"}`,
			want:  `{"document_type": "medical_bill"}`,
		},
		{
			name:  "json fence",
			input: "```json\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "bare fence",
			input: "```\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "leading prose",
			input: "Here is the analysis:\n{\"a\": 1}",
			want:  `{"a": 1}`,
		},
		{
			name:  "trailing prose",
			input: "{\"a\": 1}\nLet me know if you need anything else.",
			want:  `{"a": 1}`,
		},
		{
			name:  "surrounding whitespace",
			input: "  \n {\"a\": 1} \n ",
			want:  `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cleanModelJSON(tt.input)
			if got != tt.want {
				t.Errorf("cleanModelJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDecodeAnalysis(t *testing.T) {
	blob := `{
		"document_type": "insurance_claim_history",
		"facts": {
			"receipt_items": [],
			"insurance_claim_items": [
				{"description": "Office Visit", "insurance_paid": 40.0, "date_of_service": "2024-03-15"}
			]
		},
		"findings": [
			{"code": "duplicate_charge", "severity": "high", "summary": "Office visit billed twice", "detail": "Lines 3 and 7 carry the same CPT and date.", "amount": 150.0},
			{"code": "other", "severity": "bogus", "summary": "Minor note"}
		]
	}`

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}

	analysis := decodeAnalysis(raw)

	if analysis.DocumentType != DocTypeInsuranceClaimHistory {
		t.Errorf("DocumentType = %q, want %q", analysis.DocumentType, DocTypeInsuranceClaimHistory)
	}
	if len(analysis.Facts.InsuranceClaimItems) != 1 {
		t.Fatalf("got %d insurance items, want 1", len(analysis.Facts.InsuranceClaimItems))
	}
	if analysis.Facts.InsuranceClaimItems[0].Description != "Office Visit" {
		t.Errorf("description = %q", analysis.Facts.InsuranceClaimItems[0].Description)
	}

	if len(analysis.Findings) != 2 {
		t.Fatalf("got %d findings, want 2", len(analysis.Findings))
	}
	first := analysis.Findings[0]
	if first.Code != "duplicate_charge" || first.Severity != SeverityHigh {
		t.Errorf("finding = %+v", first)
	}
	if first.Amount == nil || *first.Amount != 150.0 {
		t.Errorf("finding amount = %v, want 150", first.Amount)
	}
	// Unrecognized severity degrades to low.
	if analysis.Findings[1].Severity != SeverityLow {
		t.Errorf("severity = %q, want %q", analysis.Findings[1].Severity, SeverityLow)
	}
}

func TestDecodeAnalysis_Lenient(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]interface{}
	}{
		{"empty object", map[string]interface{}{}},
		{"non-object facts", map[string]interface{}{"facts": "oops"}},
		{"non-list findings", map[string]interface{}{"findings": 42}},
		{"unknown document type", map[string]interface{}{"document_type": "shopping_list"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := decodeAnalysis(tt.raw)
			if analysis.DocumentType != DocTypeUnknown {
				t.Errorf("DocumentType = %q, want %q", analysis.DocumentType, DocTypeUnknown)
			}
			if analysis.Facts.ItemCount() != 0 {
				t.Errorf("ItemCount = %d, want 0", analysis.Facts.ItemCount())
			}
			if len(analysis.Findings) != 0 {
				t.Errorf("got %d findings, want 0", len(analysis.Findings))
			}
		})
	}
}

func TestDecodeDocumentType(t *testing.T) {
	tests := []struct {
		input interface{}
		want  DocumentType
	}{
		{"medical_bill", DocTypeMedicalBill},
		{"  Pharmacy_Receipt  ", DocTypePharmacyReceipt},
		{"insurance_eob", DocTypeInsuranceEOB},
		{"fsa_statement", DocTypeFSAStatement},
		{"nonsense", DocTypeUnknown},
		{nil, DocTypeUnknown},
		{42, DocTypeUnknown},
	}

	for _, tt := range tests {
		if got := decodeDocumentType(tt.input); got != tt.want {
			t.Errorf("decodeDocumentType(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

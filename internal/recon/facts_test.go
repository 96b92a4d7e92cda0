package recon

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestDecodeFacts(t *testing.T) {
	blob := `{
		"receipt_items": [
			{"description": "Ibuprofen 200mg", "amount": 12.99, "date": "2024-03-15"},
			{"description": "Bandages", "amount": "$4.50"}
		],
		"fsa_claim_items": [
			{"description": "Copay", "amount_reimbursed": 10, "date_submitted": "2024-03-20"}
		],
		"insurance_claim_items": [
			{"description": "Office Visit", "insurance_paid": 40.0, "date_of_service": "2024-03-15"}
		],
		"medical_line_items": [
			{"description": "MRI", "cpt_code": "70551", "billed_amount": 1200.0, "patient_responsibility": 250.0}
		]
	}`

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}

	facts := DecodeFacts(raw)

	if len(facts.ReceiptItems) != 2 {
		t.Fatalf("got %d receipt items, want 2", len(facts.ReceiptItems))
	}
	if !floatPtrEqual(facts.ReceiptItems[0].Amount, floatPtr(12.99)) {
		t.Errorf("receipt amount = %v, want 12.99", fmtFloatPtr(facts.ReceiptItems[0].Amount))
	}
	// Dollar-string amounts survive decoding.
	if !floatPtrEqual(facts.ReceiptItems[1].Amount, floatPtr(4.50)) {
		t.Errorf("receipt amount = %v, want 4.50", fmtFloatPtr(facts.ReceiptItems[1].Amount))
	}

	if len(facts.FSAClaimItems) != 1 {
		t.Fatalf("got %d fsa items, want 1", len(facts.FSAClaimItems))
	}
	if facts.FSAClaimItems[0].DateSubmitted != "2024-03-20" {
		t.Errorf("date_submitted = %q", facts.FSAClaimItems[0].DateSubmitted)
	}

	if len(facts.InsuranceClaimItems) != 1 {
		t.Fatalf("got %d insurance items, want 1", len(facts.InsuranceClaimItems))
	}
	if !floatPtrEqual(facts.InsuranceClaimItems[0].InsurancePaid, floatPtr(40.0)) {
		t.Errorf("insurance_paid = %v", fmtFloatPtr(facts.InsuranceClaimItems[0].InsurancePaid))
	}

	if len(facts.MedicalLineItems) != 1 {
		t.Fatalf("got %d medical items, want 1", len(facts.MedicalLineItems))
	}
	if facts.MedicalLineItems[0].CPTCode != "70551" {
		t.Errorf("cpt_code = %q", facts.MedicalLineItems[0].CPTCode)
	}

	if facts.ItemCount() != 5 {
		t.Errorf("ItemCount = %d, want 5", facts.ItemCount())
	}
}

func TestDecodeFacts_Lenient(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]interface{}
	}{
		{"empty map", map[string]interface{}{}},
		{"nil values", map[string]interface{}{"receipt_items": nil}},
		{"non-list value", map[string]interface{}{"receipt_items": "oops"}},
		{"non-object elements", map[string]interface{}{"receipt_items": []interface{}{"oops", 42}}},
		{"unrecognized keys ignored", map[string]interface{}{"line_items": []interface{}{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := DecodeFacts(tt.raw)
			if facts.ItemCount() != 0 {
				t.Errorf("ItemCount = %d, want 0", facts.ItemCount())
			}
		})
	}
}

func TestDecodeLineItem_MalformedAmounts(t *testing.T) {
	item := DecodeLineItem(map[string]interface{}{
		"description":    "Adjustment",
		"amount":         "not a number",
		"insurance_paid": -10.0,
	})

	if item.Description != "Adjustment" {
		t.Errorf("Description = %q", item.Description)
	}
	if item.Amount != nil {
		t.Errorf("Amount = %v, want nil for non-numeric", *item.Amount)
	}
	if item.InsurancePaid != nil {
		t.Errorf("InsurancePaid = %v, want nil for negative", *item.InsurancePaid)
	}
}

func TestCollectTransactions(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())

	facts := DocumentFacts{
		ReceiptItems:        []RawLineItem{{Description: "Ibuprofen", Amount: floatPtr(12.99)}},
		FSAClaimItems:       []RawLineItem{{Description: "Copay", AmountReimbursed: floatPtr(10.0)}},
		InsuranceClaimItems: []RawLineItem{{Description: "Office Visit", InsurancePaid: floatPtr(40.0)}},
		MedicalLineItems:    []RawLineItem{{Description: "MRI", PatientResponsibility: floatPtr(250.0)}},
	}

	txs := CollectTransactions(n, facts, "doc-1")
	if len(txs) != 4 {
		t.Fatalf("got %d transactions, want 4", len(txs))
	}

	// Category order: receipt, fsa, insurance, medical.
	wantCategories := []SourceCategory{CategoryReceipt, CategoryFSAClaim, CategoryInsuranceClaim, CategoryMedicalLineItem}
	for i, want := range wantCategories {
		if txs[i].SourceCategory != want {
			t.Errorf("tx %d category = %q, want %q", i, txs[i].SourceCategory, want)
		}
		if txs[i].SourceDocumentID != "doc-1" {
			t.Errorf("tx %d document = %q", i, txs[i].SourceDocumentID)
		}
	}
}

func TestCollectTransactions_EmptyFacts(t *testing.T) {
	n := NewNormalizer(zerolog.Nop())
	if txs := CollectTransactions(n, DocumentFacts{}, "doc-1"); len(txs) != 0 {
		t.Errorf("got %d transactions from empty facts, want 0", len(txs))
	}
}

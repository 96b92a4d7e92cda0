package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/medbilldozer/medbilldozer/internal/analyzer"
	"github.com/medbilldozer/medbilldozer/internal/recon"
)

func floatPtr(f float64) *float64 { return &f }

func receiptAnalysis(desc string, amount float64) *analyzer.Analysis {
	return &analyzer.Analysis{
		DocumentType: analyzer.DocTypePharmacyReceipt,
		Facts: recon.DocumentFacts{
			ReceiptItems: []recon.RawLineItem{{Description: desc, Amount: floatPtr(amount)}},
		},
	}
}

func TestStore_CreateAndGetSession(t *testing.T) {
	store := NewStore(zerolog.Nop())

	s := store.CreateSession()
	if s.ID == "" {
		t.Fatal("expected non-empty session ID")
	}

	got, err := store.GetSession(s.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got != s {
		t.Error("GetSession returned a different session")
	}

	if _, err := store.GetSession("missing"); err == nil {
		t.Error("expected error for unknown session ID")
	}
}

func TestStore_DeleteSession(t *testing.T) {
	store := NewStore(zerolog.Nop())
	s := store.CreateSession()

	store.DeleteSession(s.ID)
	if _, err := store.GetSession(s.ID); err == nil {
		t.Error("expected error after delete")
	}
}

func TestSession_AddDocumentAndMatrix(t *testing.T) {
	store := NewStore(zerolog.Nop())
	s := store.CreateSession()

	s.AddDocument(
		analyzer.Document{DocumentID: "receipt-1", Name: "pharmacy.txt"},
		receiptAnalysis("Office Visit", 50.0),
	)
	s.AddDocument(
		analyzer.Document{DocumentID: "eob-1", Name: "claims.pdf"},
		&analyzer.Analysis{
			DocumentType: analyzer.DocTypeInsuranceClaimHistory,
			Facts: recon.DocumentFacts{
				InsuranceClaimItems: []recon.RawLineItem{{Description: "office visit", InsurancePaid: floatPtr(40.0)}},
			},
		},
	)

	docs := s.Documents()
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}

	rows := s.Matrix()
	if len(rows) != 1 {
		t.Fatalf("got %d coverage rows, want 1", len(rows))
	}
	if rows[0].Status != recon.StatusMissingFSA {
		t.Errorf("Status = %q, want %q", rows[0].Status, recon.StatusMissingFSA)
	}
}

func TestSession_MatrixIsPureRebuild(t *testing.T) {
	store := NewStore(zerolog.Nop())
	s := store.CreateSession()

	s.AddDocument(analyzer.Document{DocumentID: "receipt-1"}, receiptAnalysis("Copay", 20.0))

	first := s.Matrix()
	second := s.Matrix()
	if len(first) != len(second) {
		t.Fatalf("rebuild changed row count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Status != second[i].Status || first[i].Description != second[i].Description {
			t.Errorf("row %d diverged between rebuilds", i)
		}
	}
}

func TestSession_ReaddingDocumentReplacesTransactions(t *testing.T) {
	store := NewStore(zerolog.Nop())
	s := store.CreateSession()

	s.AddDocument(analyzer.Document{DocumentID: "receipt-1"}, receiptAnalysis("Office Visit", 50.0))
	s.AddDocument(analyzer.Document{DocumentID: "receipt-1"}, receiptAnalysis("Office Visit", 55.0))

	if docs := s.Documents(); len(docs) != 1 {
		t.Fatalf("got %d documents after rerun, want 1", len(docs))
	}

	txs := s.Transactions()
	if len(txs) != 1 {
		t.Fatalf("got %d transactions after rerun, want 1", len(txs))
	}
	if txs[0].Amount == nil || *txs[0].Amount != 55.0 {
		t.Errorf("transaction amount = %v, want 55 (latest extraction)", txs[0].Amount)
	}
}

func TestSession_FindingsAnnotatedWithDocument(t *testing.T) {
	store := NewStore(zerolog.Nop())
	s := store.CreateSession()

	s.AddDocument(
		analyzer.Document{DocumentID: "bill-1", Name: "hospital.pdf"},
		&analyzer.Analysis{
			DocumentType: analyzer.DocTypeMedicalBill,
			Findings: []analyzer.Finding{
				{Code: "duplicate_charge", Severity: analyzer.SeverityHigh, Summary: "Billed twice"},
			},
		},
	)

	findings := s.Findings()
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	if findings[0].DocumentID != "bill-1" || findings[0].DocumentName != "hospital.pdf" {
		t.Errorf("finding doc ref = %q/%q", findings[0].DocumentID, findings[0].DocumentName)
	}
	if findings[0].Code != "duplicate_charge" {
		t.Errorf("Code = %q", findings[0].Code)
	}
}

func TestSession_DocumentFacts(t *testing.T) {
	store := NewStore(zerolog.Nop())
	s := store.CreateSession()

	s.AddDocument(analyzer.Document{DocumentID: "receipt-1"}, receiptAnalysis("Office Visit", 50.0))

	facts, ok := s.DocumentFacts("receipt-1")
	if !ok {
		t.Fatal("expected facts for receipt-1")
	}
	if len(facts.ReceiptItems) != 1 || facts.ReceiptItems[0].Description != "Office Visit" {
		t.Errorf("facts = %+v", facts)
	}

	if _, ok := s.DocumentFacts("missing"); ok {
		t.Error("expected miss for unknown document")
	}
}

// Concurrent appends must not lose documents.
func TestSession_ConcurrentAppends(t *testing.T) {
	store := NewStore(zerolog.Nop())
	s := store.CreateSession()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			docID := fmt.Sprintf("receipt-%d", i)
			s.AddDocument(analyzer.Document{DocumentID: docID}, receiptAnalysis(fmt.Sprintf("Service %d", i), 10.0))
		}(i)
	}
	wg.Wait()

	if docs := s.Documents(); len(docs) != n {
		t.Errorf("got %d documents, want %d", len(docs), n)
	}
	if rows := s.Matrix(); len(rows) != n {
		t.Errorf("got %d coverage rows, want %d", len(rows), n)
	}
}

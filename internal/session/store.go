// Package session holds the in-memory state of a multi-document analysis
// run: the documents added so far, their extracted facts and findings, and
// the accumulated normalized transactions the coverage matrix is rebuilt
// from. Nothing here is durable; a session lives and dies with the process.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbilldozer/medbilldozer/internal/analyzer"
	"github.com/medbilldozer/medbilldozer/internal/recon"
)

// DocumentRecord is one analyzed document within a session.
type DocumentRecord struct {
	DocumentID   string                `json:"document_id"`
	Name         string                `json:"name"`
	DocumentType analyzer.DocumentType `json:"document_type"`
	AddedAt      time.Time             `json:"added_at"`
	ItemCount    int                   `json:"item_count"`
	FindingCount int                   `json:"finding_count"`

	facts        recon.DocumentFacts
	findings     []analyzer.Finding
	transactions []recon.NormalizedTransaction
}

// DocumentFinding is a finding annotated with its originating document.
type DocumentFinding struct {
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	analyzer.Finding
}

// Session accumulates documents and their normalized transactions.
// Appends are serialized by a mutex; the matrix is rebuilt from the full
// accumulated list on every read, never patched incrementally.
type Session struct {
	ID        string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`

	mu         sync.Mutex
	normalizer *recon.Normalizer
	documents  []*DocumentRecord
	log        zerolog.Logger
}

// AddDocument records an analyzed document and appends its normalized
// transactions to the session's collection. Re-adding a document ID
// replaces that document's record and transactions: a rerun should
// reflect the latest extraction, not accumulate stale duplicates.
func (s *Session) AddDocument(doc analyzer.Document, analysis *analyzer.Analysis) *DocumentRecord {
	txs := recon.CollectTransactions(s.normalizer, analysis.Facts, doc.DocumentID)

	record := &DocumentRecord{
		DocumentID:   doc.DocumentID,
		Name:         doc.Name,
		DocumentType: analysis.DocumentType,
		AddedAt:      time.Now(),
		ItemCount:    analysis.Facts.ItemCount(),
		FindingCount: len(analysis.Findings),
		facts:        analysis.Facts,
		findings:     analysis.Findings,
		transactions: txs,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.documents {
		if existing.DocumentID == doc.DocumentID {
			s.documents[i] = record
			s.log.Info().
				Str("session_id", s.ID).
				Str("document_id", doc.DocumentID).
				Int("transactions", len(txs)).
				Msg("Document reprocessed, transactions replaced")
			return record
		}
	}

	s.documents = append(s.documents, record)
	s.log.Info().
		Str("session_id", s.ID).
		Str("document_id", doc.DocumentID).
		Str("document_type", string(analysis.DocumentType)).
		Int("transactions", len(txs)).
		Msg("Document added to session")
	return record
}

// Documents returns a snapshot of the session's document records.
func (s *Session) Documents() []DocumentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]DocumentRecord, 0, len(s.documents))
	for _, d := range s.documents {
		result = append(result, *d)
	}
	return result
}

// Transactions returns a copy of all normalized transactions accumulated
// across the session's documents, in document-then-item order.
func (s *Session) Transactions() []recon.NormalizedTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactionsLocked()
}

func (s *Session) transactionsLocked() []recon.NormalizedTransaction {
	var result []recon.NormalizedTransaction
	for _, d := range s.documents {
		result = append(result, d.transactions...)
	}
	return result
}

// Matrix rebuilds the coverage matrix from the current document set. The
// result is always a pure function of the accumulated transactions.
func (s *Session) Matrix() []recon.CoverageRow {
	s.mu.Lock()
	txs := s.transactionsLocked()
	s.mu.Unlock()

	return recon.BuildCoverageMatrix(txs)
}

// DocumentFacts returns the extracted facts for one document in the
// session, or false if the document is unknown.
func (s *Session) DocumentFacts(documentID string) (recon.DocumentFacts, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.documents {
		if d.DocumentID == documentID {
			return d.facts, true
		}
	}
	return recon.DocumentFacts{}, false
}

// Findings returns all findings across the session's documents, annotated
// with their source document.
func (s *Session) Findings() []DocumentFinding {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []DocumentFinding
	for _, d := range s.documents {
		for _, f := range d.findings {
			result = append(result, DocumentFinding{
				DocumentID:   d.DocumentID,
				DocumentName: d.Name,
				Finding:      f,
			})
		}
	}
	return result
}

// Store holds sessions by ID. In-memory only; sessions vanish on restart.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	log      zerolog.Logger
}

// NewStore creates an empty session store.
func NewStore(log zerolog.Logger) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		log:      log,
	}
}

// CreateSession creates and registers a new session.
func (st *Store) CreateSession() *Session {
	s := &Session{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now(),
		normalizer: recon.NewNormalizer(st.log),
		log:        st.log,
	}

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	st.log.Info().Str("session_id", s.ID).Msg("Session created")
	return s
}

// GetSession returns the session with the given ID.
func (st *Store) GetSession(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session not found: %s", id)
	}
	return s, nil
}

// DeleteSession discards a session and all of its accumulated state.
func (st *Store) DeleteSession(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

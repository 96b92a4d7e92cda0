package recon

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// NormalizeDescription produces the matching form of a service description:
// lowercased, trimmed, with internal whitespace runs collapsed to single
// spaces. Display code keeps the original casing; only matching goes
// through here.
func NormalizeDescription(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Fingerprint derives the cross-document matching key for a line item:
// the normalized description joined with the ISO date (empty when the item
// carried no date). The normalizer and the matrix builder both key on this
// function; there is deliberately no second implementation anywhere.
func Fingerprint(description string, date *civil.Date) string {
	dateStr := ""
	if date != nil {
		dateStr = date.String()
	}
	return NormalizeDescription(description) + "|" + dateStr
}

// ParseMoney coerces a JSON-shaped value into a non-negative amount rounded
// to cents. It accepts numbers, json.Number, and strings with currency
// decoration ("$1,234.50"). Anything non-numeric, negative, or non-finite
// yields nil, which downstream reads as "present but unquantified".
func ParseMoney(v interface{}) *float64 {
	var d decimal.Decimal

	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		d = decimal.NewFromFloat(val)
	case int:
		d = decimal.NewFromInt(int64(val))
	case int64:
		d = decimal.NewFromInt(val)
	case json.Number:
		parsed, err := decimal.NewFromString(val.String())
		if err != nil {
			return nil
		}
		d = parsed
	case string:
		cleaned := strings.TrimSpace(val)
		cleaned = strings.TrimPrefix(cleaned, "$")
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		cleaned = strings.TrimSpace(cleaned)
		if cleaned == "" {
			return nil
		}
		parsed, err := decimal.NewFromString(cleaned)
		if err != nil {
			return nil
		}
		d = parsed
	default:
		return nil
	}

	if d.IsNegative() {
		return nil
	}

	f, _ := d.Round(2).Float64()
	return &f
}

// dateLayouts covers the formats extractors have been observed to emit.
// ISO first; it is what the prompt asks for.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02 Jan 2006",
}

// ParseDate parses a calendar date from extractor output. A malformed date
// degrades to nil the same way a malformed amount does; it never errors.
func ParseDate(s string) *civil.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := civil.DateOf(t)
			return &d
		}
	}
	return nil
}

// amountField returns the category-appropriate amount from a raw item.
// This is the single place the category→field mapping lives.
func amountField(item RawLineItem, cat SourceCategory) *float64 {
	switch cat {
	case CategoryReceipt:
		return item.Amount
	case CategoryFSAClaim:
		return item.AmountReimbursed
	case CategoryInsuranceClaim:
		return item.InsurancePaid
	case CategoryMedicalLineItem:
		if item.PatientResponsibility != nil {
			return item.PatientResponsibility
		}
		return item.BilledAmount
	}
	return nil
}

// dateField returns the category-appropriate raw date string.
func dateField(item RawLineItem, cat SourceCategory) string {
	switch cat {
	case CategoryFSAClaim:
		if item.DateSubmitted != "" {
			return item.DateSubmitted
		}
	case CategoryInsuranceClaim, CategoryMedicalLineItem:
		if item.DateOfService != "" {
			return item.DateOfService
		}
	}
	return item.Date
}

// Normalizer converts raw line items into NormalizedTransactions. It holds
// only a logger; normalization itself is a pure, order-preserving map.
type Normalizer struct {
	log zerolog.Logger
}

// NewNormalizer creates a normalizer that reports dropped items on log.
func NewNormalizer(log zerolog.Logger) *Normalizer {
	return &Normalizer{log: log}
}

// Normalize converts one document's raw line items of a single source
// category into NormalizedTransactions, in input order.
//
// Items without a description cannot be reconciled and are dropped with a
// warning rather than an error; one bad item must not abort the rest of
// the document. Malformed or negative amounts are coerced to nil and the
// item is still emitted. No deduplication happens here; that is the matrix
// builder's job.
func (n *Normalizer) Normalize(items []RawLineItem, sourceDocumentID string, category SourceCategory) []NormalizedTransaction {
	result := make([]NormalizedTransaction, 0, len(items))

	for i, item := range items {
		if strings.TrimSpace(item.Description) == "" {
			n.log.Warn().
				Str("document_id", sourceDocumentID).
				Str("category", string(category)).
				Int("index", i).
				Msg("Dropping line item without description")
			continue
		}

		amount := sanitizeAmount(amountField(item, category))
		date := ParseDate(dateField(item, category))

		result = append(result, NormalizedTransaction{
			Description:      item.Description,
			Date:             date,
			Amount:           amount,
			SourceCategory:   category,
			SourceDocumentID: sourceDocumentID,
			Fingerprint:      Fingerprint(item.Description, date),
		})
	}

	return result
}

// sanitizeAmount enforces the NormalizedTransaction amount invariant:
// non-negative, finite, rounded to cents, or nil.
func sanitizeAmount(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return ParseMoney(*p)
}

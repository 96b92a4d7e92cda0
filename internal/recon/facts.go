package recon

// This file is the upstream boundary: fact-extraction output arrives as
// loosely typed JSON-like maps and is decoded here into the explicit
// optional-field structs the rest of the package works with. Decoding is
// lenient throughout; a field the extractor got wrong is simply absent.

// Keys recognized in a document's facts mapping. Extractors may emit other
// keys; they are ignored.
const (
	FactsKeyReceiptItems        = "receipt_items"
	FactsKeyFSAClaimItems       = "fsa_claim_items"
	FactsKeyInsuranceClaimItems = "insurance_claim_items"
	FactsKeyMedicalLineItems    = "medical_line_items"
)

// DecodeFacts decodes a raw facts mapping (as produced by the fact
// extractor or unmarshalled from model JSON) into DocumentFacts. Missing
// keys, non-list values, and non-object list elements are skipped, never
// errored on.
func DecodeFacts(raw map[string]interface{}) DocumentFacts {
	return DocumentFacts{
		ReceiptItems:        decodeItemList(raw[FactsKeyReceiptItems]),
		FSAClaimItems:       decodeItemList(raw[FactsKeyFSAClaimItems]),
		InsuranceClaimItems: decodeItemList(raw[FactsKeyInsuranceClaimItems]),
		MedicalLineItems:    decodeItemList(raw[FactsKeyMedicalLineItems]),
	}
}

func decodeItemList(v interface{}) []RawLineItem {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	items := make([]RawLineItem, 0, len(list))
	for _, elem := range list {
		obj, ok := elem.(map[string]interface{})
		if !ok {
			continue
		}
		items = append(items, DecodeLineItem(obj))
	}
	return items
}

// DecodeLineItem decodes a single raw line-item mapping. Amount fields go
// through ParseMoney so strings like "$40.00" survive; date fields are
// kept as raw strings for the normalizer to parse.
func DecodeLineItem(raw map[string]interface{}) RawLineItem {
	return RawLineItem{
		Description:           getString(raw, "description"),
		Amount:                ParseMoney(raw["amount"]),
		Date:                  getString(raw, "date"),
		AmountReimbursed:      ParseMoney(raw["amount_reimbursed"]),
		DateSubmitted:         getString(raw, "date_submitted"),
		InsurancePaid:         ParseMoney(raw["insurance_paid"]),
		DateOfService:         getString(raw, "date_of_service"),
		CPTCode:               getString(raw, "cpt_code"),
		BilledAmount:          ParseMoney(raw["billed_amount"]),
		AllowedAmount:         ParseMoney(raw["allowed_amount"]),
		PatientResponsibility: ParseMoney(raw["patient_responsibility"]),
	}
}

func getString(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// CollectTransactions normalizes every line-item list in facts for one
// document, in category order, and returns the combined slice ready to be
// appended to a session's running collection.
func CollectTransactions(n *Normalizer, facts DocumentFacts, sourceDocumentID string) []NormalizedTransaction {
	result := make([]NormalizedTransaction, 0, facts.ItemCount())
	result = append(result, n.Normalize(facts.ReceiptItems, sourceDocumentID, CategoryReceipt)...)
	result = append(result, n.Normalize(facts.FSAClaimItems, sourceDocumentID, CategoryFSAClaim)...)
	result = append(result, n.Normalize(facts.InsuranceClaimItems, sourceDocumentID, CategoryInsuranceClaim)...)
	result = append(result, n.Normalize(facts.MedicalLineItems, sourceDocumentID, CategoryMedicalLineItem)...)
	return result
}

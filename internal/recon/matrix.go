package recon

// matrixFoldOrder is the fixed order in which categories are folded into
// the coverage matrix. The order is load-bearing: it determines which
// occurrence seeds a row's description/date and which wins on conflict,
// independent of the order transactions were accumulated in.
//
// medical_line_item is deliberately absent: the matrix has three columns
// (receipt / FSA / insurance); medical-bill line items feed findings and
// document views but not this reconciliation.
var matrixFoldOrder = []SourceCategory{
	CategoryReceipt,
	CategoryFSAClaim,
	CategoryInsuranceClaim,
}

// BuildCoverageMatrix folds the full session-wide transaction list into
// one CoverageRow per distinct fingerprint and classifies each row.
//
// The fold is a pure function of its input: it is rebuilt from scratch on
// every call, never patched incrementally, so the matrix can never hold
// stale state from a removed or reprocessed document. Within a category,
// later transactions overwrite earlier ones on the same fingerprint
// (last-write-wins); a rerun of a document should reflect its latest
// extraction, not accumulate duplicates.
//
// Rows are returned in insertion order (first-seen fingerprint under the
// fold order above). Callers wanting date- or amount-sorted output must
// sort explicitly.
func BuildCoverageMatrix(transactions []NormalizedTransaction) []CoverageRow {
	rows := make(map[string]*CoverageRow, len(transactions))
	order := make([]string, 0, len(transactions))

	for _, category := range matrixFoldOrder {
		for _, tx := range transactions {
			if tx.SourceCategory != category {
				continue
			}

			fp := tx.Fingerprint
			if fp == "" {
				fp = Fingerprint(tx.Description, tx.Date)
			}

			row, ok := rows[fp]
			if !ok {
				row = &CoverageRow{
					Description: tx.Description,
					Date:        cloneDate(tx.Date),
				}
				rows[fp] = row
				order = append(order, fp)
			}

			switch category {
			case CategoryReceipt:
				row.ReceiptAmount = cloneFloat(tx.Amount)
				row.ReceiptDoc = tx.SourceDocumentID
			case CategoryFSAClaim:
				row.FSAAmount = cloneFloat(tx.Amount)
				row.FSADoc = tx.SourceDocumentID
			case CategoryInsuranceClaim:
				row.InsuranceAmount = cloneFloat(tx.Amount)
				row.InsuranceDoc = tx.SourceDocumentID
			}
		}
	}

	result := make([]CoverageRow, 0, len(order))
	for _, fp := range order {
		row := rows[fp]
		row.Status = classifyRow(row)
		result = append(result, *row)
	}
	return result
}

// present reports whether an amount column counts for classification.
// A nil amount and an exact zero are both treated as absent: a $0.00
// receipt classifies as Informational, not Not Covered. Downstream
// consumers rely on that behavior, so it is kept as-is.
func present(p *float64) bool {
	return p != nil && *p != 0
}

// classifyRow assigns the reconciliation status. First matching rule wins;
// Missing FSA is checked before Reimbursed on purpose.
func classifyRow(row *CoverageRow) Status {
	receipt := present(row.ReceiptAmount)
	fsa := present(row.FSAAmount)
	insurance := present(row.InsuranceAmount)

	switch {
	case receipt && !fsa && insurance:
		return StatusMissingFSA
	case receipt && fsa:
		return StatusReimbursed
	case receipt && !insurance:
		return StatusNotCovered
	default:
		return StatusInformational
	}
}

package query

import (
	"errors"

	"github.com/roach88/flatkv/internal/ir"
)

// FromRecords checks an externally supplied sequence and converts it to
// entries. Each record needs a string "id" and a "value" that is either a
// string (Scalar) or structured data (JSON).
//
// Returns an *ir.ValidationError carrying the failing position.
func FromRecords(recs []ir.Record) ([]ir.Entry, error) {
	entries := make([]ir.Entry, 0, len(recs))
	for i, rec := range recs {
		e, err := ir.EntryFromRecord(rec)
		if err != nil {
			var verr *ir.ValidationError
			if errors.As(err, &verr) {
				return nil, verr.AtIndex(i)
			}
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

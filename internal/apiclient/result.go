package apiclient

import (
	"fmt"

	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
)

// WriteResult is the acknowledgement the backend returns for writes.
type WriteResult struct {
	InsertedID    string `json:"insertedId"`
	MatchedCount  *int64 `json:"matchedCount,omitempty"`
	ModifiedCount *int64 `json:"modifiedCount,omitempty"`
	DeletedCount  *int64 `json:"deletedCount,omitempty"`
}

// Matched fails with ErrNotFound when the backend reports that the write
// matched no record.
func (r WriteResult) Matched(what string) error {
	if r.MatchedCount != nil && *r.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", what, apperror.ErrNotFound)
	}
	if r.DeletedCount != nil && *r.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", what, apperror.ErrNotFound)
	}
	return nil
}

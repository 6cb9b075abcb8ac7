// Package repository persists extracted document records. Records arrive
// validated and canonical; bilingual fields are flattened into fr/ar
// column pairs and canonical DD.MM.YYYY dates become DATE columns.
package repository

import (
	"fmt"
	"time"

	"github.com/docflow/docflow-backend/internal/document/domain"
	"github.com/docflow/docflow-backend/pkg/database"
)

const dateLayout = "02.01.2006"

// parseDate converts a canonical DD.MM.YYYY string to a time.Time. Records
// are validated before they reach the repositories, so a failure here
// means a caller skipped validation.
func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, &domain.StorageError{Err: fmt.Errorf("field %s is not a canonical date: %w", field, err)}
	}
	return t, nil
}

// mapError translates constraint violations into API-facing errors and
// wraps everything else as a storage failure.
func mapError(err error) error {
	if appErr := database.MapPQError(err); appErr != nil {
		return appErr
	}
	return &domain.StorageError{Err: err}
}

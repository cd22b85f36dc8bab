package audit

import (
	"context"
	"errors"
)

// MultiStore appends each record to every store and joins their errors.
type MultiStore []Store

func (m MultiStore) Append(ctx context.Context, record Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Append(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package notion

import (
	"context"
	"fmt"

	"github.com/appellisync/appellisync/internal/infer"
)

// SchemaDiff splits the desired columns into additions (not present
// remotely) and alterations (present with a different type). Remote-only
// columns are never touched. The external-id column is forced into the
// additions when the remote schema lacks it.
func SchemaDiff(existing map[string]Property, desired map[string]infer.PropertyType) (toAdd, toAlter map[string]infer.PropertyType) {
	toAdd = make(map[string]infer.PropertyType)
	toAlter = make(map[string]infer.PropertyType)

	if _, ok := existing[ExternalIDProperty]; !ok {
		toAdd[ExternalIDProperty] = infer.TypeRichText
	}

	for col, want := range desired {
		cur, ok := existing[col]
		switch {
		case !ok:
			toAdd[col] = want
		case cur.Type != string(want):
			// type overwrite: destructive on the remote side, issued
			// deliberately rather than skipped
			toAlter[col] = want
		}
	}
	return toAdd, toAlter
}

// ReconcileSchema makes the remote schema cover every desired column,
// in at most one batched update call, and returns the type actually
// present remotely for each desired column. Callers must coerce with
// the returned map, not the desired one.
func ReconcileSchema(ctx context.Context, api API, dsID string, desired map[string]infer.PropertyType) (map[string]infer.PropertyType, error) {
	ds, err := api.RetrieveDataSource(ctx, dsID)
	if err != nil {
		return nil, err
	}
	existing := ds.Properties

	toAdd, toAlter := SchemaDiff(existing, desired)

	wanted := make(map[string]infer.PropertyType, len(desired)+1)
	for col, t := range desired {
		wanted[col] = t
	}
	for col, t := range toAdd {
		wanted[col] = t
	}

	changes := make(map[string]TypeDescriptor, len(toAdd)+len(toAlter))
	for col, t := range toAdd {
		changes[col] = DescriptorFor(t)
	}
	for col, t := range toAlter {
		changes[col] = DescriptorFor(t)
	}

	if len(changes) > 0 {
		if err := api.UpdateDataSourceProperties(ctx, dsID, changes); err != nil {
			return nil, fmt.Errorf("applying schema changes: %w", err)
		}
		ds, err = api.RetrieveDataSource(ctx, dsID)
		if err != nil {
			return nil, fmt.Errorf("re-fetching schema: %w", err)
		}
		existing = ds.Properties
	}

	final := make(map[string]infer.PropertyType, len(wanted))
	for col, want := range wanted {
		if p, ok := existing[col]; ok {
			final[col] = infer.PropertyType(p.Type)
		} else {
			final[col] = want
		}
	}
	return final, nil
}

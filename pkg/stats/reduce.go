package stats

import "fmt"

// Reduce builds one Record per row. When grouped is set, records without a
// memory size are dropped as incomplete groups.
func Reduce(rows []Row, grouped bool) ([]Record, error) {
	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		rec, err := FromRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if grouped && rec.MemorySize == 0 {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Fold applies every field of every row to a single Record.
func Fold(rows []Row) (Record, error) {
	var rec Record
	for i, row := range rows {
		for _, f := range row {
			if err := rec.Update(f); err != nil {
				return Record{}, fmt.Errorf("row %d: %w", i, err)
			}
		}
	}
	return rec, nil
}

// FromRow builds a Record from a single row.
func FromRow(row Row) (Record, error) {
	var rec Record
	for _, f := range row {
		if err := rec.Update(f); err != nil {
			return Record{}, err
		}
	}
	return rec, nil
}

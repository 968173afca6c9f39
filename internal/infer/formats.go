package infer

// DateFormats maps column names to the Go layout used to parse their
// values. It lives for one whole sync run and is shared across courses:
// the first course to infer a layout for a column name fixes it for all
// later courses. That cross-course reuse is deliberate.
type DateFormats map[string]string

// DefaultDateFormats seeds the table with the feed's fixed date columns.
func DefaultDateFormats() DateFormats {
	return DateFormats{
		"dataStr":     "02/01/2006",
		"aperturaStr": "02/01/2006",
		"chiusuraStr": "02/01/2006",
	}
}

// SetDefault records a layout for a column unless one is already known.
// First inference wins.
func (f DateFormats) SetDefault(column, layout string) {
	if _, ok := f[column]; !ok {
		f[column] = layout
	}
}

// Layout returns the stored layout for a column, if any.
func (f DateFormats) Layout(column string) (string, bool) {
	layout, ok := f[column]
	return layout, ok
}

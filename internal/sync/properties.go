package sync

import (
	"github.com/appellisync/appellisync/internal/feed"
	"github.com/appellisync/appellisync/internal/infer"
	"github.com/appellisync/appellisync/internal/notion"
)

const (
	// externalIDSourceColumn is the feed column carrying the stable
	// session identifier.
	externalIDSourceColumn = "idAppello"
	// titleSourceColumn feeds the mandatory page title.
	titleSourceColumn = "descrIns"
	// placeholderTitle backs rows whose title source is empty.
	placeholderTitle = "Senza nome"
)

// BuildProperties assembles the full property set for one row: the
// mandatory title, the external id (when the row has one), the course
// select, and every other reconciled column coerced to its envelope.
// Fields that coerce to no value are omitted, never sent as nulls.
func BuildProperties(row feed.Row, types map[string]infer.PropertyType, course string, formats infer.DateFormats) map[string]notion.PropertyValue {
	props := make(map[string]notion.PropertyValue, len(types)+3)

	// title keeps the original text for readability, unsanitized
	title := row.Get(titleSourceColumn)
	text := title.String()
	if title.IsMissing() || text == "" {
		text = placeholderTitle
	}
	props[notion.TitleProperty] = notion.TitleValue(text)

	if ext := row.Get(externalIDSourceColumn); !ext.IsMissing() {
		props[notion.ExternalIDProperty] = notion.RichTextValue(ext.String())
	}

	props[feed.CourseColumn] = notion.SelectValue(course)

	for col, t := range types {
		switch col {
		case notion.TitleProperty, notion.ExternalIDProperty, feed.CourseColumn:
			continue
		}
		if pv, ok := notion.Coerce(row.Get(col), t, col, formats); ok {
			props[col] = pv
		}
	}
	return props
}

package cmisclient

import (
	"fmt"
	"sort"
	"strings"
)

// Query is a CMIS SQL statement template with positional %s placeholders.
// Arguments are spliced in as text: CMIS repositories expose no bound
// parameters, so callers pass repository identifiers and pre-built filter
// strings, never raw user input.
type Query string

// Statement fills the template's placeholders and returns the final
// statement string.
func (q Query) Statement(args ...any) string {
	return fmt.Sprintf(string(q), args...)
}

// Statement templates used by the client. Tables are the repository type
// names the property maps target.
const (
	queryDocuments       Query = "SELECT * FROM drc:document WHERE %s"
	queryDocumentsAll    Query = "SELECT * FROM drc:document"
	queryGebruiksrechten Query = "SELECT * FROM drc:gebruiksrechten WHERE %s"
	queryOios            Query = "SELECT * FROM drc:oio WHERE %s"
	queryVerzendingen    Query = "SELECT * FROM drc:verzending WHERE %s"
	queryFolders         Query = "SELECT * FROM cmis:folder WHERE %s"
	queryInFolder        Query = "SELECT * FROM %s WHERE IN_FOLDER('%s')"
)

// NullFilter and NotNullFilter are marker values for BuildFilters.
const (
	NullFilter    = "NULL"
	NotNullFilter = "NOT NULL"
)

// BuildFilters renders a predicate string from domain-keyed filters for use
// in a WHERE clause. Keys that map for the given kind are rewritten to their
// qualified names; unmapped keys are used verbatim so callers can filter on
// raw cmis: properties. Values render as equality predicates, except the
// NullFilter/NotNullFilter markers and slices, which render as an OR group.
// Predicates are joined with AND in sorted key order; an empty filter map
// yields "".
func BuildFilters(kind ObjectKind, filters map[string]any) string {
	if len(filters) == 0 {
		return ""
	}
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	preds := make([]string, 0, len(keys))
	for _, k := range keys {
		name := k
		if qualified, ok := ToRepository(k, kind); ok {
			name = qualified
		}
		preds = append(preds, renderPredicate(name, filters[k]))
	}
	return strings.Join(preds, " AND ")
}

func renderPredicate(name string, value any) string {
	switch v := value.(type) {
	case nil:
		return name + " IS NULL"
	case string:
		switch v {
		case NullFilter:
			return name + " IS NULL"
		case NotNullFilter:
			return name + " IS NOT NULL"
		}
		return fmt.Sprintf("%s = '%s'", name, v)
	case []string:
		alts := make([]string, 0, len(v))
		for _, alt := range v {
			alts = append(alts, fmt.Sprintf("%s = '%s'", name, alt))
		}
		return "( " + strings.Join(alts, " OR ") + " )"
	default:
		return fmt.Sprintf("%s = '%v'", name, v)
	}
}

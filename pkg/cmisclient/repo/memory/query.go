package memory

import (
	"fmt"
	"strings"

	"github.com/tendant/cmis-client/pkg/cmisclient"
)

// predicate is one WHERE-clause condition against a node.
type predicate func(o *object) bool

// parsedQuery is a statement reduced to a table name and a conjunction of
// predicates.
type parsedQuery struct {
	table string
	preds []predicate
}

func (q *parsedQuery) matches(o *object) bool {
	for _, p := range q.preds {
		if !p(o) {
			return false
		}
	}
	return true
}

// parseStatement parses the statement subset the client emits:
//
//	SELECT * FROM <table>
//	SELECT * FROM <table> WHERE <cond> AND <cond> ...
//
// with conditions of the forms  name = 'value',  name IS NULL,
// name IS NOT NULL,  ( name = 'a' OR name = 'b' )  and  IN_FOLDER('id').
func parseStatement(statement string) (*parsedQuery, error) {
	s := strings.TrimSpace(statement)
	if !strings.HasPrefix(s, "SELECT * FROM ") {
		return nil, fmt.Errorf("%w: unsupported statement %q", cmisclient.ErrInvalidArgument, statement)
	}
	s = strings.TrimPrefix(s, "SELECT * FROM ")

	table := s
	where := ""
	if i := strings.Index(s, " WHERE "); i >= 0 {
		table, where = s[:i], s[i+len(" WHERE "):]
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return nil, fmt.Errorf("%w: missing table in %q", cmisclient.ErrInvalidArgument, statement)
	}

	q := &parsedQuery{table: table}
	if where == "" {
		return q, nil
	}
	for _, clause := range splitConditions(where) {
		pred, err := parseCondition(clause)
		if err != nil {
			return nil, err
		}
		q.preds = append(q.preds, pred)
	}
	return q, nil
}

// splitConditions splits on top-level " AND ", leaving parenthesised OR
// groups intact.
func splitConditions(where string) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i+5 <= len(where); i++ {
		switch where[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 && strings.HasPrefix(where[i:], " AND ") {
			out = append(out, strings.TrimSpace(where[start:i]))
			start = i + 5
		}
	}
	out = append(out, strings.TrimSpace(where[start:]))
	return out
}

func parseCondition(clause string) (predicate, error) {
	switch {
	case strings.HasPrefix(clause, "IN_FOLDER('") && strings.HasSuffix(clause, "')"):
		folderID := clause[len("IN_FOLDER('") : len(clause)-2]
		bare := strings.TrimPrefix(folderID, idPrefix)
		return func(o *object) bool { return o.parentID == bare }, nil

	case strings.HasPrefix(clause, "( ") && strings.HasSuffix(clause, " )"):
		var alts []predicate
		for _, alt := range strings.Split(clause[2:len(clause)-2], " OR ") {
			p, err := parseCondition(strings.TrimSpace(alt))
			if err != nil {
				return nil, err
			}
			alts = append(alts, p)
		}
		return func(o *object) bool {
			for _, p := range alts {
				if p(o) {
					return true
				}
			}
			return false
		}, nil

	case strings.HasSuffix(clause, " IS NOT NULL"):
		name := strings.TrimSpace(strings.TrimSuffix(clause, " IS NOT NULL"))
		return func(o *object) bool {
			_, ok := propText(o, name)
			return ok
		}, nil

	case strings.HasSuffix(clause, " IS NULL"):
		name := strings.TrimSpace(strings.TrimSuffix(clause, " IS NULL"))
		return func(o *object) bool {
			_, ok := propText(o, name)
			return !ok
		}, nil

	default:
		name, value, found := strings.Cut(clause, " = ")
		if !found || !strings.HasPrefix(value, "'") || !strings.HasSuffix(value, "'") {
			return nil, fmt.Errorf("%w: unsupported condition %q", cmisclient.ErrInvalidArgument, clause)
		}
		name = strings.TrimSpace(name)
		want := value[1 : len(value)-1]
		return func(o *object) bool {
			got, ok := propText(o, name)
			return ok && got == want
		}, nil
	}
}

// propText renders a property value as text for comparisons. cmis:objectId
// resolves to the node's id even though it is not stored as a property.
func propText(o *object, name string) (string, bool) {
	if name == "cmis:objectId" {
		return o.objectID(), true
	}
	p, ok := o.props[name]
	if !ok || p.Value == nil {
		return "", false
	}
	if s, ok := p.Value.(string); ok {
		if s == "" {
			return "", false
		}
		return s, true
	}
	return fmt.Sprint(p.Value), true
}

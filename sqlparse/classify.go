package sqlparse

import (
	"regexp"
	"strings"
)

// Operations reported by Classify.
const (
	OperationSelect = "select"
	OperationUpdate = "update"
	OperationInsert = "insert"
	OperationDelete = "delete"
	OperationOther  = "other"
)

// Statement is the normalized form of a SQL statement.
type Statement struct {
	Operation  string
	Collection string
	Database   string
	Query      string
}

// Querier is implemented by statement objects that expose their SQL text.
type Querier interface {
	SQL() string
}

var (
	commentPattern   = regexp.MustCompile(`(?s)/\*.*?\*/`)
	operationPattern = regexp.MustCompile(`^\s*(\w+)`)

	namePart   = "(?:`[^`]+`|\"[^\"]+\"|\\[[^\\]]+\\]|[\\w$-]+)"
	identifier = "(" + namePart + "(?:\\." + namePart + ")*)"

	collectionPatterns = map[string]*regexp.Regexp{
		OperationSelect: regexp.MustCompile(`(?is)\bfrom\s+` + identifier),
		OperationUpdate: regexp.MustCompile(`(?is)^\s*update\s+` + identifier),
		OperationInsert: regexp.MustCompile(`(?is)\binto\s+` + identifier),
		OperationDelete: regexp.MustCompile(`(?is)\bfrom\s+` + identifier),
	}
)

// Classify extracts the operation and collection of a statement. Strings, byte slices
// and Querier values are parsed; anything else classifies as "other".
func Classify(input any) Statement {
	var sql string
	switch v := input.(type) {
	case string:
		sql = v
	case []byte:
		sql = string(v)
	case Querier:
		sql = v.SQL()
	default:
		return Statement{Operation: OperationOther}
	}
	return classify(sql)
}

func classify(sql string) Statement {
	query := strings.TrimSpace(commentPattern.ReplaceAllString(sql, ""))
	stmt := Statement{Operation: OperationOther, Query: query}

	m := operationPattern.FindStringSubmatch(query)
	if m == nil {
		return stmt
	}
	op := strings.ToLower(m[1])
	pattern, ok := collectionPatterns[op]
	if !ok {
		return stmt
	}
	stmt.Operation = op

	if cm := pattern.FindStringSubmatch(query); cm != nil {
		stmt.Database, stmt.Collection = splitCollection(cm[1])
	}
	return stmt
}

// splitCollection turns `db`.`table` or db.table into its parts, dropping quoting.
func splitCollection(raw string) (database, collection string) {
	parts := strings.Split(raw, ".")
	for i, p := range parts {
		parts[i] = strings.Trim(p, "`\"'[]")
	}
	if len(parts) == 1 {
		return "", parts[0]
	}
	return strings.Join(parts[:len(parts)-1], "."), parts[len(parts)-1]
}

package synthesizer

import (
	"strings"

	"github.com/aalemi-dev/apmbridge/apm"
	"github.com/aalemi-dev/apmbridge/rules"
	"github.com/aalemi-dev/apmbridge/sqlparse"
)

// ObfuscatedSQLAttribute holds the literal-free statement of query segments.
const ObfuscatedSQLAttribute = "sql.obfuscated"

var datastoreNames = map[string]string{
	"postgresql":    "Postgres",
	"postgres":      "Postgres",
	"mysql":         "MySQL",
	"mariadb":       "MySQL",
	"mssql":         "MSSQL",
	"oracle":        "Oracle",
	"sqlite":        "SQLite",
	"redis":         "Redis",
	"memcached":     "Memcache",
	"mongodb":       "MongoDB",
	"cassandra":     "Cassandra",
	"elasticsearch": "ElasticSearch",
	"dynamodb":      "DynamoDB",
	"couchbase":     "Couchbase",
}

// DatastoreName returns the display name of a db.system value. Unknown systems are
// returned as is; an empty system is "Unknown".
func DatastoreName(system string) string {
	if system == "" {
		return UnknownHost
	}
	if name, ok := datastoreNames[strings.ToLower(system)]; ok {
		return name
	}
	return system
}

// datastore names database calls. Collection and operation attributes are used as
// given; a raw statement goes through the SQL classifier. Without either the name
// falls back to the operation and then to the system.
func (b *build) datastore() *Result {
	t := b.segmentTransform()

	rawSystem, _ := t.System.ResolveString(b.attrs)
	system := DatastoreName(rawSystem)
	statement, hasStatement := t.Statement.ResolveString(b.attrs)
	collection, hasCollection := t.Collection.ResolveString(b.attrs)
	operation, hasOperation := t.Operation.ResolveString(b.attrs)

	var (
		name   string
		rec    apm.Recorder
		parsed *sqlparse.Statement
	)
	switch {
	case hasCollection && hasOperation:
		parsed = &sqlparse.Statement{Operation: operation, Collection: collection, Query: statement}
	case hasStatement:
		st := b.s.classify(statement)
		if st.Collection != "" {
			parsed = &st
		} else {
			operation, hasOperation = st.Operation, true
		}
	}

	switch {
	case parsed != nil:
		name = "Datastore/statement/" + system + "/" + parsed.Collection + "/" + parsed.Operation
		rec = apm.DatastoreQueryRecorder{System: system, Statement: *parsed}
	case hasOperation:
		op := firstWord(operation)
		name = "Datastore/operation/" + system + "/" + op
		rec = apm.DatastoreOperationRecorder{System: system, Operation: op}
	default:
		name = "Datastore/" + system
		rec = apm.DatastoreOperationRecorder{System: system, Operation: "other"}
	}

	seg := b.child(name, rec)
	if seg == nil {
		return nil
	}
	if parsed != nil && parsed.Database != "" {
		seg.AddAttribute("database_name", parsed.Database)
	}
	if hasStatement && !b.s.highSecurity && b.s.classifier != nil {
		obfuscated, ok, err := b.s.classifier.Obfuscate(statement)
		if err != nil {
			b.s.logDebug(b.ctx, "failed to obfuscate statement", map[string]interface{}{
				"error":  err.Error(),
				"system": system,
			})
		} else if ok {
			seg.AddAttribute(ObfuscatedSQLAttribute, obfuscated)
		}
	}
	return b.result(rules.TypeDB, seg)
}

func firstWord(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}

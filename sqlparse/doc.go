// Package sqlparse classifies SQL statements for datastore segment naming.
//
// Classify is a pure function: it strips block comments, reads the leading keyword and
// pulls the target table out of select, update, insert and delete statements. The
// Classifier type adds an LRU cache in front of it and can strip literals from
// statements with the Datadog obfuscator before they are attached to segments.
package sqlparse

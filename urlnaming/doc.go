// Package urlnaming turns request URLs into path names for web transactions.
//
// Paths are parsed from full URLs or bare paths, passed through ordered regular
// expression replacements (typically collapsing ids) and then through user naming rules
// that can replace the whole name. Unparsable URLs degrade to UnknownPath.
package urlnaming

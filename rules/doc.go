// Package rules loads the declarative rule table and matches spans against it.
//
// A table is a versioned JSON document. Each rule names the span kinds and attribute
// predicates it matches, the builder type that handles matched spans, attribute
// directives and the transaction and segment transforms:
//
//	{
//	  "version": "1.0.0",
//	  "rules": [{
//	    "name": "OtelHttpServer1_23",
//	    "type": "server",
//	    "matcher": {
//	      "required_span_kinds": ["server"],
//	      "required_attribute_keys": ["http.request.method"]
//	    },
//	    "transaction": {"type": "web", "name": {"verb": "http.request.method", "path": "http.route"}}
//	  }]
//	}
//
// Rules whose name starts with "Fallback" are only consulted when no primary rule for
// the span kind matches. Within each group the first matching rule in declaration
// order wins.
//
// Load rejects the whole table when any rule is invalid, so a broken table pushed at
// runtime never replaces a working one in a Store.
package rules

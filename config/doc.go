// Package config loads the bridge configuration.
//
// Values come from three layers, later ones winning: Default, a YAML file, and
// environment variables named APMBRIDGE_<tag> after the envconfig tag of each field:
//
//	logger:
//	  level: debug
//	processor:
//	  high_security: true
//	rules:
//	  kind: postgres
//	  poll_interval: 30s
//	  database:
//	    host: db.internal
//	    db_name: apm
//	  kafka:
//	    enabled: true
//	    brokers: [kafka-0:9092]
//	    topic: apm-rules
//
//	APMBRIDGE_LOG_LEVEL=info APMBRIDGE_RULES_DB_PASSWORD=secret ./bridge
//
// Environment variables without the prefix are consulted as a fallback, following
// envconfig.
package config

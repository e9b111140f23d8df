// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation,
// e.g. an origin that differs per deployment:
//
//	stream:
//	  origin: ${SIMDASH_ORIGIN}
package config

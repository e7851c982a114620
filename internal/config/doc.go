// Package config loads CLI defaults from a YAML file and LINKEDIN_DL_*
// environment variables. Command-line flags are applied on top by the
// caller.
//
// Example file:
//
//	max_attempts: 5
//	wait: 10s
//	limit: 1m30s
//	quality: 800000
//	rate_limit: 1048576
//	http:
//	  timeout: 20s
//	  retries: 3
//	  proxy: http://127.0.0.1:3128
//	log:
//	  level: debug
//	  components:
//	    retry: true
package config

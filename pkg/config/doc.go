// Package config provides configuration management for the formula engine
// and the formulactl tool.
//
// Configuration is loaded from a YAML file, completed with defaults,
// overridden from the environment and then validated:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("formula.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention FORMULA_SECTION_FIELD:
//
//   - FORMULA_ENGINE_MAX_LENGTH overrides engine.max_length
//   - FORMULA_AUDIT_BACKEND overrides audit.backend
//   - FORMULA_AUDIT_SQLITE_PATH overrides audit.sqlite.path
//   - FORMULA_CATALOG_PATH overrides catalog.path
//   - FORMULA_LOG_LEVEL overrides telemetry.logging.level
//
// # Validation
//
// Field rules are declared as struct tags and checked with
// go-playground/validator. Rules that span fields, such as the retention
// cron schedule, are checked afterwards. All failures are collected into a
// single ValidationError:
//
//	configuration validation failed with 2 errors:
//	  - engine.max_length: must be greater than or equal to 1
//	  - audit.retention.schedule: invalid cron expression "daily": ...
//
// # Example Configuration
//
//	engine:
//	  max_length: 500
//	  max_depth: 32
//	  cache_capacity: 1024
//	  denylist: [fetch, XMLHttpRequest]
//
//	audit:
//	  backend: sqlite
//	  sqlite:
//	    path: data/audit.db
//	    driver: sqlite
//	  retention:
//	    days: 30
//	    schedule: "0 3 * * *"
//
//	catalog:
//	  path: ./formulas
//	  watch: true
//
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
//	  metrics:
//	    enabled: true
package config

// Package config loads the runtime configuration of a process runner.
//
// Values are layered with viper: a YAML config file, then a dotenv file read
// with godotenv, then prefixed process environment variables. The dotenv file
// is parsed, not loaded, so launched commands never inherit its contents
// through the parent environment.
//
// # Usage
//
//	cfg, err := config.Load("build-runner", config.WithConfigFile("runner.yml"))
//
// BUILD_RUNNER_LOGGING_LEVEL=debug overrides logging.level, and
// BUILD_RUNNER_RUNNER_TIMEOUT=30s overrides runner.timeout.
package config

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/procspec/logger"
)

// FileSystem abstracts the file access LoadConfig needs.
type FileSystem interface {
	Exists(path string) bool
	// ReadEnv parses a dotenv file without touching the process environment.
	ReadEnv(path string) (map[string]string, error)
}

// RealFileSystem implements FileSystem on the local disk.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (RealFileSystem) ReadEnv(path string) (map[string]string, error) {
	return godotenv.Read(path)
}

// Resolver finds config and env files for a service.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns explicit paths when given and searches the standard
// locations otherwise. Empty results mean nothing was found.
func (r *Resolver) ResolveFiles(serviceName string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = r.first(configCandidates(serviceName))
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = r.first(envCandidates(serviceName))
	}
	return resolved
}

func (r *Resolver) first(paths []string) string {
	for _, path := range paths {
		if r.FileSystem.Exists(path) {
			return path
		}
	}
	return ""
}

func configCandidates(serviceName string) []string {
	var paths []string
	for _, dir := range []string{"./cmd/" + serviceName, "./config", "."} {
		paths = append(paths, dir+"/config.yml", dir+"/config.yaml")
	}
	return paths
}

func envCandidates(serviceName string) []string {
	return []string{
		"./cmd/" + serviceName + "/.env",
		"./.env." + serviceName,
		"./.env",
	}
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string // Direct config file path (optional)
	EnvFile    string // Direct env file path (optional)
	// Environ returns the process environment. Defaults to os.Environ.
	Environ func() []string
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnviron replaces the process environment the loader reads overrides
// from.
func WithEnviron(fn func() []string) LoaderOption {
	return func(lc *LoaderConfig) { lc.Environ = fn }
}

// EnvPrefix is the variable prefix LoadConfig reads overrides from:
// "build-runner" becomes "BUILD_RUNNER_".
func EnvPrefix(serviceName string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(serviceName)) + "_"
}

// LoadConfig reads configuration for a service into cfg. Values come from
// the YAML config file, then the .env file, then process environment
// variables carrying EnvPrefix(serviceName), each overriding the last.
// Missing files are skipped; unreadable ones are errors.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	lc := LoaderConfig{
		FileSystem: RealFileSystem{},
		Environ:    os.Environ,
	}
	for _, opt := range opts {
		opt(&lc)
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(serviceName, lc)
	log := logger.Get("config")

	v := viper.New()

	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", files.ConfigFile, err)
		}
		log.Debug("config file loaded", logger.Fields("path", files.ConfigFile))
	}

	prefix := EnvPrefix(serviceName)
	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		vars, err := lc.FileSystem.ReadEnv(files.EnvFile)
		if err != nil {
			return fmt.Errorf("reading env file %s: %w", files.EnvFile, err)
		}
		for key, val := range vars {
			bindEnvVar(v, prefix, key, val)
		}
		log.Debug("env file loaded", logger.Fields("path", files.EnvFile, "vars", len(vars)))
	}

	for _, kv := range lc.Environ() {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		bindEnvVar(v, prefix, key, val)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", serviceName, err)
	}
	return nil
}

// Load reads the runner Config for a service, applies defaults and validates
// it.
func Load(serviceName string, opts ...LoaderOption) (*Config, error) {
	cfg := &Config{Name: serviceName}
	if err := LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindEnvVar sets every nested key the variable could address once the
// prefix is stripped. Variables without the prefix are ignored.
func bindEnvVar(v *viper.Viper, prefix, key, val string) {
	rest, ok := strings.CutPrefix(key, prefix)
	if !ok || rest == "" {
		return
	}
	for _, variant := range generateEnvKeyVariants(rest) {
		v.Set(variant, val)
	}
}

// generateEnvKeyVariants lists the key paths an underscore-separated name may
// mean, since both nesting and field names use underscores:
//
//	TRACING_SAMPLE_RATE -> [tracing_sample_rate, tracing.sample.rate, tracing.sample_rate, tracing_sample.rate]
func generateEnvKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")
	if len(parts) <= 1 {
		return []string{lowerKey}
	}

	variants := []string{
		lowerKey,
		strings.ReplaceAll(lowerKey, "_", "."),
	}
	for i := 1; i < len(parts); i++ {
		variants = append(variants,
			strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"),
			strings.Join(parts[:i], "_")+"."+strings.Join(parts[i:], "_"),
		)
	}
	return removeDuplicates(variants)
}

func removeDuplicates(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}
	return result
}

// Package config implements tinygraphd's YAML-loadable, mergeable
// configuration, grounded on the teacher's database/database.go
// ParseGeneratorConfig/MergeGeneratorConfig pattern: a plain struct,
// unmarshaled with gopkg.in/yaml.v3, merged field-by-field with the
// later value winning only where it is actually set.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is tinygraphd's full configuration: where the backing store
// lives and how the HTTP endpoint listens.
type Config struct {
	Extends  []string `yaml:"extends"`
	Store    Store    `yaml:"store"`
	Endpoint Endpoint `yaml:"endpoint"`
	LogLevel string   `yaml:"log_level"`
}

// Store configures the embedded backing store.
type Store struct {
	DSN string `yaml:"dsn"`
}

// Endpoint configures the HTTP SPARQL endpoint.
type Endpoint struct {
	Addr               string `yaml:"addr"`
	PreferredFormat    string `yaml:"preferred_format"`
	DefaultGraphPrefix string `yaml:"default_graph_prefix"`
}

// ParseString parses one YAML document into a Config. An empty string
// returns the zero Config, mirroring ParseGeneratorConfigString's
// empty-input shortcut.
func ParseString(yamlString string) (Config, error) {
	if yamlString == "" {
		return Config{}, nil
	}
	return parseBytes([]byte(yamlString))
}

// ParseFile reads and parses the YAML config file at path.
func ParseFile(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return parseBytes(buf)
}

func parseBytes(buf []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(buf, &c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

// Merge merges two configs, with override's set fields taking
// precedence over base's, per MergeGeneratorConfig's override-only-if-set
// rule.
func Merge(base, override Config) Config {
	result := base
	if override.Store.DSN != "" {
		result.Store.DSN = override.Store.DSN
	}
	if override.Endpoint.Addr != "" {
		result.Endpoint.Addr = override.Endpoint.Addr
	}
	if override.Endpoint.PreferredFormat != "" {
		result.Endpoint.PreferredFormat = override.Endpoint.PreferredFormat
	}
	if override.Endpoint.DefaultGraphPrefix != "" {
		result.Endpoint.DefaultGraphPrefix = override.Endpoint.DefaultGraphPrefix
	}
	if override.LogLevel != "" {
		result.LogLevel = override.LogLevel
	}
	return result
}

// MergeAll merges a slice of configs left to right, each one overriding
// the accumulated result, mirroring MergeGeneratorConfigs.
func MergeAll(configs []Config) Config {
	var result Config
	for _, c := range configs {
		result = Merge(result, c)
	}
	return result
}

// Load reads the config file at path and every file it names in
// "extends" (resolved transitively), merging base configs before the
// ones that extend them so a derived file's settings win. Extends
// chains are resolved with a dependency-ordered topological sort —
// adapted from the teacher's schema/tsort.go, since an RDF config file
// doesn't have DDL-style foreign-key dependencies but the "apply base
// before the file that extends it" ordering problem is the same shape.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	loaded := make(map[string]Config)
	order, err := collectExtends(path, loaded, make(map[string]bool), make(map[string]bool))
	if err != nil {
		return Config{}, err
	}
	sorted := topologicalSort(order, extendsDependencies(loaded), func(p string) string { return p })

	var configs []Config
	for _, p := range sorted {
		configs = append(configs, loaded[p])
	}
	return MergeAll(configs), nil
}

func collectExtends(path string, loaded map[string]Config, visiting, done map[string]bool) ([]string, error) {
	if done[path] {
		return nil, nil
	}
	if visiting[path] {
		return nil, fmt.Errorf("config: circular extends at %s", path)
	}
	visiting[path] = true

	c, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	loaded[path] = c

	order := []string{path}
	for _, dep := range c.Extends {
		depOrder, err := collectExtends(dep, loaded, visiting, done)
		if err != nil {
			return nil, err
		}
		order = append(depOrder, order...)
	}

	visiting[path] = false
	done[path] = true
	return order, nil
}

func extendsDependencies(loaded map[string]Config) map[string][]string {
	deps := make(map[string][]string, len(loaded))
	for path, c := range loaded {
		deps[path] = c.Extends
	}
	return deps
}

package mappersmith

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultMaxMiddlewareStackExecutions bounds pipeline re-entries per call:
// the initial run plus one renew.
const DefaultMaxMiddlewareStackExecutions = 2

// MethodSpec declares one remote operation: its path (required), verb
// (default GET), optional host override, default params/headers, timeout,
// method-scoped middleware and per-gateway config overrides.
type MethodSpec struct {
	Path    string
	Method  string
	Host    string
	Params  Params
	Headers Headers
	Timeout time.Duration

	// Middleware runs after global and resource-scoped middleware, in
	// declared order. Not representable in YAML.
	Middleware []MiddlewareFactory

	// Configs overrides gateway configuration per gateway name, highest
	// precedence in the merge order.
	Configs map[string]GatewayConfig
}

// Resource groups the methods sharing a base host, plus resource-scoped
// middleware and gateway config overrides.
type Resource struct {
	Methods    map[string]MethodSpec
	Middleware []MiddlewareFactory
	Configs    map[string]GatewayConfig
}

// Manifest is the validated, read-only description a client is built from.
// Build it from a Go literal or load it from YAML/JSON via LoadManifest; it
// must not change after New.
type Manifest struct {
	Host      string              `yaml:"host"`
	ClientID  string              `yaml:"clientId"`
	Gateway   string              `yaml:"gateway"`
	Resources map[string]Resource `yaml:"resources"`
	Context   map[string]any      `yaml:"context"`

	// Middleware applies to every method, in declared order, ahead of
	// resource- and method-scoped middleware.
	Middleware []MiddlewareFactory `yaml:"-"`

	// GatewayConfigs holds global gateway configuration per gateway name,
	// lowest precedence in the merge order.
	GatewayConfigs map[string]GatewayConfig `yaml:"gatewayConfigs"`

	// MaxMiddlewareStackExecutions bounds pipeline re-entries per call.
	// Zero means DefaultMaxMiddlewareStackExecutions.
	MaxMiddlewareStackExecutions int `yaml:"maxMiddlewareStackExecutions"`
}

// Validate checks the manifest eagerly so misconfiguration surfaces at
// client construction, before any request is issued. Every method must
// declare a non-empty path and a known verb; errors name the resource and
// method at fault.
func (m *Manifest) Validate() error {
	if len(m.Resources) == 0 {
		return configError("manifest declares no resources")
	}
	for resourceName, resource := range m.Resources {
		if len(resource.Methods) == 0 {
			return configError("resource %q declares no methods", resourceName)
		}
		for methodName, spec := range resource.Methods {
			if strings.TrimSpace(spec.Path) == "" {
				err := configError("method %q of resource %q is missing a path", methodName, resourceName)
				err.Resource = resourceName
				err.MethodName = methodName
				return err
			}
			if spec.Method != "" && !knownVerbs[strings.ToUpper(spec.Method)] {
				err := configError("method %q of resource %q declares unknown verb %q", methodName, resourceName, spec.Method)
				err.Resource = resourceName
				err.MethodName = methodName
				return err
			}
		}
	}
	return nil
}

// methodSpec resolves one operation, or a configuration error naming what
// is missing.
func (m *Manifest) methodSpec(resourceName, methodName string) (MethodSpec, error) {
	resource, ok := m.Resources[resourceName]
	if !ok {
		return MethodSpec{}, configError("unknown resource %q", resourceName)
	}
	spec, ok := resource.Methods[methodName]
	if !ok {
		err := configError("resource %q has no method %q", resourceName, methodName)
		err.Resource = resourceName
		return MethodSpec{}, err
	}
	return spec, nil
}

// gatewayConfig merges the configuration for one gateway across scopes,
// per key, lowest to highest precedence: global < resource < method.
func (m *Manifest) gatewayConfig(gatewayName, resourceName, methodName string) GatewayConfig {
	merged := GatewayConfig{}
	merge := func(config GatewayConfig) {
		for key, value := range config {
			merged[key] = value
		}
	}
	merge(m.GatewayConfigs[gatewayName])
	if resource, ok := m.Resources[resourceName]; ok {
		merge(resource.Configs[gatewayName])
		if spec, ok := resource.Methods[methodName]; ok {
			merge(spec.Configs[gatewayName])
		}
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}

// middlewareFor collects the factories in scope for one operation: global,
// then resource, then method, preserving declared order within each scope.
func (m *Manifest) middlewareFor(resourceName, methodName string) []MiddlewareFactory {
	var factories []MiddlewareFactory
	factories = append(factories, m.Middleware...)
	if resource, ok := m.Resources[resourceName]; ok {
		factories = append(factories, resource.Middleware...)
		if spec, ok := resource.Methods[methodName]; ok {
			factories = append(factories, spec.Middleware...)
		}
	}
	return factories
}

// LoadManifest reads a YAML (or JSON, which YAML subsumes) manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configError("reading manifest %q: %v", path, err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes and validates a YAML/JSON manifest document.
func ParseManifest(data []byte) (*Manifest, error) {
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, configError("parsing manifest: %v", err)
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// UnmarshalYAML accepts both the nested form ({methods: {...}, configs:
// {...}}) and the shorthand where the resource node is directly the method
// mapping.
func (r *Resource) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("resource must be a mapping")
	}
	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value == "methods" {
			var full struct {
				Methods map[string]MethodSpec    `yaml:"methods"`
				Configs map[string]GatewayConfig `yaml:"configs"`
			}
			if err := node.Decode(&full); err != nil {
				return err
			}
			r.Methods = full.Methods
			r.Configs = full.Configs
			return nil
		}
	}
	return node.Decode(&r.Methods)
}

// UnmarshalYAML decodes a method spec, accepting timeouts as integer
// milliseconds or Go duration strings ("2s", "150ms").
func (s *MethodSpec) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Path    string                   `yaml:"path"`
		Method  string                   `yaml:"method"`
		Host    string                   `yaml:"host"`
		Params  Params                   `yaml:"params"`
		Headers Headers                  `yaml:"headers"`
		Timeout any                      `yaml:"timeout"`
		Configs map[string]GatewayConfig `yaml:"configs"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	timeout, err := parseTimeout(raw.Timeout)
	if err != nil {
		return err
	}
	s.Path = raw.Path
	s.Method = raw.Method
	s.Host = raw.Host
	s.Params = raw.Params
	s.Headers = raw.Headers
	s.Timeout = timeout
	s.Configs = raw.Configs
	return nil
}

func parseTimeout(value any) (time.Duration, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return time.Duration(v) * time.Millisecond, nil
	case int64:
		return time.Duration(v) * time.Millisecond, nil
	case float64:
		return time.Duration(v * float64(time.Millisecond)), nil
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid timeout %q: %w", v, err)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("invalid timeout value %v", value)
	}
}

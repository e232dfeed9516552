package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"go.viam.com/synthcam/logging"
)

// Attributes are the engine specific settings of a session, as found in a config file.
type Attributes map[string]interface{}

// Constructor creates an engine from its attributes.
type Constructor func(ctx context.Context, attrs Attributes, logger logging.Logger) (Engine, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
	schemas    = map[string]*jsonschema.Schema{}
)

// Register makes an engine available under a name. It is meant to be called from init and
// panics on duplicate names.
func Register(name string, constructor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[name]; ok {
		panic(errors.Errorf("trying to register two engines with the same name %q", name))
	}
	if constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for engine %q", name))
	}
	registry[name] = constructor
}

// Deregister removes a registered engine. Used by tests.
func Deregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, name)
	delete(schemas, name)
}

// RegisterNative registers an engine configured by T, decoded from attributes with NativeConfig.
// The JSON schema of T is kept for AttributeSchema.
func RegisterNative[T any](name string, constructor func(ctx context.Context, cfg *T, logger logging.Logger) (Engine, error)) {
	Register(name, func(ctx context.Context, attrs Attributes, logger logging.Logger) (Engine, error) {
		cfg, err := NativeConfig[T](attrs)
		if err != nil {
			return nil, err
		}
		return constructor(ctx, cfg, logger)
	})
	schema := jsonschema.Reflect(new(T))
	registryMu.Lock()
	schemas[name] = schema
	registryMu.Unlock()
}

// AttributeSchema returns the JSON schema of the attributes an engine accepts. Only engines
// registered with RegisterNative have one.
func AttributeSchema(name string) (*jsonschema.Schema, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	schema, ok := schemas[name]
	return schema, ok
}

// Registered returns the names of all registered engines, sorted.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New constructs the engine registered under name.
func New(ctx context.Context, name string, attrs Attributes, logger logging.Logger) (Engine, error) {
	registryMu.RLock()
	constructor, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownEngine, "%q is not one of %v", name, Registered())
	}
	return constructor(ctx, attrs, logger)
}

// NativeConfig decodes attributes into an engine's own config type. Field names come from the
// json tags and unknown attributes are an error.
func NativeConfig[T any](attrs Attributes) (*T, error) {
	var native T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &native,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(map[string]interface{}(attrs)); err != nil {
		return nil, errors.Wrap(err, "cannot decode engine attributes")
	}
	return &native, nil
}

package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vk/nodeflow/internal/ctxlog"
	"github.com/vk/nodeflow/internal/node"
	"github.com/vk/nodeflow/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

// ErrUnknownKind is returned when a workflow names a kind nobody registered.
var ErrUnknownKind = errors.New("unknown node kind")

// Module is the interface that all built-in modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Kind describes one node kind.
type Kind struct {
	Name        string
	Description string
	// ConfigSchema constrains the node configuration; nil accepts any object.
	ConfigSchema *schema.Schema
	// New returns a fresh processor for every node of this kind.
	New func() node.Processor
}

// Registry holds the kinds available to a single application instance.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]*Kind
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{kinds: make(map[string]*Kind)}
}

// RegisterKind adds k. Registering the same name twice is a programming
// error and panics.
func (r *Registry) RegisterKind(k *Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[k.Name]; exists {
		panic(fmt.Sprintf("node kind '%s' already registered", k.Name))
	}
	r.kinds[k.Name] = k
}

// Kind returns the kind registered under name.
func (r *Registry) Kind(name string) (*Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	return k, ok
}

// Kinds returns all registered kinds sorted by name.
func (r *Registry) Kinds() []*Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Kind, 0, len(r.kinds))
	for _, k := range r.kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// NewNode creates an unbound node of the named kind.
func (r *Registry) NewNode(kind string, opts ...node.Option) (*node.Node, error) {
	k, ok := r.Kind(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	all := append([]node.Option{node.WithConfigSchema(k.ConfigSchema)}, opts...)
	return node.New(k.Name, k.New(), all...), nil
}

// Validate checks that every kind is usable: it has a name, a constructor
// that returns a processor, and a configuration schema that describes an
// object.
func (r *Registry) Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	for _, k := range r.Kinds() {
		if k.Name == "" {
			errs = append(errs, "kind with empty name")
			continue
		}
		if k.New == nil {
			errs = append(errs, fmt.Sprintf("kind '%s': no processor constructor", k.Name))
		} else if k.New() == nil {
			errs = append(errs, fmt.Sprintf("kind '%s': constructor returned nil", k.Name))
		}

		if k.ConfigSchema == nil {
			logger.Debug("Kind accepts any configuration.", "kind", k.Name)
			continue
		}
		ty := k.ConfigSchema.Type
		if !ty.IsObjectType() && !ty.IsMapType() && !ty.Equals(cty.DynamicPseudoType) {
			errs = append(errs, fmt.Sprintf("kind '%s': configuration schema must be an object, got %s", k.Name, k.ConfigSchema))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// MustSchema parses a configuration schema at registration time. It panics on
// invalid source, which is a programming error in a module.
func MustSchema(src string) *schema.Schema {
	s, err := schema.Parse(src)
	if err != nil {
		panic(err)
	}
	return s
}

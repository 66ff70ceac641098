// Package container is an in-memory resolution engine. It records component
// registrations, computes handler states and missing dependencies, and
// materializes implicit typed factories for delegate types. Analysis runs
// against a frozen Snapshot.
package container

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/olehluchkiv/diverify/internal/model"
)

var (
	// ErrDuplicateComponent is returned when a component name is registered twice.
	ErrDuplicateComponent = errors.New("container: duplicate component name")

	// ErrNoServices is returned when a registration declares no service type.
	ErrNoServices = errors.New("container: component declares no services")

	// ErrEmptyName is returned when a registration has no name.
	ErrEmptyName = errors.New("container: component name is empty")

	// ErrUnknownDelegate is returned when a factory has no methods and its type
	// is not a declared delegate.
	ErrUnknownDelegate = errors.New("container: delegate shape not declared")
)

// Registration describes a component to register.
type Registration struct {
	Name           string
	Services       []model.TypeRef
	Implementation model.TypeRef
	Dependencies   []model.DependencyModel
}

// Delegate is the shape of a function type that can act as a typed factory
// with a single Invoke method.
type Delegate struct {
	Type       model.TypeRef
	Parameters []model.DependencyModel
	Returns    model.TypeRef
}

func (d Delegate) invoke() model.FactoryMethod {
	return model.FactoryMethod{
		Name:       "Invoke",
		Kind:       model.FactoryMethodResolve,
		Parameters: slices.Clone(d.Parameters),
		Returns:    d.Returns,
	}
}

type entry struct {
	reg     Registration
	factory *model.FactoryClassification
}

// Container collects registrations. It is safe for concurrent use.
type Container struct {
	mu        sync.RWMutex
	entries   []*entry
	names     map[string]bool
	delegates map[model.TypeRef]Delegate
	loaders   []ImplicitFactoryLoader
	logger    *slog.Logger
}

// New returns an empty container with the delegate loader installed.
func New(logger *slog.Logger) *Container {
	return &Container{
		names:     make(map[string]bool),
		delegates: make(map[model.TypeRef]Delegate),
		loaders:   []ImplicitFactoryLoader{DelegateLoader{}},
		logger:    logger.With("component", "container"),
	}
}

// AddLoader appends an implicit factory loader. Loaders are consulted in order.
func (c *Container) AddLoader(l ImplicitFactoryLoader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaders = append(c.loaders, l)
}

// Register adds a component.
func (c *Container) Register(r Registration) error {
	if err := c.checkRegistration(r.Name, r.Services); err != nil {
		return err
	}
	for _, d := range r.Dependencies {
		if d.TargetType.IsZero() {
			return fmt.Errorf("component %q dependency %q: %w", r.Name, d.Key, model.ErrZeroType)
		}
	}
	if r.Implementation.IsZero() {
		r.Implementation = r.Services[0]
	}
	r.Services = slices.Clone(r.Services)
	r.Dependencies = slices.Clone(r.Dependencies)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.names[r.Name] {
		return fmt.Errorf("%w: %q", ErrDuplicateComponent, r.Name)
	}
	c.names[r.Name] = true
	c.entries = append(c.entries, &entry{reg: r})
	c.logger.Debug("component registered", "name", r.Name, "services", len(r.Services), "dependencies", len(r.Dependencies))
	return nil
}

// RegisterFactory registers an explicit typed factory for factoryType.
// When methods is empty, factoryType must be a declared delegate and the
// factory exposes the delegate's Invoke method.
func (c *Container) RegisterFactory(name string, factoryType model.TypeRef, methods []model.FactoryMethod) error {
	if err := c.checkRegistration(name, []model.TypeRef{factoryType}); err != nil {
		return err
	}
	for _, m := range methods {
		if m.Kind == model.FactoryMethodResolve && m.Returns.IsZero() {
			return fmt.Errorf("factory %q resolve method %s returns nothing: %w", name, m.Name, model.ErrZeroType)
		}
		for _, p := range m.Parameters {
			if p.TargetType.IsZero() {
				return fmt.Errorf("factory %q method %s parameter %q: %w", name, m.Name, p.Key, model.ErrZeroType)
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.names[name] {
		return fmt.Errorf("%w: %q", ErrDuplicateComponent, name)
	}
	if len(methods) == 0 {
		d, ok := c.delegates[factoryType]
		if !ok {
			return fmt.Errorf("factory %q: %w: %s", name, ErrUnknownDelegate, factoryType)
		}
		methods = []model.FactoryMethod{d.invoke()}
	}
	c.names[name] = true
	c.entries = append(c.entries, &entry{
		reg: Registration{
			Name:           name,
			Services:       []model.TypeRef{factoryType},
			Implementation: factoryType,
		},
		factory: &model.FactoryClassification{Methods: slices.Clone(methods)},
	})
	c.logger.Debug("typed factory registered", "name", name, "type", factoryType.String(), "methods", len(methods))
	return nil
}

// DeclareDelegate records the shape of a function type so it can be served as
// an implicit factory or registered explicitly. Redeclaring replaces the shape.
func (c *Container) DeclareDelegate(d Delegate) error {
	if d.Type.IsZero() || d.Returns.IsZero() {
		return fmt.Errorf("delegate %q: %w", d.Type.Name, model.ErrZeroType)
	}
	d.Parameters = slices.Clone(d.Parameters)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.delegates[d.Type] = d
	return nil
}

// Len returns the number of registered components.
func (c *Container) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Container) checkRegistration(name string, services []model.TypeRef) error {
	if name == "" {
		return ErrEmptyName
	}
	if len(services) == 0 {
		return fmt.Errorf("%w: %q", ErrNoServices, name)
	}
	for _, s := range services {
		if s.IsZero() {
			return fmt.Errorf("component %q service: %w", name, model.ErrZeroType)
		}
	}
	return nil
}

package container

import (
	"slices"

	"github.com/olehluchkiv/diverify/internal/model"
)

// Snapshot is a frozen view of a container with handler states computed.
// It implements analyzer.Registry.
type Snapshot struct {
	components []*model.ComponentDescriptor
	byName     map[string]*model.ComponentDescriptor
	byService  map[model.TypeRef][]*model.ComponentDescriptor
	delegates  map[model.TypeRef]Delegate
	loaders    []ImplicitFactoryLoader
}

// Snapshot copies the current registrations and computes every component's
// resolution state. Later registrations do not affect the returned snapshot.
func (c *Container) Snapshot() *Snapshot {
	c.mu.RLock()
	s := &Snapshot{
		byName:    make(map[string]*model.ComponentDescriptor, len(c.entries)),
		byService: make(map[model.TypeRef][]*model.ComponentDescriptor),
		delegates: make(map[model.TypeRef]Delegate, len(c.delegates)),
		loaders:   slices.Clone(c.loaders),
	}
	for t, d := range c.delegates {
		s.delegates[t] = d
	}
	for _, e := range c.entries {
		desc := &model.ComponentDescriptor{
			Name:           e.reg.Name,
			Services:       slices.Clone(e.reg.Services),
			Implementation: e.reg.Implementation,
			Dependencies:   slices.Clone(e.reg.Dependencies),
			State:          model.StateWaitingOnDependency,
		}
		if e.factory != nil {
			desc.Factory = &model.FactoryClassification{Methods: slices.Clone(e.factory.Methods)}
		}
		s.components = append(s.components, desc)
		s.byName[desc.Name] = desc
		for _, svc := range desc.Services {
			s.byService[svc] = append(s.byService[svc], desc)
		}
	}
	c.mu.RUnlock()

	s.computeStates()
	c.logger.Debug("snapshot taken", "components", len(s.components), "delegates", len(s.delegates))
	return s
}

// computeStates finds the least set of valid components: a component becomes
// valid once every required dependency is served by a valid handler or by an
// implicit factory. Components on a dependency cycle never become valid.
func (s *Snapshot) computeStates() {
	valid := make(map[*model.ComponentDescriptor]bool, len(s.components))
	implicit := make(map[model.DependencyModel]bool)

	satisfied := func(d model.DependencyModel) bool {
		if !d.Required() {
			return true
		}
		if handlers := s.byService[d.TargetType]; len(handlers) > 0 {
			for _, h := range handlers {
				if valid[h] {
					return true
				}
			}
			return false
		}
		ok, seen := implicit[d]
		if !seen {
			_, ok = s.MaterializeImplicitFactory(d.Key, d.TargetType)
			implicit[d] = ok
		}
		return ok
	}

	for changed := true; changed; {
		changed = false
		for _, c := range s.components {
			if valid[c] {
				continue
			}
			ready := true
			for _, d := range c.Dependencies {
				if !satisfied(d) {
					ready = false
					break
				}
			}
			if ready {
				valid[c] = true
				changed = true
			}
		}
	}

	for _, c := range s.components {
		if valid[c] {
			c.State = model.StateValid
			continue
		}
		c.State = model.StateWaitingOnDependency
		for _, d := range c.Dependencies {
			if !satisfied(d) {
				c.MissingDependencies = append(c.MissingDependencies, d)
			}
		}
	}
}

// Components returns every registered component in registration order.
func (s *Snapshot) Components() []*model.ComponentDescriptor {
	return slices.Clone(s.components)
}

// Component returns the component registered under name.
func (s *Snapshot) Component(name string) (*model.ComponentDescriptor, bool) {
	c, ok := s.byName[name]
	return c, ok
}

// Handlers returns the components serving t.
func (s *Snapshot) Handlers(t model.TypeRef) []*model.ComponentDescriptor {
	return slices.Clone(s.byService[t])
}

// HasHandler reports whether any component is registered for t.
func (s *Snapshot) HasHandler(t model.TypeRef) bool {
	return len(s.byService[t]) > 0
}

// Delegate returns the declared shape of delegate type t.
func (s *Snapshot) Delegate(t model.TypeRef) (Delegate, bool) {
	d, ok := s.delegates[t]
	return d, ok
}

// MaterializeImplicitFactory asks each loader, in order, for a hypothetical
// descriptor serving t. Every call returns a fresh descriptor.
func (s *Snapshot) MaterializeImplicitFactory(key string, t model.TypeRef) (*model.ComponentDescriptor, bool) {
	for _, l := range s.loaders {
		if desc, ok := l.Load(key, t, s); ok {
			return desc, true
		}
	}
	return nil, false
}

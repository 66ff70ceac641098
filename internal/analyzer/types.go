package analyzer

import (
	"fmt"
	"strings"

	"github.com/olehluchkiv/diverify/internal/model"
)

// Registry is the read side of a resolution engine. Implementations must
// return a stable, quiesced view for the duration of an analysis.
type Registry interface {
	// Components enumerates every registered component.
	Components() []*model.ComponentDescriptor
	// HasHandler reports whether any component is registered for t.
	HasHandler(t model.TypeRef) bool
	// MaterializeImplicitFactory builds a hypothetical descriptor for t when the
	// engine would serve it through an implicit typed factory.
	MaterializeImplicitFactory(key string, t model.TypeRef) (*model.ComponentDescriptor, bool)
}

// ResolveMethod is a typed-factory method that produces a component.
type ResolveMethod struct {
	ProducedType         model.TypeRef
	Parameters           []model.DependencyModel
	DeclaringFactoryType model.TypeRef
	MethodName           string
}

// Provides reports whether the method's parameters cover every dependency in
// needed.
func (m ResolveMethod) Provides(needed []model.DependencyModel) bool {
	for _, n := range needed {
		found := false
		for _, p := range m.Parameters {
			if n.SatisfiedBy(p) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// String renders the method as "(int count) -> w.Widget via w.Factory.Create".
func (m ResolveMethod) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range m.Parameters {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString(") -> ")
	b.WriteString(m.ProducedType.Short())
	b.WriteString(" via ")
	b.WriteString(m.DeclaringFactoryType.Short())
	b.WriteByte('.')
	b.WriteString(m.MethodName)
	return b.String()
}

// TypedFactoryInfo describes one discovered typed-factory abstraction.
// A factory is either explicitly registered, or has at least one dependent.
type TypedFactoryInfo struct {
	FactoryType            model.TypeRef
	IsExplicitlyRegistered bool
	Dependents             []*model.ComponentDescriptor
	ResolveMethods         []ResolveMethod
}

// Produces reports whether any resolve method returns t.
func (f *TypedFactoryInfo) Produces(t model.TypeRef) bool {
	for _, m := range f.ResolveMethods {
		if m.ProducedType == t {
			return true
		}
	}
	return false
}

// Supplies reports whether some resolve method returning t takes every
// parameter in needed.
func (f *TypedFactoryInfo) Supplies(t model.TypeRef, needed []model.DependencyModel) bool {
	for _, m := range f.ResolveMethods {
		if m.ProducedType == t && m.Provides(needed) {
			return true
		}
	}
	return false
}

func (f *TypedFactoryInfo) String() string {
	if f.IsExplicitlyRegistered {
		return f.FactoryType.Short() + " (explicit)"
	}
	return f.FactoryType.Short() + " (implicit)"
}

// ImplicitFactoryCycle is reported when implicit factory discovery reaches a
// (key, type) pair that is already on its own discovery chain.
type ImplicitFactoryCycle struct {
	At        model.TypeRef
	Key       string
	Dependent *model.ComponentDescriptor // registered component the chain started from
	Chain     []model.TypeRef            // from the first implicit factory back to At
}

func (c ImplicitFactoryCycle) String() string {
	parts := make([]string, len(c.Chain))
	for i, t := range c.Chain {
		parts[i] = t.Short()
	}
	return fmt.Sprintf("implicit factory cycle detected at type %s: %s", c.At.Short(), strings.Join(parts, " -> "))
}

// FactoryDiscovery is the output of DiscoverTypedFactories.
type FactoryDiscovery struct {
	Factories []*TypedFactoryInfo // sorted by factory type
	Cycles    []ImplicitFactoryCycle
}

// UnresolvableDependency pairs a missing dependency with the component that
// declared it.
type UnresolvableDependency struct {
	Dependency model.DependencyModel
	Owner      *model.ComponentDescriptor
}

// ServiceValidationInfo is the consolidated verdict for one service type.
// Relations to other services are stored as type keys; resolve them through
// Result.Lookup.
type ServiceValidationInfo struct {
	ServiceType model.TypeRef

	// RuntimeParameters are the missing dependencies no registration can
	// satisfy.
	RuntimeParameters []model.DependencyModel

	ReturnedByTypedFactories        []*TypedFactoryInfo
	TypedFactoriesLackingParameters []*TypedFactoryInfo

	// DirectDependenciesLackingRuntimeParameters lists invalid services this
	// service takes as plain constructor dependencies.
	DirectDependenciesLackingRuntimeParameters []model.TypeRef

	// DirectDependents is the inverse of DirectDependenciesLackingRuntimeParameters.
	DirectDependents []model.TypeRef

	// DirectDependenciesRequiringFactory lists direct dependencies that are
	// resolvable, but only through a typed factory.
	DirectDependenciesRequiringFactory []model.TypeRef

	// CircularDependencies lists direct dependencies that wait on a
	// construction cycle.
	CircularDependencies []model.TypeRef

	ImplicitFactoryCycles []ImplicitFactoryCycle
}

// AdequateFactories returns the factories returning the service that supply
// all of its runtime parameters.
func (v *ServiceValidationInfo) AdequateFactories() []*TypedFactoryInfo {
	var out []*TypedFactoryInfo
	for _, f := range v.ReturnedByTypedFactories {
		if !containsFactory(v.TypedFactoriesLackingParameters, f) {
			out = append(out, f)
		}
	}
	return out
}

// RuntimeParametersSatisfied reports whether the service needs no runtime
// parameters, or at least one factory supplies them.
func (v *ServiceValidationInfo) RuntimeParametersSatisfied() bool {
	return len(v.RuntimeParameters) == 0 || len(v.AdequateFactories()) > 0
}

// IsResolvable reports whether the service can ever be resolved.
func (v *ServiceValidationInfo) IsResolvable() bool {
	return v.RuntimeParametersSatisfied() &&
		len(v.DirectDependenciesLackingRuntimeParameters) == 0 &&
		len(v.DirectDependenciesRequiringFactory) == 0 &&
		len(v.CircularDependencies) == 0 &&
		len(v.ImplicitFactoryCycles) == 0
}

func containsFactory(list []*TypedFactoryInfo, f *TypedFactoryInfo) bool {
	for _, x := range list {
		if x == f {
			return true
		}
	}
	return false
}

package analyzer

import (
	"fmt"
	"iter"
	"strings"

	"github.com/olehluchkiv/diverify/internal/model"
)

// Lookup resolves a service type to its validation record.
type Lookup func(t model.TypeRef) (*ServiceValidationInfo, bool)

// Messages yields one human-readable diagnostic per finding on v. Lookup is
// used to describe related services; it may be nil.
func Messages(v *ServiceValidationInfo, lookup Lookup) iter.Seq[string] {
	if lookup == nil {
		lookup = func(model.TypeRef) (*ServiceValidationInfo, bool) { return nil, false }
	}
	return func(yield func(string) bool) {
		svc := v.ServiceType.Short()

		if len(v.RuntimeParameters) > 0 && len(v.AdequateFactories()) == 0 {
			msg := fmt.Sprintf("In order for %s to depend on these parameters, either these dependencies must be registered "+
				"in the container, or a typed factory must be explicitly registered or implicitly used which requires "+
				"these runtime parameters in order to resolve each instance:%s",
				svc, parameterList(v.RuntimeParameters))
			if !yield(msg) {
				return
			}
		}

		for _, f := range v.TypedFactoriesLackingParameters {
			if !yield(lackingFactoryMessage(svc, f, v.RuntimeParameters)) {
				return
			}
		}

		for _, dep := range v.DirectDependenciesLackingRuntimeParameters {
			if !yield(directDependencyMessage(svc, dep, lookup)) {
				return
			}
		}

		for _, dep := range v.DirectDependenciesRequiringFactory {
			if !yield(requiringFactoryMessage(svc, dep, lookup)) {
				return
			}
		}

		for _, dep := range v.CircularDependencies {
			msg := fmt.Sprintf("%s and %s depend on each other, directly or through other components. "+
				"Neither can be resolved until the cycle is broken.", svc, dep.Short())
			if !yield(msg) {
				return
			}
		}

		for _, cy := range v.ImplicitFactoryCycles {
			if !yield(fmt.Sprintf("The dependencies of %s lead to an %s.", svc, cy)) {
				return
			}
		}
	}
}

func directDependencyMessage(svc string, dep model.TypeRef, lookup Lookup) string {
	d, ok := lookup(dep)
	if !ok || len(d.RuntimeParameters) == 0 {
		return fmt.Sprintf("In order for %s to depend on %s, %s must itself be resolvable. "+
			"See the errors reported for %s.", svc, dep.Short(), dep.Short(), dep.Short())
	}

	msg := fmt.Sprintf("In order for %s to depend on %s, either these dependencies must be registered in the "+
		"container, or %s must replace the direct dependency with a dependency on a typed factory "+
		"returning %s which requires these runtime parameters in order to resolve each instance:%s",
		svc, dep.Short(), svc, dep.Short(), parameterList(d.RuntimeParameters))

	return msg
}

func requiringFactoryMessage(svc string, dep model.TypeRef, lookup Lookup) string {
	var params []model.DependencyModel
	var factories []string
	if d, ok := lookup(dep); ok {
		params = d.RuntimeParameters
		for _, f := range d.AdequateFactories() {
			factories = append(factories, f.FactoryType.Short())
		}
	}
	msg := fmt.Sprintf("%s depends directly on %s, which can only be resolved through a typed factory "+
		"because it requires these runtime parameters:%s\n\n%s must depend on a typed factory returning %s instead",
		svc, dep.Short(), parameterList(params), svc, dep.Short())
	if len(factories) > 0 {
		msg += ", such as " + strings.Join(factories, " or ")
	}
	return msg + "."
}

func lackingFactoryMessage(svc string, f *TypedFactoryInfo, params []model.DependencyModel) string {
	var b strings.Builder
	fmt.Fprintf(&b, "In order for typed factory %s to return %s, either these dependencies must be registered in the "+
		"container, or the typed factory must require these runtime parameters in order to resolve each instance:%s\n\n",
		f.FactoryType.Short(), svc, parameterList(params))

	switch {
	case f.IsExplicitlyRegistered && len(f.Dependents) == 0:
		b.WriteString("The typed factory is explicitly registered.")
	case f.IsExplicitlyRegistered:
		b.WriteString("The typed factory is explicitly registered and also implicitly used as a dependency of:")
		b.WriteString(dependentList(f.Dependents))
	default:
		b.WriteString("The typed factory is implicitly used as a dependency of:")
		b.WriteString(dependentList(f.Dependents))
	}
	return b.String()
}

func parameterList(params []model.DependencyModel) string {
	var b strings.Builder
	for _, p := range params {
		b.WriteString("\n - ")
		b.WriteString(p.String())
	}
	return b.String()
}

func dependentList(deps []*model.ComponentDescriptor) string {
	var b strings.Builder
	for _, d := range deps {
		b.WriteString("\n - ")
		b.WriteString(d.String())
	}
	return b.String()
}

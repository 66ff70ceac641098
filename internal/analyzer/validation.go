package analyzer

import (
	"slices"

	"github.com/olehluchkiv/diverify/internal/model"
)

type correlator struct {
	records map[model.TypeRef]*ServiceValidationInfo
	order   []model.TypeRef

	// candidates are unresolvable services a record's owner takes directly.
	candidates map[model.TypeRef][]model.TypeRef
}

func (c *correlator) record(t model.TypeRef) *ServiceValidationInfo {
	v, ok := c.records[t]
	if !ok {
		v = &ServiceValidationInfo{ServiceType: t}
		c.records[t] = v
		c.order = append(c.order, t)
	}
	return v
}

// BuildValidationInfo correlates discovered factories with unresolvable
// dependencies and returns one record per affected service type, in first-seen
// order. Services absent from the output have no findings.
func BuildValidationInfo(disc FactoryDiscovery, unresolvable []UnresolvableDependency) []*ServiceValidationInfo {
	return correlate(disc, unresolvable, nil)
}

// correlate is BuildValidationInfo with knowledge of which service types
// already have a valid handler. A waiting component never makes such a type
// unresolvable: the engine resolves it through the valid handler.
func correlate(disc FactoryDiscovery, unresolvable []UnresolvableDependency, served map[model.TypeRef]bool) []*ServiceValidationInfo {
	c := &correlator{
		records:    make(map[model.TypeRef]*ServiceValidationInfo),
		candidates: make(map[model.TypeRef][]model.TypeRef),
	}

	// A missing dependency on a service that is itself unresolvable is a
	// relation between services, not a runtime parameter.
	unresolved := make(map[model.TypeRef]bool)
	for _, u := range unresolvable {
		for _, svc := range u.Owner.Services {
			if !served[svc] {
				unresolved[svc] = true
			}
		}
	}

	for _, u := range unresolvable {
		for _, svc := range u.Owner.Services {
			if served[svc] {
				continue
			}
			v := c.record(svc)
			target := u.Dependency.TargetType
			if unresolved[target] {
				if !slices.Contains(c.candidates[svc], target) {
					c.candidates[svc] = append(c.candidates[svc], target)
				}
				continue
			}
			if !slices.Contains(v.RuntimeParameters, u.Dependency) {
				v.RuntimeParameters = append(v.RuntimeParameters, u.Dependency)
			}
		}
	}

	for _, f := range disc.Factories {
		for _, m := range f.ResolveMethods {
			v := c.record(m.ProducedType)
			if !containsFactory(v.ReturnedByTypedFactories, f) {
				v.ReturnedByTypedFactories = append(v.ReturnedByTypedFactories, f)
			}
		}
	}

	for _, cy := range disc.Cycles {
		if cy.Dependent == nil {
			continue
		}
		for _, svc := range cy.Dependent.Services {
			v := c.record(svc)
			v.ImplicitFactoryCycles = append(v.ImplicitFactoryCycles, cy)
		}
	}

	for _, t := range c.order {
		v := c.records[t]
		for _, f := range v.ReturnedByTypedFactories {
			if !f.Supplies(t, v.RuntimeParameters) {
				v.TypedFactoriesLackingParameters = append(v.TypedFactoriesLackingParameters, f)
			}
		}
	}

	valid := c.validServices()
	for _, t := range c.order {
		v := c.records[t]
		for _, dep := range c.candidates[t] {
			target, ok := c.records[dep]
			switch {
			case c.reaches(dep, t):
				v.CircularDependencies = append(v.CircularDependencies, dep)
			case !valid[dep]:
				v.DirectDependenciesLackingRuntimeParameters = append(v.DirectDependenciesLackingRuntimeParameters, dep)
				if ok && !slices.Contains(target.DirectDependents, t) {
					target.DirectDependents = append(target.DirectDependents, t)
				}
			default:
				v.DirectDependenciesRequiringFactory = append(v.DirectDependenciesRequiringFactory, dep)
			}
		}
	}

	out := make([]*ServiceValidationInfo, 0, len(c.order))
	for _, t := range c.order {
		out = append(out, c.records[t])
	}
	return out
}

// validServices computes the largest set of records that can be resolved, as
// a least fixpoint. A service is valid when some factory supplies its runtime
// parameters, its dependencies lead to no implicit factory cycle, and every
// service it takes directly is valid and needs no runtime parameters.
// Services on a construction cycle never become valid.
func (c *correlator) validServices() map[model.TypeRef]bool {
	valid := make(map[model.TypeRef]bool)
	for changed := true; changed; {
		changed = false
		for _, t := range c.order {
			if valid[t] {
				continue
			}
			v := c.records[t]
			if !v.RuntimeParametersSatisfied() || len(v.ImplicitFactoryCycles) > 0 {
				continue
			}
			ready := true
			for _, dep := range c.candidates[t] {
				if target, ok := c.records[dep]; !valid[dep] || !ok || len(target.RuntimeParameters) > 0 {
					ready = false
					break
				}
			}
			if ready {
				valid[t] = true
				changed = true
			}
		}
	}
	return valid
}

// reaches reports whether to is reachable from from along direct
// dependencies on unresolvable services.
func (c *correlator) reaches(from, to model.TypeRef) bool {
	seen := make(map[model.TypeRef]bool)
	stack := []model.TypeRef{from}
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if t == to {
			return true
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		stack = append(stack, c.candidates[t]...)
	}
	return false
}

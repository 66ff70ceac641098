package analyzer

import (
	"strings"

	"github.com/olehluchkiv/diverify/internal/model"
)

// FilterOptions narrows a Result for display.
type FilterOptions struct {
	// Prefix keeps services whose package path starts with it.
	Prefix string
	// OnlyInvalid keeps services that cannot be resolved.
	OnlyInvalid bool
	// Focus, when set, keeps only Focus and the services it is directly
	// related to.
	Focus model.TypeRef
}

// Filter returns a copy of result restricted by opts. Lookup on the filtered
// result still sees every record, so messages can describe related services
// that were filtered out.
func Filter(result *Result, opts FilterOptions) *Result {
	filtered := &Result{
		Cycles:  result.Cycles,
		Missing: result.Missing,
		index:   result.index,
	}

	var near map[model.TypeRef]bool
	if !opts.Focus.IsZero() {
		near = neighbours(result, opts.Focus)
	}
	keep := func(t model.TypeRef) bool {
		return matchesPrefix(t, opts.Prefix) && (near == nil || near[t])
	}

	for _, v := range result.Services {
		if !keep(v.ServiceType) {
			continue
		}
		if opts.OnlyInvalid && v.IsResolvable() {
			continue
		}
		filtered.Services = append(filtered.Services, v)
	}

	for _, c := range result.Components {
		for _, svc := range c.Services {
			if keep(svc) && (!opts.OnlyInvalid || !result.IsResolvable(svc)) {
				filtered.Components = append(filtered.Components, c)
				break
			}
		}
	}

	// Keep factories that serve a kept service or live under the prefix.
	kept := make(map[*TypedFactoryInfo]bool)
	for _, v := range filtered.Services {
		for _, f := range v.ReturnedByTypedFactories {
			kept[f] = true
		}
	}
	for _, f := range result.Factories {
		if kept[f] || (!opts.OnlyInvalid && (opts.Prefix != "" || near != nil) && keep(f.FactoryType)) {
			filtered.Factories = append(filtered.Factories, f)
		}
	}
	if opts.Prefix == "" && !opts.OnlyInvalid && near == nil {
		filtered.Factories = result.Factories
	}

	return filtered
}

// neighbours returns t, the types its components depend on, the services whose
// components depend on t, and every service its validation record names.
func neighbours(result *Result, t model.TypeRef) map[model.TypeRef]bool {
	near := map[model.TypeRef]bool{t: true}
	for _, c := range result.Components {
		if c.Serves(t) {
			for _, d := range c.Dependencies {
				near[d.TargetType] = true
			}
			continue
		}
		for _, d := range c.Dependencies {
			if d.TargetType == t {
				for _, svc := range c.Services {
					near[svc] = true
				}
				break
			}
		}
	}
	if v, ok := result.Lookup(t); ok {
		for _, list := range [][]model.TypeRef{
			v.DirectDependenciesLackingRuntimeParameters,
			v.DirectDependents,
			v.DirectDependenciesRequiringFactory,
			v.CircularDependencies,
		} {
			for _, s := range list {
				near[s] = true
			}
		}
		for _, f := range v.ReturnedByTypedFactories {
			near[f.FactoryType] = true
		}
	}
	return near
}

func matchesPrefix(t model.TypeRef, prefix string) bool {
	return prefix == "" || strings.HasPrefix(t.PkgPath, prefix)
}

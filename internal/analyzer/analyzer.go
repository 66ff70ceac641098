package analyzer

import (
	"fmt"
	"iter"
	"log/slog"

	"github.com/olehluchkiv/diverify/internal/model"
)

// Result holds the complete analysis of one registry snapshot.
type Result struct {
	Components []*model.ComponentDescriptor
	Factories  []*TypedFactoryInfo
	Cycles     []ImplicitFactoryCycle
	Missing    []UnresolvableDependency
	Services   []*ServiceValidationInfo
	index      map[model.TypeRef]*ServiceValidationInfo
}

// Analyze runs factory discovery, unresolvable-dependency collection and
// correlation against reg.
func Analyze(reg Registry, logger *slog.Logger) *Result {
	disc := DiscoverTypedFactories(reg, logger)
	missing := CollectUnresolvable(reg, logger)
	services := correlate(disc, missing, servedTypes(reg, missing, logger))

	r := &Result{
		Components: reg.Components(),
		Factories:  disc.Factories,
		Cycles:     disc.Cycles,
		Missing:    missing,
		Services:   services,
	}
	r.buildIndex()

	logger.Info("analysis complete",
		"components", len(r.Components),
		"factories", len(r.Factories),
		"services", len(r.Services),
		"invalid", len(r.Invalid()))
	return r
}

// servedTypes returns the service types that some valid component serves,
// logging each waiting component that such a handler shadows.
func servedTypes(reg Registry, missing []UnresolvableDependency, logger *slog.Logger) map[model.TypeRef]bool {
	served := make(map[model.TypeRef]bool)
	for _, c := range reg.Components() {
		if c.State != model.StateValid {
			continue
		}
		for _, svc := range c.Services {
			served[svc] = true
		}
	}

	shadowed := make(map[*model.ComponentDescriptor]bool)
	for _, u := range missing {
		if shadowed[u.Owner] {
			continue
		}
		for _, svc := range u.Owner.Services {
			if served[svc] {
				shadowed[u.Owner] = true
				logger.Info("waiting component is shadowed by a valid handler",
					"component", u.Owner.Name,
					"service", svc.String())
			}
		}
	}
	return served
}

func (r *Result) buildIndex() {
	r.index = make(map[model.TypeRef]*ServiceValidationInfo, len(r.Services))
	for _, v := range r.Services {
		r.index[v.ServiceType] = v
	}
}

// Lookup returns the validation record for t. It also finds records that a
// Filter removed from Services.
func (r *Result) Lookup(t model.TypeRef) (*ServiceValidationInfo, bool) {
	v, ok := r.index[t]
	return v, ok
}

// IsResolvable reports whether t can be resolved. Services without a record
// have no findings.
func (r *Result) IsResolvable(t model.TypeRef) bool {
	v, ok := r.Lookup(t)
	return !ok || v.IsResolvable()
}

// Invalid returns the records that cannot be resolved, in Services order.
func (r *Result) Invalid() []*ServiceValidationInfo {
	var out []*ServiceValidationInfo
	for _, v := range r.Services {
		if !v.IsResolvable() {
			out = append(out, v)
		}
	}
	return out
}

// Messages yields the diagnostics for v.
func (r *Result) Messages(v *ServiceValidationInfo) iter.Seq[string] {
	return Messages(v, r.Lookup)
}

// Summary renders "pkg.Widget: 2 errors".
func (r *Result) Summary(v *ServiceValidationInfo) string {
	n := 0
	for range r.Messages(v) {
		n++
	}
	if n == 1 {
		return fmt.Sprintf("%s: 1 error", v.ServiceType.Short())
	}
	return fmt.Sprintf("%s: %d errors", v.ServiceType.Short(), n)
}

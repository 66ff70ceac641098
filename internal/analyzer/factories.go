package analyzer

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/olehluchkiv/diverify/internal/model"
)

// expansion identifies one implicit factory request: a dependency key and the
// unregistered type it targets.
type expansion struct {
	key string
	typ model.TypeRef
}

type factoryBuilder struct {
	info       *TypedFactoryInfo
	dependents map[*model.ComponentDescriptor]bool
	methods    map[string]bool
}

func (b *factoryBuilder) addDependent(c *model.ComponentDescriptor) {
	if b.dependents[c] {
		return
	}
	b.dependents[c] = true
	b.info.Dependents = append(b.info.Dependents, c)
}

type workItem struct {
	desc *model.ComponentDescriptor
	from *model.ComponentDescriptor // nil for registered components
	via  *expansion                 // request that materialized desc, nil for registered components
	root *model.ComponentDescriptor // registered component the chain started from
}

type walker struct {
	reg      Registry
	logger   *slog.Logger
	builders map[model.TypeRef]*factoryBuilder

	// Each (key, type) request is materialized at most once.
	materialized map[expansion]*model.ComponentDescriptor
	order        []expansion
	roots        map[expansion]*model.ComponentDescriptor
	edges        map[expansion][]expansion
}

// DiscoverTypedFactories walks every registered component and every implicit
// factory reachable from their dependencies, and returns one TypedFactoryInfo
// per factory type.
func DiscoverTypedFactories(reg Registry, logger *slog.Logger) FactoryDiscovery {
	w := &walker{
		reg:          reg,
		logger:       logger,
		builders:     make(map[model.TypeRef]*factoryBuilder),
		materialized: make(map[expansion]*model.ComponentDescriptor),
		roots:        make(map[expansion]*model.ComponentDescriptor),
		edges:        make(map[expansion][]expansion),
	}

	var queue []workItem
	for _, c := range reg.Components() {
		queue = append(queue, workItem{desc: c, root: c})
	}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		w.visitFactory(item)
		queue = append(queue, w.expand(item)...)
	}

	disc := FactoryDiscovery{Cycles: w.findCycles()}
	for _, b := range w.builders {
		disc.Factories = append(disc.Factories, b.info)
	}
	slices.SortFunc(disc.Factories, func(a, b *TypedFactoryInfo) int {
		return strings.Compare(a.FactoryType.String(), b.FactoryType.String())
	})

	logger.Info("typed factories discovered",
		"factories", len(disc.Factories),
		"implicit_requests", len(w.order),
		"cycles", len(disc.Cycles))
	return disc
}

func (w *walker) builder(t model.TypeRef) *factoryBuilder {
	b, ok := w.builders[t]
	if !ok {
		b = &factoryBuilder{
			info:       &TypedFactoryInfo{FactoryType: t},
			dependents: make(map[*model.ComponentDescriptor]bool),
			methods:    make(map[string]bool),
		}
		w.builders[t] = b
	}
	return b
}

// visitFactory records desc if the engine classified it as a typed factory.
func (w *walker) visitFactory(item workItem) {
	desc := item.desc
	if !desc.IsFactory() {
		return
	}
	if len(desc.Services) == 0 {
		w.logger.Warn("typed factory declares no service type", "component", desc.Name)
		return
	}
	if len(desc.Services) > 1 {
		w.logger.Warn("typed factory declares several service types, using the first",
			"component", desc.Name, "services", len(desc.Services))
	}

	factoryType := desc.Services[0]
	b := w.builder(factoryType)
	if item.from == nil {
		b.info.IsExplicitlyRegistered = true
	} else {
		b.addDependent(item.from)
	}

	for _, m := range desc.Factory.Methods {
		if m.Kind != model.FactoryMethodResolve || b.methods[m.Name] {
			continue
		}
		b.methods[m.Name] = true
		b.info.ResolveMethods = append(b.info.ResolveMethods, ResolveMethod{
			ProducedType:         m.Returns,
			Parameters:           slices.Clone(m.Parameters),
			DeclaringFactoryType: factoryType,
			MethodName:           m.Name,
		})
	}
	w.logger.Debug("typed factory visited",
		"type", factoryType.String(),
		"explicit", item.from == nil,
		"resolve_methods", len(b.info.ResolveMethods))
}

// expand requests implicit factories for desc's dependencies on unregistered
// types and returns the newly materialized descriptors.
func (w *walker) expand(item workItem) []workItem {
	var next []workItem
	for _, dep := range item.desc.Dependencies {
		if w.reg.HasHandler(dep.TargetType) {
			continue
		}
		k := expansion{key: dep.Key, typ: dep.TargetType}
		if item.via != nil {
			w.addEdge(*item.via, k)
		}

		if prev, seen := w.materialized[k]; seen {
			if prev.IsFactory() && len(prev.Services) > 0 {
				w.builder(prev.Services[0]).addDependent(item.desc)
			}
			w.logger.Debug("implicit factory already expanded", "type", k.typ.String(), "key", k.key)
			continue
		}

		desc, ok := w.reg.MaterializeImplicitFactory(dep.Key, dep.TargetType)
		if !ok {
			desc = nil
		}
		w.materialized[k] = desc
		w.order = append(w.order, k)
		w.roots[k] = item.root
		if desc != nil {
			kk := k
			next = append(next, workItem{desc: desc, from: item.desc, via: &kk, root: item.root})
		}
	}
	return next
}

func (w *walker) addEdge(from, to expansion) {
	if slices.Contains(w.edges[from], to) {
		return
	}
	w.edges[from] = append(w.edges[from], to)
}

// findCycles reports every back edge between implicit factory requests.
func (w *walker) findCycles() []ImplicitFactoryCycle {
	const (
		white = iota
		grey
		black
	)
	color := make(map[expansion]int, len(w.order))
	var stack []expansion
	var cycles []ImplicitFactoryCycle

	var visit func(n expansion)
	visit = func(n expansion) {
		color[n] = grey
		stack = append(stack, n)
		for _, m := range w.edges[n] {
			switch color[m] {
			case white:
				visit(m)
			case grey:
				start := slices.Index(stack, m)
				chain := make([]model.TypeRef, 0, len(stack)-start+1)
				for _, s := range stack[start:] {
					chain = append(chain, s.typ)
				}
				chain = append(chain, m.typ)
				cycles = append(cycles, ImplicitFactoryCycle{
					At:        m.typ,
					Key:       m.key,
					Dependent: w.roots[m],
					Chain:     chain,
				})
				w.logger.Warn("implicit factory cycle detected", "type", m.typ.String(), "key", m.key)
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
	}

	for _, n := range w.order {
		if color[n] == white {
			visit(n)
		}
	}
	return cycles
}

package diagram

import (
	"fmt"
	"hash/fnv"
	"slices"
	"strings"

	"github.com/olehluchkiv/diverify/internal/analyzer"
	"github.com/olehluchkiv/diverify/internal/model"
)

// DiagramOptions controls Mermaid diagram generation.
type DiagramOptions struct {
	Direction     string // flowchart direction, "LR" when empty
	ShowParams    bool   // draw runtime parameters as nodes
	IncludeInit   bool   // include %%{init:}%% directive (for standalone .mmd files)
	ShowMethodTag bool   // label factory edges with the resolve method name
}

// DefaultDiagramOptions returns sensible defaults for diagram generation.
func DefaultDiagramOptions() DiagramOptions {
	return DiagramOptions{Direction: "LR", ShowParams: true, ShowMethodTag: true}
}

type nodeShape int

const (
	shapeService nodeShape = iota
	shapeFactory
	shapeParam
)

type node struct {
	id    string
	label string
	shape nodeShape
	class string
}

type edge struct {
	from, to string
	arrow    string
	label    string
}

// graph collects nodes and edges keyed by id so repeated references collapse.
type graph struct {
	result *analyzer.Result
	nodes  map[string]node
	edges  map[edge]bool
	linked map[[2]string]bool
}

// GenerateMermaid produces a Mermaid flowchart of the registration graph:
// services, typed factories, the dependencies between them and the runtime
// parameters no registration supplies.
func GenerateMermaid(result *analyzer.Result, opts DiagramOptions) string {
	g := &graph{
		result: result,
		nodes:  make(map[string]node),
		edges:  make(map[edge]bool),
		linked: make(map[[2]string]bool),
	}

	for _, c := range result.Components {
		if len(c.Services) == 0 {
			continue
		}
		from := g.addType(c.Services[0])
		for _, svc := range c.Services[1:] {
			g.addEdge(edge{from: from, to: g.addType(svc), arrow: "---"})
		}
		params := g.runtimeParams(c.Services[0])
		for _, d := range c.Dependencies {
			if slices.Contains(params, d) {
				if !opts.ShowParams {
					continue
				}
				g.addEdge(edge{from: from, to: g.addParam(d.TargetType), arrow: "-.->", label: d.Key})
				continue
			}
			g.addEdge(edge{from: from, to: g.addType(d.TargetType), arrow: "-->", label: d.Key})
		}
	}

	for _, f := range result.Factories {
		from := g.addFactory(f.FactoryType)
		for _, dep := range f.Dependents {
			if len(dep.Services) == 0 {
				continue
			}
			if id := g.addType(dep.Services[0]); !g.linked[[2]string{id, from}] {
				g.addEdge(edge{from: id, to: from, arrow: "-->"})
			}
		}
		for _, m := range f.ResolveMethods {
			e := edge{from: from, to: g.addType(m.ProducedType), arrow: "==>"}
			if opts.ShowMethodTag {
				e.label = m.MethodName
			}
			g.addEdge(e)
		}
	}

	return g.render(opts)
}

func (g *graph) runtimeParams(t model.TypeRef) []model.DependencyModel {
	v, ok := g.result.Lookup(t)
	if !ok {
		return nil
	}
	return v.RuntimeParameters
}

func (g *graph) addType(t model.TypeRef) string {
	id := NodeID(t)
	if n, ok := g.nodes[id]; ok && n.shape == shapeFactory {
		return id
	}
	class := "validStyle"
	if !g.result.IsResolvable(t) {
		class = "invalidStyle"
	}
	g.nodes[id] = node{id: id, label: t.Short(), shape: shapeService, class: class}
	return id
}

func (g *graph) addFactory(t model.TypeRef) string {
	id := NodeID(t)
	g.nodes[id] = node{id: id, label: t.Short(), shape: shapeFactory, class: "factoryStyle"}
	return id
}

func (g *graph) addParam(t model.TypeRef) string {
	id := "param_" + NodeID(t)
	g.nodes[id] = node{id: id, label: t.Short(), shape: shapeParam, class: "paramStyle"}
	return id
}

func (g *graph) addEdge(e edge) {
	if e.from == e.to {
		return
	}
	g.edges[e] = true
	g.linked[[2]string{e.from, e.to}] = true
}

func (g *graph) render(opts DiagramOptions) string {
	var b strings.Builder

	nodes := make([]node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	slices.SortFunc(nodes, func(a, b node) int { return strings.Compare(a.id, b.id) })

	edges := make([]edge, 0, len(g.edges))
	for e := range g.edges {
		edges = append(edges, e)
	}
	slices.SortFunc(edges, func(a, b edge) int {
		if c := strings.Compare(a.from, b.from); c != 0 {
			return c
		}
		if c := strings.Compare(a.to, b.to); c != 0 {
			return c
		}
		if c := strings.Compare(a.arrow, b.arrow); c != 0 {
			return c
		}
		return strings.Compare(a.label, b.label)
	})

	if opts.IncludeInit {
		b.WriteString("%%{init: {'theme': 'base', 'themeVariables': {'primaryColor': '#ffffff', 'primaryBorderColor': '#cccccc', 'primaryTextColor': '#000000', 'lineColor': '#555555'}}}%%\n")
	}
	direction := opts.Direction
	if direction == "" {
		direction = "LR"
	}
	b.WriteString("flowchart " + direction)
	if len(nodes) == 0 {
		return b.String()
	}
	b.WriteString("\n")
	b.WriteString("    classDef validStyle fill:#4a9c6d,stroke:#357a50,color:#fff,stroke-width:2px\n")
	b.WriteString("    classDef invalidStyle fill:#c0392b,stroke:#922b21,color:#fff,stroke-width:2px,font-weight:bold\n")
	b.WriteString("    classDef factoryStyle fill:#2374ab,stroke:#1a5a8a,color:#fff,stroke-width:2px\n")
	b.WriteString("    classDef paramStyle fill:#f4d03f,stroke:#b7950b,color:#000,stroke-dasharray:4 2\n")

	for _, n := range nodes {
		b.WriteString("\n")
		writeNode(&b, n)
	}
	if len(edges) > 0 {
		b.WriteString("\n")
	}
	for _, e := range edges {
		b.WriteString("\n")
		writeEdge(&b, e)
	}

	b.WriteString("\n")
	for _, n := range nodes {
		fmt.Fprintf(&b, "\n    class %s %s", n.id, n.class)
	}
	return b.String()
}

func writeNode(b *strings.Builder, n node) {
	label := SanitizeLabel(n.label)
	switch n.shape {
	case shapeFactory:
		fmt.Fprintf(b, "    %s{{\"%s\"}}", n.id, label)
	case shapeParam:
		fmt.Fprintf(b, "    %s([\"%s\"])", n.id, label)
	default:
		fmt.Fprintf(b, "    %s[\"%s\"]", n.id, label)
	}
}

func writeEdge(b *strings.Builder, e edge) {
	if e.label == "" {
		fmt.Fprintf(b, "    %s %s %s", e.from, e.arrow, e.to)
		return
	}
	fmt.Fprintf(b, "    %s %s|\"%s\"| %s", e.from, e.arrow, SanitizeLabel(e.label), e.to)
}

// SanitizeLabel escapes characters that end or confuse a quoted Mermaid label.
func SanitizeLabel(s string) string {
	// <-chan would otherwise be read as an arrow.
	s = strings.ReplaceAll(s, "<-chan", "chan")
	s = strings.ReplaceAll(s, "interface{}", "any")
	r := strings.NewReplacer(`"`, "#quot;", "<", "#lt;", ">", "#gt;")
	return r.Replace(s)
}

var idReplacer = strings.NewReplacer(
	"/", "_", ".", "_", "-", "_",
	"*", "ptr_", "(", "_", ")", "_", "[", "_", "]", "_",
	"{", "_", "}", "_", ",", "_", " ", "_",
)

// sanitizeID maps a type spelling onto the characters Mermaid accepts in node
// identifiers.
func sanitizeID(s string) string {
	return idReplacer.Replace(s)
}

// NodeID builds the node identifier for t from its fully-qualified spelling.
// Sanitizing is lossy, so a hash of the spelling keeps distinct types apart.
func NodeID(t model.TypeRef) string {
	s := t.String()
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("t_%s_%08x", sanitizeID(s), h.Sum32())
}

// Package report renders an analysis result for terminals and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/olehluchkiv/diverify/internal/analyzer"
)

// Meta describes the run a report belongs to.
type Meta struct {
	RunID string
	Input string
	Kind  string
}

// Service is the serialized verdict for one service type.
type Service struct {
	Type              string   `json:"type"`
	Valid             bool     `json:"valid"`
	RuntimeParameters []string `json:"runtimeParameters,omitempty"`
	Factories         []string `json:"factories,omitempty"`
	Messages          []string `json:"messages,omitempty"`
}

// Factory is the serialized form of a discovered typed factory.
type Factory struct {
	Type       string   `json:"type"`
	Explicit   bool     `json:"explicit"`
	Dependents []string `json:"dependents,omitempty"`
	Methods    []string `json:"methods,omitempty"`
}

// Report is the stable, serializable view of an analyzer.Result.
type Report struct {
	RunID      string    `json:"runId"`
	Input      string    `json:"input"`
	Kind       string    `json:"kind"`
	Components int       `json:"components"`
	Invalid    int       `json:"invalid"`
	Services   []Service `json:"services"`
	Factories  []Factory `json:"factories"`
	Cycles     []string  `json:"cycles,omitempty"`
}

// OK reports whether every service in the report is resolvable.
func (r Report) OK() bool {
	return r.Invalid == 0
}

// New flattens result into a Report. Invalid services come first, each group
// in result order.
func New(result *analyzer.Result, meta Meta) Report {
	r := Report{
		RunID:      meta.RunID,
		Input:      meta.Input,
		Kind:       meta.Kind,
		Components: len(result.Components),
		Services:   []Service{},
		Factories:  []Factory{},
	}

	for _, v := range result.Services {
		svc := Service{
			Type:  v.ServiceType.String(),
			Valid: v.IsResolvable(),
		}
		for _, p := range v.RuntimeParameters {
			svc.RuntimeParameters = append(svc.RuntimeParameters, p.String())
		}
		for _, f := range v.ReturnedByTypedFactories {
			svc.Factories = append(svc.Factories, f.String())
		}
		if !svc.Valid {
			r.Invalid++
			svc.Messages = slices.Collect(result.Messages(v))
		}
		r.Services = append(r.Services, svc)
	}
	slices.SortStableFunc(r.Services, func(a, b Service) int {
		switch {
		case a.Valid == b.Valid:
			return 0
		case !a.Valid:
			return -1
		default:
			return 1
		}
	})

	for _, f := range result.Factories {
		fac := Factory{Type: f.FactoryType.String(), Explicit: f.IsExplicitlyRegistered}
		for _, d := range f.Dependents {
			fac.Dependents = append(fac.Dependents, d.String())
		}
		for _, m := range f.ResolveMethods {
			fac.Methods = append(fac.Methods, m.String())
		}
		r.Factories = append(r.Factories, fac)
	}

	for _, c := range result.Cycles {
		r.Cycles = append(r.Cycles, c.String())
	}
	return r
}

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// TextOptions controls the terminal report.
type TextOptions struct {
	// ShowValid also lists resolvable services and all typed factories.
	ShowValid bool
}

// WriteText writes a styled report. Colors are only emitted when w is a
// terminal that supports them.
func WriteText(w io.Writer, r Report, opts TextOptions) error {
	st := newStyles(lipgloss.NewRenderer(w))
	var b strings.Builder

	b.WriteString(st.title.Render("diverify"))
	b.WriteString(" ")
	b.WriteString(st.muted.Render(fmt.Sprintf("%s (%s)", r.Input, r.Kind)))
	b.WriteString("\n")
	b.WriteString(st.muted.Render(fmt.Sprintf("%d components, %d typed factories, %d services with findings",
		r.Components, len(r.Factories), r.Invalid)))
	b.WriteString("\n\n")

	for _, svc := range r.Services {
		if svc.Valid {
			if opts.ShowValid {
				b.WriteString(st.good.Render("✓ " + svc.Type))
				b.WriteString("\n")
			}
			continue
		}
		b.WriteString(st.critical.Render(fmt.Sprintf("✗ %s: %s", svc.Type, pluralErrors(len(svc.Messages)))))
		b.WriteString("\n")
		for i, msg := range svc.Messages {
			b.WriteString(indent(fmt.Sprintf("%d. %s", i+1, msg), "  ", "     "))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if opts.ShowValid && len(r.Factories) > 0 {
		b.WriteString(st.header.Render("Typed factories"))
		b.WriteString("\n")
		for _, f := range r.Factories {
			kind := "implicit"
			if f.Explicit {
				kind = "explicit"
			}
			b.WriteString("  " + st.info.Render(f.Type) + " " + st.muted.Render("("+kind+")"))
			b.WriteString("\n")
			for _, m := range f.Methods {
				b.WriteString("    " + m + "\n")
			}
		}
		b.WriteString("\n")
	}

	for _, c := range r.Cycles {
		b.WriteString(st.warning.Render("! " + c))
		b.WriteString("\n")
	}

	if r.OK() {
		b.WriteString(st.good.Render("All services are resolvable."))
	} else {
		b.WriteString(st.critical.Render(fmt.Sprintf("%d of %d services cannot be resolved.", r.Invalid, len(r.Services))))
	}
	b.WriteString("\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func pluralErrors(n int) string {
	if n == 1 {
		return "1 error"
	}
	return fmt.Sprintf("%d errors", n)
}

// indent prefixes the first line of s with first and every other line with rest.
func indent(s, first, rest string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		switch {
		case i == 0:
			lines[i] = first + l
		case l == "":
		default:
			lines[i] = rest + l
		}
	}
	return strings.Join(lines, "\n")
}

package model

import "fmt"

// ResolutionState is the handler state the resolution engine assigns to a
// component.
type ResolutionState int

const (
	StateValid ResolutionState = iota
	StateWaitingOnDependency
)

func (s ResolutionState) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateWaitingOnDependency:
		return "waiting-on-dependency"
	default:
		return fmt.Sprintf("ResolutionState(%d)", int(s))
	}
}

// FactoryMethodKind classifies a typed-factory method.
type FactoryMethodKind int

const (
	// FactoryMethodResolve produces a component.
	FactoryMethodResolve FactoryMethodKind = iota
	// FactoryMethodRelease returns or disposes a component.
	FactoryMethodRelease
)

func (k FactoryMethodKind) String() string {
	switch k {
	case FactoryMethodResolve:
		return "resolve"
	case FactoryMethodRelease:
		return "release"
	default:
		return fmt.Sprintf("FactoryMethodKind(%d)", int(k))
	}
}

// ParseFactoryMethodKind parses "resolve" or "release".
func ParseFactoryMethodKind(s string) (FactoryMethodKind, error) {
	switch s {
	case "resolve":
		return FactoryMethodResolve, nil
	case "release":
		return FactoryMethodRelease, nil
	default:
		return 0, fmt.Errorf("model: unknown factory method kind %q", s)
	}
}

// FactoryMethod is one method of a typed factory, as classified by the
// resolution engine.
type FactoryMethod struct {
	Name       string
	Kind       FactoryMethodKind
	Parameters []DependencyModel
	Returns    TypeRef // zero for methods without a result
}

// FactoryClassification is attached to descriptors the resolution engine
// treats as typed factories.
type FactoryClassification struct {
	Methods []FactoryMethod
}

// ComponentDescriptor is a read-only snapshot of one registered (or
// hypothetical) component.
type ComponentDescriptor struct {
	Name                string
	Services            []TypeRef
	Implementation      TypeRef
	Dependencies        []DependencyModel
	State               ResolutionState
	MissingDependencies []DependencyModel

	// Factory is non-nil when the descriptor is a typed factory abstraction.
	Factory *FactoryClassification
}

// IsFactory reports whether the descriptor carries a factory classification.
func (c *ComponentDescriptor) IsFactory() bool {
	return c != nil && c.Factory != nil
}

// Serves reports whether t is one of the descriptor's service types.
func (c *ComponentDescriptor) Serves(t TypeRef) bool {
	for _, s := range c.Services {
		if s == t {
			return true
		}
	}
	return false
}

func (c *ComponentDescriptor) String() string {
	if len(c.Services) == 1 {
		return c.Services[0].Short()
	}
	return c.Name
}

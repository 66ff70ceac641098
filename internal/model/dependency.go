package model

import (
	"errors"
	"strings"
)

// ErrZeroType is returned when a model is constructed without a type.
var ErrZeroType = errors.New("model: zero type reference")

// DependencyModel describes one constructor or method parameter.
//
// It is a value type: two dependencies are the same dependency when all fields
// are equal, so it can be used as a map key.
type DependencyModel struct {
	Key          string // parameter name or lookup key, may be empty
	TargetType   TypeRef
	IsOptional   bool
	HasDefault   bool
	DefaultValue string // textual form of the default, meaningful when HasDefault
}

// DependencyOption customizes a DependencyModel built by NewDependency.
type DependencyOption func(*DependencyModel)

// Optional marks the dependency as optional.
func Optional() DependencyOption {
	return func(d *DependencyModel) { d.IsOptional = true }
}

// WithDefault attaches a default value to the dependency.
func WithDefault(value string) DependencyOption {
	return func(d *DependencyModel) {
		d.HasDefault = true
		d.DefaultValue = value
	}
}

// NewDependency builds a dependency on target, keyed by key.
func NewDependency(key string, target TypeRef, opts ...DependencyOption) (DependencyModel, error) {
	if target.IsZero() {
		return DependencyModel{}, ErrZeroType
	}
	d := DependencyModel{Key: key, TargetType: target}
	for _, opt := range opts {
		opt(&d)
	}
	return d, nil
}

// MustDependency is like NewDependency but panics on error.
// Intended for fixtures and tests.
func MustDependency(key string, target TypeRef, opts ...DependencyOption) DependencyModel {
	d, err := NewDependency(key, target, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// Required reports whether the container must supply the dependency.
func (d DependencyModel) Required() bool {
	return !d.IsOptional && !d.HasDefault
}

// SatisfiedBy reports whether parameter p supplies d. Types must match exactly;
// keys must match when both sides carry one.
func (d DependencyModel) SatisfiedBy(p DependencyModel) bool {
	if d.TargetType != p.TargetType {
		return false
	}
	return d.Key == "" || p.Key == "" || d.Key == p.Key
}

// String renders the dependency as "Type key".
func (d DependencyModel) String() string {
	var b strings.Builder
	b.WriteString(d.TargetType.Short())
	if d.Key != "" {
		b.WriteByte(' ')
		b.WriteString(d.Key)
	}
	return b.String()
}

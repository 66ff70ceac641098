// Package manifest decodes registration manifests and applies them to a
// container. A manifest is YAML (or JSON, which yaml.v3 also reads) with three
// sections: delegates, components and factories.
package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/olehluchkiv/diverify/internal/container"
	"github.com/olehluchkiv/diverify/internal/model"
)

// ErrEmpty is returned when a manifest declares nothing.
var ErrEmpty = errors.New("manifest: no delegates, components or factories")

// Manifest is the decoded form of a registration manifest.
type Manifest struct {
	Delegates  []Delegate  `yaml:"delegates" validate:"dive"`
	Components []Component `yaml:"components" validate:"dive"`
	Factories  []Factory   `yaml:"factories" validate:"dive"`
}

// Dependency is a constructor or factory-method parameter.
type Dependency struct {
	Key      string  `yaml:"key"`
	Type     string  `yaml:"type" validate:"required"`
	Optional bool    `yaml:"optional"`
	Default  *string `yaml:"default"`
}

// Component registers a service implementation.
type Component struct {
	Name           string       `yaml:"name" validate:"required"`
	Services       []string     `yaml:"services" validate:"required,min=1,dive,required"`
	Implementation string       `yaml:"implementation"`
	Dependencies   []Dependency `yaml:"dependencies" validate:"dive"`
}

// Method is one typed-factory method. Kind defaults to resolve for methods
// with a return type and release otherwise.
type Method struct {
	Name       string       `yaml:"name" validate:"required"`
	Kind       string       `yaml:"kind" validate:"omitempty,oneof=resolve release"`
	Parameters []Dependency `yaml:"parameters" validate:"dive"`
	Returns    string       `yaml:"returns" validate:"required_if=Kind resolve"`
}

// Factory registers an explicit typed factory. A factory without methods
// must name a declared delegate type.
type Factory struct {
	Name    string   `yaml:"name" validate:"required"`
	Type    string   `yaml:"type" validate:"required"`
	Methods []Method `yaml:"methods" validate:"dive"`
}

// Delegate declares the shape of a function type usable as a typed factory.
type Delegate struct {
	Type       string       `yaml:"type" validate:"required"`
	Returns    string       `yaml:"returns" validate:"required"`
	Parameters []Dependency `yaml:"parameters" validate:"dive"`
}

// IsManifestFile reports whether path has a manifest extension.
func IsManifestFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// Load reads, decodes and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()

	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	if err := Validate(m); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			ve.Path = path
		}
		return nil, err
	}
	return m, nil
}

// Decode reads one manifest document. Unknown fields are rejected.
func Decode(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	if len(m.Delegates) == 0 && len(m.Components) == 0 && len(m.Factories) == 0 {
		return nil, ErrEmpty
	}
	return &m, nil
}

// Apply registers the manifest's delegates, components and factories, in
// that order, into c.
func (m *Manifest) Apply(c *container.Container) error {
	for i, d := range m.Delegates {
		params, err := dependencies(d.Parameters)
		if err != nil {
			return fmt.Errorf("delegates[%d]: %w", i, err)
		}
		if err := c.DeclareDelegate(container.Delegate{
			Type:       model.ParseTypeRef(d.Type),
			Parameters: params,
			Returns:    model.ParseTypeRef(d.Returns),
		}); err != nil {
			return fmt.Errorf("delegates[%d]: %w", i, err)
		}
	}

	for i, comp := range m.Components {
		deps, err := dependencies(comp.Dependencies)
		if err != nil {
			return fmt.Errorf("components[%d] %q: %w", i, comp.Name, err)
		}
		reg := container.Registration{
			Name:         comp.Name,
			Dependencies: deps,
		}
		for _, s := range comp.Services {
			reg.Services = append(reg.Services, model.ParseTypeRef(s))
		}
		if comp.Implementation != "" {
			reg.Implementation = model.ParseTypeRef(comp.Implementation)
		}
		if err := c.Register(reg); err != nil {
			return fmt.Errorf("components[%d]: %w", i, err)
		}
	}

	for i, f := range m.Factories {
		var methods []model.FactoryMethod
		for _, mm := range f.Methods {
			fm, err := mm.factoryMethod()
			if err != nil {
				return fmt.Errorf("factories[%d] %q: %w", i, f.Name, err)
			}
			methods = append(methods, fm)
		}
		if err := c.RegisterFactory(f.Name, model.ParseTypeRef(f.Type), methods); err != nil {
			return fmt.Errorf("factories[%d]: %w", i, err)
		}
	}
	return nil
}

func (m Method) factoryMethod() (model.FactoryMethod, error) {
	params, err := dependencies(m.Parameters)
	if err != nil {
		return model.FactoryMethod{}, fmt.Errorf("method %s: %w", m.Name, err)
	}
	fm := model.FactoryMethod{Name: m.Name, Parameters: params}
	if m.Returns != "" {
		fm.Returns = model.ParseTypeRef(m.Returns)
	}
	switch {
	case m.Kind != "":
		if fm.Kind, err = model.ParseFactoryMethodKind(m.Kind); err != nil {
			return model.FactoryMethod{}, fmt.Errorf("method %s: %w", m.Name, err)
		}
	case m.Returns != "":
		fm.Kind = model.FactoryMethodResolve
	default:
		fm.Kind = model.FactoryMethodRelease
	}
	return fm, nil
}

func dependencies(in []Dependency) ([]model.DependencyModel, error) {
	out := make([]model.DependencyModel, 0, len(in))
	for _, d := range in {
		var opts []model.DependencyOption
		if d.Optional {
			opts = append(opts, model.Optional())
		}
		if d.Default != nil {
			opts = append(opts, model.WithDefault(*d.Default))
		}
		dep, err := model.NewDependency(d.Key, model.ParseTypeRef(d.Type), opts...)
		if err != nil {
			return nil, err
		}
		out = append(out, dep)
	}
	return out, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report field names as they appear in the manifest.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

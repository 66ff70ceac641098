package container

import "github.com/olehluchkiv/diverify/internal/model"

// View is the read-only part of a snapshot available to loaders.
type View interface {
	HasHandler(t model.TypeRef) bool
	Delegate(t model.TypeRef) (Delegate, bool)
}

// ImplicitFactoryLoader decides whether an unregistered type can be served by
// an implicit typed factory, and builds its hypothetical descriptor.
type ImplicitFactoryLoader interface {
	Load(key string, t model.TypeRef, view View) (*model.ComponentDescriptor, bool)
}

// LoaderFunc adapts a function to ImplicitFactoryLoader.
type LoaderFunc func(key string, t model.TypeRef, view View) (*model.ComponentDescriptor, bool)

// Load implements ImplicitFactoryLoader.
func (f LoaderFunc) Load(key string, t model.TypeRef, view View) (*model.ComponentDescriptor, bool) {
	return f(key, t, view)
}

// DelegateLoader serves declared delegate types whose return type has a
// registered handler, whatever that handler's state.
type DelegateLoader struct{}

// Load implements ImplicitFactoryLoader.
func (DelegateLoader) Load(key string, t model.TypeRef, view View) (*model.ComponentDescriptor, bool) {
	d, ok := view.Delegate(t)
	if !ok || !view.HasHandler(d.Returns) {
		return nil, false
	}
	name := "delegate:" + t.String()
	if key != "" {
		name += "#" + key
	}
	return &model.ComponentDescriptor{
		Name:           name,
		Services:       []model.TypeRef{t},
		Implementation: t,
		State:          model.StateValid,
		Factory:        &model.FactoryClassification{Methods: []model.FactoryMethod{d.invoke()}},
	}, true
}

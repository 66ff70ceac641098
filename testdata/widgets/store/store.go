package store

import "example.com/widgets"

type Cache struct {
	newWidget func(int) *widgets.Widget
}

//diverify:component
func NewCache(newWidget func(int) *widgets.Widget) *Cache {
	return &Cache{newWidget: newWidget}
}

// Loader is a named func type registered as an explicit delegate factory.
//
//diverify:factory
type Loader func(key string) *Cache

// Package common provides a small generic registry used to index values
// by qualified name within a namespace, without requiring its callers to
// import one another. wsdl.ServiceModel.Types and similar per-namespace
// lookups are built on top of it.
package common

// Types is a named registry of T values, keyed by local name. It
// generalizes the teacher's reflect.Type registry (common/xml.go) to any
// value type T, which is what lets wsdl.XsdType be indexed here without
// wsdl importing common and common importing wsdl back.
type Types[T any] struct {
	Namespace string
	entries   map[string]T
}

// NewTypes returns an empty registry scoped to namespace.
func NewTypes[T any](namespace string) *Types[T] {
	return &Types[T]{Namespace: namespace, entries: map[string]T{}}
}

// Resolve returns the value registered under name, and whether one exists.
func (t *Types[T]) Resolve(name string) (T, bool) {
	v, ok := t.entries[name]
	return v, ok
}

// Register stores value under name, overwriting any previous entry.
func (t *Types[T]) Register(name string, value T) {
	if t.entries == nil {
		t.entries = map[string]T{}
	}
	t.entries[name] = value
}

// Names returns the registered names in no particular order.
func (t *Types[T]) Names() []string {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	return names
}

// NamespaceTypes groups a Types[T] registry per namespace URI, for models
// (like a WSDL ServiceModel) that must resolve a qualified reference
// across several imported schemas at once.
type NamespaceTypes[T any] struct {
	namespaces map[string]*Types[T]
}

// NewNamespaceTypes returns an empty namespace-scoped registry.
func NewNamespaceTypes[T any]() *NamespaceTypes[T] {
	return &NamespaceTypes[T]{namespaces: map[string]*Types[T]{}}
}

// Register returns the Types[T] registry for namespace, creating it if
// this is the first reference to it.
func (n *NamespaceTypes[T]) Register(namespace string) *Types[T] {
	if existing, ok := n.namespaces[namespace]; ok {
		return existing
	}
	t := NewTypes[T](namespace)
	n.namespaces[namespace] = t
	return t
}

// Resolve looks up name within namespace, returning the zero value and
// false if the namespace or the name within it is unregistered.
func (n *NamespaceTypes[T]) Resolve(namespace, name string) (T, bool) {
	if types, ok := n.namespaces[namespace]; ok {
		return types.Resolve(name)
	}
	var zero T
	return zero, false
}

// Package metadata is the engine's generic structured-metadata tree. Components
// describe themselves as named children of a Node; codecs (YAML) move trees
// to and from files and the scene store.
package metadata

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
)

// ErrMissingChild is returned by Require when a named child is absent.
var ErrMissingChild = errors.New("metadata: missing child")

// Node is one element of a metadata tree. A node carries either a scalar
// Value or Children. Children with empty names form a list.
type Node struct {
	Name     string
	Value    string
	Children []*Node
}

// Marshaler writes its fields as named children of n.
type Marshaler interface {
	MarshalMetadata(n *Node)
}

// Unmarshaler populates itself from the named children of n.
type Unmarshaler interface {
	UnmarshalMetadata(n *Node) error
}

func New(name string) *Node {
	return &Node{Name: name}
}

// Child returns the first child named name, or nil.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// SetChild returns the child named name, replacing its content with an empty
// node, or appends a new one.
func (n *Node) SetChild(name string) *Node {
	if c := n.Child(name); c != nil {
		c.Value = ""
		c.Children = nil
		return c
	}
	c := New(name)
	n.Children = append(n.Children, c)
	return c
}

// Append adds an unnamed list element and returns it.
func (n *Node) Append() *Node {
	c := New("")
	n.Children = append(n.Children, c)
	return c
}

// RemoveChild drops the first child named name.
func (n *Node) RemoveChild(name string) bool {
	for i, c := range n.Children {
		if c.Name == name {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			return true
		}
	}
	return false
}

// Scalar is the set of Go types stored directly as node values.
type Scalar interface {
	~string | ~bool |
		~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Set writes v as the value of child name.
func Set[T Scalar](n *Node, name string, v T) {
	n.SetChild(name).Value = format(v)
}

// Get reads child name into dst. A missing child leaves dst unchanged.
func Get[T Scalar](n *Node, name string, dst *T) error {
	c := n.Child(name)
	if c == nil {
		return nil
	}
	if err := parse(c.Value, dst); err != nil {
		return fmt.Errorf("metadata %q: %w", name, err)
	}
	return nil
}

// Require is Get that fails with ErrMissingChild when child name is absent.
func Require[T Scalar](n *Node, name string, dst *T) error {
	if n.Child(name) == nil {
		return fmt.Errorf("%w %q", ErrMissingChild, name)
	}
	return Get(n, name, dst)
}

// SetObject writes m under child name.
func SetObject(n *Node, name string, m Marshaler) {
	m.MarshalMetadata(n.SetChild(name))
}

// GetObject reads child name into u. A missing child leaves u unchanged.
func GetObject(n *Node, name string, u Unmarshaler) error {
	c := n.Child(name)
	if c == nil {
		return nil
	}
	if err := u.UnmarshalMetadata(c); err != nil {
		return fmt.Errorf("metadata %q: %w", name, err)
	}
	return nil
}

func format[T Scalar](v T) string {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	default:
		return strconv.FormatFloat(rv.Float(), 'g', -1, rv.Type().Bits())
	}
}

func parse[T Scalar](s string, dst *T) error {
	rv := reflect.ValueOf(dst).Elem()
	switch rv.Kind() {
	case reflect.String:
		rv.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		rv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(s, 10, rv.Type().Bits())
		if err != nil {
			return err
		}
		rv.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(s, 10, rv.Type().Bits())
		if err != nil {
			return err
		}
		rv.SetUint(u)
	default:
		f, err := strconv.ParseFloat(s, rv.Type().Bits())
		if err != nil {
			return err
		}
		rv.SetFloat(f)
	}
	return nil
}

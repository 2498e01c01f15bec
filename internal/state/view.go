package state

import (
	"fmt"
	"sort"
)

// View is the capability-restricted window a stage receives at dispatch
// time: it exposes exactly the fields the stage declared as inputs and
// nothing else, so a stage cannot grow hidden couplings to state it
// never declared.
type View struct {
	store   *Store
	allowed map[string]struct{}
}

// NewView builds a view over the given input field names.
func NewView(s *Store, inputs []string) View {
	allowed := make(map[string]struct{}, len(inputs))
	for _, name := range inputs {
		allowed[name] = struct{}{}
	}
	return View{store: s, allowed: allowed}
}

// Get returns the latest value of a declared input field.
func (v View) Get(name string) (any, error) {
	if _, ok := v.allowed[name]; !ok {
		return nil, fmt.Errorf("field %q: %w", name, ErrFieldNotDeclared)
	}
	value, ok := v.store.Value(name)
	if !ok {
		return nil, fmt.Errorf("field %q: %w", name, ErrMissingField)
	}
	return value, nil
}

// Has reports whether a declared input field has been produced. It still
// fails closed for undeclared fields.
func (v View) Has(name string) bool {
	if _, ok := v.allowed[name]; !ok {
		return false
	}
	_, ok := v.store.Value(name)
	return ok
}

// Fields returns the declared input field names in sorted order.
func (v View) Fields() []string {
	names := make([]string, 0, len(v.allowed))
	for name := range v.allowed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetString returns a declared input as a string.
func (v View) GetString(name string) (string, error) {
	value, err := v.Get(name)
	if err != nil {
		return "", err
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("field %q: expected string, got %T", name, value)
	}
	return s, nil
}

// GetFloat returns a declared input as a float64. Integer values are
// widened, since HCL seed numbers decode as float64 anyway.
func (v View) GetFloat(name string) (float64, error) {
	value, err := v.Get(name)
	if err != nil {
		return 0, err
	}
	switch n := value.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("field %q: expected number, got %T", name, value)
	}
}

// GetBool returns a declared input as a bool.
func (v View) GetBool(name string) (bool, error) {
	value, err := v.Get(name)
	if err != nil {
		return false, err
	}
	b, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("field %q: expected bool, got %T", name, value)
	}
	return b, nil
}

// GetStringSlice returns a declared input as a []string, accepting both
// []string and the []any form produced by config decoding.
func (v View) GetStringSlice(name string) ([]string, error) {
	value, err := v.Get(name)
	if err != nil {
		return nil, err
	}
	switch list := value.(type) {
	case []string:
		return list, nil
	case []any:
		out := make([]string, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("field %q: element %d is %T, not string", name, i, item)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("field %q: expected string list, got %T", name, value)
	}
}

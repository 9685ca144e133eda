package components

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAttribute matches every *MissingAttributeError.
	ErrMissingAttribute = errors.New("response missing expected attribute")
	// ErrMalformedResponse is returned when a transport response cannot be
	// decoded into the resolver's response type.
	ErrMalformedResponse = errors.New("malformed response")
)

// MissingAttributeError reports the attribute a resolver could not find.
type MissingAttributeError struct {
	Attribute string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingAttribute, e.Attribute)
}

func (e *MissingAttributeError) Is(target error) bool {
	return target == ErrMissingAttribute
}

// Require dereferences v, or reports attribute as missing when v is nil.
func Require[T any](v *T, attribute string) (T, error) {
	if v == nil {
		var zero T
		return zero, &MissingAttributeError{Attribute: attribute}
	}
	return *v, nil
}

// RequireKey looks key up in m, or reports attribute as missing.
func RequireKey[K comparable, V any](m map[K]V, key K, attribute string) (V, error) {
	v, ok := m[key]
	if !ok {
		var zero V
		return zero, &MissingAttributeError{Attribute: fmt.Sprintf("%s[%v]", attribute, key)}
	}
	return v, nil
}

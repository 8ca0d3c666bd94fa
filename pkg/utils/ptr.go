package utils

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

/*
NonZero returns a pointer to v, or nil when v is the zero value. Optional
JSON fields read from configuration use it so unset keys stay omitted.
*/
func NonZero[T comparable](v T) *T {
	var zero T

	if v == zero {
		return nil
	}

	return &v
}

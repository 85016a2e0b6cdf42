package utils

// Ptr returns a pointer to v. Handy for optional JSON fields.
func Ptr[T any](v T) *T {
	return &v
}

// Package stdx holds tiny helpers that have no better home.
package stdx

// Must0 panics when err is not nil. Use it for failures during process
// startup that have no sensible recovery path.
func Must0(err error) {
	if err != nil {
		panic(err)
	}
}

// Must1 returns v when err is nil and panics otherwise. It unwraps the
// common (value, error) return shape at call sites that cannot fail in
// practice, such as registering compiled-in tool definitions.
func Must1[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

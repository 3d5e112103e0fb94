// Package try turns a (value, error) pair into the value, or a fatal error.
//
//	conf := try.To(calassoc.LoadConfig(path)).OrFatal(logger)
package try

// Fataler has Fatal, like *log.Logger and *testing.T.
type Fataler interface {
	Fatal(...any)
}

// Result is a pair of a value and an error.
//
// The value is valid only when the error is nil.
type Result[T any] struct {
	value T
	err   error
}

func To[T any](value T, err error) Result[T] {
	return Result[T]{value: value, err: err}
}

func (r Result[T]) Get() (T, error) {
	if r.err != nil {
		return *new(T), r.err
	}
	return r.value, nil
}

// OrFatal returns the value, or calls ftl.Fatal with the error.
//
// Helper() of ftl is called before Fatal, if any.
func (r Result[T]) OrFatal(ftl Fataler) T {
	if r.err == nil {
		return r.value
	}
	if h, ok := ftl.(interface{ Helper() }); ok {
		h.Helper()
	}
	ftl.Fatal(r.err)
	return *new(T)
}

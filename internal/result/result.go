package result

import "fmt"

// Result holds exactly one of a value or an error. It is the return shape
// for fire-and-forget call sites that must branch on failure instead of
// letting it propagate.
type Result[T any] struct {
	Data T
	Err  error
}

// Failed reports whether the result carries an error.
func (r Result[T]) Failed() bool {
	return r.Err != nil
}

// Unpack converts the result back into a standard Go return pair.
func (r Result[T]) Unpack() (T, error) {
	return r.Data, r.Err
}

// Of lifts a standard (value, error) pair into a Result.
func Of[T any](data T, err error) Result[T] {
	if err != nil {
		var zero T
		return Result[T]{Data: zero, Err: err}
	}
	return Result[T]{Data: data}
}

// Wrap runs fn and captures its error, or any panic it raises, into the
// error slot. It never panics outward.
func Wrap[T any](fn func() (T, error)) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			res = Result[T]{Data: zero, Err: fmt.Errorf("recovered panic: %v", r)}
		}
	}()

	data, err := fn()
	return Of(data, err)
}

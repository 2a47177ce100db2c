package executor

import "fmt"

type panicError struct {
	v any
}

func (e panicError) Error() string {
	return fmt.Sprintf("adapter panic: %v", e.v)
}

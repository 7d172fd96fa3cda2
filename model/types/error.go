package types

import "fmt"

func NewMethodNotFoundError(name string) error {
	return fmt.Errorf("method %q not found", name)
}

func NewInvalidInputError(in interface{}) error {
	return fmt.Errorf("invalid input type %T", in)
}

func NewInvalidOutputError(out interface{}) error {
	return fmt.Errorf("invalid output type %T", out)
}

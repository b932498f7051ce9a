package chain

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is against a *LoadError or a processing failure.
var (
	ErrIncompatible    = errors.New("incompatible architecture")
	ErrInstrument      = errors.New("instruments are not supported")
	ErrInstantiate     = errors.New("instantiation failed")
	ErrValidation      = errors.New("unsupported channel layout")
	ErrProcessingFault = errors.New("processing fault")
	ErrNotPrepared     = errors.New("chain not prepared")
)

// ErrorKind classifies a load failure.
type ErrorKind int

const (
	IncompatibleArchitecture ErrorKind = iota + 1
	InstrumentRejected
	InstantiationFailure
	ValidationFailure
)

func (k ErrorKind) String() string {
	switch k {
	case IncompatibleArchitecture:
		return "incompatible architecture"
	case InstrumentRejected:
		return "instrument rejected"
	case InstantiationFailure:
		return "instantiation failure"
	case ValidationFailure:
		return "validation failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case IncompatibleArchitecture:
		return ErrIncompatible
	case InstrumentRejected:
		return ErrInstrument
	case InstantiationFailure:
		return ErrInstantiate
	case ValidationFailure:
		return ErrValidation
	}
	return nil
}

// LoadError reports why a descriptor could not be loaded. The chain is unchanged.
type LoadError struct {
	Kind ErrorKind
	Name string
	// Msg is the human-readable message published with the error event.
	Msg string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s", e.Name, e.Msg)
}

// Unwrap exposes the kind's sentinel and the underlying cause.
func (e *LoadError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrForbidden         = errors.New("forbidden")
	ErrValidation        = errors.New("validation failed")
	ErrPersistence       = errors.New("persistence failure")
)

// Rejection reasons reported by CanTransition.
const (
	ReasonNoSuchTransition = "Transición no permitida"
	ReasonRoleNotAllowed   = "Rol no autorizado para esta transición"
	ReasonPrecondition     = "No se cumplen las condiciones para esta transición"
	ReasonInvalidSubStatus = "Subestado no válido para el estado destino"
	ReasonStaleStatus      = "La orden ya no está en el estado esperado"
)

// TransitionError carries the reason a status change was refused.
type TransitionError struct {
	From   Status
	To     Status
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s: %s", e.From, e.To, e.Reason)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

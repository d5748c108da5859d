package habilitation

import "errors"

var (
	ErrInvalidID            = errors.New("habilitation: invalid id")
	ErrInvalidEmployeeID    = errors.New("habilitation: invalid employee id")
	ErrInvalidFamily        = errors.New("habilitation: invalid family")
	ErrInvalidCode          = errors.New("habilitation: code outside family vocabulary")
	ErrEmptyCodeSet         = errors.New("habilitation: empty code set")
	ErrInvalidDateRange     = errors.New("habilitation: expiration must be after validation")
	ErrHabilitationNotFound = errors.New("habilitation: not found")
	ErrFamilyAlreadyHeld    = errors.New("habilitation: family already registered for employee")
	ErrEmployeeNotFound     = errors.New("habilitation: employee not found")
)

package employee

import "errors"

var (
	ErrInvalidID              = errors.New("employee: invalid id")
	ErrInvalidMatricule       = errors.New("employee: invalid matricule")
	ErrInvalidGivenName       = errors.New("employee: invalid given name")
	ErrInvalidFamilyName      = errors.New("employee: invalid family name")
	ErrInvalidSortKey         = errors.New("employee: invalid sort key")
	ErrInvalidHierarchyPath   = errors.New("employee: invalid hierarchy path")
	ErrEmployeeNotFound       = errors.New("employee: not found")
	ErrMatriculeAlreadyExists = errors.New("employee: matricule already exists")
)

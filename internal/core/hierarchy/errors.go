package hierarchy

import "errors"

var (
	ErrInvalidDivisionName = errors.New("hierarchy: invalid division name")
	ErrInvalidServiceName  = errors.New("hierarchy: invalid service name")
	ErrInvalidSectionName  = errors.New("hierarchy: invalid section name")
	ErrNodeNotFound        = errors.New("hierarchy: node not found")
	ErrNameConflict        = errors.New("hierarchy: sibling name already exists")
	ErrInconsistentPath    = errors.New("hierarchy: inconsistent path")
)

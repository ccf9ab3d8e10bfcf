package models

import (
	"errors"
	"fmt"
	"strings"
)

// MinPasswordLength is the shortest password accepted for an employee.
const MinPasswordLength = 8

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports a field rejected by a builder.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) hold for any ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// PasswordHasher produces the digest stored for an employee password.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

// EmployeeSpec carries the fields of a new employee. Password is plaintext
// and is replaced by its digest when the employee is built.
type EmployeeSpec struct {
	ID          ID
	Name        string
	Department  string
	BossID      ID
	Project     string
	Subject     string
	AllocBudget uint16
	PermLevel   PermissionLevel
	Password    string
}

// NewEmployee validates spec and builds an employee whose password is
// hashed with h.
func NewEmployee(spec EmployeeSpec, h PasswordHasher) (*Employee, error) {
	e, err := buildEmployee(spec)
	if err != nil {
		return nil, err
	}
	if err := e.SetPassword(spec.Password, h); err != nil {
		return nil, err
	}
	return e, nil
}

// EditEmployee validates spec as a replacement for base. The id cannot
// change. An empty password keeps the digest of base; any other password
// is checked and hashed with h.
func EditEmployee(base *Employee, spec EmployeeSpec, h PasswordHasher) (*Employee, error) {
	if spec.ID != base.ID {
		return nil, &ValidationError{Field: "id", Reason: "cannot change"}
	}
	e, err := buildEmployee(spec)
	if err != nil {
		return nil, err
	}
	if spec.Password == "" {
		e.Password = base.Password
		return e, nil
	}
	if err := e.SetPassword(spec.Password, h); err != nil {
		return nil, err
	}
	return e, nil
}

func buildEmployee(spec EmployeeSpec) (*Employee, error) {
	if spec.ID == 0 {
		return nil, &ValidationError{Field: "id", Reason: "must be non-zero"}
	}
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if _, ok := permissionNames[spec.PermLevel]; !ok {
		return nil, &ValidationError{Field: "perm_level", Reason: fmt.Sprintf("unknown level %d", uint8(spec.PermLevel))}
	}
	return &Employee{
		ID:          spec.ID,
		Name:        name,
		Department:  spec.Department,
		BossID:      spec.BossID,
		Project:     spec.Project,
		Subject:     spec.Subject,
		AllocBudget: spec.AllocBudget,
		PermLevel:   spec.PermLevel,
	}, nil
}

// SetPassword checks the length rule and stores the digest of plaintext.
func (e *Employee) SetPassword(plaintext string, h PasswordHasher) error {
	if len(plaintext) < MinPasswordLength {
		return &ValidationError{
			Field:  "password",
			Reason: fmt.Sprintf("should be at least %d characters long", MinPasswordLength),
		}
	}
	digest, err := h.Hash(plaintext)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	e.Password = digest
	return nil
}

// MediaSpec carries the fields of a new media item.
type MediaSpec struct {
	ID         ID
	MediaType  MediaType
	Name       string
	Borrowable bool
	Vendor     string
	Renter     string
}

// NewMedia validates spec and builds a media item.
func NewMedia(spec MediaSpec) (*Media, error) {
	if spec.ID == 0 {
		return nil, &ValidationError{Field: "id", Reason: "must be non-zero"}
	}
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	mt := spec.MediaType
	if mt == "" {
		mt = MediaNone
	}
	if !mt.Valid() {
		return nil, &ValidationError{Field: "media_type", Reason: fmt.Sprintf("unknown type %q", string(mt))}
	}
	return &Media{
		ID:         spec.ID,
		MediaType:  mt,
		Name:       name,
		Borrowable: spec.Borrowable,
		Vendor:     spec.Vendor,
		Renter:     strings.TrimSpace(spec.Renter),
	}, nil
}

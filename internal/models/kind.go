package models

import (
	"fmt"
	"strings"
)

// Kind names one of the record collections. It determines the remote
// table name and the index partition in the client cache.
type Kind string

const (
	// KindEmployee is the staff collection.
	KindEmployee Kind = "Employee"
	// KindMedia is the loanable media collection.
	KindMedia Kind = "Media"
)

// kinds is the registry of record kinds, in refresh order.
var kinds = []Kind{KindEmployee, KindMedia}

// Kinds returns every registered record kind.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// TableName returns the unsalted remote table name of the kind.
func (k Kind) TableName() string { return string(k) }

// New returns an empty record of the kind, ready to be decoded into.
// It returns nil for unregistered kinds.
func (k Kind) New() Record {
	switch k {
	case KindEmployee:
		return &Employee{}
	case KindMedia:
		return &Media{}
	default:
		return nil
	}
}

// KindOf returns the kind of a record.
func KindOf(r Record) Kind {
	return Kind(r.TableName())
}

// ParseKind maps user input such as "media" or "employees" to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "employee", "employees":
		return KindEmployee, nil
	case "media":
		return KindMedia, nil
	default:
		return "", fmt.Errorf("unknown record kind %q", s)
	}
}

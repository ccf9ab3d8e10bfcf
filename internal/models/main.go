// Package models defines the library records (employees and media),
// their kinds and the typed builders used to create them.
package models

import (
	"fmt"
	"strings"
)

// ID identifies a record within the table of its kind.
type ID uint16

// Record is implemented by every record kind held in the client cache and
// stored in the remote tables.
type Record interface {
	// TableName returns the unsalted remote table name of the record kind.
	TableName() string
	// Identifier returns the record identifier. It never changes after creation.
	Identifier() ID
	// DisplayName returns the name used for listing and prefix search.
	DisplayName() string
	// PostLoadHook normalizes a record right after it was decoded from the remote store.
	PostLoadHook()
	// Clone returns a deep copy, so cached records are never shared with callers.
	Clone() Record
}

// Employee is a staff member allowed to authenticate at the desk.
type Employee struct {
	// ID is the unique identifier for the employee.
	ID ID `json:"id"`
	// Name is the full display name.
	Name string `json:"name"`
	// Department the employee belongs to.
	Department string `json:"department"`
	// BossID is the identifier of the employee's manager.
	BossID ID `json:"boss_id"`
	// Project the employee is assigned to.
	Project string `json:"project"`
	// Subject is the employee's field of expertise.
	Subject string `json:"subject"`
	// AllocBudget is the budget allocated to the employee.
	AllocBudget uint16 `json:"alloc_budget"`
	// PermLevel decides which commands the employee may run.
	PermLevel PermissionLevel `json:"perm_level"`
	// Password holds the argon2 digest of the employee's password, never the plaintext.
	Password string `json:"password"`
}

// TableName implements Record.
func (e *Employee) TableName() string { return KindEmployee.TableName() }

// Identifier implements Record.
func (e *Employee) Identifier() ID { return e.ID }

// DisplayName implements Record.
func (e *Employee) DisplayName() string { return e.Name }

// PostLoadHook trims the text fields that take part in lookups.
func (e *Employee) PostLoadHook() {
	e.Name = strings.TrimSpace(e.Name)
	e.Password = strings.TrimSpace(e.Password)
}

// Clone implements Record.
func (e *Employee) Clone() Record {
	c := *e
	return &c
}

// String renders the employee for the shell. The digest is never printed.
func (e *Employee) String() string {
	return fmt.Sprintf("Employee Information:\n"+
		"ID: %d\nName: %s\nDepartment: %s\nBoss ID: %d\nProject: %s\n"+
		"Subject: %s\nAllocated Budget: %d\nPermission Level: %s",
		e.ID, e.Name, e.Department, e.BossID, e.Project, e.Subject, e.AllocBudget, e.PermLevel)
}

// Media is a loanable item of the library catalog.
type Media struct {
	// ID is the unique identifier for the item.
	ID ID `json:"id"`
	// MediaType tells books, games, movies and music apart.
	MediaType MediaType `json:"media_type"`
	// Name is the title of the item.
	Name string `json:"name"`
	// Borrowable reports whether the item may leave the library.
	Borrowable bool `json:"borrowable"`
	// Vendor is the publisher or distributor.
	Vendor string `json:"vendor"`
	// Renter is the display name of the employee currently holding the item.
	Renter string `json:"renter"`
}

// TableName implements Record.
func (m *Media) TableName() string { return KindMedia.TableName() }

// Identifier implements Record.
func (m *Media) Identifier() ID { return m.ID }

// DisplayName implements Record.
func (m *Media) DisplayName() string { return m.Name }

// PostLoadHook implements Record.
func (m *Media) PostLoadHook() {
	m.Name = strings.TrimSpace(m.Name)
	m.Renter = strings.TrimSpace(m.Renter)
	if m.MediaType == "" {
		m.MediaType = MediaNone
	}
}

// Clone implements Record.
func (m *Media) Clone() Record {
	c := *m
	return &c
}

// String renders the item for the shell.
func (m *Media) String() string {
	borrowable := "No"
	if m.Borrowable {
		borrowable = "Yes"
	}
	return fmt.Sprintf("Media Information:\n"+
		"ID: %d\nMedia Type: %s\nName: %s\nBorrowable: %s\nVendor: %s\nRenter: %s",
		m.ID, m.MediaType, m.Name, borrowable, m.Vendor, m.Renter)
}

// Package auth verifies employee credentials against the cached employee
// table and tracks who is signed in at the desk.
package auth

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/atinyakov/GophLibrary/internal/models"
)

// ErrNotAuthenticated is returned when an operation needs a signed-in employee.
var ErrNotAuthenticated = errors.New("not authenticated")

// Directory looks records up in the client cache.
type Directory interface {
	Get(kind models.Kind, id models.ID) (models.Record, bool)
}

// Verifier checks a plaintext password against a stored digest.
type Verifier interface {
	Verify(digest, plaintext string) (bool, error)
}

// Session holds the id of the signed-in employee; 0 means guest.
type Session struct {
	id atomic.Uint32
}

// UserID returns the signed-in employee id, or 0.
func (s *Session) UserID() models.ID { return models.ID(s.id.Load()) }

func (s *Session) set(id models.ID) { s.id.Store(uint32(id)) }

// Gate authenticates employees and answers questions about the session.
type Gate struct {
	dir      Directory
	verifier Verifier
	session  *Session
}

// NewGate returns a Gate over dir. A nil session gets a fresh one.
func NewGate(dir Directory, verifier Verifier, session *Session) *Gate {
	if session == nil {
		session = &Session{}
	}
	return &Gate{dir: dir, verifier: verifier, session: session}
}

// Session returns the session the gate writes to.
func (g *Gate) Session() *Session { return g.session }

// Authenticate checks password for the employee with id. Unknown ids and
// wrong passwords both yield false with no error; an unreadable digest is
// an error. Only success changes the session.
func (g *Gate) Authenticate(id models.ID, password string) (bool, error) {
	rec, ok := g.dir.Get(models.KindEmployee, id)
	if !ok {
		return false, nil
	}
	emp := rec.(*models.Employee)

	ok, err := g.verifier.Verify(emp.Password, password)
	if err != nil {
		return false, fmt.Errorf("verify employee %d: %w", id, err)
	}
	if !ok {
		return false, nil
	}
	g.session.set(id)
	return true, nil
}

// CurrentUser returns the signed-in employee as currently cached.
func (g *Gate) CurrentUser() (*models.Employee, error) {
	id := g.session.UserID()
	if id == 0 {
		return nil, ErrNotAuthenticated
	}
	rec, ok := g.dir.Get(models.KindEmployee, id)
	if !ok {
		return nil, fmt.Errorf("%w: employee %d is no longer listed", ErrNotAuthenticated, id)
	}
	return rec.(*models.Employee), nil
}

// PermissionLevel returns the level of the signed-in employee, PermNone for guests.
func (g *Gate) PermissionLevel() models.PermissionLevel {
	emp, err := g.CurrentUser()
	if err != nil {
		return models.PermNone
	}
	return emp.PermLevel
}

// Logout returns the session to guest.
func (g *Gate) Logout() { g.session.set(0) }

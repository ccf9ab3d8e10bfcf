// Package commands is the surface the desk shell calls into. Each command
// wraps one engine or auth operation and returns JSON for display.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/atinyakov/GophLibrary/internal/client/auth"
	"github.com/atinyakov/GophLibrary/internal/client/engine"
	"github.com/atinyakov/GophLibrary/internal/models"
)

var (
	// ErrForbidden is returned when the signed-in employee's level is too low.
	ErrForbidden = errors.New("permission denied")
	// ErrNoMatch is returned by Search when nothing matches.
	ErrNoMatch = errors.New("no records found")
	// ErrBadCart is returned when a cart cannot be decoded.
	ErrBadCart = errors.New("failed to parse cart")
	// ErrEmployeeRecord is returned by Create and Update for employees,
	// which are only written through CreateEmployee and UpdateEmployee.
	ErrEmployeeRecord = errors.New("employees are written through CreateEmployee and UpdateEmployee")
)

// Cache is the part of the sync engine the commands use.
type Cache interface {
	RefreshAll(ctx context.Context) error
	Get(kind models.Kind, id models.ID) (models.Record, bool)
	List(kind models.Kind) []models.Record
	PrefixSearch(kind models.Kind, query string) ([]models.Record, bool)
	ApplyMutation(ctx context.Context, op engine.Op, r models.Record) error
	Rent(ctx context.Context, mediaID, employeeID models.ID) (*models.Media, error)
}

// Levels required to change each kind.
var writeLevel = map[models.Kind]models.PermissionLevel{
	models.KindMedia:    models.PermManager,
	models.KindEmployee: models.PermAdmin,
}

// EmployeeView is an employee as shown to the shell, without the digest.
type EmployeeView struct {
	ID          models.ID              `json:"id"`
	Name        string                 `json:"name"`
	Department  string                 `json:"department"`
	BossID      models.ID              `json:"boss_id"`
	Project     string                 `json:"project"`
	Subject     string                 `json:"subject"`
	AllocBudget uint16                 `json:"alloc_budget"`
	PermLevel   models.PermissionLevel `json:"perm_level"`
}

// NewEmployeeView strips the digest from e.
func NewEmployeeView(e *models.Employee) EmployeeView {
	return EmployeeView{
		ID:          e.ID,
		Name:        e.Name,
		Department:  e.Department,
		BossID:      e.BossID,
		Project:     e.Project,
		Subject:     e.Subject,
		AllocBudget: e.AllocBudget,
		PermLevel:   e.PermLevel,
	}
}

// CheckoutFailure names a cart item that could not be rented.
type CheckoutFailure struct {
	ID    models.ID `json:"id"`
	Error string    `json:"error"`
}

// CheckoutReport lists the outcome of every cart item.
type CheckoutReport struct {
	Rented []models.ID       `json:"rented"`
	Failed []CheckoutFailure `json:"failed"`
}

// Commands binds the cache, the auth gate and the password hasher used
// for new credentials.
type Commands struct {
	cache  Cache
	gate   *auth.Gate
	hasher models.PasswordHasher
	log    *zap.Logger
}

// New returns the command surface.
func New(cache Cache, gate *auth.Gate, hasher models.PasswordHasher, log *zap.Logger) *Commands {
	if log == nil {
		log = zap.NewNop()
	}
	return &Commands{cache: cache, gate: gate, hasher: hasher, log: log}
}

// Authenticate signs the employee in when password matches.
func (c *Commands) Authenticate(id models.ID, password string) (bool, error) {
	ok, err := c.gate.Authenticate(id, password)
	if err != nil {
		c.log.Error("credential verification failed", zap.Uint16("employee", uint16(id)), zap.Error(err))
		return false, err
	}
	if ok {
		c.log.Info("employee signed in", zap.Uint16("employee", uint16(id)))
	}
	return ok, nil
}

// Logout ends the session.
func (c *Commands) Logout() { c.gate.Logout() }

// Whoami returns the signed-in employee.
func (c *Commands) Whoami() (json.RawMessage, error) {
	emp, err := c.gate.CurrentUser()
	if err != nil {
		return nil, err
	}
	return json.Marshal(NewEmployeeView(emp))
}

// Rank returns the permission level of the signed-in employee.
func (c *Commands) Rank() (models.PermissionLevel, error) {
	emp, err := c.gate.CurrentUser()
	if err != nil {
		return models.PermNone, err
	}
	return emp.PermLevel, nil
}

// ListMedia returns every cached media record.
func (c *Commands) ListMedia() (json.RawMessage, error) {
	return encode(c.cache.List(models.KindMedia))
}

// ListEmployees returns every cached employee. It needs a session.
func (c *Commands) ListEmployees() (json.RawMessage, error) {
	if _, err := c.gate.CurrentUser(); err != nil {
		return nil, err
	}
	return encode(c.cache.List(models.KindEmployee))
}

// Get returns the cached record of kind with id.
func (c *Commands) Get(kind models.Kind, id models.ID) (json.RawMessage, error) {
	if kind == models.KindEmployee {
		if _, err := c.gate.CurrentUser(); err != nil {
			return nil, err
		}
	}
	r, ok := c.cache.Get(kind, id)
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", kind, id, engine.ErrNotFound)
	}
	return encodeOne(r)
}

// Search returns the records of kind whose name starts with text.
func (c *Commands) Search(kind models.Kind, text string) (json.RawMessage, error) {
	if kind == models.KindEmployee {
		if _, err := c.gate.CurrentUser(); err != nil {
			return nil, err
		}
	}
	records, ok := c.cache.PrefixSearch(kind, text)
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrNoMatch, kind, text)
	}
	return encode(records)
}

// Checkout rents every media in cart to the signed-in employee. cart is a
// JSON array of media ids or media objects. Items that fail are reported
// and do not stop the rest of the cart.
func (c *Commands) Checkout(ctx context.Context, cart string) (*CheckoutReport, error) {
	emp, err := c.gate.CurrentUser()
	if err != nil {
		return nil, err
	}
	ids, err := parseCart(cart)
	if err != nil {
		return nil, err
	}

	report := &CheckoutReport{Rented: []models.ID{}, Failed: []CheckoutFailure{}}
	for _, id := range ids {
		if _, err := c.cache.Rent(ctx, id, emp.ID); err != nil {
			c.log.Warn("checkout item failed", zap.Uint16("media", uint16(id)), zap.Error(err))
			report.Failed = append(report.Failed, CheckoutFailure{ID: id, Error: err.Error()})
			continue
		}
		report.Rented = append(report.Rented, id)
	}
	return report, nil
}

// Create validates r and inserts it. Employees are rejected with
// ErrEmployeeRecord.
func (c *Commands) Create(ctx context.Context, r models.Record) error {
	return c.write(ctx, engine.OpInsert, r)
}

// Update validates r and replaces the stored record with it. Employees are
// rejected with ErrEmployeeRecord.
func (c *Commands) Update(ctx context.Context, r models.Record) error {
	return c.write(ctx, engine.OpUpdate, r)
}

func (c *Commands) write(ctx context.Context, op engine.Op, r models.Record) error {
	if err := c.authorize(models.KindOf(r)); err != nil {
		return err
	}
	valid, err := rebuild(r)
	if err != nil {
		return err
	}
	return c.cache.ApplyMutation(ctx, op, valid)
}

// rebuild passes r through its typed builder.
func rebuild(r models.Record) (models.Record, error) {
	switch v := r.(type) {
	case *models.Media:
		return models.NewMedia(models.MediaSpec{
			ID:         v.ID,
			MediaType:  v.MediaType,
			Name:       v.Name,
			Borrowable: v.Borrowable,
			Vendor:     v.Vendor,
			Renter:     v.Renter,
		})
	case *models.Employee:
		return nil, ErrEmployeeRecord
	default:
		return nil, fmt.Errorf("%w: %T", engine.ErrUnknownKind, r)
	}
}

// CreateEmployee builds an employee from spec and inserts it.
func (c *Commands) CreateEmployee(ctx context.Context, spec models.EmployeeSpec) error {
	if err := c.authorize(models.KindEmployee); err != nil {
		return err
	}
	e, err := models.NewEmployee(spec, c.hasher)
	if err != nil {
		return err
	}
	return c.cache.ApplyMutation(ctx, engine.OpInsert, e)
}

// UpdateEmployee replaces the cached employee spec.ID. An empty password
// keeps the current one.
func (c *Commands) UpdateEmployee(ctx context.Context, spec models.EmployeeSpec) error {
	if err := c.authorize(models.KindEmployee); err != nil {
		return err
	}
	base, ok := c.cache.Get(models.KindEmployee, spec.ID)
	if !ok {
		return fmt.Errorf("%s %d: %w", models.KindEmployee, spec.ID, engine.ErrNotFound)
	}
	e, err := models.EditEmployee(base.(*models.Employee), spec, c.hasher)
	if err != nil {
		return err
	}
	return c.cache.ApplyMutation(ctx, engine.OpUpdate, e)
}

// CreateMedia builds a media item from spec and inserts it.
func (c *Commands) CreateMedia(ctx context.Context, spec models.MediaSpec) error {
	m, err := models.NewMedia(spec)
	if err != nil {
		return err
	}
	return c.write(ctx, engine.OpInsert, m)
}

// UpdateMedia builds a media item from spec and replaces the stored one.
func (c *Commands) UpdateMedia(ctx context.Context, spec models.MediaSpec) error {
	m, err := models.NewMedia(spec)
	if err != nil {
		return err
	}
	return c.write(ctx, engine.OpUpdate, m)
}

// Delete removes the record of kind with id.
func (c *Commands) Delete(ctx context.Context, kind models.Kind, id models.ID) error {
	if err := c.authorize(kind); err != nil {
		return err
	}
	r, ok := c.cache.Get(kind, id)
	if !ok {
		return fmt.Errorf("%s %d: %w", kind, id, engine.ErrNotFound)
	}
	return c.cache.ApplyMutation(ctx, engine.OpDelete, r)
}

// Refresh reloads every table.
func (c *Commands) Refresh(ctx context.Context) error {
	return c.cache.RefreshAll(ctx)
}

func (c *Commands) authorize(kind models.Kind) error {
	emp, err := c.gate.CurrentUser()
	if err != nil {
		return err
	}
	need, ok := writeLevel[kind]
	if !ok {
		return fmt.Errorf("%w: %q", engine.ErrUnknownKind, kind)
	}
	if !emp.PermLevel.AtLeast(need) {
		return fmt.Errorf("%w: %s changes need %s, have %s", ErrForbidden, kind, need, emp.PermLevel)
	}
	return nil
}

func parseCart(cart string) ([]models.ID, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(cart), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCart, err)
	}
	ids := make([]models.ID, 0, len(items))
	for _, item := range items {
		var id models.ID
		if err := json.Unmarshal(item, &id); err == nil {
			ids = append(ids, id)
			continue
		}
		var obj struct {
			ID models.ID `json:"id"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			return nil, fmt.Errorf("%w: item %s", ErrBadCart, item)
		}
		ids = append(ids, obj.ID)
	}
	return ids, nil
}

func encode(records []models.Record) (json.RawMessage, error) {
	out := make([]any, 0, len(records))
	for _, r := range records {
		out = append(out, view(r))
	}
	return json.Marshal(out)
}

func encodeOne(r models.Record) (json.RawMessage, error) {
	return json.Marshal(view(r))
}

func view(r models.Record) any {
	if e, ok := r.(*models.Employee); ok {
		return NewEmployeeView(e)
	}
	return r
}

package shell

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/atinyakov/GophLibrary/internal/models"
)

// Prompter asks for record fields one line at a time.
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{scanner: bufio.NewScanner(in), out: out}
}

// Line prints label and returns the trimmed answer. ok is false once the
// input is exhausted.
func (p *Prompter) Line(label string) (string, bool) {
	fmt.Fprint(p.out, label)
	if !p.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.scanner.Text()), true
}

// withDefault asks for label and falls back to def on an empty answer.
func (p *Prompter) withDefault(label, def string) (string, error) {
	if def != "" {
		label = fmt.Sprintf("%s [%s]", label, def)
	}
	s, ok := p.Line(label + ": ")
	if !ok {
		return "", io.ErrUnexpectedEOF
	}
	if s == "" {
		return def, nil
	}
	return s, nil
}

func (p *Prompter) number(label string, def uint16) (uint16, error) {
	d := ""
	if def != 0 {
		d = strconv.Itoa(int(def))
	}
	s, err := p.withDefault(label, d)
	if err != nil {
		return 0, err
	}
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, &models.ValidationError{Field: label, Reason: "must be a number between 0 and 65535"}
	}
	return uint16(n), nil
}

// PromptMedia asks for every media field. Fields of base are offered as
// defaults; id is fixed when base is given.
func (p *Prompter) PromptMedia(id models.ID, base *models.Media) (models.MediaSpec, error) {
	if base == nil {
		base = &models.Media{}
	}
	spec := models.MediaSpec{ID: id, Renter: base.Renter}
	var err error

	if spec.Name, err = p.withDefault("Name", base.Name); err != nil {
		return spec, err
	}
	mt, err := p.withDefault("Type (Book/VideoGame/Movie/Music/None)", string(base.MediaType))
	if err != nil {
		return spec, err
	}
	spec.MediaType = models.MediaType(mt)

	borrowable, err := p.withDefault("Borrowable (y/n)", yesNo(base.Borrowable))
	if err != nil {
		return spec, err
	}
	spec.Borrowable = strings.HasPrefix(strings.ToLower(borrowable), "y")

	if spec.Vendor, err = p.withDefault("Vendor", base.Vendor); err != nil {
		return spec, err
	}
	return spec, nil
}

// PromptEmployee asks for every employee field. When editing, an empty
// password keeps the current one.
func (p *Prompter) PromptEmployee(id models.ID, base *models.Employee) (models.EmployeeSpec, error) {
	editing := base != nil
	if base == nil {
		base = &models.Employee{PermLevel: models.PermBasic}
	}
	spec := models.EmployeeSpec{ID: id}
	var err error

	if spec.Name, err = p.withDefault("Name", base.Name); err != nil {
		return spec, err
	}
	if spec.Department, err = p.withDefault("Department", base.Department); err != nil {
		return spec, err
	}
	boss, err := p.number("Boss id", uint16(base.BossID))
	if err != nil {
		return spec, err
	}
	spec.BossID = models.ID(boss)
	if spec.Project, err = p.withDefault("Project", base.Project); err != nil {
		return spec, err
	}
	if spec.Subject, err = p.withDefault("Subject", base.Subject); err != nil {
		return spec, err
	}
	if spec.AllocBudget, err = p.number("Budget", base.AllocBudget); err != nil {
		return spec, err
	}
	lvl, err := p.withDefault("Permission level (None/Basic/User/Manager/Admin/Dev)", base.PermLevel.String())
	if err != nil {
		return spec, err
	}
	if spec.PermLevel, err = models.ParsePermissionLevel(lvl); err != nil {
		return spec, &models.ValidationError{Field: "perm_level", Reason: err.Error()}
	}

	label := "Password: "
	if editing {
		label = "Password (empty keeps current): "
	}
	pw, ok := p.Line(label)
	if !ok {
		return spec, io.ErrUnexpectedEOF
	}
	spec.Password = pw
	return spec, nil
}

func yesNo(b bool) string {
	if b {
		return "y"
	}
	return "n"
}

// Package shell implements the interactive desk shell on top of the
// command surface.
package shell

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/atinyakov/GophLibrary/internal/client/commands"
	"github.com/atinyakov/GophLibrary/internal/models"
)

const helpText = `Available commands:
  login <id>                sign in as an employee
  logout                    sign out
  whoami                    show the signed-in employee
  media                     list media
  employees                 list employees
  get <kind> <id>           show one record (kind: media, employee)
  search <kind> <text>      find records whose name starts with text
  cart [add|remove <id>]    show or change the checkout cart
  cart clear                empty the cart
  checkout                  rent every media in the cart
  add <kind>                create a record
  edit <kind> <id>          change a record
  delete <kind> <id>        remove a record
  refresh                   reload every table
  exit                      leave the shell`

// Shell reads commands line by line and prints their results.
type Shell struct {
	cmd    *commands.Commands
	prompt *Prompter
	out    io.Writer
	cart   []models.ID
}

// New returns a shell reading from in and writing to out.
func New(cmd *commands.Commands, in io.Reader, out io.Writer) *Shell {
	return &Shell{cmd: cmd, prompt: NewPrompter(in, out), out: out}
}

// Run serves commands until exit, end of input or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		line, ok := s.prompt.Line("gophlib> ")
		if !ok {
			fmt.Fprintln(s.out)
			return nil
		}
		if s.Exec(ctx, line) {
			return nil
		}
	}
	return ctx.Err()
}

// Exec runs one command line and reports whether the shell should stop.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false
	}

	var err error
	switch args[0] {
	case "help":
		s.println(helpText)
	case "login":
		err = s.login(args[1:])
	case "logout":
		s.cmd.Logout()
		s.println("Signed out")
	case "whoami":
		err = s.show(s.cmd.Whoami())
	case "media":
		err = s.show(s.cmd.ListMedia())
	case "employees":
		err = s.show(s.cmd.ListEmployees())
	case "get":
		err = s.get(args[1:])
	case "search":
		err = s.search(args[1:])
	case "cart":
		err = s.cartCmd(args[1:])
	case "checkout":
		err = s.checkout(ctx)
	case "add":
		err = s.add(ctx, args[1:])
	case "edit":
		err = s.edit(ctx, args[1:])
	case "delete":
		err = s.remove(ctx, args[1:])
	case "refresh":
		if err = s.cmd.Refresh(ctx); err == nil {
			s.println("Tables reloaded")
		}
	case "exit", "quit":
		s.println("Bye")
		return true
	default:
		s.println("Unknown command. Type 'help' for a list of commands.")
	}
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
	return false
}

var errUsage = errors.New("usage")

func usage(u string) error { return fmt.Errorf("%w: %s", errUsage, u) }

func (s *Shell) login(args []string) error {
	if len(args) != 1 {
		return usage("login <id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	pw, ok := s.prompt.Line("Password: ")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	ok, err = s.cmd.Authenticate(id, pw)
	if err != nil {
		return err
	}
	if !ok {
		s.println("Invalid id or password")
		return nil
	}
	rank, err := s.cmd.Rank()
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Signed in as %d (%s)\n", id, rank)
	return nil
}

func (s *Shell) get(args []string) error {
	if len(args) != 2 {
		return usage("get <kind> <id>")
	}
	kind, id, err := parseKindID(args[0], args[1])
	if err != nil {
		return err
	}
	return s.show(s.cmd.Get(kind, id))
}

func (s *Shell) search(args []string) error {
	if len(args) < 2 {
		return usage("search <kind> <text>")
	}
	kind, err := models.ParseKind(args[0])
	if err != nil {
		return err
	}
	return s.show(s.cmd.Search(kind, strings.Join(args[1:], " ")))
}

func (s *Shell) cartCmd(args []string) error {
	if len(args) == 0 {
		if len(s.cart) == 0 {
			s.println("Cart is empty")
			return nil
		}
		ids := make([]string, len(s.cart))
		for i, id := range s.cart {
			ids[i] = strconv.Itoa(int(id))
		}
		fmt.Fprintf(s.out, "Cart: %s\n", strings.Join(ids, ", "))
		return nil
	}

	switch args[0] {
	case "clear":
		s.cart = nil
		s.println("Cart cleared")
		return nil
	case "add", "remove":
		if len(args) != 2 {
			return usage("cart " + args[0] + " <id>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		if args[0] == "add" {
			if !s.inCart(id) {
				s.cart = append(s.cart, id)
			}
		} else {
			s.removeFromCart(id)
		}
		return s.cartCmd(nil)
	default:
		return usage("cart [add|remove <id>|clear]")
	}
}

func (s *Shell) inCart(id models.ID) bool {
	for _, c := range s.cart {
		if c == id {
			return true
		}
	}
	return false
}

func (s *Shell) removeFromCart(id models.ID) {
	kept := s.cart[:0]
	for _, c := range s.cart {
		if c != id {
			kept = append(kept, c)
		}
	}
	s.cart = kept
}

func (s *Shell) checkout(ctx context.Context) error {
	if len(s.cart) == 0 {
		s.println("Cart is empty")
		return nil
	}
	cart, err := json.Marshal(s.cart)
	if err != nil {
		return err
	}
	report, err := s.cmd.Checkout(ctx, string(cart))
	if err != nil {
		return err
	}
	for _, id := range report.Rented {
		fmt.Fprintf(s.out, "Rented %d\n", id)
	}
	for _, f := range report.Failed {
		fmt.Fprintf(s.out, "Could not rent %d: %s\n", f.ID, f.Error)
	}
	s.cart = nil
	return nil
}

func (s *Shell) add(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("add <kind>")
	}
	kind, err := models.ParseKind(args[0])
	if err != nil {
		return err
	}
	raw, ok := s.prompt.Line("Id: ")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	id, err := parseID(raw)
	if err != nil {
		return err
	}

	switch kind {
	case models.KindMedia:
		spec, err := s.prompt.PromptMedia(id, nil)
		if err != nil {
			return err
		}
		if err := s.cmd.CreateMedia(ctx, spec); err != nil {
			return err
		}
	default:
		spec, err := s.prompt.PromptEmployee(id, nil)
		if err != nil {
			return err
		}
		if err := s.cmd.CreateEmployee(ctx, spec); err != nil {
			return err
		}
	}
	fmt.Fprintf(s.out, "%s %d created\n", kind, id)
	return nil
}

func (s *Shell) edit(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("edit <kind> <id>")
	}
	kind, id, err := parseKindID(args[0], args[1])
	if err != nil {
		return err
	}
	current, err := s.cmd.Get(kind, id)
	if err != nil {
		return err
	}

	switch kind {
	case models.KindMedia:
		var base models.Media
		if err := json.Unmarshal(current, &base); err != nil {
			return err
		}
		spec, err := s.prompt.PromptMedia(id, &base)
		if err != nil {
			return err
		}
		if err := s.cmd.UpdateMedia(ctx, spec); err != nil {
			return err
		}
	default:
		var v commands.EmployeeView
		if err := json.Unmarshal(current, &v); err != nil {
			return err
		}
		base := &models.Employee{
			ID: v.ID, Name: v.Name, Department: v.Department, BossID: v.BossID,
			Project: v.Project, Subject: v.Subject, AllocBudget: v.AllocBudget, PermLevel: v.PermLevel,
		}
		spec, err := s.prompt.PromptEmployee(id, base)
		if err != nil {
			return err
		}
		if err := s.cmd.UpdateEmployee(ctx, spec); err != nil {
			return err
		}
	}
	fmt.Fprintf(s.out, "%s %d updated\n", kind, id)
	return nil
}

func (s *Shell) remove(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("delete <kind> <id>")
	}
	kind, id, err := parseKindID(args[0], args[1])
	if err != nil {
		return err
	}
	if err := s.cmd.Delete(ctx, kind, id); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s %d deleted\n", kind, id)
	return nil
}

// show pretty-prints a JSON command result.
func (s *Shell) show(raw json.RawMessage, err error) error {
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	s.println(buf.String())
	return nil
}

func (s *Shell) println(v string) { fmt.Fprintln(s.out, v) }

func parseID(s string) (models.ID, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil || n == 0 {
		return 0, &models.ValidationError{Field: "id", Reason: fmt.Sprintf("%q is not a number between 1 and 65535", s)}
	}
	return models.ID(n), nil
}

func parseKindID(kind, id string) (models.Kind, models.ID, error) {
	k, err := models.ParseKind(kind)
	if err != nil {
		return "", 0, err
	}
	n, err := parseID(id)
	if err != nil {
		return "", 0, err
	}
	return k, n, nil
}

package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
	"github.com/target/exam-portal/internal/guard"
	"github.com/target/exam-portal/internal/session"
)

type loginOptions struct {
	Role     string
	Email    string
	Password string
}

func runLogin(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "login")
	var opts loginOptions
	fs.StringVar(&opts.Role, "role", "", "Role to sign in as: student, teacher, admin or proctor")
	fs.StringVar(&opts.Email, "email", "", "Account email")
	fs.StringVar(&opts.Password, "password", "", "Account password")
	if _, err := parseArgs(fs, args, 0, "--role ROLE --email EMAIL --password PASSWORD"); err != nil {
		return err
	}
	role, err := domainauth.ParseRole(opts.Role)
	if err != nil {
		return fmt.Errorf("--role: %w", err)
	}

	c, err := openClient(cmdCtx)
	if err != nil {
		return err
	}
	if prev := c.store.State(); prev.IsAuthenticated && prev.User != nil {
		cmdCtx.Logger.Info("replacing session", "user", prev.User.Email, "role", prev.Role)
		c.signOut()
	}
	err = c.store.Login(cmdCtx.Ctx, domainauth.Credentials{
		Email:    strings.TrimSpace(opts.Email),
		Password: opts.Password,
		Role:     role,
	})
	if err != nil {
		return errors.New(session.Message(err))
	}

	state := c.store.State()
	if err := writef(cmdCtx.Out, "Signed in as %s (%s)\n", state.User.Name, state.Role); err != nil {
		return err
	}
	return writef(cmdCtx.Out, "Dashboard: %s\n", dashboardPath(state.Role))
}

// dashboardPath finds the protected route that serves role.
func dashboardPath(role domainauth.Role) string {
	for _, r := range guard.Routes() {
		if r.Access == guard.AccessProtected && role.In(r.Roles) {
			return r.Path
		}
	}
	return guard.PathDashboard
}

func runLogout(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "logout")
	if _, err := parseArgs(fs, args, 0, ""); err != nil {
		return err
	}
	c, err := openClient(cmdCtx)
	if err != nil {
		return err
	}

	c.signOut()
	return writeln(cmdCtx.Out, "Signed out")
}

// signOut revokes the token when signed in, then removes the local session.
func (c *client) signOut() {
	if c.store.State().IsAuthenticated {
		// Revocation is best effort; the local session is removed regardless.
		if err := c.session.Auth().Logout(c.cmdCtx.Ctx); err != nil && !c.expired {
			c.cmdCtx.Logger.Warn("revoke token", "error", err)
		}
	}
	if err := c.store.Logout(c.cmdCtx.Ctx); err != nil {
		c.cmdCtx.Logger.Warn("remove session keys", "error", err)
	}
}

func runWhoami(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "whoami")
	if _, err := parseArgs(fs, args, 0, ""); err != nil {
		return err
	}
	c, err := openClient(cmdCtx)
	if err != nil {
		return err
	}
	state := c.store.State()
	if !state.IsAuthenticated || state.User == nil {
		return errNotSignedIn
	}

	u := state.User
	w := tabwriter.NewWriter(cmdCtx.Out, 0, 4, 2, ' ', 0)
	rows := [][2]string{
		{"Name", u.Name},
		{"Email", u.Email},
		{"Role", state.Role.String()},
	}
	if profile, ok := state.Role.Profile(); ok {
		rows = append(rows, [2]string{"Access", profile.Description})
	}
	if u.Department != "" {
		rows = append(rows, [2]string{"Department", u.Department})
	}
	for _, id := range []string{u.StudentID, u.TeacherID, u.AdminID, u.ProctorID} {
		if id != "" {
			rows = append(rows, [2]string{"ID", id})
		}
	}
	for _, row := range rows {
		if err := writef(w, "%s\t%s\n", row[0], row[1]); err != nil {
			return fmt.Errorf("write profile: %w", err)
		}
	}
	return w.Flush()
}

func runRefresh(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "refresh")
	if _, err := parseArgs(fs, args, 0, ""); err != nil {
		return err
	}
	c, err := openClient(cmdCtx)
	if err != nil {
		return err
	}
	if !c.store.State().IsAuthenticated {
		return errNotSignedIn
	}
	tok, err := c.session.Auth().Refresh(cmdCtx.Ctx)
	if err != nil {
		return c.apiErr(err)
	}
	if err := c.store.ReplaceToken(cmdCtx.Ctx, tok); err != nil {
		return err
	}
	return writeln(cmdCtx.Out, "Token refreshed")
}

func runOpen(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet(cmdCtx, "open")
	rest, err := parseArgs(fs, args, 1, "PATH")
	if err != nil {
		return err
	}
	c, err := openClient(cmdCtx)
	if err != nil {
		return err
	}
	return printDecision(cmdCtx, rest[0], guard.Navigate(c.store.State(), rest[0]))
}

func printDecision(cmdCtx *commandContext, path string, d guard.Decision) error {
	switch {
	case d.Kind == guard.KindRender:
		return writef(cmdCtx.Out, "%s: render %s\n", path, d.View)
	case d.Redirects():
		return writef(cmdCtx.Out, "%s: %s -> %s\n", path, d.Kind, d.Location)
	default:
		return writef(cmdCtx.Out, "%s: %s\n", path, d.Kind)
	}
}

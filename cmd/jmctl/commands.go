package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
	"github.com/jobmatcher/jm-portal/internal/ports"
	"github.com/jobmatcher/jm-portal/internal/service"
)

type loginOptions struct {
	Email string
	Role  domainauth.Role
}

func parseLoginFlags(args []string, out io.Writer) (loginOptions, error) {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(out)
	email := fs.String("email", "", "account email (prompted when empty)")
	role := fs.String("role", string(domainauth.RoleUser), "login surface: user, agent or admin")
	if err := fs.Parse(args); err != nil {
		return loginOptions{}, err
	}
	r, ok := domainauth.ParseRole(*role)
	if !ok || r == domainauth.RoleGuest {
		return loginOptions{}, fmt.Errorf("invalid role %q (valid options: user, agent, admin)", *role)
	}
	return loginOptions{Email: *email, Role: r}, nil
}

func runLogin(cmdCtx *commandContext, args []string) error {
	opts, err := parseLoginFlags(args, cmdCtx.Out)
	if err != nil {
		return err
	}
	email, err := cmdCtx.Prompt.Line("Email", opts.Email)
	if err != nil {
		return err
	}
	password, err := cmdCtx.Prompt.Password("Password")
	if err != nil {
		return err
	}

	sess, err := cmdCtx.Auth.Login(cmdCtx.Ctx, ports.LoginInput{Email: email, Password: password, Role: opts.Role})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	return writef(cmdCtx.Out, "Logged in as %s\n", describe(sess))
}

type registerOptions struct {
	Name  string
	Email string
}

func parseRegisterFlags(args []string, out io.Writer) (registerOptions, error) {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(out)
	name := fs.String("name", "", "display name (prompted when empty)")
	email := fs.String("email", "", "account email (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return registerOptions{}, err
	}
	return registerOptions{Name: *name, Email: *email}, nil
}

func runRegister(cmdCtx *commandContext, args []string) error {
	opts, err := parseRegisterFlags(args, cmdCtx.Out)
	if err != nil {
		return err
	}
	name, err := cmdCtx.Prompt.Line("Name", opts.Name)
	if err != nil {
		return err
	}
	email, err := cmdCtx.Prompt.Line("Email", opts.Email)
	if err != nil {
		return err
	}
	password, err := cmdCtx.Prompt.Password("Password")
	if err != nil {
		return err
	}

	sess, err := cmdCtx.Auth.Register(cmdCtx.Ctx, ports.RegisterInput{Name: name, Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("register failed: %w", err)
	}
	return writef(cmdCtx.Out, "Registered and logged in as %s\n", describe(sess))
}

func runLogout(cmdCtx *commandContext, args []string) error {
	if len(args) > 0 {
		return errors.New("logout takes no arguments")
	}
	cmdCtx.Auth.Logout(cmdCtx.Ctx)
	return writef(cmdCtx.Out, "Logged out\n")
}

func runWhoami(cmdCtx *commandContext, args []string) error {
	if len(args) > 0 {
		return errors.New("whoami takes no arguments")
	}
	res := cmdCtx.Sessions.Start(cmdCtx.Ctx)
	switch res.Outcome {
	case service.RefreshCollapsed:
		if err := writef(cmdCtx.Out, "Stored session was rejected and has been cleared\n"); err != nil {
			return err
		}
	case service.RefreshAborted:
		if err := writef(cmdCtx.Out, "Stored session could not be verified; kept as is\n"); err != nil {
			return err
		}
	}
	return printSession(cmdCtx.Out, cmdCtx.Sessions.Current())
}

func runRefresh(cmdCtx *commandContext, args []string) error {
	if len(args) > 0 {
		return errors.New("refresh takes no arguments")
	}
	res := cmdCtx.Sessions.Refresh(cmdCtx.Ctx)
	var msg string
	switch res.Outcome {
	case service.RefreshSkipped:
		msg = "No stored token to verify"
	case service.RefreshHydrated:
		msg = "Session verified"
	case service.RefreshCollapsed:
		msg = "Session rejected; logged out"
	case service.RefreshStale:
		msg = "Session changed during verification; result discarded"
	case service.RefreshAborted:
		msg = "Verification interrupted; session unchanged"
	}
	if err := writef(cmdCtx.Out, "%s\n", msg); err != nil {
		return err
	}
	return printSession(cmdCtx.Out, res.Session)
}

func runStatus(cmdCtx *commandContext, args []string) error {
	if len(args) > 0 {
		return errors.New("status takes no arguments")
	}
	statuses := cmdCtx.Health.Status(cmdCtx.Ctx)

	tw := tabwriter.NewWriter(cmdCtx.Out, 0, 4, 2, ' ', 0)
	if err := writef(tw, "BACKEND\tSTATUS\tLATENCY\n"); err != nil {
		return err
	}
	unhealthy := 0
	for _, st := range statuses {
		if !st.Healthy {
			unhealthy++
		}
		if err := writef(tw, "%s\t%s\t%s\n", st.Name, st.Status, st.Latency.Round(time.Millisecond)); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if unhealthy > 0 {
		return fmt.Errorf("%d of %d backends unhealthy", unhealthy, len(statuses))
	}
	return nil
}

func printSession(w io.Writer, sess domainauth.Session) error {
	if sess.IsGuest() {
		return writef(w, "Not logged in\n")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writef(tw, "Role:\t%s\n", sess.Role); err != nil {
		return err
	}
	if sess.User != nil {
		if err := writef(tw, "User:\t%s <%s>\n", sess.User.Name, sess.User.Email); err != nil {
			return err
		}
		if err := writef(tw, "ID:\t%d\n", sess.User.ID); err != nil {
			return err
		}
	} else {
		if err := writef(tw, "User:\t(not verified)\n"); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func describe(sess domainauth.Session) string {
	if sess.User == nil {
		return string(sess.Role)
	}
	return fmt.Sprintf("%s (%s <%s>)", sess.Role, sess.User.Name, sess.User.Email)
}

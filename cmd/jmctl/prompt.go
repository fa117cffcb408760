package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter asks for input on in, echoing labels to out. Passwords are read
// without echo when in is a terminal.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
	tty bool
}

func newTerminalPrompter(in *os.File, out io.Writer) *prompter {
	fd := int(in.Fd())
	return &prompter{in: bufio.NewReader(in), out: out, fd: fd, tty: term.IsTerminal(fd)}
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out, fd: -1}
}

// Line returns value when it is set, otherwise prompts for it.
func (p *prompter) Line(label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	line, err := p.readLine(label)
	return strings.TrimSpace(line), err
}

func (p *prompter) readLine(label string) (string, error) {
	if err := writef(p.out, "%s: ", label); err != nil {
		return "", err
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Password prompts for a secret.
func (p *prompter) Password(label string) (string, error) {
	if !p.tty {
		return p.readLine(label)
	}
	if err := writef(p.out, "%s: ", label); err != nil {
		return "", err
	}
	b, err := term.ReadPassword(p.fd)
	_ = writef(p.out, "\n")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

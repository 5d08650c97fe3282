// Package prompt reads operator input for a run: the device address, login
// credentials, and per-job commit confirmations.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/newtron-network/confpush/pkg/device"
	"github.com/newtron-network/confpush/pkg/util"
)

// Prompt texts shown to the operator.
const (
	HostPrompt     = "Device hostname (in the IP:Port format): "
	UsernamePrompt = "Console server username: "
	PasswordPrompt = "Console server password: "
)

// Lab login used by --default_login. Never applied unless the operator
// opts in explicitly.
const (
	DefaultUsername = "jcluser"
	DefaultPassword = "Juniper!1"
)

// Prompter reads answers from an input stream and writes prompts to an
// output stream.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer

	// readPassword reads a line without echo. Nil means the input is not a
	// terminal and passwords are read as plain lines.
	readPassword func() ([]byte, error)
}

// New returns a Prompter over arbitrary streams. Passwords are read as
// plain lines.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// NewConsole returns a Prompter on stdin/stdout. When stdin is a terminal,
// passwords are read without echo.
func NewConsole() *Prompter {
	p := New(os.Stdin, os.Stdout)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		p.readPassword = func() ([]byte, error) { return term.ReadPassword(fd) }
	}
	return p
}

// ParseHostPort splits "host:port". Input with anything other than exactly
// one colon is rejected.
func ParseHostPort(s string) (device.Target, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return device.Target{}, util.NewPhaseError(util.PhaseInput,
			fmt.Errorf("expected host:port, got %q (%d parts)", s, len(parts)))
	}
	return device.Target{Host: parts[0], Port: parts[1]}, nil
}

// Host prompts for the device address. An empty answer selects def when def
// is non-empty.
func (p *Prompter) Host(def string) (device.Target, error) {
	question := HostPrompt
	if def != "" {
		question = fmt.Sprintf("Device hostname (in the IP:Port format) [%s]: ", def)
	}
	answer, err := p.ask(question)
	if err != nil {
		return device.Target{}, util.NewPhaseError(util.PhaseInput, err)
	}
	if answer == "" && def != "" {
		answer = def
	}
	return ParseHostPort(answer)
}

// Credentials prompts for a username and a password. The password is not
// echoed when the input is a terminal.
func (p *Prompter) Credentials() (device.Credentials, error) {
	username, err := p.ask(UsernamePrompt)
	if err != nil {
		return device.Credentials{}, util.NewPhaseError(util.PhaseCredentials, err)
	}

	password, err := p.secret(PasswordPrompt)
	if err != nil {
		return device.Credentials{}, util.NewPhaseError(util.PhaseCredentials, err)
	}
	return device.Credentials{Username: username, Password: password}, nil
}

// Secret prompts for a value that must not be echoed.
func (p *Prompter) Secret(question string) (string, error) {
	return p.secret(question)
}

// Confirm asks a yes/no question. Only a line that is exactly "y" or "Y"
// is a yes; surrounding spaces make it a no.
func (p *Prompter) Confirm(question string) (bool, error) {
	fmt.Fprint(p.out, question)
	answer, err := p.readLine()
	if err != nil {
		return false, err
	}
	return strings.EqualFold(answer, "y"), nil
}

// DefaultCredentials returns the built-in lab login.
func DefaultCredentials() device.Credentials {
	util.Logger.Warn("using built-in default credentials (--default_login)")
	return device.Credentials{Username: DefaultUsername, Password: DefaultPassword}
}

func (p *Prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	line, err := p.readLine()
	return strings.TrimSpace(line), err
}

func (p *Prompter) secret(question string) (string, error) {
	fmt.Fprint(p.out, question)
	if p.readPassword == nil {
		return p.readLine()
	}
	b, err := p.readPassword()
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

// readLine returns one line without its terminator. A final line without a
// newline is accepted; EOF with nothing read is an error.
func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		if errors.Is(err, io.EOF) {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

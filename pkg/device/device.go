// Package device opens NETCONF sessions to Junos devices and drives the
// candidate-configuration transaction used to apply rendered templates.
package device

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/Juniper/go-netconf/netconf"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/newtron-network/confpush/pkg/util"
)

// DefaultTimeout bounds the SSH handshake when Options.Timeout is unset.
const DefaultTimeout = 30 * time.Second

// Target is the management address of a device.
type Target struct {
	Host string
	Port string
}

// Addr returns the dialable "host:port" form.
func (t Target) Addr() string {
	return net.JoinHostPort(t.Host, t.Port)
}

func (t Target) String() string {
	return t.Host + ":" + t.Port
}

// Credentials authenticate the NETCONF SSH session.
type Credentials struct {
	Username string
	Password string
}

// Options tune session establishment.
type Options struct {
	// Timeout bounds the TCP connect and SSH handshake.
	Timeout time.Duration
	// KnownHosts is an OpenSSH known_hosts file used to verify the device
	// host key. Empty disables verification.
	KnownHosts string
}

// rpcExecutor is the subset of *netconf.Session the device layer uses.
type rpcExecutor interface {
	Exec(methods ...netconf.RPCMethod) (*netconf.RPCReply, error)
	Close() error
}

// Session is an authenticated NETCONF session to exactly one device.
type Session struct {
	target Target
	rpc    rpcExecutor
	log    *logrus.Entry
}

// Dial opens a NETCONF-over-SSH session to target.
func Dial(ctx context.Context, target Target, creds Credentials, opts Options) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	config, err := clientConfig(creds, opts)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < config.Timeout {
			config.Timeout = remaining
		}
	}

	nc, err := netconf.DialSSH(target.Addr(), config)
	if err != nil {
		return nil, fmt.Errorf("NETCONF dial %s@%s: %w", creds.Username, target.Addr(), err)
	}

	s := newSession(target, nc)
	s.log.WithField("session_id", nc.SessionID).Info("Connected")
	return s, nil
}

func newSession(target Target, rpc rpcExecutor) *Session {
	return &Session{
		target: target,
		rpc:    rpc,
		log:    util.WithDevice(target.String()),
	}
}

func clientConfig(creds Credentials, opts Options) (*ssh.ClientConfig, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var hostKey ssh.HostKeyCallback
	if opts.KnownHosts != "" {
		cb, err := knownhosts.New(opts.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("loading known hosts %s: %w", opts.KnownHosts, err)
		}
		hostKey = cb
	} else {
		util.Logger.Warn("host key verification disabled (no known_hosts configured)")
		hostKey = ssh.InsecureIgnoreHostKey()
	}

	password := creds.Password
	return &ssh.ClientConfig{
		User: creds.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			// Junos commonly offers only keyboard-interactive for passwords.
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: hostKey,
		Timeout:         timeout,
	}, nil
}

// Target returns the address this session is connected to.
func (s *Session) Target() Target {
	return s.target
}

// Close ends the NETCONF session and the SSH connection under it.
func (s *Session) Close() error {
	if s.rpc == nil {
		return nil
	}
	err := s.rpc.Close()
	s.rpc = nil
	s.log.Info("Disconnected")
	return err
}

// Facts describes the device software as reported after connect.
type Facts struct {
	Hostname string `xml:"host-name"`
	Model    string `xml:"product-model"`
	Version  string `xml:"junos-version"`
}

// Facts queries <get-software-information/>.
func (s *Session) Facts(ctx context.Context) (*Facts, error) {
	data, err := s.exec(ctx, "get-software-information", rpcGetSoftwareInformation)
	if err != nil {
		return nil, err
	}
	var facts Facts
	if err := decodeElement(data, "software-information", &facts); err != nil {
		return nil, fmt.Errorf("parsing software information: %w", err)
	}
	return &facts, nil
}

// RPCError reports a failed NETCONF operation.
type RPCError struct {
	Op  string
	Err error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RPCError) Unwrap() error {
	return e.Err
}

// exec sends one raw RPC and returns the reply body. Replies carrying an
// rpc-error of severity "error" fail; warnings are logged.
func (s *Session) exec(ctx context.Context, op, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.rpc == nil {
		return "", &RPCError{Op: op, Err: util.ErrNotConnected}
	}

	s.log.WithField("rpc", op).Debug("exec")
	reply, err := s.rpc.Exec(netconf.RawMethod(body))
	if err != nil {
		return "", &RPCError{Op: op, Err: err}
	}
	if reply == nil {
		return "", nil
	}
	for i := range reply.Errors {
		rerr := reply.Errors[i]
		if strings.EqualFold(rerr.Severity, "warning") {
			s.log.WithField("rpc", op).Warnf("rpc warning: %s", strings.TrimSpace(rerr.Message))
			continue
		}
		return "", &RPCError{Op: op, Err: &rerr}
	}
	return reply.Data, nil
}

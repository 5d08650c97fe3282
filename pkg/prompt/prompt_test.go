package prompt

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/newtron-network/confpush/pkg/util"
)

func TestParseHostPort(t *testing.T) {
	tests := []struct {
		input    string
		wantHost string
		wantPort string
		wantErr  bool
	}{
		{"10.0.0.1:830", "10.0.0.1", "830", false},
		{"vsrx1.lab:22", "vsrx1.lab", "22", false},
		{":830", "", "830", false},
		{"10.0.0.1:", "10.0.0.1", "", false},
		{"10.0.0.1", "", "", true},
		{"", "", "", true},
		{"10.0.0.1:830:1", "", "", true},
		{"2001:db8::1:830", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseHostPort(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHostPort(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				if util.ExitCode(err) != 1 {
					t.Errorf("ExitCode = %d, want 1", util.ExitCode(err))
				}
				if !errors.Is(err, util.ErrInputParse) {
					t.Errorf("expected ErrInputParse, got %v", err)
				}
				return
			}
			if got.Host != tt.wantHost || got.Port != tt.wantPort {
				t.Errorf("ParseHostPort(%q) = %+v, want %s/%s", tt.input, got, tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestPrompter_Host(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader(" 10.0.0.1:830 \n"), &out)

	got, err := p.Host("")
	if err != nil {
		t.Fatalf("Host failed: %v", err)
	}
	if got.Host != "10.0.0.1" || got.Port != "830" {
		t.Errorf("Host() = %+v", got)
	}
	if out.String() != HostPrompt {
		t.Errorf("prompt = %q, want %q", out.String(), HostPrompt)
	}
}

func TestPrompter_HostDefault(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("\n"), &out)

	got, err := p.Host("192.0.2.10:830")
	if err != nil {
		t.Fatalf("Host failed: %v", err)
	}
	if got.Host != "192.0.2.10" || got.Port != "830" {
		t.Errorf("Host() = %+v", got)
	}
	if !strings.Contains(out.String(), "[192.0.2.10:830]") {
		t.Errorf("prompt should show default, got %q", out.String())
	}
}

func TestPrompter_HostErrors(t *testing.T) {
	p := New(strings.NewReader("no-port\n"), &bytes.Buffer{})
	if _, err := p.Host(""); util.ExitCode(err) != 1 {
		t.Errorf("malformed host: ExitCode = %d, want 1 (err %v)", util.ExitCode(err), err)
	}

	p = New(strings.NewReader(""), &bytes.Buffer{})
	if _, err := p.Host(""); util.ExitCode(err) != 1 {
		t.Errorf("EOF: ExitCode = %d, want 1 (err %v)", util.ExitCode(err), err)
	}
}

func TestPrompter_Credentials(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("admin\n s3cret \n"), &out)

	creds, err := p.Credentials()
	if err != nil {
		t.Fatalf("Credentials failed: %v", err)
	}
	if creds.Username != "admin" {
		t.Errorf("Username = %q", creds.Username)
	}
	if creds.Password != " s3cret " {
		t.Errorf("Password = %q, want surrounding spaces kept", creds.Password)
	}
	if out.String() != UsernamePrompt+PasswordPrompt {
		t.Errorf("prompts = %q", out.String())
	}
}

func TestPrompter_CredentialsNoEcho(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("admin\n"), &out)
	p.readPassword = func() ([]byte, error) { return []byte("hidden"), nil }

	creds, err := p.Credentials()
	if err != nil {
		t.Fatalf("Credentials failed: %v", err)
	}
	if creds.Password != "hidden" {
		t.Errorf("Password = %q", creds.Password)
	}
	if strings.Contains(out.String(), "hidden") {
		t.Error("password echoed to output")
	}
}

func TestPrompter_CredentialsErrors(t *testing.T) {
	p := New(strings.NewReader(""), &bytes.Buffer{})
	_, err := p.Credentials()
	if util.ExitCode(err) != 2 || !errors.Is(err, util.ErrCredentialPrompt) {
		t.Errorf("EOF on username: err = %v, ExitCode = %d", err, util.ExitCode(err))
	}

	p = New(strings.NewReader("admin\n"), &bytes.Buffer{})
	p.readPassword = func() ([]byte, error) { return nil, errors.New("inappropriate ioctl for device") }
	_, err = p.Credentials()
	if util.ExitCode(err) != 2 {
		t.Errorf("password read failure: ExitCode = %d, want 2", util.ExitCode(err))
	}
}

func TestPrompter_Confirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"y\r\n", true},
		{"y", true},
		{" y \n", false},
		{"y \n", false},
		{"yes\n", false},
		{"n\n", false},
		{"\n", false},
		{"anything\n", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.input), func(t *testing.T) {
			p := New(strings.NewReader(tt.input), &bytes.Buffer{})
			got, err := p.Confirm("Commit? [y/N]: ")
			if err != nil {
				t.Fatalf("Confirm failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}

	p := New(strings.NewReader(""), &bytes.Buffer{})
	if _, err := p.Confirm("Commit? "); err == nil {
		t.Error("expected error on EOF")
	}
}

func TestDefaultCredentials(t *testing.T) {
	creds := DefaultCredentials()
	if creds.Username != DefaultUsername || creds.Password != DefaultPassword {
		t.Errorf("DefaultCredentials() = %+v", creds)
	}
}

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/newtron-network/confpush/pkg/crypt"
	"github.com/newtron-network/confpush/pkg/prompt"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		scheme     crypt.Scheme
		wantPrefix string
	}{
		{crypt.SchemeMD5, "Your MD5-hashed password is $1$"},
		{crypt.SchemeBcrypt, "Your bcrypt-hashed password is $2"},
	}
	for _, tt := range tests {
		t.Run(string(tt.scheme), func(t *testing.T) {
			var out bytes.Buffer
			p := prompt.New(strings.NewReader("Juniper!1\n"), &out)

			if err := hashPassword(p, &out, tt.scheme); err != nil {
				t.Fatalf("hashPassword failed: %v", err)
			}

			line := strings.TrimPrefix(out.String(), "Password: ")
			if !strings.HasPrefix(line, tt.wantPrefix) {
				t.Fatalf("output = %q, want prefix %q", line, tt.wantPrefix)
			}
			fields := strings.Fields(line)
			hash := fields[len(fields)-1]
			if err := crypt.Verify(hash, "Juniper!1"); err != nil {
				t.Errorf("printed hash does not verify: %v", err)
			}
		})
	}
}

func TestHashPassword_ReadError(t *testing.T) {
	var out bytes.Buffer
	p := prompt.New(strings.NewReader(""), &out)
	if err := hashPassword(p, &out, crypt.SchemeMD5); err == nil {
		t.Error("expected error on EOF")
	}
}

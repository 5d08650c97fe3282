// Package crypt produces crypt(3)-style password hashes suitable for a Junos
// "encrypted-password" statement.
package crypt

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Scheme names a hash algorithm.
type Scheme string

const (
	SchemeMD5    Scheme = "md5"
	SchemeBcrypt Scheme = "bcrypt"
)

const (
	md5Magic    = "$1$"
	md5SaltLen  = 8
	md5Rounds   = 1000
	itoa64      = "./0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	bcryptMagic = "$2"
)

// ErrMismatch is returned by Verify when the password does not match.
var ErrMismatch = errors.New("password does not match hash")

// ParseScheme returns the scheme for name. An empty name selects md5.
func ParseScheme(name string) (Scheme, error) {
	switch Scheme(strings.ToLower(name)) {
	case "", SchemeMD5:
		return SchemeMD5, nil
	case SchemeBcrypt:
		return SchemeBcrypt, nil
	}
	return "", fmt.Errorf("unknown hash scheme %q (valid: md5, bcrypt)", name)
}

// Hash hashes password with a fresh random salt.
func Hash(scheme Scheme, password string) (string, error) {
	switch scheme {
	case SchemeMD5:
		salt, err := NewSalt()
		if err != nil {
			return "", err
		}
		return MD5(password, salt), nil
	case SchemeBcrypt:
		b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return "", fmt.Errorf("bcrypt: %w", err)
		}
		return string(b), nil
	}
	return "", fmt.Errorf("unknown hash scheme %q", scheme)
}

// Verify checks password against a hash produced by Hash.
func Verify(hash, password string) error {
	switch {
	case strings.HasPrefix(hash, md5Magic):
		salt, _, ok := strings.Cut(hash[len(md5Magic):], "$")
		if !ok {
			return fmt.Errorf("malformed md5-crypt hash")
		}
		if subtle.ConstantTimeCompare([]byte(MD5(password, salt)), []byte(hash)) != 1 {
			return ErrMismatch
		}
		return nil
	case strings.HasPrefix(hash, bcryptMagic):
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		return err
	}
	return fmt.Errorf("unrecognised hash format")
}

// NewSalt returns a random md5-crypt salt.
func NewSalt() (string, error) {
	b := make([]byte, md5SaltLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	for i := range b {
		b[i] = itoa64[int(b[i])%len(itoa64)]
	}
	return string(b), nil
}

// MD5 returns the "$1$salt$digest" md5-crypt hash of password. The salt is
// cut at the first '$' and at eight characters.
func MD5(password, salt string) string {
	if i := strings.IndexByte(salt, '$'); i >= 0 {
		salt = salt[:i]
	}
	if len(salt) > md5SaltLen {
		salt = salt[:md5SaltLen]
	}
	pw := []byte(password)

	alt := md5.New()
	alt.Write(pw)
	alt.Write([]byte(salt))
	alt.Write(pw)
	altSum := alt.Sum(nil)

	ctx := md5.New()
	ctx.Write(pw)
	ctx.Write([]byte(md5Magic + salt))
	for i := len(pw); i > 0; i -= md5.Size {
		ctx.Write(altSum[:min(i, md5.Size)])
	}
	for i := len(pw); i > 0; i >>= 1 {
		if i&1 != 0 {
			ctx.Write([]byte{0})
		} else {
			ctx.Write(pw[:1])
		}
	}
	sum := ctx.Sum(nil)

	for i := 0; i < md5Rounds; i++ {
		round := md5.New()
		if i&1 != 0 {
			round.Write(pw)
		} else {
			round.Write(sum)
		}
		if i%3 != 0 {
			round.Write([]byte(salt))
		}
		if i%7 != 0 {
			round.Write(pw)
		}
		if i&1 != 0 {
			round.Write(sum)
		} else {
			round.Write(pw)
		}
		sum = round.Sum(nil)
	}

	var out strings.Builder
	out.WriteString(md5Magic)
	out.WriteString(salt)
	out.WriteByte('$')
	for _, g := range [][3]int{{0, 6, 12}, {1, 7, 13}, {2, 8, 14}, {3, 9, 15}, {4, 10, 5}} {
		encode64(&out, uint(sum[g[0]])<<16|uint(sum[g[1]])<<8|uint(sum[g[2]]), 4)
	}
	encode64(&out, uint(sum[11]), 2)
	return out.String()
}

func encode64(out *strings.Builder, v uint, n int) {
	for ; n > 0; n-- {
		out.WriteByte(itoa64[v&0x3f])
		v >>= 6
	}
}

// Pwhash prints a crypt-style hash of a password for use in a Junos
// "encrypted-password" statement. The password is read without echo.
//
//	pwhash                  # $1$ md5-crypt
//	pwhash --scheme bcrypt
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/newtron-network/confpush/pkg/cli"
	"github.com/newtron-network/confpush/pkg/crypt"
	"github.com/newtron-network/confpush/pkg/prompt"
	"github.com/newtron-network/confpush/pkg/util"
)

var scheme string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cli.Red("Error:"), err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "pwhash",
	Short:         "Hash a password for a Junos login",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := crypt.ParseScheme(scheme)
		if err != nil {
			return err
		}
		return hashPassword(prompt.NewConsole(), cmd.OutOrStdout(), s)
	},
}

func init() {
	rootCmd.Flags().StringVar(&scheme, "scheme", string(crypt.SchemeMD5), "Hash scheme (md5, bcrypt)")
}

type secretReader interface {
	Secret(question string) (string, error)
}

func hashPassword(p secretReader, out io.Writer, s crypt.Scheme) error {
	password, err := p.Secret("Password: ")
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	if password == "" {
		util.Warnf("hashing an empty password")
	}

	hash, err := crypt.Hash(s, password)
	if err != nil {
		return err
	}

	label := "MD5"
	if s == crypt.SchemeBcrypt {
		label = "bcrypt"
	}
	fmt.Fprintf(out, "Your %s-hashed password is %s\n", label, hash)
	return nil
}

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"smp/internal/owner"
	ownerstore "smp/internal/owner/store"
)

func newHashPasswordCmd() *cobra.Command {
	var loginName, id string
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print a users file entry for a login name",
		Long: `Reads the password from the first line of stdin and prints a YAML
entry for the users file.

Examples:
  # Append alice to the users file
  echo 's3cret' | smpctl hash-password --login alice >> users.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return hashPassword(cmd.InOrStdin(), cmd.OutOrStdout(), loginName, id)
		},
	}
	cmd.Flags().StringVarP(&loginName, "login", "l", "", "Login name used in HTTP basic auth")
	cmd.Flags().StringVar(&id, "id", "", "Owner id stored on service groups (defaults to the login name)")
	_ = cmd.MarkFlagRequired("login")
	return cmd
}

func newCheckUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-users <file>",
		Short: "Validate a users file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := ownerstore.LoadFile(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d users\n", args[0], users.Len())
			return err
		},
	}
}

func hashPassword(in io.Reader, out io.Writer, loginName, id string) error {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("read password: %w", err)
	}
	hash, err := owner.HashPassword(strings.TrimRight(line, "\r\n"))
	if err != nil {
		return err
	}
	if id == "" {
		id = loginName
	}
	entry, err := yaml.Marshal([]owner.User{{ID: id, LoginName: loginName, PasswordHash: hash}})
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	_, err = out.Write(entry)
	return err
}

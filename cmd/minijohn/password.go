package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/minijohn/internal/security/password"
)

func newPasswordCmd() *cobra.Command {
	pwCmd := &cobra.Command{Use: "password", Short: "Utilidades de contraseñas"}

	hash := &cobra.Command{
		Use:   "hash [password]",
		Short: "Imprime el hash argon2id (PHC) para pegar en users[].password",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var plain string
			if len(args) == 1 {
				plain = args[0]
			} else {
				// leer de stdin para no dejarla en el historial del shell
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("password required (argument or stdin)")
				}
				plain = strings.TrimRight(line, "\r\n")
			}
			h, err := password.Hash(password.Default, plain)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), h)
			return err
		},
	}

	pwCmd.AddCommand(hash)
	return pwCmd
}

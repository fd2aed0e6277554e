package main

import (
	"fmt"
	"strings"

	"smartBidFloor/pkg/utils"

	"github.com/spf13/cobra"
)

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash an operator password",
		Long:  `Read a password from stdin and print the bcrypt hash to use as ADMIN_PASSWORD_HASH.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var pw string
			if _, err := fmt.Fscanln(cmd.InOrStdin(), &pw); err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			pw = strings.TrimSpace(pw)
			if pw == "" {
				return fmt.Errorf("empty password")
			}
			hash, err := utils.HashPassword(pw)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
}

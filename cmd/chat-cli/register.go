package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRegisterCmd(v *viper.Viper) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, password := v.GetString("username"), v.GetString("password")
			if username == "" || password == "" || email == "" {
				return errors.New("--username, --password and --email are required")
			}
			res, err := newClient(v).Register(cmd.Context(), username, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s (id %s)\n", res.Account.Username, res.Account.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

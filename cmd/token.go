package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/victornm/livequiz/internal/auth"
	"github.com/victornm/livequiz/internal/domain"
)

type tokenOptions struct {
	config string
	secret string
	id     string
	name   string
	roles  []string
}

// newTokenCmd issues a bearer token for local testing. The secret comes from
// --secret or, failing that, from the server config.
func newTokenCmd() *cobra.Command {
	var o tokenOptions

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed bearer token for an account.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ac := auth.Config{Secret: o.secret}
			if ac.Secret == "" {
				c, err := loadConfig(o.config)
				if err != nil {
					return err
				}
				ac = auth.Config{Secret: c.Auth.Secret, Issuer: c.Auth.Issuer, TokenTTL: c.Auth.TokenTTL}
			}
			if ac.Secret == "" {
				return fmt.Errorf("no signing secret configured")
			}

			name := o.name
			if name == "" {
				name = o.id
			}

			tok, err := auth.New(ac).Issue(domain.Account{ID: o.id, Name: name, Roles: o.roles})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&o.config, "config", "c", "", "path to the config file (env: CONFIG_PATH)")
	fs.StringVar(&o.secret, "secret", "", "signing secret, overrides the config file")
	fs.StringVar(&o.id, "id", "", "account ID")
	fs.StringVar(&o.name, "name", "", "account username (default: the account ID)")
	fs.StringSliceVar(&o.roles, "roles", []string{domain.RolePlayer}, "account roles")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

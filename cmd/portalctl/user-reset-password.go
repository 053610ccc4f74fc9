package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cmformation/formation-portal/pkg/authenticator/authn"
	"github.com/cmformation/formation-portal/pkg/model"
	gormstore "github.com/cmformation/formation-portal/pkg/server/store/gorm"
)

// userResetPasswordCmd represents the user reset-password command
var userResetPasswordCmd = &cobra.Command{
	Use:   "reset-password <email>",
	Short: "Replace an account's password with a generated one",
	Long: `Replace the password of an account with a generated one.

The new password will be printed to stdout. Pending invitations are
completed by this command since the account gets a password.

Example:
  portalctl user reset-password jean@example.org`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		password, err := resetPassword(args[0])
		if err != nil {
			fail("Failed to reset password for %s: %v", args[0], err)
		}
		fmt.Println(password)
	},
}

func init() {
	userCmd.AddCommand(userResetPasswordCmd)
}

func resetPassword(email string) (string, error) {
	database, err := connectDatabase()
	if err != nil {
		return "", err
	}
	profiles := gormstore.NewProfilesStore(database)

	profile, err := profiles.GetByEmail(model.NormalizeEmail(email))
	if err != nil {
		return "", err
	}

	password, err := generatePassword()
	if err != nil {
		return "", err
	}
	hash, err := authn.HashPassword(password)
	if err != nil {
		return "", err
	}
	if err := profiles.SetPassword(profile.ID, hash); err != nil {
		return "", err
	}
	return password, nil
}

package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cmformation/formation-portal/pkg/authenticator/authn"
	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/server/store"
	gormstore "github.com/cmformation/formation-portal/pkg/server/store/gorm"
)

// userCreateCmd represents the user create command
var userCreateCmd = &cobra.Command{
	Use:   "create <email>",
	Short: "Create an account with a generated password",
	Long: `Create a portal account and print its generated password.

Use this to bootstrap the first administrator; later accounts are normally
invited from the portal.

Example:
  portalctl user create admin@example.org --name "Frère Jean" --role admin`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("name")
		roleName, _ := cmd.Flags().GetString("role")

		password, err := createUser(args[0], name, roleName)
		if err != nil {
			fail("Failed to create %s: %v", args[0], err)
		}
		fmt.Println(password)
	},
}

func init() {
	userCmd.AddCommand(userCreateCmd)
	userCreateCmd.Flags().String("name", "", "full name")
	userCreateCmd.Flags().String("role", string(model.RoleMember), "role (member, editor or admin)")
}

// generatePassword returns a random URL-safe password
func generatePassword() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func createUser(email, name, roleName string) (string, error) {
	role, err := model.ParseRole(roleName)
	if err != nil {
		return "", err
	}
	email = model.NormalizeEmail(email)
	if !strings.Contains(email, "@") {
		return "", fmt.Errorf("%w: %q is not an email address", store.ErrInvalid, email)
	}

	database, err := connectDatabase()
	if err != nil {
		return "", err
	}
	profiles := gormstore.NewProfilesStore(database)

	password, err := generatePassword()
	if err != nil {
		return "", err
	}
	hash, err := authn.HashPassword(password)
	if err != nil {
		return "", err
	}

	profile := &model.Profile{Email: email, FullName: strings.TrimSpace(name), Role: role}
	if err := profiles.Create(profile); err != nil {
		return "", err
	}
	if err := profiles.SetPassword(profile.ID, hash); err != nil {
		return "", err
	}
	return password, nil
}

package main

import (
	"fmt"
	"os"

	"github.com/sahilchouksey/student-records/config"
	"github.com/sahilchouksey/student-records/database"
	"github.com/spf13/cobra"
)

var (
	adminEmail    string
	adminPassword string
	adminName     string
	adminRole     string
)

var rootCmd = &cobra.Command{
	Use:           "seed",
	Short:         "Database maintenance for the institute registration service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Init(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
		return nil
	},
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Create an admin account or reset its password",
	Long: `Create an admin account that can review institute registration requests.

If an account with the email already exists its password, name and role are
replaced and every token issued to it is invalidated.

Examples:
  seed admin --email registrar@university.edu --password 'S3cure-passphrase'
  seed admin -e ops@university.edu -p 'S3cure-passphrase' --role super_admin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Init(); err != nil {
			return err
		}

		user, err := database.NewSeeder(store.GetDB()).SeedAdmin(database.AdminAccount{
			Email:    adminEmail,
			Password: adminPassword,
			Name:     adminName,
			Role:     adminRole,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Admin %s ready (id %d, role %s)\n", user.Email, user.ID, user.Role)
		return nil
	},
}

func init() {
	adminCmd.Flags().StringVarP(&adminEmail, "email", "e", "", "Admin email address")
	adminCmd.Flags().StringVarP(&adminPassword, "password", "p", "", "Admin password (at least 8 characters)")
	adminCmd.Flags().StringVarP(&adminName, "name", "n", "", "Display name")
	adminCmd.Flags().StringVar(&adminRole, "role", "admin", "admin or super_admin")
	_ = adminCmd.MarkFlagRequired("email")
	_ = adminCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(migrateCmd, adminCmd)
}

func openStore() (*database.GORMStore, error) {
	if err := config.LoadENV(); err != nil {
		return nil, err
	}
	env, err := config.Get()
	if err != nil {
		return nil, err
	}
	return database.StartGORM(env)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

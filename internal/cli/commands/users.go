package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/labres-dev/labres/internal/models"
)

const adminUsersRoute = "/admin/users"

// NewUsersCmd creates the users command group
func NewUsersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user"},
		Short:   "Manage user accounts (admin)",
	}

	cmd.AddCommand(
		newUsersListCmd(app),
		newUsersCreateCmd(app),
		newUsersUpdateCmd(app),
		newUsersDeleteCmd(app),
		newUsersImportCmd(app),
	)

	return cmd
}

func newUsersListCmd(app *App) *cobra.Command {
	var filter models.UserFilter
	var role string
	var active bool

	cmd := &cobra.Command{
		Use:         "ls",
		Aliases:     []string{"list"},
		Short:       "List users",
		Annotations: routeAnnotation(adminUsersRoute),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Role = models.Role(role)
			if cmd.Flags().Changed("active") {
				filter.IsActive = &active
			}

			users, err := app.API.ListUsers(cmd.Context(), filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(users) == 0 {
				fmt.Fprintln(out, "No users found.")
				return nil
			}
			printUsers(out, users)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Only show users with this role (admin, teacher, student)")
	cmd.Flags().BoolVar(&active, "active", true, "Only show active (or, with --active=false, inactive) users")
	cmd.Flags().StringVar(&filter.Search, "search", "", "Search email and name")
	cmd.Flags().IntVar(&filter.Skip, "skip", 0, "Number of users to skip")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "Maximum number of users to return")

	return cmd
}

func newUsersCreateCmd(app *App) *cobra.Command {
	var in models.UserCreate
	var name, role string

	cmd := &cobra.Command{
		Use:         "create",
		Short:       "Create a user",
		Annotations: routeAnnotation(adminUsersRoute),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.FullName = optionalString(cmd.Flags(), "name", name)
			in.Role = models.Role(role)

			if err := models.Validate(in); err != nil {
				return err
			}

			user, err := app.API.CreateUser(cmd.Context(), in)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s %s\n", user.Role, user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&role, "role", string(models.RoleStudent), "Role (admin, teacher, student)")
	cmd.Flags().StringVar(&in.Password, "password", "", "Initial password")

	return cmd
}

func newUsersUpdateCmd(app *App) *cobra.Command {
	var email, name, password, role string
	var active bool

	cmd := &cobra.Command{
		Use:         "update <email>",
		Short:       "Update a user",
		Args:        cobra.ExactArgs(1),
		Annotations: routeAnnotation(adminUsersRoute),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			in := models.UserUpdate{
				Email:    optionalString(flags, "email", email),
				FullName: optionalString(flags, "name", name),
				Password: optionalString(flags, "password", password),
			}
			if flags.Changed("role") {
				r := models.Role(role)
				in.Role = &r
			}
			if flags.Changed("active") {
				in.IsActive = &active
			}

			if err := models.Validate(in); err != nil {
				return err
			}

			user, err := app.API.UpdateUser(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Updated %s\n", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "New email address")
	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&password, "password", "", "New password")
	cmd.Flags().StringVar(&role, "role", "", "Role (admin, teacher, student)")
	cmd.Flags().BoolVar(&active, "active", true, "Whether the account may log in")

	return cmd
}

func newUsersDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:         "delete <email>",
		Aliases:     []string{"rm"},
		Short:       "Delete a user",
		Args:        cobra.ExactArgs(1),
		Annotations: routeAnnotation(adminUsersRoute),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := app.API.DeleteUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %s\n", user.Email)
			return nil
		},
	}
}

func newUsersImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Create many users from a YAML or JSON file",
		Long: `Create many users from a YAML or JSON file.

The file holds either a list of users or a "users" key with that list:

  users:
    - email: ada@example.org
      full_name: Ada Lovelace
      role: student
      password: changeme`,
		Args:        cobra.ExactArgs(1),
		Annotations: routeAnnotation(adminUsersRoute),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := readUserBatch(args[0])
			if err != nil {
				return err
			}

			if err := models.Validate(batch); err != nil {
				return err
			}

			users, err := app.API.BulkCreateUsers(cmd.Context(), *batch)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Created %d users\n", len(users))
			printUsers(out, users)
			return nil
		},
	}
}

// readUserBatch parses a bulk import file. YAML is a superset of JSON, so one
// decoder covers both.
func readUserBatch(path string) (*models.UserBulkCreate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse import file: %w", err)
	}

	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("import file %s is empty", path)
	}

	var batch models.UserBulkCreate
	if doc.Content[0].Kind == yaml.SequenceNode {
		err = doc.Decode(&batch.Users)
	} else {
		err = doc.Decode(&batch)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse import file: %w", err)
	}

	return &batch, nil
}

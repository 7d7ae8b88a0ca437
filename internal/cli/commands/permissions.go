package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/labres-dev/labres/internal/models"
)

const adminPermissionsRoute = "/admin/permissions"

// NewPermissionsCmd creates the permissions command group
func NewPermissionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "permissions",
		Aliases: []string{"permission", "perm"},
		Short:   "Control which users may reserve which instruments (admin)",
	}

	cmd.AddCommand(
		newPermissionCmd(app, "grant", "Allow a user to reserve an instrument", "Granted", app.grantPermission),
		newPermissionCmd(app, "revoke", "Stop a user from reserving an instrument", "Revoked", app.revokePermission),
	)

	return cmd
}

func (a *App) grantPermission(ctx context.Context, in models.PermissionGrant) (*models.User, error) {
	return a.API.GrantPermission(ctx, in)
}

func (a *App) revokePermission(ctx context.Context, in models.PermissionGrant) (*models.User, error) {
	return a.API.RevokePermission(ctx, in)
}

func newPermissionCmd(app *App, use, short, verb string, apply func(context.Context, models.PermissionGrant) (*models.User, error)) *cobra.Command {
	return &cobra.Command{
		Use:         use + " <email> <instrument-id>",
		Short:       short,
		Args:        cobra.ExactArgs(2),
		Annotations: routeAnnotation(adminPermissionsRoute),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("instrument", args[1])
			if err != nil {
				return err
			}

			in := models.PermissionGrant{UserEmail: args[0], InstrumentID: id}
			if err := models.Validate(in); err != nil {
				return err
			}

			user, err := apply(cmd.Context(), in)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s %s access to instrument #%d\n", verb, user.Email, id)
			return nil
		},
	}
}

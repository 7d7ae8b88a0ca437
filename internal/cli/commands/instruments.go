package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/labres-dev/labres/internal/models"
	"github.com/labres-dev/labres/internal/router"
)

const (
	instrumentRoute      = "/instrument/:id"
	adminInstrumentRoute = "/admin/instruments"
)

// NewInstrumentsCmd creates the instruments command group
func NewInstrumentsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "instruments",
		Aliases: []string{"instrument"},
		Short:   "Browse and manage lab instruments",
	}

	cmd.AddCommand(
		newInstrumentsListCmd(app),
		newInstrumentsShowCmd(app),
		newInstrumentsCreateCmd(app),
		newInstrumentsUpdateCmd(app),
		newInstrumentsDeleteCmd(app),
	)

	return cmd
}

func parseID(kind, raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID %q", kind, raw)
	}
	return id, nil
}

// optionalString returns a pointer to the flag value only when it was set
func optionalString(flags *pflag.FlagSet, name, value string) *string {
	if !flags.Changed(name) {
		return nil
	}
	return &value
}

func newInstrumentsListCmd(app *App) *cobra.Command {
	var filter models.InstrumentFilter

	cmd := &cobra.Command{
		Use:         "ls",
		Aliases:     []string{"list"},
		Short:       "List instruments",
		Annotations: routeAnnotation(router.DashboardPath),
		RunE: func(cmd *cobra.Command, args []string) error {
			instruments, err := app.API.ListInstruments(cmd.Context(), filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(instruments) == 0 {
				fmt.Fprintln(out, "No instruments found.")
				return nil
			}
			printInstruments(out, instruments)
			return nil
		},
	}

	cmd.Flags().IntVar(&filter.Skip, "skip", 0, "Number of instruments to skip")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "Maximum number of instruments to return")

	return cmd
}

func newInstrumentsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:         "show <id>",
		Short:       "Show an instrument and its reservations",
		Args:        cobra.ExactArgs(1),
		Annotations: routeAnnotation(instrumentRoute),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("instrument", args[0])
			if err != nil {
				return err
			}

			instrument, err := app.API.GetInstrument(cmd.Context(), id)
			if err != nil {
				return err
			}
			reservations, err := app.API.ListInstrumentReservations(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printInstrument(out, instrument)
			fmt.Fprintln(out)
			if len(reservations) == 0 {
				fmt.Fprintln(out, "No reservations.")
				return nil
			}
			printReservations(out, reservations)
			return nil
		},
	}
}

func newInstrumentsCreateCmd(app *App) *cobra.Command {
	var in models.InstrumentCreate
	var model, description, ip, mac string

	cmd := &cobra.Command{
		Use:         "create",
		Short:       "Register a new instrument (admin)",
		Annotations: routeAnnotation(adminInstrumentRoute),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			in.Model = optionalString(flags, "model", model)
			in.Description = optionalString(flags, "description", description)
			in.IPAddress = optionalString(flags, "ip", ip)
			in.MACAddress = optionalString(flags, "mac", mac)

			if err := models.Validate(in); err != nil {
				return err
			}

			instrument, err := app.API.CreateInstrument(cmd.Context(), in)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Created instrument #%d (%s)\n", instrument.ID, instrument.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "Instrument name")
	cmd.Flags().StringVar(&in.Location, "location", "", "Where the instrument is installed")
	cmd.Flags().StringVar(&model, "model", "", "Model")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringVar(&ip, "ip", "", "IP address")
	cmd.Flags().StringVar(&mac, "mac", "", "MAC address")

	return cmd
}

func newInstrumentsUpdateCmd(app *App) *cobra.Command {
	var name, model, location, description, status, ip, mac string
	var active bool

	cmd := &cobra.Command{
		Use:         "update <id>",
		Short:       "Update an instrument (admin)",
		Args:        cobra.ExactArgs(1),
		Annotations: routeAnnotation(adminInstrumentRoute),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("instrument", args[0])
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			in := models.InstrumentUpdate{
				Name:        optionalString(flags, "name", name),
				Model:       optionalString(flags, "model", model),
				Location:    optionalString(flags, "location", location),
				Description: optionalString(flags, "description", description),
				IPAddress:   optionalString(flags, "ip", ip),
				MACAddress:  optionalString(flags, "mac", mac),
			}
			if flags.Changed("active") {
				in.IsActive = &active
			}
			if flags.Changed("status") {
				s := models.InstrumentStatus(status)
				in.Status = &s
			}

			if err := models.Validate(in); err != nil {
				return err
			}

			instrument, err := app.API.UpdateInstrument(cmd.Context(), id, in)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Updated instrument #%d (%s)\n", instrument.ID, instrument.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Instrument name")
	cmd.Flags().StringVar(&location, "location", "", "Where the instrument is installed")
	cmd.Flags().StringVar(&model, "model", "", "Model")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringVar(&status, "status", "", "Operational status")
	cmd.Flags().StringVar(&ip, "ip", "", "IP address")
	cmd.Flags().StringVar(&mac, "mac", "", "MAC address")
	cmd.Flags().BoolVar(&active, "active", true, "Whether the instrument can be reserved")

	return cmd
}

func newInstrumentsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:         "delete <id>",
		Aliases:     []string{"rm"},
		Short:       "Delete an instrument (admin)",
		Args:        cobra.ExactArgs(1),
		Annotations: routeAnnotation(adminInstrumentRoute),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("instrument", args[0])
			if err != nil {
				return err
			}

			instrument, err := app.API.DeleteInstrument(cmd.Context(), id)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted instrument #%d (%s)\n", instrument.ID, instrument.Name)
			return nil
		},
	}
}

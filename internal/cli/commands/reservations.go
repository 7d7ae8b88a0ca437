package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/labres-dev/labres/internal/models"
	"github.com/labres-dev/labres/internal/router"
)

const (
	myReservationsRoute    = "/my-reservations"
	adminReservationsRoute = "/admin/reservations"
)

var inputTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime accepts RFC 3339 or a local "YYYY-MM-DD[ HH:MM]" time
func parseTime(raw string) (time.Time, error) {
	for _, layout := range inputTimeLayouts {
		if layout == time.RFC3339 {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (use YYYY-MM-DD HH:MM or RFC 3339)", raw)
}

// NewReservationsCmd creates the reservations command group
func NewReservationsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reservations",
		Aliases: []string{"reservation", "res"},
		Short:   "Book and review instrument reservations",
	}

	cmd.AddCommand(
		newReservationsListCmd(app),
		newReservationsAllCmd(app),
		newReservationsInstrumentCmd(app),
		newReservationsCreateCmd(app),
		newReservationsCancelCmd(app),
	)

	return cmd
}

// reservationFlags binds the listing filters shared by ls and all
type reservationFlags struct {
	status string
	from   string
	until  string
	skip   int
	limit  int
}

func (f *reservationFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.status, "status", "", "Only show reservations with this status (pending, approved, cancelled, completed, missed)")
	cmd.Flags().StringVar(&f.from, "from", "", "Only show reservations starting at or after this time")
	cmd.Flags().StringVar(&f.until, "until", "", "Only show reservations ending before this time")
	cmd.Flags().IntVar(&f.skip, "skip", 0, "Number of reservations to skip")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Maximum number of reservations to return")
}

func (f *reservationFlags) filter() (models.ReservationFilter, error) {
	filter := models.ReservationFilter{
		Status: models.ReservationStatus(f.status),
		Skip:   f.skip,
		Limit:  f.limit,
	}

	var err error
	if f.from != "" {
		if filter.StartFrom, err = parseTime(f.from); err != nil {
			return filter, err
		}
	}
	if f.until != "" {
		if filter.EndBefore, err = parseTime(f.until); err != nil {
			return filter, err
		}
	}
	return filter, nil
}

func printReservationList(cmd *cobra.Command, reservations []models.Reservation) {
	out := cmd.OutOrStdout()
	if len(reservations) == 0 {
		fmt.Fprintln(out, "No reservations found.")
		return
	}
	printReservations(out, reservations)
}

func newReservationsListCmd(app *App) *cobra.Command {
	var flags reservationFlags

	cmd := &cobra.Command{
		Use:         "ls",
		Aliases:     []string{"list"},
		Short:       "List your reservations",
		Annotations: routeAnnotation(myReservationsRoute),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}

			reservations, err := app.API.ListMyReservations(cmd.Context(), filter)
			if err != nil {
				return err
			}
			printReservationList(cmd, reservations)
			return nil
		},
	}

	flags.bind(cmd)
	return cmd
}

func newReservationsAllCmd(app *App) *cobra.Command {
	var flags reservationFlags
	var instrumentID int
	var userEmail string

	cmd := &cobra.Command{
		Use:         "all",
		Short:       "List every user's reservations (admin)",
		Annotations: routeAnnotation(adminReservationsRoute),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			filter.InstrumentID = instrumentID
			filter.UserEmail = userEmail

			reservations, err := app.API.ListAllReservations(cmd.Context(), filter)
			if err != nil {
				return err
			}
			printReservationList(cmd, reservations)
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().IntVar(&instrumentID, "instrument", 0, "Only show reservations for this instrument ID")
	cmd.Flags().StringVar(&userEmail, "user", "", "Only show reservations made by this email")
	return cmd
}

func newReservationsInstrumentCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:         "instrument <id>",
		Short:       "List the reservations of an instrument",
		Args:        cobra.ExactArgs(1),
		Annotations: routeAnnotation(instrumentRoute),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("instrument", args[0])
			if err != nil {
				return err
			}

			reservations, err := app.API.ListInstrumentReservations(cmd.Context(), id)
			if err != nil {
				return err
			}
			printReservationList(cmd, reservations)
			return nil
		},
	}
}

func newReservationsCreateCmd(app *App) *cobra.Command {
	var instrumentID int
	var start, end string

	cmd := &cobra.Command{
		Use:         "create",
		Short:       "Reserve an instrument for a time slot",
		Annotations: routeAnnotation(router.DashboardPath),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := models.ReservationCreate{InstrumentID: instrumentID}

			var err error
			if start != "" {
				if in.StartTime, err = parseTime(start); err != nil {
					return err
				}
			}
			if end != "" {
				if in.EndTime, err = parseTime(end); err != nil {
					return err
				}
			}

			if err := models.Validate(in); err != nil {
				return err
			}

			reservation, err := app.API.CreateReservation(cmd.Context(), in)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Reserved instrument #%d from %s to %s (reservation #%d, %s)\n",
				reservation.InstrumentID,
				formatTime(reservation.StartTime),
				formatTime(reservation.EndTime),
				reservation.ID,
				reservation.Status,
			)
			return nil
		},
	}

	cmd.Flags().IntVar(&instrumentID, "instrument", 0, "Instrument ID")
	cmd.Flags().StringVar(&start, "start", "", "Start time (YYYY-MM-DD HH:MM or RFC 3339)")
	cmd.Flags().StringVar(&end, "end", "", "End time (YYYY-MM-DD HH:MM or RFC 3339)")

	return cmd
}

func newReservationsCancelCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:         "cancel <id>",
		Short:       "Cancel one of your reservations",
		Args:        cobra.ExactArgs(1),
		Annotations: routeAnnotation(myReservationsRoute),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("reservation", args[0])
			if err != nil {
				return err
			}

			reservation, err := app.API.CancelReservation(cmd.Context(), id)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Reservation #%d is now %s\n", reservation.ID, reservation.Status)
			return nil
		},
	}
}

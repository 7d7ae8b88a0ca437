package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/labres-dev/labres/internal/models"
)

const timeLayout = "2006-01-02 15:04"

func newTable(out io.Writer, header, rule string) *tabwriter.Writer {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, rule)
	return w
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(ts models.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format(timeLayout)
}

func printInstruments(out io.Writer, instruments []models.Instrument) {
	w := newTable(out, "ID\tNAME\tLOCATION\tSTATUS", "──\t────\t────────\t──────")
	for _, in := range instruments {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", in.ID, in.Name, orDash(in.Location), orDash(string(in.Status)))
	}
	w.Flush()
}

func printInstrument(out io.Writer, in *models.Instrument) {
	fmt.Fprintf(out, "Instrument #%d: %s\n", in.ID, in.Name)
	fmt.Fprintf(out, "  Location:    %s\n", orDash(in.Location))
	fmt.Fprintf(out, "  Model:       %s\n", orDash(deref(in.Model)))
	fmt.Fprintf(out, "  Status:      %s\n", orDash(string(in.Status)))
	fmt.Fprintf(out, "  Active:      %t\n", in.IsActive)
	if in.IPAddress != nil {
		fmt.Fprintf(out, "  IP address:  %s\n", *in.IPAddress)
	}
	if in.Description != nil && *in.Description != "" {
		fmt.Fprintf(out, "  Description: %s\n", *in.Description)
	}
}

func printReservations(out io.Writer, reservations []models.Reservation) {
	w := newTable(out, "ID\tINSTRUMENT\tUSER\tSTART\tEND\tSTATUS", "──\t──────────\t────\t─────\t───\t──────")
	for _, r := range reservations {
		instrument := fmt.Sprintf("#%d", r.InstrumentID)
		if r.Instrument != nil {
			instrument = r.Instrument.Name
		}
		user := fmt.Sprintf("#%d", r.UserID)
		if r.User != nil {
			user = r.User.Email
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			instrument,
			user,
			formatTime(r.StartTime),
			formatTime(r.EndTime),
			r.Status,
		)
	}
	w.Flush()
}

func printUsers(out io.Writer, users []models.User) {
	w := newTable(out, "EMAIL\tNAME\tROLE\tACTIVE", "─────\t────\t────\t──────")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", u.Email, orDash(deref(u.FullName)), u.Role, u.IsActive)
	}
	w.Flush()
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/routelink-api/internal/models"
	"github.com/noah-isme/routelink-api/internal/service"
)

var (
	holidayYear  int
	tripsDate    string
	listOrder    string
	exportDate   string
	exportFormat string
	pruneAge     time.Duration
)

func init() {
	holidaysCmd.Flags().IntVar(&holidayYear, "year", time.Now().Year(), "calendar year")
	tripsCmd.Flags().StringVar(&tripsDate, "date", "", "travel date (YYYY-MM-DD)")
	_ = tripsCmd.MarkFlagRequired("date")
	routesCmd.Flags().StringVar(&listOrder, "order", models.OrderNewest, "newest or oldest")
	linksCmd.Flags().StringVar(&listOrder, "order", models.OrderNewest, "newest or oldest")
	exportCmd.Flags().StringVar(&exportDate, "date", "", "travel date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv or pdf")
	_ = exportCmd.MarkFlagRequired("date")
	pruneCmd.Flags().DurationVar(&pruneAge, "older-than", 24*time.Hour, "remove exports older than this")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the schema",
	Long:  `Migrations run whenever the store is opened; this command only opens it and reports success.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", routelink.Config.Database.Driver)
		return nil
	},
}

var holidaysCmd = &cobra.Command{
	Use:   "holidays",
	Short: "List the holidays of a year",
	Example: `  routelinkctl holidays --year 2025
  routelinkctl holidays --year 2025 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		holidays, err := routelink.Scheduler.Holidays(holidayYear)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), holidays)
		}
		w := newTable(cmd.OutOrStdout(), "DATE", "NAME")
		for _, h := range holidays {
			fmt.Fprintf(w, "%s\t%s\n", h.Date.Format(service.DisplayDateLayout), h.Name)
		}
		return w.Flush()
	},
}

var tripsCmd = &cobra.Command{
	Use:   "trips",
	Short: "Print the trips scheduled on a date",
	RunE: func(cmd *cobra.Command, args []string) error {
		trips, _, err := routelink.Scheduler.TripsOn(cmd.Context(), tripsDate)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), trips)
		}
		w := newTable(cmd.OutOrStdout(), "ASSIGNMENT", "SLOT", "END POINT", "TIME", "TRANSPORT", "TRAVELER", "PHONE")
		for _, trip := range trips {
			traveler, phone := "-", "-"
			if trip.Link != nil {
				traveler, phone = trip.Link.Name, trip.Link.Phone
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
				trip.AssignmentID, trip.Route.SlotNo, trip.Route.EndPoint, orDash(trip.Route.Time), trip.Route.TransportType, traveler, phone)
		}
		return w.Flush()
	},
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List every route",
	RunE: func(cmd *cobra.Command, args []string) error {
		var routes []models.Route
		err := routelink.Routes.Each(cmd.Context(), listOrder, func(r models.Route) error {
			routes = append(routes, r)
			return nil
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), routes)
		}
		w := newTable(cmd.OutOrStdout(), "ID", "SLOT", "END POINT", "STOPS", "TIME", "TRANSPORT", "CAPACITY")
		for _, r := range routes {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\n", r.ID, r.SlotNo, r.EndPoint, r.MajorStops, orDash(r.Time), r.TransportType, r.NoOfPeople)
		}
		return w.Flush()
	},
}

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "List every traveler link",
	RunE: func(cmd *cobra.Command, args []string) error {
		var links []models.Link
		err := routelink.Links.Each(cmd.Context(), listOrder, func(l models.Link) error {
			links = append(links, l)
			return nil
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), links)
		}
		w := newTable(cmd.OutOrStdout(), "ID", "NAME", "DROP POINT", "PHONE", "COURSE/YEAR", "BRANCH")
		for _, l := range links {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", l.ID, l.Name, l.DropPoint, l.Phone, l.CourseYear, l.Branch)
		}
		return w.Flush()
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render the trip roster of a date to CSV or PDF",
	Example: `  routelinkctl export --date 2025-03-10
  routelinkctl export --date 2025-03-10 --format pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := routelink.Exports.ExportTrips(cmd.Context(), exportDate, exportFormat)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d trips)\n", res.Path, res.Rows)
		return nil
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune-exports",
	Short: "Delete exported rosters older than --older-than",
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := routelink.Exports.Cleanup(pruneAge)
		if err != nil {
			return err
		}
		for _, name := range removed {
			fmt.Fprintln(cmd.OutOrStdout(), "removed", name)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d export(s) removed\n", len(removed))
		return nil
	},
}

func newTable(out io.Writer, headers ...string) *tabwriter.Writer {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, h := range headers {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, h)
	}
	fmt.Fprintln(w)
	return w
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orDash(v *string) string {
	if v == nil || *v == "" {
		return "-"
	}
	return *v
}

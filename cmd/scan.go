package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/talent-scout/internal/dom"
	"github.com/spigell/talent-scout/internal/scout"
)

var scanCmd = &cobra.Command{
	Use:   "scan <file|url>",
	Short: "Print the anchored text map of a profile page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, res, err := scanTarget(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("output")
		if format == OutputText || format == "" {
			a.logger.Info("scan completed",
				zap.String("scan_id", res.ScanID),
				zap.String("site", res.Site),
				zap.Int("lines", res.Lines),
				zap.Int("hidden", res.Hidden),
				zap.Int("forbidden", res.Forbidden),
			)
			return printOutput(cmd.OutOrStdout(), OutputText, res.Map)
		}
		return printOutput(cmd.OutOrStdout(), format, res)
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file|url>",
	Short: "Scan a page and show details for the given anchors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		anchors, _ := cmd.Flags().GetIntSlice("anchors")
		if len(anchors) == 0 {
			return fmt.Errorf("at least one anchor is required (--anchors 1,2)")
		}

		a, _, err := scanTarget(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("output")
		elements := a.session.Inspect(anchors)
		if format != OutputText && format != "" {
			return printOutput(cmd.OutOrStdout(), format, elements)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, id := range anchors {
			el := elements[id]
			fmt.Fprintf(w, "[%d]\t%s\t%s\t%s\n", id, el.Tag, el.Text, el.Href)
		}
		return w.Flush()
	},
}

var zonesCmd = &cobra.Command{
	Use:   "zones [url]",
	Short: "List the forbidden zones applied to pages of a site",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}

		var pageURL string
		if len(args) == 1 {
			pageURL = args[0]
		}
		zones := a.session.Zones(pageURL)

		format, _ := cmd.Flags().GetString("output")
		if format != OutputText && format != "" {
			return printOutput(cmd.OutOrStdout(), format, zones)
		}
		return printZones(cmd, zones)
	},
}

func printZones(cmd *cobra.Command, zones []dom.ZoneStatus) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tACTIVE\tSELECTOR")
	for _, z := range zones {
		active := "yes"
		if !z.Active {
			active = "no (" + z.Error + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", z.Name, active, z.Selector)
	}
	return w.Flush()
}

func scanTarget(ctx context.Context, target string) (*scoutApp, *scout.ScanResult, error) {
	a, err := newApp(ctx)
	if err != nil {
		return nil, nil, err
	}

	res, err := a.session.ScanTarget(ctx, target, false)
	if err != nil {
		return nil, nil, fmt.Errorf("scanning %s: %w", target, err)
	}
	if res.Error != "" {
		return nil, nil, fmt.Errorf("scanning %s: %s", target, res.Error)
	}
	return a, res, nil
}

func init() {
	for _, c := range []*cobra.Command{scanCmd, inspectCmd, zonesCmd} {
		c.Flags().StringP("output", "o", OutputText, "output format: text, json or yaml")
		rootCmd.AddCommand(c)
	}
	inspectCmd.Flags().IntSlice("anchors", nil, "anchors to inspect, e.g. 1,4,7")
}

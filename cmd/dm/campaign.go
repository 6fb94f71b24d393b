package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var campaignCmd = &cobra.Command{
	Use:   "campaign <details>",
	Short: "Generate a campaign outline",
	Long: `Asks the campaign model for a one-shot outline set in <details> and
archives it. With --players a full three-act plot is generated instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		players, _ := cmd.Flags().GetString("players")
		noSave, _ := cmd.Flags().GetBool("no-save")
		details := strings.Join(args, " ")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		gen, err := a.generator()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if players != "" {
			plot, err := gen.GeneratePlot(ctx, details, players)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(plot, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			if noSave {
				return nil
			}
			archive, err := a.archive()
			if err != nil {
				return err
			}
			defer archive.Close()
			id, err := archive.SavePlot(ctx, details, players, plot)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nArchived as %s\n", id)
			return nil
		}

		c, err := gen.GenerateCampaign(ctx, details)
		if err != nil {
			return err
		}
		fmt.Fprint(out, c.String())
		fmt.Fprintf(out, "\nWorld Map:\n%s", c.WorldMap.String())
		if noSave {
			return nil
		}
		archive, err := a.archive()
		if err != nil {
			return err
		}
		defer archive.Close()
		id, err := archive.SaveCampaign(ctx, details, c)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nArchived as %s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(campaignCmd)
	campaignCmd.Flags().String("players", "", "Player characters, e.g. \"Elara the ranger, Bryn the fighter\"")
	campaignCmd.Flags().Bool("no-save", false, "Do not archive the result")
}

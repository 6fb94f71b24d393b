package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/dungeon-master/pkg/dice"
)

var rollCmd = &cobra.Command{
	Use:     "roll <formula> [normal|advantage|disadvantage]",
	Short:   "Roll dice",
	Example: "  dm roll 2d6+1\n  dm roll 1d20 advantage",
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		seed, _ := cmd.Flags().GetInt64("seed")
		times, _ := cmd.Flags().GetInt("times")

		mode := dice.ModeNormal
		if len(args) == 2 {
			m, err := dice.ParseMode(args[1])
			if err != nil {
				return err
			}
			mode = m
		}
		f, err := dice.ParseFormula(args[0])
		if err != nil {
			return err
		}

		roller := dice.NewRoller(seed)
		for i := 0; i < max(times, 1); i++ {
			res, err := roller.RollFormula(f, mode)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.String())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rollCmd)
	rollCmd.Flags().Int64("seed", 0, "Seed for repeatable rolls (0 is random)")
	rollCmd.Flags().IntP("times", "n", 1, "Number of rolls")
}

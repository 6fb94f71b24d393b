package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/dungeon-master/pkg/state"
)

var validateCmd = &cobra.Command{
	Use:   "validate <scenario.json>...",
	Short: "Check scenario files for consistency",
	Long: `Decodes each scenario strictly and reports unknown locations in
connections, actors and the session.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0
		for _, filename := range args {
			if err := validateFile(filename); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: validation failed:\n%v\n", filename, err)
				failed++
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: scenario file is valid!\n", filename)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d scenario files are invalid", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if !json.Valid(data) {
		return errors.New("file contains invalid JSON")
	}
	gs, err := state.Decode(data)
	if err != nil {
		return err
	}
	return errors.Join(gs.Validate()...)
}

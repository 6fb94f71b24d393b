package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dm",
	Short: "An AI dungeon master for tabletop role-play",
	Long: `dm interprets what players say, checks it against the world, rolls the
dice and narrates the outcome with local or hosted language models.

Configuration comes from the environment (LLM_PROVIDER, NARRATOR_MODEL,
REDIS_URL and so on).`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens <file>",
	Short: "Print the token stream (get_tokens)",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokens,
}

func runTokens(cmd *cobra.Command, args []string) error {
	store, fileID, err := buildFile(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, tok := range store.GetTokens(fileID) {
		fmt.Fprintf(out, "%-18s %d..%d\n", tok.Kind, tok.From, tok.To)
	}
	return nil
}

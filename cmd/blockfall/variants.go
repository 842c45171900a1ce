package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/blockfall/internal/registry"
)

var variantsCmd = &cobra.Command{
	Use:   "variants",
	Short: "List rule variants",
	Long:  `Shows every registered rule variant.`,
	Args:  cobra.NoArgs,
	Run:   runVariants,
}

func runVariants(cmd *cobra.Command, args []string) {
	variants := registry.List()

	if len(variants) == 0 {
		fmt.Println("No variants available.")
		return
	}

	fmt.Println("Available variants:")
	fmt.Println()

	maxIDLen := 2 // "ID" header
	for _, v := range variants {
		maxIDLen = max(maxIDLen, len(v.ID))
	}

	fmt.Printf("  %-*s  %s\n", maxIDLen, "ID", "Description")
	fmt.Printf("  %-*s  %s\n", maxIDLen, "--", "-----------")
	for _, v := range variants {
		fmt.Printf("  %-*s  %s\n", maxIDLen, v.ID, v.Description)
	}

	fmt.Println()
	fmt.Println("Run 'blockfall play --variant <id>' to play a variant.")
}

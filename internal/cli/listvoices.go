package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apresai/textcast/internal/tts"
)

var listVoicesCmd = &cobra.Command{
	Use:   "list-voices [vendor]",
	Short: "List available TTS voices",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runListVoices,
}

func runListVoices(cmd *cobra.Command, args []string) error {
	vendors := tts.Vendors()
	if len(args) == 1 {
		if err := validTTSVendor(args[0]); err != nil {
			return err
		}
		vendors = []string{args[0]}
	}

	fmt.Println("\nAvailable voices:")

	for _, vendor := range vendors {
		voices, err := tts.AvailableVoices(vendor)
		if err != nil {
			return err
		}

		fmt.Printf("\n  %s\n", strings.ToUpper(vendor))
		fmt.Printf("  %s\n", strings.Repeat("─", 50))
		fmt.Printf("  %-24s %-16s %-8s %s\n", "ID", "NAME", "GENDER", "DESCRIPTION")
		for _, v := range voices {
			def := ""
			if v.Default {
				def = " (default)"
			}
			fmt.Printf("  %-24s %-16s %-8s %s%s\n", v.ID, v.Name, v.Gender, v.Description, def)
		}
	}
	fmt.Println()
	return nil
}

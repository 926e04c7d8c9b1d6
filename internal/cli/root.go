// Package cli wires the textcast commands: one-shot processing, the
// watch service, catalog maintenance and voice listings.
package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apresai/textcast/internal/tts"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "textcast",
	Short: "Turn articles and documents into condensed spoken audio",
	Long: `textcast extracts readable text from URLs, PDFs and text files,
condenses it with an LLM, synthesizes speech and assembles one audio
file per item. A catalog of processed items prevents duplicate work
across runs and across the watch service.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("textcast %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(listVoicesCmd)
}

func Execute() error {
	return rootCmd.Execute()
}

// checkAPIKeys verifies the environment holds credentials for every
// vendor the run will call, before any network or browser work starts.
func checkAPIKeys(ttsVendor string, condenseEnabled bool, textVendor string) error {
	needed := map[string]bool{}

	if condenseEnabled {
		switch textVendor {
		case "claude":
			if os.Getenv("ANTHROPIC_API_KEY") == "" {
				needed["ANTHROPIC_API_KEY"] = true
			}
		case "gemini":
			if os.Getenv("GEMINI_API_KEY") == "" {
				needed["GEMINI_API_KEY"] = true
			}
		}
	}

	switch ttsVendor {
	case "openai":
		if os.Getenv("OPENAI_API_KEY") == "" {
			needed["OPENAI_API_KEY"] = true
		}
	case "elevenlabs":
		if os.Getenv("ELEVENLABS_API_KEY") == "" {
			needed["ELEVENLABS_API_KEY"] = true
		}
	case "gemini":
		if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GCP_PROJECT") == "" {
			needed["GEMINI_API_KEY or GCP_PROJECT"] = true
		}
	case "google":
		// Application Default Credentials; validated by the client.
	case "polly":
		// AWS default credential chain; validated by the SDK.
	}

	if len(needed) > 0 {
		missing := make([]string, 0, len(needed))
		for k := range needed {
			missing = append(missing, k)
		}
		sort.Strings(missing)
		return fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

func validTTSVendor(vendor string) error {
	for _, v := range tts.Vendors() {
		if v == vendor {
			return nil
		}
	}
	return fmt.Errorf("invalid TTS vendor %q: must be one of %s", vendor, strings.Join(tts.Vendors(), ", "))
}

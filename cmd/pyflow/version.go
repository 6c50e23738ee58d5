package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pyflow/internal/version"
)

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

var (
	versionFormat   string
	versionShowFull bool
)

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
	versionCmd.Flags().BoolVar(&versionShowFull, "full", false, "show every recorded bit of build metadata")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show pyflow build fingerprints",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch strings.ToLower(versionFormat) {
		case "pretty":
			fmt.Printf("pyflow %s\n", version.Version)
			if versionShowFull {
				if version.GitCommit != "" {
					fmt.Printf("commit: %s\n", version.GitCommit)
				}
				if version.BuildDate != "" {
					fmt.Printf("built:  %s\n", version.BuildDate)
				}
			}
			return nil
		case "json":
			payload := versionPayload{
				Tool:    "pyflow",
				Version: version.Version,
			}
			if versionShowFull {
				payload.GitCommit = version.GitCommit
				payload.BuildDate = version.BuildDate
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(payload)
		default:
			return fmt.Errorf("unknown format value: %s", versionFormat)
		}
	},
}

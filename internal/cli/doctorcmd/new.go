// Package doctorcmd implements `sb doctor`: a read-only health scan of the
// config file, the configured Swarm Secret Engine backend, and any
// configured remote-store credentials (§6), grounded on the teacher's
// doctor.go check/report shape but without its TUI dependency.
package doctorcmd

import (
	"fmt"
	"strings"

	"github.com/fusapp/swarmbender/internal/validator"
	"github.com/spf13/cobra"
)

// New creates the `doctor` command.
func New() *cobra.Command {
	var root string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run a read-only health scan of config, secret engine, and remote store",
		RunE: func(cmd *cobra.Command, args []string) error {
			results := validator.Doctor(cmd.Context(), root)
			var fail, warn int
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s — %s\n", strings.ToUpper(string(r.Status)), r.Title, r.Summary)
				switch r.Status {
				case validator.StatusFail:
					fail++
				case validator.StatusWarn:
					warn++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d checks, %d warn, %d fail\n", len(results), warn, fail)
			if fail > 0 {
				return fmt.Errorf("doctor checks failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "root", ".", "Repository root containing ops/ and stacks/")
	return cmd
}

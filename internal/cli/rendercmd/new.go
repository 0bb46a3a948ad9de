// Package rendercmd implements `sb render`: runs the full render pipeline
// (§2, §4) for one stack/environment and writes the Swarm stack file or
// the merged appsettings JSON export.
package rendercmd

import (
	"fmt"

	"github.com/fusapp/swarmbender/internal/apperr"
	"github.com/fusapp/swarmbender/internal/config"
	"github.com/fusapp/swarmbender/internal/logger"
	"github.com/fusapp/swarmbender/internal/render"
	"github.com/spf13/cobra"
)

// New creates the `render` command.
func New() *cobra.Command {
	var (
		root            string
		env             string
		outDir          string
		writeHistory    bool
		appsettingsMode string
	)

	cmd := &cobra.Command{
		Use:   "render <stackId>",
		Short: "Render a stack's Swarm Compose file or appsettings export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stackID := args[0]
			if env == "" {
				return apperr.New("rendercmd.Run", apperr.InvalidInput, "--env is required")
			}

			cfg, err := config.Load(root)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = cfg.Render.OutDir
			}
			if outDir == "" {
				outDir = "ops/state/out"
			}
			mode := appsettingsMode
			if mode == "" {
				mode = cfg.Render.AppsettingsMode
			}

			rc := &render.Context{
				Request: render.Request{
					RootPath:        root,
					StackID:         stackID,
					Env:             env,
					AppsettingsMode: mode,
					OutDir:          outDir,
					WriteHistory:    writeHistory || cfg.Render.WriteHistory,
				},
				Config: cfg,
			}

			log := logger.FromContext(cmd.Context())
			if err := render.Run(cmd.Context(), rc, log); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", rc.OutFilePath)
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", ".", "Repository root containing ops/ and stacks/")
	cmd.Flags().StringVarP(&env, "env", "e", "", "Target environment (required)")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Output directory (default: ops/state/out or render.outDir)")
	cmd.Flags().BoolVar(&writeHistory, "write-history", false, "Also write a timestamped copy under ops/state/history")
	cmd.Flags().StringVar(&appsettingsMode, "appsettings-mode", "", "Output mode: env (stack render) or config (appsettings export)")

	return cmd
}

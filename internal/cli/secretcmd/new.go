// Package secretcmd implements `sb secret list|sync|diff|prune|create`
// against the Swarm Secret Engine and, for discovery, the render pipeline
// (§4.13–§4.15, §4.18).
package secretcmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fusapp/swarmbender/internal/apperr"
	"github.com/fusapp/swarmbender/internal/config"
	"github.com/fusapp/swarmbender/internal/logger"
	"github.com/fusapp/swarmbender/internal/remotestore"
	"github.com/fusapp/swarmbender/internal/secrets"
	"github.com/fusapp/swarmbender/internal/secretsync"
	"github.com/fusapp/swarmbender/internal/swarmsecrets"
	"github.com/spf13/cobra"
)

// New creates the `secret` command and its subcommands.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Inspect and sync Swarm secrets discovered from a stack render",
	}
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newDiffCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newPruneCmd())
	cmd.AddCommand(newCreateCmd())
	cmd.AddCommand(newUploadCmd())
	return cmd
}

type commonFlags struct {
	root       string
	env        string
	showValues bool
}

func addCommonFlags(cmd *cobra.Command, f *commonFlags) {
	cmd.Flags().StringVar(&f.root, "root", ".", "Repository root containing ops/ and stacks/")
	cmd.Flags().StringVarP(&f.env, "env", "e", "", "Target environment (required)")
	cmd.Flags().BoolVar(&f.showValues, "show-values", false, "Print secret values (default: redacted)")
}

func discover(cmd *cobra.Command, f *commonFlags, stackID string) ([]secretsync.Secret, config.SbConfig, error) {
	if f.env == "" {
		return nil, config.SbConfig{}, apperr.New("secretcmd.discover", apperr.InvalidInput, "--env is required")
	}
	cfg, err := config.Load(f.root)
	if err != nil {
		return nil, cfg, err
	}
	log := logger.FromContext(cmd.Context())
	secretsFound, err := secretsync.Discover(cmd.Context(), log, f.root, stackID, f.env, cfg)
	return secretsFound, cfg, err
}

func engineFor(cfg config.SbConfig) (swarmsecrets.Engine, error) {
	dockerContext := cfg.Secrets.Engine.Args["dockerContext"]
	return swarmsecrets.New(string(cfg.Secrets.Engine.Type), dockerContext)
}

// uploadToRemoteStore pushes the discovered secrets to the configured remote
// store (§4.15 "upload to remote store"), reporting each secret's outcome.
func uploadToRemoteStore(cmd *cobra.Command, cfg config.SbConfig, stackID, env string, found []secretsync.Secret) error {
	if !cfg.Providers.Infisical.Enabled {
		return apperr.New("secretcmd.uploadToRemoteStore", apperr.InvalidInput, "remote store is not configured (providers.infisical.enabled is false)")
	}
	adapter := &remotestore.InfisicalAdapter{Config: cfg.Providers.Infisical}
	log := logger.FromContext(cmd.Context())
	results := remotestore.Upload(cmd.Context(), log, adapter, cfg.Providers.Infisical, stackID, env, found, remotestore.DefaultConcurrency)
	remotestore.SortResults(results)
	var failed int
	for _, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tpath=%s\n", r.ExternalName, r.Action, r.Path)
		if r.Action == remotestore.ActionFailed {
			failed++
		}
	}
	if failed > 0 {
		return apperr.New("secretcmd.uploadToRemoteStore", apperr.External, "%d secret(s) failed to upload to the remote store", failed)
	}
	return nil
}

func printSecret(cmd *cobra.Command, s secretsync.Secret, showValues bool) {
	value := "<redacted>"
	if showValues {
		value = s.Value
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\tservice=%s\tkey=%s\tvalue=%s\n", s.ExternalName, s.ServiceName, s.Key, value)
}

func newListCmd() *cobra.Command {
	f := &commonFlags{}
	cmd := &cobra.Command{
		Use:   "list <stackId>",
		Short: "Print the desired set of secrets discovered from a stack render",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, _, err := discover(cmd, f, args[0])
			if err != nil {
				return err
			}
			sort.Slice(found, func(i, j int) bool { return found[i].ExternalName < found[j].ExternalName })
			for _, s := range found {
				printSecret(cmd, s, f.showValues)
			}
			return nil
		},
	}
	addCommonFlags(cmd, f)
	return cmd
}

func newDiffCmd() *cobra.Command {
	f := &commonFlags{}
	cmd := &cobra.Command{
		Use:   "diff <stackId>",
		Short: "Show create/prune/match sets against the engine's current secrets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stackID := args[0]
			found, cfg, err := discover(cmd, f, stackID)
			if err != nil {
				return err
			}
			engine, err := engineFor(cfg)
			if err != nil {
				return err
			}
			existing, err := engine.List(cmd.Context())
			if err != nil {
				return err
			}
			diff := secretsync.ComputeDiff(found, existing, stackID, f.env)
			fmt.Fprintf(cmd.OutOrStdout(), "create (%d):\n", len(diff.Create))
			for _, s := range diff.Create {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", s.ExternalName)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "match (%d):\n", len(diff.Match))
			for _, n := range diff.Match {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", n)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "prune (%d):\n", len(diff.Prune))
			for _, n := range diff.Prune {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", n)
			}
			return nil
		},
	}
	addCommonFlags(cmd, f)
	return cmd
}

func newSyncCmd() *cobra.Command {
	f := &commonFlags{}
	var dryRun, pruneOld, remote bool
	cmd := &cobra.Command{
		Use:   "sync <stackId>",
		Short: "Create missing secrets in the engine, optionally pruning orphans and pushing to a remote store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stackID := args[0]
			found, cfg, err := discover(cmd, f, stackID)
			if err != nil {
				return err
			}
			engine, err := engineFor(cfg)
			if err != nil {
				return err
			}
			log := logger.FromContext(cmd.Context())
			created, pruned, err := secretsync.Sync(cmd.Context(), log, engine, found, stackID, f.env, cfg.Secrets.Labels,
				secretsync.Options{DryRun: dryRun, PruneOld: pruneOld, ShowValue: f.showValues})
			if err != nil {
				return err
			}
			for _, n := range created {
				fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", n)
			}
			for _, n := range pruned {
				fmt.Fprintf(cmd.OutOrStdout(), "pruned %s\n", n)
			}
			if remote && !dryRun {
				if err := uploadToRemoteStore(cmd, cfg, stackID, f.env, found); err != nil {
					return err
				}
			}
			return nil
		},
	}
	addCommonFlags(cmd, f)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would change without mutating the engine")
	cmd.Flags().BoolVar(&pruneOld, "prune-old", false, "Also remove stack-scoped secrets no longer desired")
	cmd.Flags().BoolVar(&remote, "remote", false, "Also push secrets to the configured remote store (§4.15)")
	return cmd
}

func newPruneCmd() *cobra.Command {
	f := &commonFlags{}
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "prune <stackId>",
		Short: "Remove stack-scoped engine secrets no longer desired",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stackID := args[0]
			found, cfg, err := discover(cmd, f, stackID)
			if err != nil {
				return err
			}
			engine, err := engineFor(cfg)
			if err != nil {
				return err
			}
			pruned, err := secretsync.Prune(cmd.Context(), engine, found, stackID, f.env, dryRun)
			if err != nil {
				return err
			}
			for _, n := range pruned {
				fmt.Fprintf(cmd.OutOrStdout(), "pruned %s\n", n)
			}
			return nil
		},
	}
	addCommonFlags(cmd, f)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be removed without mutating the engine")
	return cmd
}

func newUploadCmd() *cobra.Command {
	f := &commonFlags{}
	cmd := &cobra.Command{
		Use:   "upload <stackId>",
		Short: "Push discovered secrets to the configured remote store (§4.15)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stackID := args[0]
			found, cfg, err := discover(cmd, f, stackID)
			if err != nil {
				return err
			}
			return uploadToRemoteStore(cmd, cfg, stackID, f.env, found)
		},
	}
	addCommonFlags(cmd, f)
	return cmd
}

func newCreateCmd() *cobra.Command {
	var ageKeyFile string
	var recipients []string
	cmd := &cobra.Command{
		Use:   "create <path>",
		Short: "Write and SOPS-encrypt a new *.sops.json env file skeleton (§4.18)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if len(recipients) == 0 {
				rs, err := secrets.AgeRecipientsFromKeyFile(ageKeyFile)
				if err != nil {
					return err
				}
				recipients = rs
			}
			if err := writeSkeletonJSON(path); err != nil {
				return err
			}
			return secrets.EncryptJSONFileWithSops(cmd.Context(), path, recipients, ageKeyFile)
		},
	}
	cmd.Flags().StringVar(&ageKeyFile, "age-key-file", "", "age identity file used to derive recipients")
	cmd.Flags().StringSliceVar(&recipients, "recipient", nil, "age recipient public key (repeatable; overrides --age-key-file derivation)")
	return cmd
}

// writeSkeletonJSON creates a plaintext env JSON file at path holding a single
// placeholder key; the create command encrypts it with EncryptJSONFileWithSops
// right after it is written.
func writeSkeletonJSON(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperr.Wrap("secretcmd.writeSkeletonJSON", apperr.Internal, err, "create parent dirs")
	}
	if _, err := os.Stat(path); err == nil {
		return apperr.New("secretcmd.writeSkeletonJSON", apperr.InvalidInput, "%s already exists", path)
	}
	skeleton := []byte("{\n  \"EXAMPLE_KEY\": \"replace-me\"\n}\n")
	if err := os.WriteFile(path, skeleton, 0o600); err != nil {
		return apperr.Wrap("secretcmd.writeSkeletonJSON", apperr.Internal, err, "write skeleton")
	}
	return nil
}

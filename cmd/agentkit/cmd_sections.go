package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"agentkit/internal/persona"
	"agentkit/internal/sections"
)

func newSectionsCmd() *cobra.Command {
	var (
		who       string
		agentsDir string
		skillsDir string
	)
	cmd := &cobra.Command{
		Use:   "sections",
		Short: "Print the dynamic prompt sections for a persona",
		Long: `Renders the persona-specific prompt sections from the plugin's agents/ and
skills/ directories. Like the hooks it feeds, it fails open: errors are logged
to stderr and nothing is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := persona.Parse(who)
			if !ok {
				return fmt.Errorf("unknown persona %q", who)
			}
			c := sections.NewComposer(cfg.PluginRoot)
			if agentsDir != "" {
				c.AgentsDir = agentsDir
			}
			if skillsDir != "" {
				c.SkillsDir = skillsDir
			}
			text, err := c.Compose(p)
			if err != nil {
				logger.Error("build sections failed", zap.String("persona", who), zap.Error(err))
				return nil
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), text)
			return err
		},
	}
	cmd.Flags().StringVar(&who, "persona", "", "Persona name (sisyphus, hephaestus, atlas, prometheus)")
	cmd.Flags().StringVar(&agentsDir, "agents-dir", "", "Override <plugin-root>/agents")
	cmd.Flags().StringVar(&skillsDir, "skills-dir", "", "Override <plugin-root>/skills")
	_ = cmd.MarkFlagRequired("persona")
	return cmd
}

func newPromptVersionCmd() *cobra.Command {
	var rootDir string
	cmd := &cobra.Command{
		Use:   "prompt-version",
		Short: "Print the sha256 of every agent and skill prompt as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := rootDir
			if root == "" {
				root = cfg.PluginRoot
			}
			if root == "" {
				return fmt.Errorf("no plugin root: pass --root-dir or --plugin-root")
			}
			hashes, err := sections.PromptHashes(root)
			if err != nil {
				return fmt.Errorf("prompt_version: %w", err)
			}
			data, err := json.MarshalIndent(hashes, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
	cmd.Flags().StringVar(&rootDir, "root-dir", "", "Plugin root to hash (default: --plugin-root)")
	return cmd
}

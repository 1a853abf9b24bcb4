package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"agentkit/internal/detect"
)

// newDetectCmd answers through the exit status: 0 on a match, 1 otherwise.
func newDetectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run a prompt trigger detector (exit 0 on match, 1 otherwise)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ulw [text]",
		Short: "Detect an ultrawork request",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := detectText(cmd, args)
			if err != nil {
				return err
			}
			if !detect.ULW(text) {
				return exitCode(1)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "persona [text]",
		Short: "Detect a persona switch and print the persona name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := detectText(cmd, args)
			if err != nil {
				return err
			}
			p, ok := detect.PersonaSwitch(text)
			if !ok {
				return exitCode(1)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), p)
			return err
		},
	})
	return cmd
}

// detectText takes the argument, else non-interactive stdin.
func detectText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	in := hookStdin(cmd.InOrStdin())
	if in == nil {
		return "", nil
	}
	var sb strings.Builder
	if _, err := io.Copy(&sb, in); err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return sb.String(), nil
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"agentkit/internal/state"
)

func newStateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Read and write agent-kit state files",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "read <path>",
		Short: "Print a state file as compact JSON ({} when missing or invalid)",
		Args:  cobra.ExactArgs(1),
		RunE:  stateRead,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "write <path> [json|-]",
		Short: "Atomically write JSON content to a state file",
		Long: `Writes the content argument, or stdin when the argument is "-" or
missing, to path through the locked atomic writer. Fails when the lock is held
or no content was given.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: stateWrite,
	})
	return cmd
}

func stateRead(cmd *cobra.Command, args []string) error {
	raw := state.New(logger).Load(args[0])
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		buf.Reset()
		buf.WriteString("{}")
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(cmd.OutOrStdout())
	return err
}

func stateWrite(cmd *cobra.Command, args []string) error {
	var content string
	if len(args) > 1 && args[1] != "-" {
		content = args[1]
	} else if in := hookStdin(cmd.InOrStdin()); in != nil {
		data, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		content = string(data)
	}
	if err := state.New(logger).WriteFile(args[0], content); err != nil {
		return fmt.Errorf("state-write: %w", err)
	}
	return nil
}

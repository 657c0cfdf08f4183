package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/harun/agentcore/pkg/agent"
	"github.com/harun/agentcore/pkg/turn"
	"github.com/spf13/cobra"
)

type runOptions struct {
	prompt     string
	model      string
	system     string
	stream     bool
	statePath  string
	saveState  string
	noClassify bool
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single turn",
	Long: `Run one turn against the configured model and print the result.

Buffered turns print the JSON result. With --stream each chunk is printed as
one JSON object per line as it arrives. --state continues from a state saved
by an earlier turn with --save-state.`,
	Example: `  agentcore run --prompt "What time is it in Tokyo?"
  agentcore run --prompt "Summarise notes.txt" --stream
  agentcore run --prompt "And tomorrow?" --state turn.json --save-state turn.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTurn(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), runOpts)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runOpts.prompt, "prompt", "p", "", "user prompt (required)")
	runCmd.Flags().StringVarP(&runOpts.model, "model", "m", "", "model as <provider>:<model> or an alias (default from config)")
	runCmd.Flags().StringVar(&runOpts.system, "system", "", "system message override")
	runCmd.Flags().BoolVar(&runOpts.stream, "stream", false, "stream chunks as newline-delimited JSON")
	runCmd.Flags().StringVar(&runOpts.statePath, "state", "", "JSON file with the state to continue from")
	runCmd.Flags().StringVar(&runOpts.saveState, "save-state", "", "write the final state to this JSON file")
	runCmd.Flags().BoolVar(&runOpts.noClassify, "no-classify", false, "skip tool classification")

	rootCmd.AddCommand(runCmd)
}

func runTurn(ctx context.Context, stdout, stderr io.Writer, opts runOptions) error {
	if opts.prompt == "" {
		return fmt.Errorf("--prompt is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	req := agent.TurnRequest{
		Prompt:        opts.prompt,
		Model:         opts.model,
		SystemMessage: opts.system,
	}
	if opts.statePath != "" {
		state, err := readState(opts.statePath)
		if err != nil {
			return err
		}
		req.State = &state
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg, stderr, !opts.noClassify)
	if err != nil {
		return err
	}
	defer rt.Close()

	var final turn.State
	if opts.stream {
		final, err = streamTurn(ctx, rt.runner, req, stdout)
	} else {
		final, err = bufferedTurn(ctx, rt.runner, req, stdout)
	}
	if err != nil {
		return err
	}

	if opts.saveState != "" {
		if err := writeState(opts.saveState, final); err != nil {
			return err
		}
	}
	return nil
}

func bufferedTurn(ctx context.Context, runner *agent.Runner, req agent.TurnRequest, out io.Writer) (turn.State, error) {
	result := runner.RunTurn(ctx, req)

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return result.State, fmt.Errorf("failed to write result: %w", err)
	}
	return result.State, nil
}

// streamTurn prints every chunk as one JSON line. An error chunk ends the turn
// without a complete chunk, so the state saved is the memory snapshot.
func streamTurn(ctx context.Context, runner *agent.Runner, req agent.TurnRequest, out io.Writer) (turn.State, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var final turn.State
	var failure string
	encoder := json.NewEncoder(out)

	chunks := runner.StreamTurn(ctx, req)
	for chunk := range chunks {
		if chunk.State != nil {
			final = *chunk.State
		}
		if chunk.Type == agent.ChunkError {
			failure = chunk.Error
		}
		if err := encoder.Encode(chunk); err != nil {
			cancel()
			for range chunks {
			}
			return final, fmt.Errorf("failed to write chunk: %w", err)
		}
	}

	if failure != "" {
		return final, fmt.Errorf("%s", failure)
	}
	return final, nil
}

func readState(path string) (turn.State, error) {
	var state turn.State
	data, err := os.ReadFile(path)
	if err != nil {
		return state, fmt.Errorf("failed to read state: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("failed to parse state %s: %w", path, err)
	}
	return state, nil
}

func writeState(path string, state turn.State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

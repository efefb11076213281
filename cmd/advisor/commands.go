package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/yourusername/hkjc-advisor/internal/client"
	"github.com/yourusername/hkjc-advisor/internal/ipc"
)

// errNotOK marks a command whose response carried an error payload.
// The payload itself is already on stdout.
var errNotOK = errors.New("request failed")

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a race payload and print the normalized record",
	Long:  `Reads a race payload from the file, or stdin when omitted, and runs it through process-race-data.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dispatchLocal(cmd, ipc.ChannelProcessRaceData, args)
	},
}

var adviseCmd = &cobra.Command{
	Use:   "advise [file]",
	Short: "Recommend a bet for a race payload",
	Long:  `Reads a race payload from the file, or stdin when omitted, and runs it through get-betting-advice.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dispatchLocal(cmd, ipc.ChannelGetBettingAdvice, args)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [file]",
	Short: "Summarize the past finishes of one horse",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dispatchLocal(cmd, ipc.ChannelAnalyzeFormHistory, args)
	},
}

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Call a running advisor server",
	Long:  `Sends payloads to the server configured under client.base_url.`,
}

var remoteValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a race payload on the server",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRemote(cmd, args, func(ctx context.Context, c *client.Client, payload []byte) (interface{}, error) {
			return c.ProcessRaceData(ctx, payload)
		})
	},
}

var remoteAdviseCmd = &cobra.Command{
	Use:   "advise [file]",
	Short: "Validate a race payload on the server, then request advice for the record",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRemote(cmd, args, func(ctx context.Context, c *client.Client, payload []byte) (interface{}, error) {
			record, err := c.ProcessRaceData(ctx, payload)
			if err != nil {
				return nil, err
			}
			return c.GetBettingAdvice(ctx, record)
		})
	},
}

var remoteCallCmd = &cobra.Command{
	Use:   "call <channel> [file]",
	Short: "Send a payload on any channel and print the response envelope",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		channel := args[0]
		return withRemote(cmd, args[1:], func(ctx context.Context, c *client.Client, payload []byte) (interface{}, error) {
			return c.Call(ctx, channel, payload)
		})
	},
}

func init() {
	remoteCmd.AddCommand(remoteValidateCmd, remoteAdviseCmd, remoteCallCmd)
}

// dispatchLocal runs one channel in-process and prints the response envelope
func dispatchLocal(cmd *cobra.Command, channel string, args []string) error {
	payload, err := readPayload(cmd, args)
	if err != nil {
		return err
	}

	router := ipc.NewRouter(newEngine(), logger)
	resp := router.Dispatch(ipc.Request{Channel: channel, Payload: payload})
	return printResponse(cmd, resp)
}

// withRemote reads the payload, runs call against the configured server and
// prints its result. A failed response is printed as its error payload.
func withRemote(cmd *cobra.Command, args []string, call func(context.Context, *client.Client, []byte) (interface{}, error)) error {
	payload, err := readPayload(cmd, args)
	if err != nil {
		return err
	}

	httpCfg := client.DefaultHTTPClientConfig()
	httpCfg.Timeout = cfg.ClientTimeout()
	httpCfg.MaxRetries = cfg.Client.MaxRetries
	httpCfg.RateLimit = cfg.Client.RateLimit
	httpCfg.CircuitBreakerMax = cfg.Client.CircuitBreakerMax

	c, err := client.NewClient(cfg.Client.BaseURL, cfg.Client.AuthToken, httpCfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := call(ctx, c, payload)
	var remoteErr *client.RemoteError
	if errors.As(err, &remoteErr) {
		if writeErr := printJSON(cmd, remoteErr.Payload); writeErr != nil {
			return writeErr
		}
		return errNotOK
	}
	if err != nil {
		return fmt.Errorf("remote call failed: %w", err)
	}
	return printJSON(cmd, result)
}

func readPayload(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read payload file: %w", err)
	}
	return data, nil
}

func printResponse(cmd *cobra.Command, resp ipc.Response) error {
	if err := printJSON(cmd, resp); err != nil {
		return err
	}
	if !resp.OK {
		return errNotOK
	}
	return nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

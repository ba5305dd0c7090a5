package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dan-strohschein/cdbms-driver/protocol"
)

var execHex bool

var execCmd = &cobra.Command{
	Use:   "exec <command...>",
	Short: "Send one raw command and print the response",
	Example: `  cdbmsctl exec create database zoo
  cdbmsctl exec zoo get row pigs by_index 0`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		c, err := openClient(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.Exec(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		out, err := describeResponse(resp, execHex)
		if err != nil {
			return err
		}
		printSuccess(out)
		return nil
	},
}

func init() {
	execCmd.Flags().BoolVar(&execHex, "hex", false, "dump payloads as hex")
}

// describeResponse renders a raw response. A single byte is read as a status
// and enumerated failures are returned as errors.
func describeResponse(resp []byte, asHex bool) (string, error) {
	switch {
	case len(resp) == 0:
		return "(empty response)", nil
	case len(resp) == 1:
		status := protocol.StatusCode(int8(resp[0]))
		if err := status.Err(); err != nil {
			return "", err
		}
		return "status " + status.String(), nil
	case asHex:
		return fmt.Sprintf("%d bytes\n%s", len(resp), hex.Dump(resp)), nil
	default:
		return fmt.Sprintf("%d bytes: %q", len(resp), resp), nil
	}
}

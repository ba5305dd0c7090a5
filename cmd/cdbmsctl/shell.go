package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/dan-strohschein/cdbms-driver/client"
)

const historyFile = ".cdbms_history"

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive prompt over one session",
	Long: `Reads commands line by line and sends each one over a single session.
Lines starting with a dot are handled locally:

  .debug   toggle debug mode
  .info    print session state and counters
  .quit    leave the shell`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		c, err := openClient(ctx)
		if err != nil {
			return err
		}
		defer c.Close()
		return runShell(ctx, c)
	},
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, historyFile)
}

func runShell(ctx context.Context, c *client.Client) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(prefix string) []string {
		var out []string
		for _, dot := range []string{".debug", ".info", ".quit"} {
			if strings.HasPrefix(dot, prefix) {
				out = append(out, dot)
			}
		}
		return out
	})

	hist := historyPath()
	if hist != "" {
		if f, err := os.Open(hist); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if f, err := os.Create(hist); err == nil {
				line.WriteHistory(f)
				f.Close()
			}
		}()
	}

	fmt.Println(colorBold(colorCyan("cdbms shell")) + colorDim(" (.quit to exit)"))
	for {
		input, err := line.Prompt("cdbms> ")
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read prompt")
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if quit := runShellLine(ctx, c, input); quit {
			return nil
		}
	}
}

// runShellLine executes one line and reports whether the shell should exit.
func runShellLine(ctx context.Context, c *client.Client, input string) bool {
	switch input {
	case ".quit", ".exit":
		return true
	case ".debug":
		c.SetDebugMode(!c.IsDebugMode())
		printSuccess(fmt.Sprintf("debug mode %v", c.IsDebugMode()))
		return false
	case ".info":
		fmt.Println(c.DumpDebugInfoJSON())
		return false
	}
	if strings.HasPrefix(input, ".") {
		printWarning("unknown shell command " + input)
		return false
	}

	resp, err := c.Exec(ctx, input)
	if err == nil {
		var out string
		if out, err = describeResponse(resp, false); err == nil {
			printSuccess(out)
		}
	}
	if err != nil {
		printError(client.FormatError(err, c.IsDebugMode()))
		if c.GetState() != client.CONNECTED {
			printWarning("session lost, reconnecting")
			if err := c.Open(ctx); err != nil {
				printError(client.FormatError(err, c.IsDebugMode()))
				return true
			}
		}
	}
	return false
}

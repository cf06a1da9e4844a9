package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"hashdrop/internal/client"
	"hashdrop/internal/server/digest"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	flagServer  string
	flagTimeout time.Duration
	flagNoColor bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hashdrop",
		Short:         "Upload files to a hashdrop server and compare SHA-1 digests",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagNoColor {
				color.NoColor = true
			}
		},
	}

	root.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	root.AddCommand(newUploadCmd(), newSumCmd())
	return root
}

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload each file in its own request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := client.ParseArgs(args)
			if err != nil {
				return err
			}

			c := client.New(flagServer, &http.Client{Timeout: flagTimeout})
			for _, p := range paths {
				rec, err := c.Upload(cmd.Context(), p)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s id=%d size=%d sha1=%s\n",
					color.GreenString("✓"), p, rec.ID, rec.Size, rec.Hash)
			}
			return nil
		},
	}

	server := os.Getenv("HASHDROP_SERVER")
	if server == "" {
		server = "http://localhost:3000"
	}
	cmd.Flags().StringVar(&flagServer, "server", server, "Server base URL (env HASHDROP_SERVER)")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "Per-request timeout, 0 for none")
	return cmd
}

func newSumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sum <file>...",
		Short: "Print the digest the server would record for each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := client.ParseArgs(args)
			if err != nil {
				return err
			}
			for _, p := range paths {
				d, err := sumFile(p)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %d  %s\n", d.Hash, d.Size, p)
			}
			return nil
		},
	}
}

func sumFile(path string) (digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return digest.Digest{}, err
	}
	defer f.Close()
	return digest.FromReader(f)
}

// Command export-model downloads a pretrained sentiment classifier and writes
// it into a model repository that modelhost can serve.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"modelhost/internal/engine"
	"modelhost/internal/exporter"
	"modelhost/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(engine.Default).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(dl engine.Downloader) *cobra.Command {
	var level, format string
	var log zerolog.Logger
	root := &cobra.Command{
		Use:          "export-model",
		Short:        "Export pretrained models into a modelhost repository",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(level, format)
			if err != nil {
				return err
			}
			log = l
			return nil
		},
	}
	root.PersistentFlags().StringVar(&level, "log-level", "info", "Log level")
	root.PersistentFlags().StringVar(&format, "log-format", "auto", "Log format: auto, json, console")

	var opts exporter.Options
	export := &cobra.Command{
		Use:   "export",
		Short: "Download a classifier and serialize it as a servable model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.AuthToken == "" {
				opts.AuthToken = os.Getenv("HF_TOKEN")
			}
			res, err := exporter.New(dl, log).Export(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s (%d files)\n", res.VersionDir, len(res.Manifest.Files))
			return nil
		},
	}
	f := export.Flags()
	f.StringVar(&opts.ModelID, "model", exporter.DefaultModelID, "Hugging Face model id")
	f.StringVar(&opts.Repository, "repository", "~/models", "Model repository directory")
	f.StringVar(&opts.Name, "name", "", "Model name in the repository (default: last segment of --model)")
	f.StringVar(&opts.Version, "version", "1", "Version directory to write")
	f.StringVar(&opts.Revision, "revision", "", "Hub revision (branch, tag or commit)")
	f.StringVar(&opts.OnnxFilePath, "onnx-file", "", "ONNX file to pick when the repository holds several")
	f.IntVar(&opts.MaxBatchSize, "max-batch-size", 0, "max_batch_size written to config.yaml")
	f.BoolVar(&opts.Force, "force", false, "Overwrite an existing version and config")

	verify := &cobra.Command{
		Use:   "verify <dir-or-url>",
		Short: "Check an exported version against its MANIFEST.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]
			var err error
			if isURL(target) {
				err = exporter.VerifyURL(cmd.Context(), target)
			} else {
				err = exporter.Verify(cmd.Context(), target)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", target)
			return nil
		},
	}

	publish := &cobra.Command{
		Use:   "publish <version-dir> <dest-url>",
		Short: "Upload an exported version to file://, mem:// or s3:// storage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Info().Str("src", args[0]).Str("dest", args[1]).Msg("publishing")
			if err := exporter.Publish(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s\n", args[1])
			return nil
		},
	}

	root.AddCommand(export, verify, publish)
	return root
}

func isURL(s string) bool {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == ':':
			return i > 0 && len(s) > i+2 && s[i+1:i+3] == "//"
		case c == '/' || c == '\\' || c == '.':
			return false
		}
	}
	return false
}

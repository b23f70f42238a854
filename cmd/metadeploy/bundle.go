package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrhapile/metadeploy/internal/config"
	"github.com/mrhapile/metadeploy/internal/pipeline"
	"github.com/mrhapile/metadeploy/pkg/bundler"
)

var (
	bundleInput   string
	bundlePublish string
	bundleMessage string
)

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Bundle entities from a JSON or YAML file without calling the assistant",
	Long: `Bundle reads a {"metadata": [...]} document, renders it, writes package.xml
and packs the archive. With --publish the archive is also deployed or pushed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		batch, err := bundler.LoadBatch(bundleInput)
		if err != nil {
			return err
		}

		if bundlePublish != "" {
			settings.Publish = bundlePublish
		}
		if err := settings.Validate(); err != nil {
			return err
		}
		pub, err := pipeline.NewPublisher(settings, httpClient(), logger)
		if err != nil {
			return err
		}

		message := bundleMessage
		if message == "" {
			message = "Update metadata from " + filepath.Base(bundleInput)
		}
		out, err := pipeline.New(settings, nil, pub, logger).RunBatch(cmd.Context(), batch, message)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "archive: %s (%d bytes)\n", out.Bundle.ArchivePath, out.Bundle.SizeBytes)
		for _, f := range out.Bundle.Files {
			fmt.Fprintf(w, "  %s  %s\n", f.SHA256[:12], f.Path)
		}
		if len(out.Bundle.Skipped) > 0 {
			fmt.Fprintf(w, "skipped: %s\n", strings.Join(out.Bundle.Skipped, ", "))
		}
		if settings.Publish != config.PublishNone {
			fmt.Fprintf(w, "published: %s\n", out.Location)
		}
		return nil
	},
}

func init() {
	bundleCmd.Flags().StringVarP(&bundleInput, "input", "i", "", "entities file (.json, .yaml or .yml)")
	bundleCmd.Flags().StringVar(&bundlePublish, "publish", "", "deploy, git or none (default: the publish setting)")
	bundleCmd.Flags().StringVarP(&bundleMessage, "message", "m", "", "commit message when publishing to git")
	_ = bundleCmd.MarkFlagRequired("input")
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/livecast-service/internal/extractor"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config and channel file without crawling",
		Args:  cobra.NoArgs,
		RunE:  runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !extractor.Known(cfg.Extractor) {
		return fmt.Errorf("unknown default extractor %q (known: %s)", cfg.Extractor, strings.Join(extractor.Tags(), ", "))
	}
	if cfg.FetchMode != "http" && cfg.FetchMode != "browser" {
		return fmt.Errorf("unknown fetch mode %q (want http or browser)", cfg.FetchMode)
	}

	channels, err := loadChannels(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d channels", cfg.ChannelsFile, channels.Len())
	if t := channels.GroupTitle(); t != "" {
		fmt.Fprintf(out, " in group %q", t)
	}
	fmt.Fprintln(out)
	for _, ch := range channels.All() {
		ex := ch.Extractor
		if ex == "" {
			ex = cfg.Extractor
		}
		fmt.Fprintf(out, "  %-12s %-20s %-10s %s\n", ch.ID, ch.Name, ex, ch.SourceURL)
	}
	return nil
}

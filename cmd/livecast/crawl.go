package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/user/livecast-service/internal/entity"
	"github.com/user/livecast-service/internal/playlist"
	"go.uber.org/zap"
)

var (
	outputPath   string
	outputFormat string
)

func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run a single crawl cycle and write the playlist",
		Args:  cobra.NoArgs,
		RunE:  runCrawl,
	}
	flags := cmd.Flags()
	flags.StringVarP(&outputPath, "output", "o", "live.txt", `Playlist file to write ("-" for stdout)`)
	flags.StringVar(&outputFormat, "format", "text", "Playlist format: text or m3u")
	return cmd
}

func runCrawl(cmd *cobra.Command, args []string) error {
	render, err := renderer(outputFormat)
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.runner.RunOnce(ctx)
	if err != nil {
		return err
	}
	if !report.Published {
		return errors.New("no channel resolved to a stream url; playlist not written")
	}

	snap, _ := a.store.Current()
	if err := writePlaylist(outputPath, render(snap), cmd); err != nil {
		return err
	}
	logger.Info("playlist written",
		zap.String("output", outputPath),
		zap.Int("entries", report.SuccessCount),
		zap.Int("failures", report.FailureCount),
	)
	return nil
}

func renderer(format string) (func(*entity.PlaylistSnapshot) string, error) {
	switch format {
	case "text", "txt":
		return playlist.RenderText, nil
	case "m3u", "m3u8":
		return playlist.RenderM3U, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want text or m3u)", format)
	}
}

// writePlaylist replaces path wholesale; readers never see a partial file.
func writePlaylist(path, content string, cmd *cobra.Command) error {
	if path == "-" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), content)
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".livecast-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write playlist: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write playlist: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

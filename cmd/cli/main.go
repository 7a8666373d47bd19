package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/ytdesk/internal/app"
	"github.com/yourusername/ytdesk/internal/domain"
	"github.com/yourusername/ytdesk/pkg/logger"
)

var (
	configPath  string
	cookiesPath string
	rootCmd     = &cobra.Command{
		Use:           "ytdesk",
		Short:         "ytdesk - inspect and download videos with yt-dlp",
		Long:          `A command-line interface for listing the formats of a video and downloading a chosen video and audio stream with yt-dlp.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: search ./configs, ~/.ytdesk, /etc/ytdesk)")
	rootCmd.PersistentFlags().StringVar(&cookiesPath, "cookies", "", "Netscape cookie file passed to yt-dlp")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(cookiesCmd)
	rootCmd.AddCommand(configCmd)

	cookiesCmd.AddCommand(cookiesCheckCmd)
	configCmd.AddCommand(configInitCmd)

	infoCmd.Flags().BoolP("json", "j", false, "Output in JSON format")

	downloadCmd.Flags().StringP("video", "v", "", "Video format id (required)")
	downloadCmd.Flags().StringP("audio", "a", "", "Audio format id to merge with the video")
	downloadCmd.Flags().StringP("output", "o", "", "Output directory (default: download.output_dir)")
	downloadCmd.Flags().StringP("title", "t", "", "Title shown in notifications and history")
	downloadCmd.MarkFlagRequired("video")

	historyCmd.Flags().IntP("limit", "n", 20, "Number of records to show (0 for all)")
}

// withRuntime loads configuration and wires the application for a command
func withRuntime(fn func(cmd *cobra.Command, rt *app.Runtime, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		config, err := app.LoadConfig(configPath)
		if err != nil {
			return err
		}

		log, err := logger.New(logger.Config{
			Level:      config.Logging.Level,
			Format:     config.Logging.Format,
			OutputPath: config.Logging.OutputPath,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer log.Sync()

		rt, err := app.NewRuntime(config, log)
		if err != nil {
			return err
		}
		defer rt.Close()

		return fn(cmd, rt, args)
	}
}

var infoCmd = &cobra.Command{
	Use:   "info [url]",
	Short: "List the video and audio formats of a URL",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, rt *app.Runtime, args []string) error {
		meta, err := rt.Manager.GetVideoInfo(cmd.Context(), args[0], cookiesPath)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(meta)
		}

		printMetadata(os.Stdout, meta)
		return nil
	}),
}

var downloadCmd = &cobra.Command{
	Use:   "download [url]",
	Short: "Download a video format, optionally merged with an audio format",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, rt *app.Runtime, args []string) error {
		flags := cmd.Flags()
		videoID, _ := flags.GetString("video")
		audioID, _ := flags.GetString("audio")
		outputDir, _ := flags.GetString("output")
		title, _ := flags.GetString("title")

		req := domain.DownloadRequest{
			URL:         args[0],
			Title:       title,
			Video:       domain.StreamFormat{FormatID: videoID},
			OutputDir:   outputDir,
			CookiesPath: cookiesPath,
		}
		if audioID != "" {
			req.Audio = &domain.StreamFormat{FormatID: audioID}
		}
		if req.OutputDir != "" {
			abs, err := filepath.Abs(req.OutputDir)
			if err != nil {
				return err
			}
			req.OutputDir = abs
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		active, err := rt.Manager.StartDownload(ctx, req)
		if err != nil {
			return err
		}
		events, unsubscribe := active.Subscribe()
		defer unsubscribe()

		fmt.Fprintf(os.Stderr, "Downloading %s (format %s) into %s\n",
			req.URL, req.FormatSelector(), active.Request().OutputDir)

		go func() {
			<-ctx.Done()
			if err := rt.Manager.CancelDownload(active.ID()); err == nil {
				rt.Logger.Info("Interrupted, cancelling download", zap.String("id", active.ID()))
			}
		}()

		progress := newProgressPrinter(os.Stdout)
		for ev := range events {
			switch ev.Kind {
			case domain.EventProgress:
				progress.Update(ev.Percent)
			case domain.EventStderr:
				progress.Break()
				fmt.Fprintln(os.Stderr, ev.Message)
			case domain.EventComplete:
				progress.Update(100)
				progress.Break()
				fmt.Println("Download completed")
				return nil
			case domain.EventError:
				progress.Break()
				return ev.Err
			}
		}
		return active.Wait()
	}),
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent downloads",
	RunE: withRuntime(func(cmd *cobra.Command, rt *app.Runtime, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		if limit < 0 {
			return fmt.Errorf("%w: limit cannot be negative", domain.ErrInvalidRequest)
		}

		records, err := rt.Manager.ListHistory(limit)
		if err != nil {
			return err
		}
		printHistory(os.Stdout, records)
		return nil
	}),
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download statistics",
	RunE: withRuntime(func(cmd *cobra.Command, rt *app.Runtime, args []string) error {
		stats, err := rt.Manager.GetStats()
		if err != nil {
			return err
		}

		fmt.Println("Download Statistics:")
		fmt.Printf("  Total:      %d\n", stats.Total)
		fmt.Printf("  Running:    %d\n", stats.Running)
		fmt.Printf("  Completed:  %d\n", stats.Completed)
		fmt.Printf("  Failed:     %d\n", stats.Failed)
		fmt.Printf("  Cancelled:  %d\n", stats.Cancelled)
		return nil
	}),
}

var cookiesCmd = &cobra.Command{
	Use:   "cookies",
	Short: "Inspect cookie files used for authenticated downloads",
}

var cookiesCheckCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Report the domains and expiry of a Netscape cookie file",
	Args:  cobra.MaximumNArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, rt *app.Runtime, args []string) error {
		path := cookiesPath
		if len(args) == 1 {
			path = args[0]
		}

		report, err := rt.Manager.InspectCookies(path)
		if err != nil {
			return err
		}
		printCookieReport(os.Stdout, report, time.Now())
		if report.AllExpired() {
			return domain.ErrCredentialsExpired
		}
		return nil
	}),
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with default values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "~/.ytdesk/config.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		path = expandHome(path)

		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
		if err := app.SaveConfig(domain.DefaultConfig(), path); err != nil {
			return err
		}
		fmt.Printf("Config written to %s\n", path)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describeError(err))
		if errors.Is(err, domain.ErrCredentialsExpired) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

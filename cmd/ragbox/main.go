package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/draftwise/ragbox/internal/blob"
	"github.com/draftwise/ragbox/internal/ingest"
	"github.com/draftwise/ragbox/internal/server"
	"github.com/draftwise/ragbox/internal/utils"
	"github.com/draftwise/ragbox/internal/version"
)

const configFileName = "config"

var red = color.New(color.FgHiRed, color.Bold).SprintFunc()

var rootCmd = &cobra.Command{
	Use:     "ragbox",
	Short:   "Ragbox document sync and chat API server",
	Version: version.Detailed(),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &server.Config{
			HTTP: server.HTTPConfig{
				Addr:      viper.GetString("http.addr"),
				CertFile:  viper.GetString("http.cert_file"),
				KeyFile:   viper.GetString("http.key_file"),
				RateLimit: viper.GetString("http.rate_limit"),
			},
			S3: blob.S3Config{
				Region:    viper.GetString("s3.region"),
				AccessKey: viper.GetString("s3.access_key"),
				SecretKey: viper.GetString("s3.secret_key"),
				Endpoint:  viper.GetString("s3.endpoint"),
			},
			Buckets: server.BucketConfig{
				Docs:    viper.GetString("buckets.docs"),
				State:   viper.GetString("buckets.state"),
				Exports: viper.GetString("buckets.exports"),
			},
			Drive: server.DriveConfig{
				CredentialsFile:   viper.GetString("drive.credentials_file"),
				CredentialsSecret: viper.GetString("drive.credentials_secret"),
				RootFolderID:      viper.GetString("drive.root_folder_id"),
				ExcludePatterns:   viper.GetStringSlice("drive.exclude_patterns"),
			},
			Kendra: ingest.KendraConfig{
				IndexID:      viper.GetString("kendra.index_id"),
				DataSourceID: viper.GetString("kendra.data_source_id"),
				Region:       viper.GetString("kendra.region"),
			},
			Auth: server.AuthConfig{
				JWTSecret: viper.GetString("auth.jwt_secret"),
			},
			DBPath: viper.GetString("db_path"),
			LogDir: viper.GetString("log_dir"),
		}

		cmd.SilenceUsage = true
		slog.Info("ragbox", "version", version.Version, "revision", version.Revision, "build", version.BuildDate)

		srv, err := server.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		defer slog.Info("Bye!")
		if err := srv.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().StringP("bind", "b", server.DefaultAddr, "Address to bind the http server")
	rootCmd.Flags().String("db", "ragbox.db", "Path to the sqlite database")
	rootCmd.Flags().String("docs-bucket", "", "Bucket holding synced documents")
	rootCmd.Flags().String("state-bucket", "", "Bucket holding sync state")
	rootCmd.Flags().String("exports-bucket", "", "Bucket holding feedback exports")
	rootCmd.Flags().String("root-folder", "", "Drive folder id to sync from")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the config file")
}

func main() {
	// .env is optional, flags and env vars win anyway
	_ = godotenv.Load()

	logFile := filepath.Join(logDir(), "ragbox.log")
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
		os.Exit(1)
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	stdoutHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
	logInterceptor := utils.NewLogInterceptor(file)
	fileHandler := slog.NewTextHandler(logInterceptor, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		// Time is added by the log interceptor.
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})
	slog.SetDefault(slog.New(utils.NewMultiLogHandler(stdoutHandler, fileHandler)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, red("error:"), err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) error {
	if cmd.Flag("config").Changed {
		configFilePath, _ := cmd.Flags().GetString("config")
		viper.SetConfigFile(configFilePath)
	} else {
		home, _ := os.UserHomeDir()
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join(home, ".config/ragbox"))
		viper.SetConfigName(configFileName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, ok := err.(viper.ConfigFileNotFoundError)
		if !enoent && !ok {
			return fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
		}
	}

	viper.BindPFlag("http.addr", cmd.Flags().Lookup("bind"))
	viper.BindPFlag("db_path", cmd.Flags().Lookup("db"))
	viper.BindPFlag("buckets.docs", cmd.Flags().Lookup("docs-bucket"))
	viper.BindPFlag("buckets.state", cmd.Flags().Lookup("state-bucket"))
	viper.BindPFlag("buckets.exports", cmd.Flags().Lookup("exports-bucket"))
	viper.BindPFlag("drive.root_folder_id", cmd.Flags().Lookup("root-folder"))

	viper.SetEnvPrefix("RAGBOX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	return nil
}

func logDir() string {
	if dir := os.Getenv("RAGBOX_LOG_DIR"); dir != "" {
		return dir
	}
	return ".logs"
}

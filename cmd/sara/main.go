package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/shikhar-s-7/sara-scheduler-ui/internal/profile"
	"github.com/shikhar-s-7/sara-scheduler-ui/server"
)

var version = "dev"

const shutdownTimeout = 30 * time.Second

var rootCmd = &cobra.Command{
	Use:   "sara",
	Short: `Scheduling assistant bridge between the browser, Google Calendar and the reasoning backend.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if configFile := viper.GetString("config"); configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return errors.Wrapf(err, "failed to read config file %s", configFile)
			}
		}

		instanceProfile := &profile.Profile{
			Mode:               viper.GetString("mode"),
			Addr:               viper.GetString("addr"),
			Port:               viper.GetInt("port"),
			Version:            version,
			InstanceURL:        viper.GetString("instance-url"),
			Secret:             viper.GetString("secret"),
			BackendURL:         viper.GetString("backend-url"),
			DefaultTimezone:    viper.GetString("timezone"),
			ChatTimeout:        viper.GetDuration("chat-timeout"),
			GoogleClientID:     viper.GetString("google-client-id"),
			GoogleClientSecret: viper.GetString("google-client-secret"),
			GoogleRedirectURI:  viper.GetString("google-redirect-uri"),
		}
		instanceProfile.FromEnv()

		setupLogger(instanceProfile)
		if err := instanceProfile.Validate(); err != nil {
			return err
		}

		s, err := server.NewServer(instanceProfile)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return s.Start(gctx)
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return s.Shutdown(shutdownCtx)
		})

		printGreetings(instanceProfile)
		return g.Wait()
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("port", 8081)
	viper.SetDefault("chat-timeout", profile.DefaultChatTimeout)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (yaml, toml or json); flags and SARA_* env vars take precedence")
	flags.String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	flags.String("addr", "", "address of server")
	flags.Int("port", 8081, "port of server")
	flags.String("instance-url", "", "the url the browser uses to reach this server")
	flags.String("secret", "", "secret used to sign session cookies")
	flags.String("backend-url", "", "base url of the reasoning backend")
	flags.String("timezone", "", "timezone sent upstream when the browser reports none (default Asia/Kolkata)")
	flags.Duration("chat-timeout", profile.DefaultChatTimeout, "budget for one chat round-trip")
	flags.String("google-client-id", "", "google oauth client id")
	flags.String("google-client-secret", "", "google oauth client secret")
	flags.String("google-redirect-uri", "", "google oauth redirect uri")

	for _, name := range []string{
		"config", "mode", "addr", "port", "instance-url", "secret", "backend-url", "timezone",
		"chat-timeout", "google-client-id", "google-client-secret", "google-redirect-uri",
	} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("sara")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func setupLogger(p *profile.Profile) {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	var handler slog.Handler
	if p.Mode == "prod" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("Sara %s started successfully!\n", p.Version)
	fmt.Printf("Server profile\n%s\n", p.String())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

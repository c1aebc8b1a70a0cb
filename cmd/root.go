// Package cmd implements the tunecli command line.
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/yhkl-dev/tunecli/auth"
	"github.com/yhkl-dev/tunecli/binding"
	"github.com/yhkl-dev/tunecli/catalog"
	"github.com/yhkl-dev/tunecli/config"
	"github.com/yhkl-dev/tunecli/coverart"
	"github.com/yhkl-dev/tunecli/device"
	"github.com/yhkl-dev/tunecli/log"
	"github.com/yhkl-dev/tunecli/navigation"
	"github.com/yhkl-dev/tunecli/player"
	"github.com/yhkl-dev/tunecli/progress"
	"github.com/yhkl-dev/tunecli/session"
	"github.com/yhkl-dev/tunecli/ui"
	"github.com/yhkl-dev/tunecli/where"
)

var configFile string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Use this config file instead of searching for "+where.App+".toml")

	rootCmd.Flags().String("catalog.url", "", "Catalog service base URL")
	rootCmd.Flags().String("player.backend", "", "Audio backend: "+strings.Join(config.Backends, ", "))
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("player.backend", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return config.Backends, cobra.ShellCompDirectiveNoFileComp
	}))
	rootCmd.Flags().Float64("player.volume", 1, "Initial volume in [0,1]")
	rootCmd.Flags().Bool("logs.write", false, "Write logs to "+where.App+"'s log directory")
	rootCmd.Flags().String("logs.level", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")
}

// rootCmd runs the player
var rootCmd = &cobra.Command{
	Use:          where.App,
	Short:        "A terminal music player for the tune catalog service",
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("version")) {
			versionCmd.Run(versionCmd, args)
			return
		}
		handleErr(runPlayer(cmd))
	},
}

// Execute runs the command line
func Execute() {
	cc.Init(&cc.Config{
		RootCmd:       rootCmd,
		Headings:      cc.HiCyan + cc.Bold + cc.Underline,
		Commands:      cc.HiYellow + cc.Bold,
		Example:       cc.Italic,
		ExecName:      cc.Bold,
		Flags:         cc.Bold,
		FlagsDataType: cc.Italic + cc.HiBlue,
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "✖ %s\n", strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}

// loadConfig reads .env, the config file, the environment and cmd's flags
func loadConfig(cmd *cobra.Command) (*config.Loader, *config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, nil, err
	}
	loader := config.NewLoader(config.Options{File: configFile, Flags: cmd.Flags()})
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := log.Setup(log.Options{
		Write: cfg.Logs.Write,
		Dir:   where.Logs(),
		Level: cfg.Logs.Level,
		JSON:  cfg.Logs.JSON,
	}); err != nil {
		return nil, nil, err
	}
	return loader, cfg, nil
}

// newCatalog builds the catalog client, cached on disk when enabled
func newCatalog(cfg *config.Config) (catalog.Catalog, error) {
	token, source, err := auth.Resolve(cfg.Catalog.Token)
	if err != nil {
		log.Warnf("catalog token unavailable: %v", err)
	}
	log.Infof("catalog token source: %s", source)

	client, err := catalog.NewClient(catalog.Options{
		BaseURL:   cfg.Catalog.URL,
		Token:     token,
		Timeout:   cfg.Catalog.Timeout,
		RateLimit: cfg.Catalog.RateLimit,
		UserAgent: where.App + "/" + Version,
	})
	if err != nil {
		return nil, err
	}
	if !cfg.Catalog.Cache {
		return client, nil
	}
	return catalog.NewCached(client, where.CatalogCache(), cfg.Catalog.CacheLifetime), nil
}

func runPlayer(cmd *cobra.Command) (err error) {
	loader, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log.Infof("config: %s", lo.Ternary(loader.Used() != "", loader.Used(), "defaults"))

	cat, err := newCatalog(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle, err := player.New(ctx, player.Options{
		Backend: cfg.Player.Backend,
		Volume:  cfg.Player.Volume,
		Fetch:   player.HTTPFetcher{Client: &http.Client{Timeout: cfg.Player.HTTPTimeout}},
	})
	if err != nil {
		return fmt.Errorf("start %s player: %w", cfg.Player.Backend, err)
	}

	sess := session.New(navigation.NewPolicy(nil), cfg.Player.Volume)
	reporter := progress.NewReporter(nil)
	app := ui.NewApp(ui.Deps{
		Config:   cfg.UI,
		Session:  sess,
		Progress: reporter,
		Catalog:  cat,
		Cover:    coverart.NewConverter(cfg.Catalog.Timeout),
	})

	media := binding.New(sess, handle, reporter, binding.Options{
		LoadTimeout: cfg.Player.LoadTimeout,
		Plays:       cat,
		Notify:      app,
	})
	media.Start(ctx)
	defer func() { err = multierr.Append(err, media.Close()) }()

	if lister := (device.SystemProfiler{}); cfg.Player.PauseOnDisconnect && lister.Supported() {
		monitor := device.NewMonitor(lister, time.Second, func(o device.Output) {
			if cur, ok := sess.Current(); ok {
				sess.Stop(cur.ID, fmt.Errorf("%w: %s", device.ErrDisconnected, o.Name))
			}
		})
		go monitor.Run(ctx)
	}

	loader.Watch(func(c *config.Config, werr error) {
		if werr != nil {
			log.Warnf("ignoring config change: %v", werr)
			return
		}
		sess.SetVolume(c.Player.Volume)
	})

	return app.Run(ctx)
}

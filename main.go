// Package main provides the entry point for the recite CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/recite/document"
	"github.com/dgnsrekt/recite/reading"
	"github.com/dgnsrekt/recite/tts"
	"github.com/dgnsrekt/recite/ui"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	engineName string
	stepName   string
	language   string
	rate       float64
	startPage  int
	noTUI      bool
	restart    bool
	debug      bool

	step reading.StepLength

	rootCmd = &cobra.Command{
		Use:   "recite [FILE|URL]",
		Short: "Read PDFs aloud in the terminal",
		Long: paragraph(
			fmt.Sprintf("\nRead PDFs aloud in the terminal, %s.", keyword("one sentence at a time")),
		),
		Example:          paragraph("recite paper.pdf\nrecite --step sentence --page 12 book.pdf\nrecite --engine gtts https://example.com/report.pdf"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.ExactArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return []string{"pdf"}, cobra.ShellCompDirectiveFilterFileExt
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(_ *cobra.Command) error {
	// grab config values from Viper
	debug = viper.GetBool("debug")
	if debug {
		log.SetLevel(log.DebugLevel)
	}

	var err error
	step, err = reading.ParseStepLength(viper.GetString("reading.step"))
	if err != nil {
		return err
	}

	if startPage < 0 {
		return fmt.Errorf("invalid page %d: pages start at 1", startPage)
	}
	return nil
}

func execute(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := tts.LoadConfigFromViper()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("shutdown", "error", err)
		}
	}()

	if restart {
		if err := a.forget(ctx, args[0]); err != nil {
			return err
		}
	}

	if noTUI || !term.IsTerminal(int(os.Stdout.Fd())) {
		if debug {
			log.SetOutput(os.Stderr)
		}
		return runHeadless(ctx, a, args[0], cmd.OutOrStdout())
	}
	return runTUI(ctx, a, cfg, args[0])
}

func runTUI(ctx context.Context, a *app, ttsCfg tts.Config, locator string) error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	cfg.Path = locator
	cfg.Engine = ttsCfg.Engine
	cfg.Step = step
	cfg.Page = startPage

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	listener := ui.NewListener()
	ctrl := a.controller(listener, listener, listener)
	p := ui.NewProgram(ctx, cfg, ctrl)
	listener.Attach(p)

	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	_, runErr := p.Run()
	if err := ctrl.Close(context.Background()); err != nil {
		log.Warn("closing reader", "error", err)
	}
	cancel()
	<-done

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("unable to run tui program: %w", runErr)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().Bool("debug", false, "write debug output to the log")
	rootCmd.Flags().StringVarP(&engineName, "engine", "e", "", "speech engine (piper, gtts or mock)")
	rootCmd.Flags().StringVarP(&stepName, "step", "s", "", "what next/previous move by (page or sentence)")
	rootCmd.Flags().StringVarP(&language, "lang", "l", "", "speech language code")
	rootCmd.Flags().Float64VarP(&rate, "rate", "r", 0, "speech rate multiplier")
	rootCmd.Flags().IntVarP(&startPage, "page", "p", 0, "start reading at this page (1-based)")
	rootCmd.Flags().BoolVar(&noTUI, "no-tui", false, "print sentences instead of starting the pager")
	rootCmd.Flags().BoolVar(&restart, "restart", false, "forget the saved position and start from the beginning")

	// Config bindings
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("tts.engine", rootCmd.Flags().Lookup("engine"))
	_ = viper.BindPFlag("tts.language", rootCmd.Flags().Lookup("lang"))
	_ = viper.BindPFlag("tts.rate", rootCmd.Flags().Lookup("rate"))
	_ = viper.BindPFlag("reading.step", rootCmd.Flags().Lookup("step"))

	tts.SetDefaults()
	viper.SetDefault("reading.step", reading.StepPage.String())
	viper.SetDefault("reading.auto_advance", true)
	viper.SetDefault("reading.watch", true)
	viper.SetDefault("reading.download_dir", "")
	viper.SetDefault("reading.positions", "")

	rootCmd.AddCommand(configCmd, manCmd, chunksCmd, renderCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "recite")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "recite")}, dirs...)
	}

	if c := os.Getenv("RECITE_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("recite")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("recite")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "recite.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}

// downloadDir is where remote documents are stored.
func downloadDir() string {
	if dir := viper.GetString("reading.download_dir"); dir != "" {
		return dir
	}
	dir, err := gap.NewScope(gap.User, "recite").CacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "recite")
	}
	return filepath.Join(dir, "documents")
}

// resolve maps a command line argument to the normalized document path.
func resolve(ctx context.Context, locator string) (string, error) {
	path, err := document.Resolve(ctx, locator, downloadDir())
	if err != nil {
		return "", fmt.Errorf("unable to open %s: %w", locator, err)
	}
	return path, nil
}

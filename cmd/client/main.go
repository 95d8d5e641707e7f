package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/weatherapp/weather/internal/client"
	"github.com/weatherapp/weather/internal/client/tui"
	"github.com/weatherapp/weather/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type app struct {
	configPath string
	logFile    string
	prefs      *client.Prefs
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "weather",
		Short:        "Search city forecasts from the terminal",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			prefs, err := client.LoadPrefs(a.configPath)
			if err != nil {
				return err
			}
			if err := prefs.Viper().BindPFlag(client.KeyAPIURL, cmd.Flag("api-url")); err != nil {
				return err
			}
			if err := prefs.Viper().BindPFlag(client.KeyGeocodingURL, cmd.Flag("geocoding-url")); err != nil {
				return err
			}
			a.prefs = prefs
			return nil
		},
		RunE: a.runTUI,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", client.DefaultPrefsPath(), "settings file")
	pf.StringVar(&a.logFile, "log-file", "", "write logs to this file")
	pf.String("api-url", client.DefaultAPIURL, "weather backend base URL")
	pf.String("geocoding-url", client.DefaultGeocodingURL, "geocoding API base URL")

	root.AddCommand(
		&cobra.Command{
			Use:   "tui",
			Short: "Interactive search with inline suggestions (default)",
			Args:  cobra.NoArgs,
			RunE:  a.runTUI,
		},
		&cobra.Command{
			Use:   "forecast <city>",
			Short: "Print the forecast of a city",
			Args:  cobra.MinimumNArgs(1),
			RunE:  a.runForecast,
		},
		&cobra.Command{
			Use:   "suggest <query>",
			Short: "Print the inline suggestion for a query",
			Args:  cobra.MinimumNArgs(1),
			RunE:  a.runSuggest,
		},
		&cobra.Command{
			Use:   "health",
			Short: "Check that the weather backend is reachable",
			Args:  cobra.NoArgs,
			RunE:  a.runHealth,
		},
	)
	return root
}

// setupLogging sends logs to the log file, or to w when none is set
func (a *app) setupLogging(w io.Writer) (func(), error) {
	if a.logFile == "" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(w, nil)))
		return func() {}, nil
	}
	f, err := os.OpenFile(a.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(f, nil)))
	return func() { f.Close() }, nil
}

func (a *app) runTUI(cmd *cobra.Command, _ []string) error {
	// the terminal belongs to the UI
	closeLog, err := a.setupLogging(io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	m := tui.New(cmd.Context(), tui.Options{
		Suggester: service.NewGeocodingClient(a.prefs.GeocodingURL()),
		Weather:   client.NewAPI(a.prefs.APIURL()),
		Cities:    a.prefs,
	})
	_, err = tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
	return err
}

func (a *app) runForecast(cmd *cobra.Command, args []string) error {
	closeLog, err := a.setupLogging(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := cmd.Context()
	search := client.NewSearch(client.NewAPI(a.prefs.APIURL()), a.prefs)
	gen, rows, err := search.Run(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	return search.Stagger(ctx, gen, rows, func(r client.Row) {
		fmt.Fprintln(out, r.String())
	})
}

func (a *app) runHealth(cmd *cobra.Command, _ []string) error {
	closeLog, err := a.setupLogging(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	if err := client.NewAPI(a.prefs.APIURL()).Health(ctx); err != nil {
		slog.Error("backend unhealthy", "url", a.prefs.APIURL(), "error", err)
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "backend is up")
	return nil
}

func (a *app) runSuggest(cmd *cobra.Command, args []string) error {
	closeLog, err := a.setupLogging(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	ac := client.NewAutocomplete()
	query := strings.Join(args, " ")
	if s := ac.Input(cmd.Context(), service.NewGeocodingClient(a.prefs.GeocodingURL()), query); s != "" {
		fmt.Fprintln(cmd.OutOrStdout(), ac.Entered()+"["+ac.Ghost()+"]")
	}
	return nil
}

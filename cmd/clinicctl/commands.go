package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wolfman30/clinic-booking-assistant/internal/app/bootstrap"
	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/dates"
	"github.com/wolfman30/clinic-booking-assistant/internal/scheduling"
	"github.com/wolfman30/clinic-booking-assistant/internal/tools"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

type rootOptions struct {
	timezone string
	today    string
	logLevel string
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "clinicctl",
		Short:         "Clinic booking assistant tools",
		SilenceUsage:  true,
		PersistentPreRun: func(*cobra.Command, []string) {
			_ = godotenv.Load()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&opts.timezone, "timezone", "", "clinic timezone (default CLINIC_TIMEZONE)")
	root.PersistentFlags().StringVar(&opts.today, "today", "", "reference date as YYYY-MM-DD (default now)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "error", "log level")

	root.AddCommand(resolveDateCmd(opts))
	root.AddCommand(resolveTimeCmd())
	root.AddCommand(schemasCmd())
	root.AddCommand(callCmd(opts))
	return root
}

func (o *rootOptions) location() (*time.Location, error) {
	tz := o.timezone
	if tz == "" {
		tz = appconfig.Load().ClinicTimezone
	}
	return time.LoadLocation(tz)
}

func (o *rootOptions) reference(loc *time.Location) (time.Time, error) {
	if o.today == "" {
		return time.Now().In(loc), nil
	}
	t, err := time.ParseInLocation("2006-01-02", o.today, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("--today: %w", err)
	}
	return t.Add(12 * time.Hour), nil
}

func resolveDateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve-date <expression>",
		Short: "Resolve a French date expression",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := opts.location()
			if err != nil {
				return err
			}
			ref, err := opts.reference(loc)
			if err != nil {
				return err
			}
			res := dates.ResolveDate(strings.Join(args, " "), ref)
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %s)\n", dates.FormatLong(res.Date), dates.FormatNumeric(res.Date), res.Kind)
			return nil
		},
	}
}

func resolveTimeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve-time <expression>",
		Short: "Resolve a spoken time such as 14h30",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hour, minute, err := dates.ResolveTime(strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dates.FormatClock(hour, minute))
			return nil
		},
	}
}

func schemasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "Print the tool schemas advertised to the language model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(map[string]any{"tools": tools.Schemas()})
		},
	}
}

func callCmd(opts *rootOptions) *cobra.Command {
	var memory bool
	cmd := &cobra.Command{
		Use:   "call <tool> [key=value ...]",
		Short: "Invoke one tool and print its result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			callArgs, err := parseArguments(args[1:])
			if err != nil {
				return err
			}
			cfg := appconfig.Load()
			if opts.timezone != "" {
				cfg.ClinicTimezone = opts.timezone
			}
			if memory {
				cfg.CalendarBackend = bootstrap.BackendMemory
				cfg.DatabaseURL = ""
				cfg.BookingLockEnabled = false
			}
			logger := logging.NewWithWriter(cmd.ErrOrStderr(), opts.logLevel)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			app, err := bootstrap.Build(ctx, cfg, logger, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()

			ack := scheduling.AckFunc(func(_ context.Context, text string) {
				fmt.Fprintf(cmd.ErrOrStderr(), "... %s\n", text)
			})
			result := app.Dispatcher.Invoke(ctx, tools.Call{ID: "cli", Name: args[0], Arguments: callArgs}, ack)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			if err := enc.Encode(result); err != nil {
				return err
			}
			if result.Outcome == tools.OutcomeError {
				return fmt.Errorf("%s failed", args[0])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&memory, "memory", false, "use the in-memory calendar and patient directory")
	return cmd
}

func parseArguments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("argument %q is not key=value", pair)
		}
		out[strings.TrimSpace(key)] = value
	}
	return out, nil
}

package commitment

import (
	"fmt"
	"os"

	"github.com/jurzon/backy/adapter/cli"
	"github.com/spf13/cobra"
)

var (
	createFile     string
	createAmount   string
	createCurrency string
	createDeadline string
	createTimezone string
	createKind     string
	createInterval int
	createAnchor   string
	createAt       string
	createWeekdays []string
	createDay      int
	createNth      int
	createWeekday  string
)

var createCmd = &cobra.Command{
	Use:   "create [goal]",
	Short: "Create a commitment",
	Long: `Create a commitment with a money stake, a deadline and a check-in schedule.

The definition comes either from a YAML file (--file) or from flags.

Examples:
  backy commitment create --file run.yaml
  backy commitment create "Run 5k" --amount 25 --currency EUR \
      --deadline "2025-03-31 20:00" --tz Europe/Zurich \
      --kind weekly --weekdays mon,wed,fri --at 07:30
  backy commitment create "Pay rent on time" --amount 10 --currency USD \
      --deadline 2025-12-31 --kind monthly_nth --nth -1 --weekday fri --at 09:00`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		def, err := createDefinition(args)
		if err != nil {
			return err
		}
		command, err := def.Command(app.CurrentUserID, app.Clock.Now())
		if err != nil {
			return err
		}

		result, err := app.CreateCommitmentHandler.Handle(cmd.Context(), command)
		if err != nil {
			return fmt.Errorf("failed to create commitment: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Created commitment: %s\n", command.Goal)
		fmt.Fprintf(out, "  ID: %s\n", result.CommitmentID)
		fmt.Fprintf(out, "  First check-in: %s\n", formatTime(result.FirstOccurrence, command.Timezone))
		return nil
	},
}

func createDefinition(args []string) (*Definition, error) {
	if createFile != "" {
		f, err := os.Open(createFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		def, err := LoadDefinition(f)
		if err != nil {
			return nil, err
		}
		if len(args) == 1 {
			def.Goal = args[0]
		}
		return def, nil
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("a goal argument or --file is required")
	}
	return &Definition{
		Goal:     args[0],
		Stake:    StakeDefinition{Amount: createAmount, Currency: createCurrency},
		Deadline: createDeadline,
		Timezone: createTimezone,
		Schedule: ScheduleDefinition{
			Kind:       createKind,
			Interval:   createInterval,
			Anchor:     createAnchor,
			At:         createAt,
			Weekdays:   createWeekdays,
			DayOfMonth: createDay,
			Nth:        createNth,
			Weekday:    createWeekday,
		},
	}, nil
}

func init() {
	createCmd.Flags().StringVarP(&createFile, "file", "f", "", "read the commitment from a YAML file")

	createCmd.Flags().StringVar(&createAmount, "amount", "", "stake amount, e.g. 25 or 12.50")
	createCmd.Flags().StringVar(&createCurrency, "currency", "", "stake currency (ISO 4217)")
	createCmd.Flags().StringVar(&createDeadline, "deadline", "", "deadline (RFC 3339, YYYY-MM-DD HH:MM or YYYY-MM-DD)")
	createCmd.Flags().StringVar(&createTimezone, "tz", "UTC", "IANA timezone of the schedule and deadline")

	createCmd.Flags().StringVar(&createKind, "kind", "daily", "schedule kind (daily, weekly, monthly_day, monthly_nth)")
	createCmd.Flags().IntVar(&createInterval, "interval", 1, "repeat every N days, weeks or months")
	createCmd.Flags().StringVar(&createAnchor, "anchor", "", "first day of the schedule (YYYY-MM-DD, default today)")
	createCmd.Flags().StringVar(&createAt, "at", "", "check-in time of day (HH:MM)")
	createCmd.Flags().StringSliceVar(&createWeekdays, "weekdays", nil, "weekdays for weekly schedules (mon,wed,fri)")
	createCmd.Flags().IntVar(&createDay, "day", 0, "day of month for monthly_day schedules")
	createCmd.Flags().IntVar(&createNth, "nth", 0, "week of month for monthly_nth schedules (1-4, -1 = last)")
	createCmd.Flags().StringVar(&createWeekday, "weekday", "", "weekday for monthly_nth schedules")
}

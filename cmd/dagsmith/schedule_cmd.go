package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fentz26/dagsmith/internal/schedule"
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Translate between recurrence expressions and descriptors",
}

var scheduleDecodeCmd = &cobra.Command{
	Use:   "decode <expr>",
	Short: "Describe a 5-field recurrence expression",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleDecode,
}

var scheduleEncodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Build an expression from a frequency and time",
	RunE:  runScheduleEncode,
}

var scheduleSuggestCmd = &cobra.Command{
	Use:   "suggest <text>",
	Short: "Suggest an expression from a plain description",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScheduleSuggest,
}

var (
	encFreq  string
	encTime  string
	encDays  string
	encDOM   int
	encMonth int
)

func init() {
	scheduleCmd.AddCommand(scheduleDecodeCmd, scheduleEncodeCmd, scheduleSuggestCmd)

	scheduleEncodeCmd.Flags().StringVar(&encFreq, "freq", "daily", "Frequency: manual, hourly, daily, weekly, monthly, yearly")
	scheduleEncodeCmd.Flags().StringVar(&encTime, "time", "00:00", "Time of day as HH:MM (hourly uses the minute only)")
	scheduleEncodeCmd.Flags().StringVar(&encDays, "days", "", "Weekdays for weekly schedules, 0=Sun .. 6=Sat (e.g. 1,5)")
	scheduleEncodeCmd.Flags().IntVar(&encDOM, "dom", 1, "Day of month for monthly and yearly schedules")
	scheduleEncodeCmd.Flags().IntVar(&encMonth, "month", 1, "Month for yearly schedules")
}

func printSchedule(expr string) {
	d := schedule.Decode(expr)
	if expr == "" {
		fmt.Println("Expression: (none)")
	} else {
		fmt.Printf("Expression: %s\n", expr)
	}
	fmt.Printf("Frequency:  %s\n", d.Frequency)
	fmt.Printf("Summary:    %s\n", d)
	if err := schedule.Validate(expr); err != nil {
		fmt.Printf("Warning:    %v (treated as manual)\n", err)
	}
}

func runScheduleDecode(cmd *cobra.Command, args []string) error {
	printSchedule(args[0])
	return nil
}

func parseDays(s string) ([]int, error) {
	var days []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil || d < 0 || d > 6 {
			return nil, fmt.Errorf("invalid weekday %q (want 0-6)", part)
		}
		days = append(days, d)
	}
	return days, nil
}

func runScheduleEncode(cmd *cobra.Command, args []string) error {
	freq, err := schedule.ParseFrequency(encFreq)
	if err != nil {
		return err
	}
	hour, minute, err := schedule.ParseTime(encTime)
	if err != nil {
		return err
	}
	days, err := parseDays(encDays)
	if err != nil {
		return err
	}

	d := schedule.Descriptor{
		Frequency:  freq,
		Hour:       hour,
		Minute:     minute,
		Weekdays:   days,
		DayOfMonth: encDOM,
		Month:      encMonth,
	}
	printSchedule(schedule.Encode(d))
	return nil
}

func runScheduleSuggest(cmd *cobra.Command, args []string) error {
	expr := schedule.Suggest(strings.Join(args, " "))
	if expr == "" {
		fmt.Println("No suggestion for that description")
		return nil
	}
	printSchedule(expr)
	return nil
}

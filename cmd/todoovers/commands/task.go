package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nhle/todo-overs/internal/model"
	"github.com/nhle/todo-overs/internal/source/habitica"
	"github.com/nhle/todo-overs/internal/store"
	"github.com/nhle/todo-overs/internal/theme"
)

// NewTaskCommand creates the tracked task management command.
func NewTaskCommand(configPath *string) *cobra.Command {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Manage recurring to-dos",
	}
	taskCmd.AddCommand(newTaskAddCommand(configPath), newTaskListCommand(configPath), newTaskRemoveCommand(configPath))
	return taskCmd
}

func newTaskAddCommand(configPath *string) *cobra.Command {
	addCmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a to-do on Habitica and track it",
		Long: "Create a to-do on Habitica and recreate it whenever it is completed. " +
			"Exactly one of --every-days, --weekday or --month-day selects the cadence.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			notes, _ := cmd.Flags().GetString("notes")
			priorityName, _ := cmd.Flags().GetString("priority")
			dueDays, _ := cmd.Flags().GetInt("due-days")
			tagNames, _ := cmd.Flags().GetStringSlice("tag")

			rec, err := recurrenceFromFlags(cmd)
			if err != nil {
				return err
			}
			priority, err := model.ParsePriority(priorityName)
			if err != nil {
				return err
			}
			if dueDays < 0 {
				return fmt.Errorf("--due-days must not be negative")
			}

			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			task := model.TrackedTask{
				ID:         uuid.NewString(),
				OwnerID:    userID,
				Name:       args[0],
				Notes:      notes,
				Priority:   priority,
				DueInDays:  dueDays,
				Recurrence: rec,
			}
			task, err = addTask(cmd.Context(), a, task, tagNames)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tracking %q (%s) as %s\n", task.Name, task.ID, describeRecurrence(task.Recurrence))
			return nil
		},
	}
	addCmd.Flags().String("user", "", "Owning Habitica user id (required)")
	addCmd.Flags().String("notes", "", "Task notes")
	addCmd.Flags().String("priority", "easy", "Difficulty: trivial, easy, medium, hard")
	addCmd.Flags().Int("due-days", 0, "Days until due after each recreation (0 for no due date)")
	addCmd.Flags().StringSlice("tag", nil, "Tag name or id (repeatable)")
	addCmd.Flags().Int("every-days", 0, "Recreate this many days after completion (0 for immediately)")
	addCmd.Flags().String("weekday", "", "Recreate on this weekday after completion (name, or 0-6 with 0 = Sunday)")
	addCmd.Flags().Int("month-day", 0, "Recreate on this day of the month after completion")
	_ = addCmd.MarkFlagRequired("user")
	addCmd.MarkFlagsOneRequired("every-days", "weekday", "month-day")
	addCmd.MarkFlagsMutuallyExclusive("every-days", "weekday", "month-day")
	return addCmd
}

// recurrenceFromFlags builds the cadence from whichever recurrence flag
// was set.
func recurrenceFromFlags(cmd *cobra.Command) (model.Recurrence, error) {
	flags := cmd.Flags()
	var rec model.Recurrence
	switch {
	case flags.Changed("every-days"):
		n, _ := flags.GetInt("every-days")
		rec = model.DayRecurrence{DelayDays: n}
	case flags.Changed("weekday"):
		s, _ := flags.GetString("weekday")
		day, err := model.ParseWeekday(s)
		if err != nil {
			return nil, err
		}
		rec = model.WeekRecurrence{Weekday: day}
	case flags.Changed("month-day"):
		n, _ := flags.GetInt("month-day")
		rec = model.MonthRecurrence{Day: n}
	default:
		return nil, errors.New("one of --every-days, --weekday or --month-day is required")
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// addTask creates the remote to-do, then stores the tracking record.
func addTask(ctx context.Context, a *app, task model.TrackedTask, tagNames []string) (model.TrackedTask, error) {
	user, err := a.store.GetUserByID(ctx, task.OwnerID)
	if err != nil {
		return task, err
	}

	tags, err := a.store.GetTags(ctx, user.ID)
	if err != nil {
		return task, err
	}
	task.TagIDs, err = resolveTags(tags, tagNames)
	if err != nil {
		return task, err
	}

	var created *habitica.Task
	err = a.retrier().Do(ctx, func(ctx context.Context) error {
		var err error
		created, err = a.client.CreateTask(ctx, user.Credential(), habitica.TaskSpec{
			Name:      task.Name,
			Notes:     task.Notes,
			Priority:  float64(task.Priority),
			TagIDs:    task.TagIDs,
			DueInDays: task.DueInDays,
		})
		return err
	})
	if err != nil {
		return task, fmt.Errorf("creating remote task: %w", err)
	}

	task.RemoteID = created.ID
	if err := a.store.CreateTask(ctx, task); err != nil {
		a.log.WithTaskID(task.ID, task.RemoteID).WithError(err).
			Errorw("Remote task created but not tracked")
		return task, err
	}
	a.log.WithUserID(user.ID).WithTaskID(task.ID, task.RemoteID).Infow("Tracking task", "name", task.Name)
	return task, nil
}

// resolveTags maps tag names or ids to ids. Names match case-insensitively.
func resolveTags(tags []model.Tag, wanted []string) ([]string, error) {
	ids := make([]string, 0, len(wanted))
	for _, w := range wanted {
		w = strings.TrimSpace(w)
		found := ""
		for _, t := range tags {
			if t.ID == w || strings.EqualFold(t.Name, w) {
				found = t.ID
				break
			}
		}
		if found == "" {
			return nil, fmt.Errorf("unknown tag %q (run 'todoovers sync' to refresh tags)", w)
		}
		ids = append(ids, found)
	}
	return ids, nil
}

func describeRecurrence(r model.Recurrence) string {
	switch v := r.(type) {
	case model.DayRecurrence:
		if v.DelayDays == 0 {
			return "immediately after completion"
		}
		return strconv.Itoa(v.DelayDays) + " days after completion"
	case model.WeekRecurrence:
		return "every " + v.Weekday.String()
	case model.MonthRecurrence:
		return "day " + strconv.Itoa(v.Day) + " of the month"
	default:
		return "unknown"
	}
}

func newTaskListCommand(configPath *string) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")

			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			var filter store.TaskFilter
			if userID != "" {
				filter.OwnerID = &userID
			}
			tasks, err := a.store.GetTasks(cmd.Context(), filter)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTasks(tasks))
			return nil
		},
	}
	listCmd.Flags().String("user", "", "Only tasks of this Habitica user id")
	return listCmd
}

func renderTasks(tasks []model.TrackedTask) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers("ID", "NAME", "CADENCE", "PRIORITY", "DUE", "REMOTE ID")

	for _, task := range tasks {
		due := "-"
		if task.DueInDays > 0 {
			due = strconv.Itoa(task.DueInDays) + "d"
		}
		t.Row(task.ID, task.Name, describeRecurrence(task.Recurrence), task.Priority.String(), due, task.RemoteID)
	}

	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return theme.HeaderStyle
		}
		if row < 0 || row >= len(tasks) {
			return theme.CellStyle
		}
		task := tasks[row]
		switch col {
		case 2:
			return theme.KindStyle(task.Recurrence.Kind())
		case 3:
			return theme.PriorityStyle(task.Priority)
		}
		return theme.CellStyle
	})
	return t.Render()
}

func newTaskRemoveCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID",
		Short: "Stop tracking a task; the Habitica to-do is left alone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.DeleteTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stopped tracking %s\n", args[0])
			return nil
		},
	}
}

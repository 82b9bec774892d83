package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jaekwang-park/taskscribe/internal/client"
	"github.com/jaekwang-park/taskscribe/internal/view"
)

const dateLayout = "2006-01-02"

func newRegisterCmd(a *app) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password, at least 6 characters")
	cmd.RunE = a.run(func(cmd *cobra.Command, _ []string) error {
		user, err := a.auth.Register(cmd.Context(), name, email, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered and logged in as %s <%s>\n", user.Name, user.Email)
		return nil
	})
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.RunE = a.run(func(cmd *cobra.Command, _ []string) error {
		user, err := a.auth.Login(cmd.Context(), email, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s <%s>, %d tasks\n", user.Name, user.Email, len(a.store.Todos()))
		return nil
	})
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.run(func(cmd *cobra.Command, _ []string) error {
		if err := a.auth.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	})
	return cmd
}

func newWhoamiCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.run(func(cmd *cobra.Command, _ []string) error {
		if _, err := a.auth.Restore(cmd.Context()); err != nil {
			return err
		}
		user, err := a.api.Me(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", user.Name, user.Email)
		return nil
	})
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var status, priority, sortBy, order string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		Long: `List tasks with the configured filters, overridden by flags.

Priorities are kept by the client only and reset to medium on every load.`,
	}
	cmd.Flags().StringVar(&status, "status", "", "all, pending or completed")
	cmd.Flags().StringVar(&priority, "priority", "", "all, low, medium or high")
	cmd.Flags().StringVar(&sortBy, "sort", "", "dueDate, priority, createdAt or title")
	cmd.Flags().StringVar(&order, "order", "", "asc or desc")
	cmd.RunE = a.run(func(cmd *cobra.Command, _ []string) error {
		var patch view.FilterPatch
		flags := cmd.Flags()
		if flags.Changed("status") {
			patch.Status = &status
		}
		if flags.Changed("priority") {
			patch.Priority = &priority
		}
		if flags.Changed("sort") {
			key := view.SortKey(sortBy)
			patch.SortBy = &key
		}
		if flags.Changed("order") {
			o := view.SortOrder(order)
			patch.SortOrder = &o
		}
		if err := a.store.Filters().Merge(patch).Validate(); err != nil {
			return err
		}
		a.store.SetFilters(patch)

		if _, err := a.auth.Restore(cmd.Context()); err != nil {
			return err
		}
		printTodos(cmd.OutOrStdout(), a.store.Visible())
		return nil
	})
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	var description, due string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	cmd.Flags().StringVar(&due, "due", "", "due date, YYYY-MM-DD or RFC 3339")
	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		in := client.NewTodo{Title: strings.Join(args, " "), Description: description}
		if due != "" {
			t, err := parseDue(due)
			if err != nil {
				return err
			}
			in.DueDate = &t
		}

		if _, err := a.auth.Restore(cmd.Context()); err != nil {
			return err
		}
		todo, err := a.store.Create(cmd.Context(), in)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", todo.ID)
		return nil
	})
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var title, description, due, status string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a task's fields",
		Long:  "Change a task's fields. Only the flags given are sent. The id may be any unique prefix.",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVar(&due, "due", "", "new due date, YYYY-MM-DD or RFC 3339")
	cmd.Flags().StringVar(&status, "status", "", "pending or completed")
	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		var patch client.TodoPatch
		flags := cmd.Flags()
		if flags.Changed("title") {
			patch.Title = &title
		}
		if flags.Changed("description") {
			patch.Description = &description
		}
		if flags.Changed("due") {
			t, err := parseDue(due)
			if err != nil {
				return err
			}
			patch.DueDate = &t
		}
		if flags.Changed("status") {
			s := view.Status(status)
			if s != view.StatusPending && s != view.StatusCompleted {
				return fmt.Errorf("invalid status %q: must be pending or completed", status)
			}
			patch.Status = &s
		}

		id, err := a.resolve(cmd, args[0])
		if err != nil {
			return err
		}
		if err := a.store.Update(cmd.Context(), id, patch); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", id)
		return nil
	})
	return cmd
}

func newToggleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a task between pending and completed",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		id, err := a.resolve(cmd, args[0])
		if err != nil {
			return err
		}
		if err := a.store.ToggleStatus(cmd.Context(), id); err != nil {
			return err
		}
		todo, _ := a.store.Get(id)
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", id, todo.Status)
		return nil
	})
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
	}
	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		id, err := a.resolve(cmd, args[0])
		if err != nil {
			return err
		}
		if err := a.store.Delete(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
		return nil
	})
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize your tasks",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.run(func(cmd *cobra.Command, _ []string) error {
		if _, err := a.auth.Restore(cmd.Context()); err != nil {
			return err
		}
		st := a.store.Stats(time.Now())
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Total\t%d\n", st.Total)
		fmt.Fprintf(w, "Completed\t%d\n", st.Completed)
		fmt.Fprintf(w, "Pending\t%d\n", st.Pending)
		fmt.Fprintf(w, "Overdue\t%d\n", st.Overdue)
		fmt.Fprintf(w, "Completion\t%.0f%%\n", st.CompletionRate)
		return w.Flush()
	})
	return cmd
}

// resolve restores the session and expands an id prefix to a full task id.
func (a *app) resolve(cmd *cobra.Command, prefix string) (string, error) {
	if _, err := a.auth.Restore(cmd.Context()); err != nil {
		return "", err
	}
	var matches []string
	for _, t := range a.store.Todos() {
		if t.ID == prefix {
			return t.ID, nil
		}
		if strings.HasPrefix(t.ID, prefix) {
			matches = append(matches, t.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s: %w", prefix, client.ErrTodoNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("id prefix %q matches %d tasks", prefix, len(matches))
	}
}

func filtersPatch(cfg client.Config) view.FilterPatch {
	f := cfg.Filters
	return view.FilterPatch{
		Status:    &f.Status,
		Priority:  &f.Priority,
		SortBy:    &f.SortBy,
		SortOrder: &f.SortOrder,
	}
}

var errDueFormat = errors.New("due date must be YYYY-MM-DD or RFC 3339")

// parseDue accepts a bare date, read as end of day in local time, or a full
// RFC 3339 timestamp.
func parseDue(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, errDueFormat
	}
	return d.Add(24*time.Hour - time.Second), nil
}

func printTodos(out io.Writer, todos []view.Todo) {
	if len(todos) == 0 {
		fmt.Fprintln(out, "No tasks")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tDUE\tTITLE")
	for _, t := range todos {
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.Local().Format(dateLayout)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", shortID(t.ID), t.Status, t.Priority, due, t.Title)
	}
	w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/groupthink/groupthink/internal/storage"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List and manage tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your tasks",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := mustOpenStore(ctx)
		defer store.Close()

		tasks, err := store.ListOwnerTasks(ctx, ownerID())
		if err != nil {
			fatalf("%v", err)
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		if len(tasks) == 0 {
			fmt.Println("No tasks.")
			return
		}
		for _, t := range tasks {
			group := ""
			if t.Grouped() {
				group = gray("  [group " + *t.GroupID + "]")
			}
			fmt.Printf("%s  %s%s\n", cyan(t.ID), truncateText(t.Description, 70), group)
		}
	},
}

var tasksShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show a task and its latest detection run",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := mustOpenStore(ctx)
		defer store.Close()

		task, err := store.GetTask(ctx, args[0])
		if err != nil {
			fatalf("%v", err)
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("%s  %s\n", cyan(task.ID), task.Description)
		if task.Grouped() {
			fmt.Printf("  group:   %s\n", *task.GroupID)
		}
		fmt.Printf("  created: %s\n", gray(task.CreatedAt.Format("2006-01-02 15:04:05")))

		det, err := store.GetDetectionByTask(ctx, task.ID)
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Println("  no detection runs")
			return
		}
		if err != nil {
			fatalf("%v", err)
		}
		printDetectionOutcome(det)
	},
}

var tasksEditCmd = &cobra.Command{
	Use:   "edit <task-id> <description>",
	Short: "Rewrite a task's description",
	Long: `Rewrite a task's description. The stored embedding is invalidated, so the
next detection involving this task recomputes it from the new text.`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := mustOpenStore(ctx)
		defer store.Close()

		description := strings.Join(args[1:], " ")
		if err := store.UpdateTaskDescription(ctx, args[0], description); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s Updated\n", color.New(color.FgGreen).Sprint("✓"))
	},
}

var tasksRmCmd = &cobra.Command{
	Use:   "rm <task-id>",
	Short: "Delete a task",
	Long: `Delete a task. It leaves its group (the group is deleted if this empties
it) and any in-flight detection for it aborts rather than grouping a ghost.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := mustOpenStore(ctx)
		defer store.Close()

		if err := store.DeleteTask(ctx, args[0]); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s Deleted\n", color.New(color.FgGreen).Sprint("✓"))
	},
}

func init() {
	rootCmd.AddCommand(tasksCmd)
	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksShowCmd)
	tasksCmd.AddCommand(tasksEditCmd)
	tasksCmd.AddCommand(tasksRmCmd)
}

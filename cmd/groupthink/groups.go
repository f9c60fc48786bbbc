package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/groupthink/groupthink/internal/ai"
	"github.com/groupthink/groupthink/internal/grouping"
	"github.com/groupthink/groupthink/internal/storage"
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List and manage duplicate groups",
}

var groupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your groups",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := mustOpenStore(ctx)
		defer store.Close()

		groups, err := store.ListOwnerGroups(ctx, ownerID())
		if err != nil {
			fatalf("%v", err)
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		if len(groups) == 0 {
			fmt.Println("No groups.")
			return
		}
		for _, g := range groups {
			members, err := store.GetGroupMembers(ctx, g.ID)
			if err != nil {
				fatalf("%v", err)
			}
			fmt.Printf("%s  %s %s\n", cyan(g.ID), g.Name, gray(fmt.Sprintf("(%d tasks)", len(members))))
		}
	},
}

var groupsShowCmd = &cobra.Command{
	Use:   "show <group-id>",
	Short: "Show a group and its members",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := mustOpenStore(ctx)
		defer store.Close()

		group, err := store.GetGroup(ctx, args[0])
		if err != nil {
			fatalf("%v", err)
		}
		members, err := store.GetGroupMembers(ctx, group.ID)
		if err != nil {
			fatalf("%v", err)
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("%s  %s\n\n", cyan(group.ID), group.Name)
		for _, t := range members {
			fmt.Printf("  %s  %s\n", t.ID, truncateText(t.Description, 70))
		}
	},
}

var groupsMergeCmd = &cobra.Command{
	Use:   "merge <target-group-id> <group-id>...",
	Short: "Merge groups into the target group",
	Long: `Merge two or more groups: all members move to the target group and the
other groups are deleted. Sources that no longer exist are skipped, so a
retried merge converges.`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := mustOpenStore(ctx)
		defer store.Close()

		if err := newGroupManager(store).Merge(ctx, args, args[0], actorFlagValue()); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s Merged %d group(s) into %s\n",
			color.New(color.FgGreen).Sprint("✓"), len(args)-1, args[0])
	},
}

var groupsRenameCmd = &cobra.Command{
	Use:   "rename <group-id> <name>",
	Short: "Rename a group",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := mustOpenStore(ctx)
		defer store.Close()

		if err := newGroupManager(store).Rename(ctx, args[0], args[1], actorFlagValue()); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s Renamed\n", color.New(color.FgGreen).Sprint("✓"))
	},
}

var groupsRemoveCmd = &cobra.Command{
	Use:   "remove <task-id>",
	Short: "Take a task out of its group",
	Long: `Remove a task from whatever group it is in. A group left empty by the
removal is deleted automatically. Removing an ungrouped task is a no-op.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := mustOpenStore(ctx)
		defer store.Close()

		if err := newGroupManager(store).Remove(ctx, args[0], actorFlagValue()); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s Removed from group\n", color.New(color.FgGreen).Sprint("✓"))
	},
}

func mustOpenStore(ctx context.Context) storage.Storage {
	cfg, err := loadConfig()
	if err != nil {
		fatalf("%v", err)
	}
	store, err := openStore(ctx, cfg.DBPath)
	if err != nil {
		fatalf("%v", err)
	}
	return store
}

// newGroupManager builds a manager for manual group commands. The namer is
// deliberately off here; manual operations keep their explicit names.
func newGroupManager(store storage.Storage) *grouping.Manager {
	return grouping.NewManager(store, (*ai.Namer)(nil))
}

func actorFlagValue() string {
	return "user"
}

func init() {
	rootCmd.AddCommand(groupsCmd)
	groupsCmd.AddCommand(groupsListCmd)
	groupsCmd.AddCommand(groupsShowCmd)
	groupsCmd.AddCommand(groupsMergeCmd)
	groupsCmd.AddCommand(groupsRenameCmd)
	groupsCmd.AddCommand(groupsRemoveCmd)
}

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"teampulse/internal/alerts"
	"teampulse/internal/app"
	"teampulse/internal/config"
	"teampulse/internal/db"
	"teampulse/internal/domain"
	"teampulse/internal/engine"
	"teampulse/internal/migrate"
	"teampulse/internal/notify"
	"teampulse/internal/repo"
	"teampulse/internal/server"
	"teampulse/internal/snapshot"
)

var rootCmd = &cobra.Command{
	Use:   "tp",
	Short: "Teampulse CLI",
	Long: `Teampulse tracks team work and keeps an eye on deadlines and capacity.
Concepts:
- Workspace: your .teampulse directory with only the database; org configs live in the DB and are imported explicitly.
- Org: one organization owning tasks, members, and the event log.
- Tasks: work items flowing todo -> in_progress -> complete, soft-deleted and archived rather than destroyed.
- Assignments: invitations between a task and a person; pending until accepted, declined with a reason, reassignable.
- Members: declared working hours per weekday, feeding the workload model.
- Snapshot: the computed risk and workload picture ('tp snapshot').
- Alerts: the snapshot condensed into a feed ('tp alerts').
- Event log: diary of changes, view with 'tp log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TEAMPULSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("user-id", "local-user", "acting user identifier")
	rootCmd.PersistentFlags().String("org", "", "org id (overrides the workspace default)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("user-id", rootCmd.PersistentFlags().Lookup("user-id"))
	_ = viper.BindPFlag("org", rootCmd.PersistentFlags().Lookup("org"))
}

func registerCommands() {
	rootCmd.AddCommand(orgCmd())
	rootCmd.AddCommand(memberCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(boardCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(snapshotCmd())
	rootCmd.AddCommand(alertsCmd())
	rootCmd.AddCommand(notificationsCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(adminCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(serveCmd())
}

func orgCmd() *cobra.Command {
	org := &cobra.Command{Use: "org", Short: "Manage organizations"}
	org.AddCommand(orgListCmd())
	org.AddCommand(orgCreateCmd())
	org.AddCommand(orgShowCmd())
	org.AddCommand(orgUseCmd())
	org.AddCommand(orgConfigCmd())
	return org
}

func orgListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List organizations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListOrgs(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func orgCreateCmd() *cobra.Command {
	var id, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name required")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				e := engine.New(r.DB, nil)
				org, err := e.CreateOrg(ctx, engine.CreateOrgInput{ID: id, Name: name})
				if err != nil {
					return err
				}
				return printJSONOrTable(org)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "org id (optional, UUID if omitted)")
	cmd.Flags().StringVar(&name, "name", "", "org name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func orgShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the active organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, orgID string, _ *config.Config) error {
				org, err := e.Repo.GetOrg(ctx, orgID)
				if err != nil {
					return err
				}
				return printJSONOrTable(org)
			})
		},
	}
}

func orgUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <id>",
		Short: "Set the default org for this workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orgID := strings.TrimSpace(args[0])
			if orgID == "" {
				return fmt.Errorf("org id is required")
			}
			workspace := viper.GetString("workspace")
			if err := setEnvValue(filepath.Join(workspace, ".env"), "TEAMPULSE_ORG", orgID); err != nil {
				return err
			}
			fmt.Printf("Set TEAMPULSE_ORG=%s in %s/.env\n", orgID, workspace)
			return nil
		},
	}
}

func orgConfigCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage org config"}
	cfg.AddCommand(orgConfigShowCmd())
	cfg.AddCommand(orgConfigImportCmd())
	cfg.AddCommand(orgConfigInitCmd())
	return cfg
}

func orgConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the org config stored in the DB",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, orgID string, cfg *config.Config) error {
				return printJSONOrTable(cfg)
			})
		},
	}
}

func orgConfigImportCmd() *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import org config from YAML into the DB",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromFile(filePath)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, orgID string, _ *config.Config) error {
				if cfg.Org.ID != "" {
					orgID = cfg.Org.ID
				}
				if err := e.Repo.UpsertOrgConfig(ctx, orgID, cfg); err != nil {
					return err
				}
				return printJSONOrTable(cfg)
			})
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path to YAML config")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func orgConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default teampulse.yml into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			orgID := viper.GetString("org")
			if orgID == "" {
				orgID = "default-org"
			}
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(orgID)), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
}

func memberCmd() *cobra.Command {
	member := &cobra.Command{
		Use:   "member",
		Short: "Manage members and their weekly capacity",
	}
	member.AddCommand(memberSetCmd())
	member.AddCommand(memberListCmd())
	member.AddCommand(memberRemoveCmd())
	return member
}

func memberSetCmd() *cobra.Command {
	var in engine.MemberInput
	var hours [7]int
	days := []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}
	cmd := &cobra.Command{
		Use:   "set <user-id>",
		Short: "Create or update a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.UserID = args[0]
			targets := []**int{
				&in.HoursMon, &in.HoursTue, &in.HoursWed, &in.HoursThu,
				&in.HoursFri, &in.HoursSat, &in.HoursSun,
			}
			for i, day := range days {
				if cmd.Flags().Changed("hours-" + day) {
					*targets[i] = &hours[i]
				}
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, orgID string, _ *config.Config) error {
				m, err := e.UpsertMember(ctx, orgID, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().StringVar(&in.DisplayName, "name", "", "display name")
	cmd.Flags().StringVar(&in.Role, "role", "", "role label")
	for i, day := range days {
		cmd.Flags().IntVar(&hours[i], "hours-"+day, 0, "declared hours for "+day)
	}
	return cmd
}

func memberListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List members",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, orgID string, _ *config.Config) error {
				items, err := e.Repo.ListMembers(ctx, orgID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"User", "Name", "Role", "Weekly hours"})
				for _, m := range items {
					tw.AppendRow(table.Row{m.UserID, m.DisplayName, m.Role, m.WeeklyHours()})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func memberRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <user-id>",
		Short: "Remove a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, orgID string, _ *config.Config) error {
				return e.RemoveMember(ctx, orgID, args[0])
			})
		},
	}
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks and assignments",
		Long:  "Tasks flow todo -> in_progress -> complete. Publishing a task invites assignees; each invitation stays pending until the person accepts it or declines it with a reason.",
	}
	task.AddCommand(taskCreateCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskGetCmd())
	task.AddCommand(taskUpdateCmd())
	task.AddCommand(taskDeleteCmd())
	task.AddCommand(taskPublishCmd())
	task.AddCommand(taskAcceptCmd())
	task.AddCommand(taskDeclineCmd())
	task.AddCommand(taskReassignCmd())
	task.AddCommand(taskUnassignCmd())
	task.AddCommand(taskAssignmentsCmd())
	task.AddCommand(taskInboxCmd())
	return task
}

func taskCreateCmd() *cobra.Command {
	var in engine.CreateTaskInput
	var projectID, dueDate string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.CreatorID = viper.GetString("user-id")
			if projectID != "" {
				in.ProjectID = &projectID
			}
			if dueDate != "" {
				due, err := parseDue(dueDate)
				if err != nil {
					return err
				}
				in.DueDate = &due
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, orgID string, _ *config.Config) error {
				in.OrgID = orgID
				t, err := e.CreateTask(ctx, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "title")
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.Flags().StringVar(&in.Priority, "priority", "medium", "priority (high, medium, low)")
	cmd.Flags().StringVar(&in.Category, "category", "", "category kind")
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	cmd.Flags().StringVar(&dueDate, "due", "", "due date (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().BoolVar(&in.Draft, "draft", false, "create as draft")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	var f repo.TaskFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, orgID string, _ *config.Config) error {
				f.OrgID = orgID
				tasks, err := e.Repo.ListTasks(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "Assignee", "Due"})
				for _, t := range tasks {
					assignee := ""
					if t.AssigneeID != nil {
						assignee = *t.AssigneeID
					}
					due := ""
					if t.DueDate != nil {
						due = *t.DueDate
					}
					tw.AppendRow(table.Row{t.ID, t.Title, t.Status, t.Priority, assignee, due})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.Priority, "priority", "", "priority filter")
	cmd.Flags().StringVar(&f.Category, "category", "", "category filter")
	cmd.Flags().StringVar(&f.AssigneeID, "assignee-id", "", "assignee filter")
	cmd.Flags().BoolVar(&f.IncludeDrafts, "drafts", false, "include drafts")
	cmd.Flags().BoolVar(&f.IncludeArchived, "archived", false, "include archived")
	return cmd
}

func taskGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, _ string, _ *config.Config) error {
				t, err := e.Repo.GetTask(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskUpdateCmd() *cobra.Command {
	var title, description, status, priority, category, due string
	var clearDue bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in engine.UpdateTaskInput
			if cmd.Flags().Changed("title") {
				in.Title = &title
			}
			if cmd.Flags().Changed("description") {
				in.Description = &description
			}
			if cmd.Flags().Changed("status") {
				in.Status = &status
			}
			if cmd.Flags().Changed("priority") {
				in.Priority = &priority
			}
			if cmd.Flags().Changed("category") {
				in.Category = &category
			}
			if clearDue {
				in.ClearDue = true
			} else if cmd.Flags().Changed("due") {
				parsed, err := parseDue(due)
				if err != nil {
					return err
				}
				in.DueDate = &parsed
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, _ string, _ *config.Config) error {
				t, err := e.UpdateTask(ctx, args[0], in, viper.GetString("user-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().StringVar(&priority, "priority", "", "priority (high, medium, low)")
	cmd.Flags().StringVar(&category, "category", "", "category kind")
	cmd.Flags().StringVar(&due, "due", "", "due date (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "remove the due date")
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Soft-delete task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, _ string, _ *config.Config) error {
				return e.DeleteTask(ctx, args[0], viper.GetString("user-id"))
			})
		},
	}
}

func taskPublishCmd() *cobra.Command {
	var assignees []string
	cmd := &cobra.Command{
		Use:   "publish <id>",
		Short: "Publish a task and invite assignees",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, _ string, _ *config.Config) error {
				t, err := e.Publish(ctx, args[0], assignees, viper.GetString("user-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringArrayVar(&assignees, "assignee", []string{}, "assignee user id (repeatable)")
	return cmd
}

func taskAcceptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept <id>",
		Short: "Accept your assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, _ string, _ *config.Config) error {
				a, err := e.Accept(ctx, args[0], viper.GetString("user-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
}

func taskDeclineCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "decline <id>",
		Short: "Decline your assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, _ string, _ *config.Config) error {
				return e.Decline(ctx, args[0], viper.GetString("user-id"), reason)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why you are declining")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func taskReassignCmd() *cobra.Command {
	var from, to, reason string
	cmd := &cobra.Command{
		Use:   "reassign <id>",
		Short: "Move an invitation to another person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, _ string, _ *config.Config) error {
				a, err := e.Reassign(ctx, args[0], from, to, reason, viper.GetString("user-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "current invitee (empty clears the primary assignee)")
	cmd.Flags().StringVar(&to, "to", "", "new invitee")
	cmd.Flags().StringVar(&reason, "reason", "", "reason for the change")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func taskUnassignCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "unassign <id>",
		Short: "Remove an assignee from a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, _ string, _ *config.Config) error {
				target := userID
				if target == "" {
					target = viper.GetString("user-id")
				}
				return e.Unassign(ctx, args[0], target, viper.GetString("user-id"))
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user to remove (defaults to yourself)")
	return cmd
}

func taskAssignmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assignments <id>",
		Short: "Show a task's assignment edges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, _ string, _ *config.Config) error {
				items, err := e.Repo.ListAssignmentsByTask(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func taskInboxCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Your assignment invitations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, _ string, _ *config.Config) error {
				items, err := e.Repo.ListAssignmentsByUser(ctx, viper.GetString("user-id"), status)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "pending", "status filter (empty for all)")
	return cmd
}

func boardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Tasks visible to you",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, orgID string, _ *config.Config) error {
				tasks, err := e.Repo.VisibleTasks(ctx, orgID, viper.GetString("user-id"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "Due"})
				for _, t := range tasks {
					due := ""
					if t.DueDate != nil {
						due = *t.DueDate
					}
					tw.AppendRow(table.Row{t.ID, t.Title, t.Status, t.Priority, due})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show org status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, orgID string, _ *config.Config) error {
				org, err := e.Repo.GetOrg(ctx, orgID)
				if err != nil {
					return err
				}
				counts, err := e.Repo.CountTasksByStatus(ctx, orgID)
				if err != nil {
					return err
				}
				out := map[string]any{
					"org_id":      org.ID,
					"status":      org.Status,
					"task_counts": counts,
				}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				fmt.Printf("Org: %s (%s)\n", org.ID, org.Status)
				fmt.Println("Tasks:")
				for status, c := range counts {
					fmt.Printf("  %s: %d\n", status, c)
				}
				return nil
			})
		},
	}
}

func snapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Compute the workload and risk snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, orgID string, _ *config.Config) error {
				snap := e.ComputeSnapshot(ctx, orgID)
				if viper.GetBool("json") {
					return printJSON(snap)
				}
				fmt.Printf("Snapshot at %s (avg completion %.1f days)\n", snap.TakenAt.Format(time.RFC3339), snap.AvgCompletionDays)
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Risk", "Title", "Status", "Priority", "Due in", "Reason"})
				for _, t := range snap.Tasks {
					dueIn := ""
					if t.DaysUntilDue != nil {
						dueIn = fmt.Sprintf("%dd", *t.DaysUntilDue)
					}
					tw.AppendRow(table.Row{t.Risk, t.Title, t.Status, t.Priority, dueIn, t.Reason})
				}
				tw.Render()
				lw := table.NewWriter()
				lw.SetOutputMirror(os.Stdout)
				lw.AppendHeader(table.Row{"Member", "Hours/wk", "Active", "High", "Overdue", "Done", "Load"})
				for _, w := range snap.Workloads {
					lw.AppendRow(table.Row{w.DisplayName, w.WeeklyHours, w.ActiveTasks, w.HighPriorityTasks, w.OverdueTasks, w.CompletedTasks, fmt.Sprintf("%d%%", w.WorkloadPercent)})
				}
				lw.Render()
				fmt.Printf("%d members, avg workload %d%% (%d at capacity, %d near, %d under)\n",
					snap.Summary.MemberCount, snap.Summary.AvgWorkload,
					snap.Summary.AtCapacity, snap.Summary.NearCapacity, snap.Summary.UnderCapacity)
				return nil
			})
		},
	}
}

func alertsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "Alert feed from the current snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, orgID string, _ *config.Config) error {
				feed := alerts.Generate(e.ComputeSnapshot(ctx, orgID))
				if viper.GetBool("json") {
					return printJSON(feed)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Category", "Severity", "Title", "Message"})
				for _, a := range feed {
					tw.AppendRow(table.Row{a.Category, a.Severity, a.Title, a.Message})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func notificationsCmd() *cobra.Command {
	var unread bool
	var readID int64
	var readAll bool
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List or acknowledge your notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, orgID string, _ *config.Config) error {
				userID := viper.GetString("user-id")
				if readAll {
					n, err := e.Repo.MarkAllNotificationsRead(ctx, orgID, userID)
					if err != nil {
						return err
					}
					fmt.Printf("Marked %d notification(s) read\n", n)
					return nil
				}
				if readID > 0 {
					return e.Repo.MarkNotificationRead(ctx, orgID, userID, readID)
				}
				items, err := e.Repo.ListNotifications(ctx, orgID, userID, unread, 50)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "unread only")
	cmd.Flags().Int64Var(&readID, "read", 0, "mark one notification read")
	cmd.Flags().BoolVar(&readAll, "read-all", false, "mark all notifications read")
	return cmd
}

func logCmd() *cobra.Command {
	logRoot := &cobra.Command{Use: "log", Short: "Event log"}
	logRoot.AddCommand(logTailCmd())
	return logRoot
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, orgID string, _ *config.Config) error {
				events, err := e.Repo.LatestEvents(ctx, n, orgID, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func adminCmd() *cobra.Command {
	admin := &cobra.Command{Use: "admin", Short: "Workspace maintenance"}
	admin.AddCommand(adminArchiveCmd())
	admin.AddCommand(adminPurgeCmd())
	return admin
}

func adminArchiveCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Archive completed tasks older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, orgID string, _ *config.Config) error {
				n, err := e.ArchiveCompleted(ctx, orgID, time.Duration(days)*24*time.Hour)
				if err != nil {
					return err
				}
				fmt.Printf("Archived %d task(s)\n", n)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "older-than-days", 30, "archive completed tasks older than this")
	return cmd
}

func adminPurgeCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Hard-delete soft-deleted tasks past the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, orgID string, _ *config.Config) error {
				n, err := e.PurgeDeleted(ctx, orgID, time.Duration(days)*24*time.Hour)
				if err != nil {
					return err
				}
				fmt.Printf("Purged %d task(s)\n", n)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "older-than-days", 30, "purge tasks deleted more than this many days ago")
	return cmd
}

func apikeyCmd() *cobra.Command {
	key := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	key.AddCommand(apikeyCreateCmd())
	key.AddCommand(apikeyListCmd())
	key.AddCommand(apikeyDeleteCmd())
	return key
}

func apikeyCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key for the acting user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				raw := uuid.NewString() + uuid.NewString()
				k := domain.APIKey{
					ID:        uuid.NewString(),
					UserID:    viper.GetString("user-id"),
					Name:      name,
					KeyHash:   repo.HashAPIKey(raw),
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := r.InsertAPIKey(ctx, k); err != nil {
					return err
				}
				fmt.Printf("API key (store it now, it is not recoverable): %s\n", raw)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "key label")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListAPIKeys(ctx, viper.GetString("user-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func apikeyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteAPIKey(ctx, args[0])
			})
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var allowLegacy bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			orgID, cfg, err := app.ResolveOrgAndConfig(cmd.Context(), viper.GetString("org"), viper.GetString("user-id"), r)
			if err != nil {
				return err
			}
			e := engine.New(conn, nil)
			cache := snapshot.NewCache(e.ComputeSnapshot, nil)
			e.OnMutate = cache.Invalidate
			authCfg := server.AuthConfig{
				JWTSecret:             os.Getenv("TEAMPULSE_JWT_SECRET"),
				AllowLegacyUserHeader: allowLegacy,
			}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("TEAMPULSE_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: e, Cache: cache, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}

			refresh := time.Duration(cfg.Snapshot.RefreshSeconds) * time.Second
			go cache.Run(cmd.Context(), refresh)
			dispatcher := &notify.Dispatcher{Repo: r}
			go dispatcher.Run(cmd.Context())

			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Teampulse API for org %s on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", orgID, addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&allowLegacy, "allow-legacy-user-header", false, "accept the deprecated X-User-Id header when no credentials are sent")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine, string, *config.Config) error) error {
	return withRepo(ctx, func(ctx context.Context, r repo.Repo) error {
		orgID, cfg, err := app.ResolveOrgAndConfig(ctx, viper.GetString("org"), viper.GetString("user-id"), r)
		if err != nil {
			return err
		}
		e := engine.New(r.DB, nil)
		return fn(ctx, e, orgID, cfg)
	})
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseDue(s string) (string, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(time.RFC3339), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		// End of day so "due today" stays actionable until midnight.
		return t.Add(23*time.Hour + 59*time.Minute).UTC().Format(time.RFC3339), nil
	}
	return "", fmt.Errorf("invalid due date %q: use RFC3339 or YYYY-MM-DD", s)
}

func setEnvValue(path, key, value string) error {
	var lines []string
	seen := false
	f, err := os.Open(path)
	if err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, key+"=") {
				lines = append(lines, fmt.Sprintf("%s=%s", key, value))
				seen = true
			} else {
				lines = append(lines, line)
			}
		}
		if err := scanner.Err(); err != nil {
			f.Close()
			return err
		}
		f.Close()
	} else if !os.IsNotExist(err) {
		return err
	}
	if !seen {
		lines = append(lines, fmt.Sprintf("%s=%s", key, value))
	}
	content := strings.Join(lines, "\n")
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

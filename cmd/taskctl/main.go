package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Anning01/playlet-clip/internal/config"
	"github.com/Anning01/playlet-clip/internal/database"
	"github.com/Anning01/playlet-clip/internal/queue"
	"github.com/Anning01/playlet-clip/pkg/models"
)

const usage = `taskctl manages clip tasks directly in the database.

Usage:
  taskctl [flags] <command> [args]

Commands:
  list [-status s] [-limit n]   list tasks, newest first
  failed                        list failed tasks
  stats                         count tasks per status
  reset                         reset all failed tasks to pending and republish them
  requeue [-limit n]            move dead-lettered messages back onto the task queue
  set <status> [id...]          set task status; without ids, applies to all failed tasks
  delete <id>                   delete a task
  purge-failed                  delete all failed tasks

Flags:
`

func main() {
	configPath := flag.String("config", "", "path to config file (defaults to $CONFIG_PATH or config.yaml)")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	path := *configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, repo, cfg, args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, repo *database.Repository, cfg *config.Config, args []string) error {
	switch args[0] {
	case "list":
		return listCmd(ctx, repo, args[1:])
	case "failed":
		return printTasks(ctx, repo, models.StatusFailed, 1000)
	case "stats":
		return statsCmd(ctx, repo)
	case "reset":
		return resetCmd(ctx, repo, cfg)
	case "requeue":
		return requeueCmd(ctx, cfg, args[1:])
	case "set":
		return setCmd(ctx, repo, args[1:])
	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("usage: taskctl delete <id>")
		}
		if err := repo.DeleteTask(ctx, args[1]); err != nil {
			return err
		}
		fmt.Printf("Task %s deleted.\n", args[1])
		return nil
	case "purge-failed":
		count, err := repo.DeleteFailed(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d failed tasks.\n", count)
		return nil
	default:
		return fmt.Errorf("unknown command %q, run taskctl -h for usage", args[0])
	}
}

// resetCmd flips failed tasks back to pending and publishes each one
// onto the task queue; the original messages are sitting dead-lettered
// and will not be redelivered.
func resetCmd(ctx context.Context, repo *database.Repository, cfg *config.Config) error {
	tasks, err := repo.ResetFailed(ctx)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("No failed tasks found.")
		return nil
	}

	q, err := queue.New(cfg.Queue, nil)
	if err != nil {
		return fmt.Errorf("tasks reset but not published, run taskctl requeue after the broker is back: %w", err)
	}
	defer q.Close()

	published := 0
	for _, task := range tasks {
		if err := q.PublishTask(ctx, task); err != nil {
			fmt.Printf("Task %s: %v\n", task.ID, err)
			continue
		}
		published++
	}
	fmt.Printf("Reset %d failed tasks to pending, republished %d.\n", len(tasks), published)
	return nil
}

// requeueCmd moves dead-lettered messages back onto the task queue
// without touching the database, for tasks an operator already reset
// by hand.
func requeueCmd(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("requeue", flag.ExitOnError)
	limit := fs.Int("limit", 0, "maximum messages to requeue, 0 means all")
	if err := fs.Parse(args); err != nil {
		return err
	}

	q, err := queue.New(cfg.Queue, nil)
	if err != nil {
		return err
	}
	defer q.Close()

	depth, err := q.FailedDepth()
	if err != nil {
		return err
	}
	if depth == 0 {
		fmt.Println("Failed queue is empty.")
		return nil
	}

	count, err := q.RequeueFailed(ctx, *limit)
	if err != nil {
		return err
	}
	fmt.Printf("Requeued %d of %d dead-lettered tasks.\n", count, depth)
	return nil
}

func listCmd(ctx context.Context, repo *database.Repository, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	status := fs.String("status", "", "filter by status")
	limit := fs.Int("limit", 50, "maximum tasks to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var filter models.TaskStatus
	if *status != "" {
		parsed, err := models.ParseTaskStatus(*status)
		if err != nil {
			return err
		}
		filter = parsed
	}

	return printTasks(ctx, repo, filter, *limit)
}

func printTasks(ctx context.Context, repo *database.Repository, status models.TaskStatus, limit int) error {
	tasks, err := repo.ListTasks(ctx, status, limit, 0)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSTYLE\tVIDEO\tWORKER\tUPDATED\tERROR")
	for _, task := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			task.ID, task.Status, task.Style, task.VideoPath, task.WorkerID,
			task.UpdatedAt.Format("2006-01-02 15:04"), truncate(task.ErrorMsg, 60))
	}
	return w.Flush()
}

func statsCmd(ctx context.Context, repo *database.Repository) error {
	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tCOUNT")
	total := 0
	for _, status := range models.TaskStatuses {
		fmt.Fprintf(w, "%s\t%d\n", status, counts[status])
		total += counts[status]
	}
	fmt.Fprintf(w, "total\t%d\n", total)
	return w.Flush()
}

// setCmd updates task statuses. Without explicit ids it targets every
// failed task, which is the common case after fixing a broken external
// service.
func setCmd(ctx context.Context, repo *database.Repository, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: taskctl set <status> [id...]")
	}

	status, err := models.ParseTaskStatus(args[0])
	if err != nil {
		return err
	}

	ids := args[1:]
	if len(ids) == 0 {
		failed, err := repo.ListTasks(ctx, models.StatusFailed, 1000, 0)
		if err != nil {
			return err
		}
		for _, task := range failed {
			ids = append(ids, task.ID)
		}
		if len(ids) == 0 {
			fmt.Println("No failed tasks found.")
			return nil
		}
	}

	for _, id := range ids {
		if err := repo.UpdateTaskStatus(ctx, id, status, "", ""); err != nil {
			fmt.Printf("Task %s: %v\n", id, err)
			continue
		}
		fmt.Printf("Task %s set to %s.\n", id, status)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

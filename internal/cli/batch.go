package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tkc/boardctl/internal/domain"
	"github.com/tkc/boardctl/internal/notify"
)

var (
	batchParallel int
	batchNotify   bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Apply an operation to many tasks",
	Long: `Apply an operation to many tasks.

Tasks are processed one at a time unless --parallel is given. Every request
still passes through the global concurrency limit. A failure on one task does
not stop the others.`,
}

// batchItem は1件分の実行結果
type batchItem struct {
	TaskID string
	Task   *domain.Task
	Err    error
}

// runBatch はidsに対してfnを最大parallel件ずつ実行する
// 結果はidsと同じ順序で返す
func runBatch(ctx context.Context, l log.FieldLogger, op string, ids []string, parallel int, fn func(context.Context, string) (*domain.Task, error)) ([]batchItem, notify.BatchResult) {
	if parallel < 1 {
		parallel = 1
	}
	batchLog := l.WithFields(log.Fields{"batch_id": uuid.NewString(), "operation": op})
	batchLog.WithField("tasks", len(ids)).Debug("batch started")

	start := time.Now()
	items := make([]batchItem, len(ids))
	var g errgroup.Group
	g.SetLimit(parallel)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			task, err := fn(ctx, id)
			items[i] = batchItem{TaskID: id, Task: task, Err: err}
			entry := batchLog.WithField("task", id)
			if err != nil {
				entry.WithError(err).Warn("batch item failed")
			} else {
				entry.Debug("batch item done")
			}
			return nil
		})
	}
	_ = g.Wait()

	result := notify.BatchResult{Operation: op, Duration: time.Since(start)}
	for _, it := range items {
		if it.Err != nil {
			result.Failed++
			if result.FirstErr == nil {
				result.FirstErr = it.Err
			}
			continue
		}
		result.Succeeded++
	}
	batchLog.WithFields(log.Fields{
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"duration":  result.Duration,
	}).Info("batch finished")
	return items, result
}

func printBatch(items []batchItem, result notify.BatchResult) error {
	for _, it := range items {
		if it.Err != nil {
			fmt.Printf("  ❌ %s: %v\n", it.TaskID, it.Err)
			continue
		}
		fmt.Printf("  ✅ %s %s %s\n", it.TaskID, statusIcon(it.Task.Status), truncate(it.Task.Title, 50))
	}
	fmt.Println()
	fmt.Printf("%d succeeded, %d failed (%.1fs)\n", result.Succeeded, result.Failed, result.Duration.Seconds())

	if batchNotify {
		if err := notify.SendBatchResult(result); err != nil {
			logger.WithError(err).Debug("notification failed")
		}
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d tasks failed", result.Failed, len(items))
	}
	return nil
}

func resolveTaskIDs(s *session, refs []string) ([]string, error) {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		id, err := s.taskID(ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

var batchMoveCmd = &cobra.Command{
	Use:   "move <column> <task-id>...",
	Short: "Move tasks to a column",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(true)
		if err != nil {
			return err
		}
		col, err := s.resolveColumn(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		ids, err := resolveTaskIDs(s, args[1:])
		if err != nil {
			return err
		}

		fmt.Printf("▶  Moving %d tasks to %s\n", len(ids), col.Name)
		items, result := runBatch(cmd.Context(), logger, "move", ids, batchParallel, func(ctx context.Context, id string) (*domain.Task, error) {
			return s.provider.MoveTask(ctx, id, col.ID)
		})
		return printBatch(items, result)
	},
}

var batchArchiveCmd = &cobra.Command{
	Use:   "archive <task-id>...",
	Short: "Archive tasks",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(true)
		if err != nil {
			return err
		}
		ids, err := resolveTaskIDs(s, args)
		if err != nil {
			return err
		}

		fmt.Printf("▶  Archiving %d tasks\n", len(ids))
		items, result := runBatch(cmd.Context(), logger, "archive", ids, batchParallel, s.provider.ArchiveTask)
		return printBatch(items, result)
	},
}

func init() {
	batchCmd.PersistentFlags().IntVar(&batchParallel, "parallel", 1, "number of tasks processed at once")
	batchCmd.PersistentFlags().BoolVar(&batchNotify, "notify", false, "show a desktop notification when done (macOS)")

	batchCmd.AddCommand(batchMoveCmd)
	batchCmd.AddCommand(batchArchiveCmd)
}

package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/Sketles/Takopi-sub003/internal/adapter/repo"
	"github.com/Sketles/Takopi-sub003/internal/domain"
	"github.com/Sketles/Takopi-sub003/internal/generation"
)

// TasksListAction prints an owner's tasks.
func TasksListAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	limit := cmd.Int("limit")
	if limit <= 0 || limit > generation.MaxListLimit {
		limit = generation.MaxListLimit
	}
	tasks, err := repo.NewTaskRepository(appCtx.SQL).ListByOwner(ctx, cmd.String("owner"), limit)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Fprintln(cmd.Root().Writer, "no tasks")
		return nil
	}
	return renderTasks(cmd.Root().Writer, tasks)
}

func renderTasks(w io.Writer, tasks []domain.GenerationTask) error {
	table := tablewriter.NewWriter(w)
	table.Header("Task ID", "Type", "Status", "Progress", "Credits", "Created At", "Result")
	for _, t := range tasks {
		result := domain.StringValue(t.ModelURL)
		if t.Status == domain.TaskStatusFailed {
			result = domain.StringValue(t.ErrorMessage)
		}
		if err := table.Append(
			t.TaskID,
			string(t.TaskType),
			string(t.Status),
			strconv.Itoa(t.Progress)+"%",
			strconv.Itoa(t.CreditsUsed),
			t.CreatedAt.Format(time.RFC3339),
			result,
		); err != nil {
			return err
		}
	}
	return table.Render()
}

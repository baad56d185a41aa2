package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/Sketles/Takopi-sub003/internal/sqlinline"
)

// MigrateAction applies the generation_tasks schema. It is safe to run repeatedly.
func MigrateAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if _, err := appCtx.SQL.Exec(ctx, sqlinline.SchemaGenerationTasks); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	fmt.Fprintln(cmd.Root().Writer, "schema applied")
	return nil
}

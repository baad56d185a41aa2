package commands

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"

	"github.com/urfave/cli/v3"

	"github.com/Sketles/Takopi-sub003/internal/adapter/repo"
	"github.com/Sketles/Takopi-sub003/internal/domain"
	"github.com/Sketles/Takopi-sub003/internal/relay"
	"github.com/Sketles/Takopi-sub003/pkg/zip"
)

// AssetsBundleAction zips the model and thumbnail of a finished task.
func AssetsBundleAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	task, err := repo.NewTaskRepository(appCtx.SQL).GetByTaskID(ctx, cmd.String("task"))
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}

	outPath := cmd.String("out")
	if outPath == "" {
		outPath = task.TaskID + ".zip"
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	r := relay.New(relay.Options{AllowedHosts: appCtx.Config.AssetHostAllowlist, Logger: appCtx.Logger})
	n, err := bundleTask(ctx, r, task, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(outPath)
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "wrote %s (%d bytes of assets)\n", outPath, n)
	return nil
}

func bundleTask(ctx context.Context, r assetFetcher, task *domain.GenerationTask, w io.Writer) (int64, error) {
	if task.Status != domain.TaskStatusSucceeded {
		return 0, fmt.Errorf("task %s is %s, only SUCCEEDED tasks can be bundled", task.TaskID, task.Status)
	}
	var entries []zip.Entry
	if u := domain.StringValue(task.ModelURL); u != "" {
		entries = append(entries, relayEntry(ctx, r, "model", ".glb", u, task))
	}
	if u := domain.StringValue(task.ThumbnailURL); u != "" {
		entries = append(entries, relayEntry(ctx, r, "thumbnail", ".png", u, task))
	}
	if len(entries) == 0 {
		return 0, fmt.Errorf("task %s has no assets", task.TaskID)
	}
	return zip.Write(w, entries)
}

func relayEntry(ctx context.Context, r assetFetcher, base, fallbackExt, rawURL string, task *domain.GenerationTask) zip.Entry {
	ext := fallbackExt
	if u, err := url.Parse(rawURL); err == nil && path.Ext(u.Path) != "" {
		ext = path.Ext(u.Path)
	}
	modified := task.UpdatedAt
	if task.CompletedAt != nil {
		modified = *task.CompletedAt
	}
	return zip.Entry{
		Filename: task.TaskID + "/" + base + ext,
		Modified: modified,
		Open: func() (io.ReadCloser, error) {
			asset, err := r.Fetch(ctx, rawURL)
			if err != nil {
				return nil, err
			}
			return asset.Body, nil
		},
	}
}

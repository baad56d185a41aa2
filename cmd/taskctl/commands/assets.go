package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/Sketles/Takopi-sub003/internal/infra"
	"github.com/Sketles/Takopi-sub003/internal/relay"
	"github.com/Sketles/Takopi-sub003/internal/storage"
)

// AssetsPullAction downloads an asset through the relay allow-list into a FileStore.
func AssetsPullAction(ctx context.Context, cmd *cli.Command) error {
	loadEnv(cmd.String("env"))
	hosts := infra.AssetHostsFromEnv()
	logger := infra.NewLogger(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))

	store, err := storage.NewFileStore(cmd.String("out"))
	if err != nil {
		return err
	}
	r := relay.New(relay.Options{AllowedHosts: hosts, Logger: logger})
	return pullAsset(ctx, r, store, cmd.String("url"), cmd.Root().Writer)
}

type assetFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*relay.Asset, error)
}

func pullAsset(ctx context.Context, r assetFetcher, store *storage.FileStore, rawURL string, out io.Writer) error {
	key, err := storage.AssetKey(rawURL)
	if err != nil {
		return err
	}
	asset, err := r.Fetch(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("fetch asset: %w", err)
	}
	defer asset.Body.Close()

	key, n, err := store.Save(ctx, key, asset.Body)
	if err != nil {
		return err
	}
	full, _ := store.Path(key)
	fmt.Fprintf(out, "saved %s (%d bytes, %s)\n", full, n, asset.ContentType)
	return nil
}

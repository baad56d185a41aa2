package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/Sketles/Takopi-sub003/internal/generation"
)

// SignAction prints the signature header value for a stored payload so a callback can
// be replayed by hand.
func SignAction(ctx context.Context, cmd *cli.Command) error {
	loadEnv(cmd.String("env"))

	secret := strings.TrimSpace(cmd.String("secret"))
	if secret == "" {
		secret = firstSecret(os.Getenv("WEBHOOK_SECRET"))
	}
	if secret == "" {
		return errors.New("no secret: pass --secret or set WEBHOOK_SECRET")
	}

	body, err := readPayload(cmd.String("file"), cmd.Root().Reader)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, generation.Sign(secret, body))
	return nil
}

func firstSecret(raw string) string {
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			return part
		}
	}
	return ""
}

func readPayload(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		return io.ReadAll(stdin)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return body, nil
}

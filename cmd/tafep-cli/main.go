package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/nfrund/tafep-voice/cmd/tafep-cli/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	cmd.Execute(ctx)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"szakszon.com/holdings/cmd/holdings/commands"
)

func main() {
	ctx := context.Background()
	ctx, ctxCancel := context.WithCancel(ctx)
	defer ctxCancel()

	termCh := make(chan os.Signal, 1)
	signal.Notify(termCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-termCh
		fmt.Fprintln(os.Stderr, "Ctrl+C pressed")
		ctxCancel()
	}()

	commands.ExecuteContext(ctx)
}

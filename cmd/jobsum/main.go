// Command jobsum summarizes job descriptions with a pretrained text-to-text
// model. Run without arguments it summarizes a demo description.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/teilomillet/jobsum/internal/cli"
)

func main() {
	// A missing .env file is fine; the environment may be set already.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

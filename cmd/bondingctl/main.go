// ====================================
// File: cmd/bondingctl/main.go
// ====================================
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

const usage = `bondingctl: token bonding curve engine

Usage:
  bondingctl run   [-config file] [-export csv|json] [-metrics file] scenario.yaml...
  bondingctl quote -kind linear -base 1 -slope 0.0001 [-supply 0] [-amount 1000 | -budget 50] [-fee-bps 0]
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "run":
		err = runCommand(ctx, os.Args[2:], os.Stdout)
	case "quote":
		err = quoteCommand(os.Args[2:], os.Stdout)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("✗ "+err.Error()))
		os.Exit(1)
	}
}

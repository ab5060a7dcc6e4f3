// Command rosterctl is the operator CLI for the roster service: database
// migrations and HTTP-driven event/roster/notification administration.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/R3E-Network/service_layer/pkg/version"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	defaultAddr := getenv("ROSTER_ADDR", "http://localhost:8080")
	defaultToken := os.Getenv("ROSTER_TOKEN")

	root := flag.NewFlagSet("rosterctl", flag.ContinueOnError)
	root.SetOutput(io.Discard)
	addrFlag := root.String("addr", defaultAddr, "roster service base URL (env ROSTER_ADDR)")
	tokenFlag := root.String("token", defaultToken, "bearer token for authentication (env ROSTER_TOKEN)")
	timeoutFlag := root.Duration("timeout", 15*time.Second, "HTTP request timeout")
	showVersion := root.Bool("version", false, "print rosterctl build information and exit")
	if err := root.Parse(args); err != nil {
		return usageError(err)
	}

	remaining := root.Args()
	if *showVersion {
		fmt.Println(version.FullVersion())
		return nil
	}
	if len(remaining) == 0 {
		return usageError(errors.New("no command specified"))
	}

	// "migrate" talks to the database directly and needs no running service.
	if remaining[0] == "migrate" {
		return handleMigrate(ctx, remaining[1:])
	}

	client := newAPIClient(*addrFlag, *tokenFlag, *timeoutFlag)

	switch remaining[0] {
	case "events":
		return handleEvents(ctx, client, remaining[1:])
	case "waitlist":
		return handleWaitlist(ctx, client, remaining[1:])
	case "roster":
		return handleRoster(ctx, client, remaining[1:])
	case "draw":
		return handleDraw(ctx, client, remaining[1:])
	case "respond":
		return handleRespond(ctx, client, remaining[1:])
	case "notify":
		return handleNotify(ctx, client, remaining[1:])
	case "cascade":
		return handleCascade(ctx, client, remaining[1:])
	case "status":
		return handleStatus(ctx, client)
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		return usageError(fmt.Errorf("unknown command %q", remaining[0]))
	}
}

func usageError(err error) error {
	printRootUsage()
	return err
}

func printRootUsage() {
	fmt.Println(`rosterctl: lottery/roster service CLI

Usage:
  rosterctl [global flags] <command> [subcommand] [flags]

Global Flags:
  --addr       roster service base URL (env ROSTER_ADDR, default http://localhost:8080)
  --token      bearer token for authentication (env ROSTER_TOKEN)
  --timeout    HTTP timeout (default 15s)
  --version    print build information and exit

Commands:
  migrate      apply embedded database migrations directly (no running service needed)
  events       create, list, get, update, delete events
  waitlist     join or leave an event's waiting list
  roster       list an event's roster by kind (waiting|responsePending|inEvent|cancelled)
  draw         execute an initial or replacement lottery draw
  respond      record an entrant's accept/decline/organizer-cancel response
  notify       broadcast notifications to a recipient list or a whole roster
  cascade      delete a profile or organizer and cascade the roster state
  status       show service health and descriptors`)
}

func handleStatus(ctx context.Context, client *apiClient) error {
	health, err := client.request(ctx, "GET", "/healthz", nil)
	if err != nil {
		return err
	}
	prettyPrint(health)
	descriptors, err := client.request(ctx, "GET", "/system/descriptors", nil)
	if err != nil {
		return err
	}
	prettyPrint(descriptors)
	return nil
}

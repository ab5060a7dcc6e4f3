package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
)

func handleWaitlist(ctx context.Context, client *apiClient, args []string) error {
	if len(args) == 0 {
		fmt.Println(`Usage:
  rosterctl waitlist join --event <id> --user <id> [--now <RFC3339>]
  rosterctl waitlist leave --event <id> --user <id>`)
		return nil
	}
	sub := args[0]
	fs := flag.NewFlagSet("waitlist "+sub, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var eventID, userID, now string
	fs.StringVar(&eventID, "event", "", "event ID (required)")
	fs.StringVar(&userID, "user", "", "user ID (required)")
	fs.StringVar(&now, "now", "", "RFC3339 timestamp override")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if eventID == "" || userID == "" {
		return errors.New("--event and --user are required")
	}

	switch sub {
	case "join":
		path := "/events/" + eventID + "/waitlist"
		if now != "" {
			path += "?now=" + now
		}
		data, err := client.request(ctx, http.MethodPost, path, map[string]string{"userId": userID})
		if err != nil {
			return err
		}
		prettyPrint(data)
	case "leave":
		_, err := client.request(ctx, http.MethodDelete, "/events/"+eventID+"/waitlist/"+userID, nil)
		return err
	default:
		return fmt.Errorf("unknown waitlist subcommand %q", sub)
	}
	return nil
}

func handleRoster(ctx context.Context, client *apiClient, args []string) error {
	fs := flag.NewFlagSet("roster", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var eventID, kind string
	fs.StringVar(&eventID, "event", "", "event ID (required)")
	fs.StringVar(&kind, "kind", "waiting", "roster kind: waiting|responsePending|inEvent|cancelled")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if eventID == "" {
		return errors.New("--event is required")
	}
	data, err := client.request(ctx, http.MethodGet, "/events/"+eventID+"/roster/"+kind, nil)
	if err != nil {
		return err
	}
	prettyPrint(data)
	return nil
}

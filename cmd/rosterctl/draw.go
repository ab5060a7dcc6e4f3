package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
)

func handleDraw(ctx context.Context, client *apiClient, args []string) error {
	if len(args) == 0 {
		fmt.Println(`Usage:
  rosterctl draw run --event <id> --winners <n> [--now <RFC3339>] [--use-seed --seed <n>]
  rosterctl draw replacement --event <id> --count <n> [--now <RFC3339>] [--use-seed --seed <n>]
  rosterctl draw candidates --event <id>`)
		return nil
	}
	sub := args[0]
	fs := flag.NewFlagSet("draw "+sub, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var eventID, now string
	var winners, count int
	var seed int64
	var hasSeed bool
	fs.StringVar(&eventID, "event", "", "event ID (required)")
	fs.StringVar(&now, "now", "", "RFC3339 timestamp override")
	fs.IntVar(&winners, "winners", 0, "number of winners to draw")
	fs.IntVar(&count, "count", 0, "number of replacements to draw")
	fs.Int64Var(&seed, "seed", 0, "deterministic RNG seed (optional)")
	fs.BoolVar(&hasSeed, "use-seed", false, "apply --seed instead of a random draw")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if eventID == "" {
		return errors.New("--event is required")
	}

	var seedPtr *int64
	if hasSeed {
		seedPtr = &seed
	}

	switch sub {
	case "run":
		path := "/events/" + eventID + "/draw"
		if now != "" {
			path += "?now=" + now
		}
		body := map[string]any{"numberOfWinners": winners, "seed": seedPtr}
		data, err := client.request(ctx, http.MethodPost, path, body)
		if err != nil {
			return err
		}
		prettyPrint(data)
	case "replacement":
		path := "/events/" + eventID + "/replacement-draw"
		if now != "" {
			path += "?now=" + now
		}
		body := map[string]any{"numberOfReplacements": count, "seed": seedPtr}
		data, err := client.request(ctx, http.MethodPost, path, body)
		if err != nil {
			return err
		}
		prettyPrint(data)
	case "candidates":
		data, err := client.request(ctx, http.MethodGet, "/events/"+eventID+"/replacement-candidates", nil)
		if err != nil {
			return err
		}
		prettyPrint(data)
	default:
		return fmt.Errorf("unknown draw subcommand %q", sub)
	}
	return nil
}

func handleRespond(ctx context.Context, client *apiClient, args []string) error {
	fs := flag.NewFlagSet("respond", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var eventID, userID, action, now string
	fs.StringVar(&eventID, "event", "", "event ID (required)")
	fs.StringVar(&userID, "user", "", "user ID (required)")
	fs.StringVar(&action, "action", "", "accept|decline|organizer-cancel (required)")
	fs.StringVar(&now, "now", "", "RFC3339 timestamp override")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if eventID == "" || userID == "" || action == "" {
		return errors.New("--event, --user, and --action are required")
	}
	path := fmt.Sprintf("/events/%s/responses/%s/%s", eventID, userID, action)
	if now != "" {
		path += "?now=" + now
	}
	_, err := client.request(ctx, http.MethodPost, path, nil)
	return err
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
)

func handleNotify(ctx context.Context, client *apiClient, args []string) error {
	if len(args) == 0 {
		fmt.Println(`Usage:
  rosterctl notify broadcast --event <id> --name <eventName> --type <type> --message <text> --recipients <id1,id2,...> [--deadline <RFC3339>]
  rosterctl notify roster --event <id> --name <eventName> --kind <kind> --message <text>`)
		return nil
	}
	sub := args[0]
	fs := flag.NewFlagSet("notify "+sub, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var eventID, eventName, kind, message, recipients, notifyType, deadline, now string
	fs.StringVar(&eventID, "event", "", "event ID (required)")
	fs.StringVar(&eventName, "name", "", "event name (required)")
	fs.StringVar(&kind, "kind", "", "roster kind (roster subcommand only)")
	fs.StringVar(&message, "message", "", "notification message (required)")
	fs.StringVar(&recipients, "recipients", "", "comma-separated recipient user IDs (broadcast only)")
	fs.StringVar(&notifyType, "type", "", "notification type (broadcast only)")
	fs.StringVar(&deadline, "deadline", "", "RFC3339 response deadline (broadcast only)")
	fs.StringVar(&now, "now", "", "RFC3339 timestamp override")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if eventID == "" || eventName == "" || message == "" {
		return errors.New("--event, --name, and --message are required")
	}

	switch sub {
	case "broadcast":
		path := "/notify/broadcast"
		if now != "" {
			path += "?now=" + now
		}
		body := map[string]any{
			"eventId":      eventID,
			"eventName":    eventName,
			"recipientIds": splitCommaList(recipients),
			"type":         notifyType,
			"message":      message,
		}
		if deadline != "" {
			body["deadline"] = deadline
		}
		data, err := client.request(ctx, http.MethodPost, path, body)
		if err != nil {
			return err
		}
		prettyPrint(data)
	case "roster":
		if kind == "" {
			return errors.New("--kind is required")
		}
		path := "/notify/roster"
		if now != "" {
			path += "?now=" + now
		}
		body := map[string]any{
			"eventId":   eventID,
			"eventName": eventName,
			"kind":      kind,
			"message":   message,
		}
		data, err := client.request(ctx, http.MethodPost, path, body)
		if err != nil {
			return err
		}
		prettyPrint(data)
	default:
		return fmt.Errorf("unknown notify subcommand %q", sub)
	}
	return nil
}

func splitCommaList(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(input, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
)

func handleEvents(ctx context.Context, client *apiClient, args []string) error {
	if len(args) == 0 {
		fmt.Println(`Usage:
  rosterctl events list [--organizer <id>]
  rosterctl events entrant
  rosterctl events get --id <eventId>
  rosterctl events create --payload-file <path>
  rosterctl events update --id <eventId> --payload-file <path>
  rosterctl events delete --id <eventId>`)
		return nil
	}

	sub := args[0]
	fs := flag.NewFlagSet("events "+sub, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var id, organizer, payloadFile string
	fs.StringVar(&id, "id", "", "event ID")
	fs.StringVar(&organizer, "organizer", "", "organizer ID filter")
	fs.StringVar(&payloadFile, "payload-file", "", "path to a JSON event payload")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	switch sub {
	case "list":
		path := "/events"
		if organizer != "" {
			path += "?organizer=" + organizer
		}
		data, err := client.request(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		prettyPrint(data)
	case "entrant":
		data, err := client.request(ctx, http.MethodGet, "/events/entrant", nil)
		if err != nil {
			return err
		}
		prettyPrint(data)
	case "get":
		if id == "" {
			return errors.New("--id is required")
		}
		data, err := client.request(ctx, http.MethodGet, "/events/"+id, nil)
		if err != nil {
			return err
		}
		prettyPrint(data)
	case "create":
		payload, err := loadJSONPayload(payloadFile)
		if err != nil {
			return err
		}
		data, err := client.request(ctx, http.MethodPost, "/events", payload)
		if err != nil {
			return err
		}
		prettyPrint(data)
	case "update":
		if id == "" {
			return errors.New("--id is required")
		}
		payload, err := loadJSONPayload(payloadFile)
		if err != nil {
			return err
		}
		data, err := client.request(ctx, http.MethodPut, "/events/"+id, payload)
		if err != nil {
			return err
		}
		prettyPrint(data)
	case "delete":
		if id == "" {
			return errors.New("--id is required")
		}
		_, err := client.request(ctx, http.MethodDelete, "/events/"+id, nil)
		return err
	default:
		return fmt.Errorf("unknown events subcommand %q", sub)
	}
	return nil
}

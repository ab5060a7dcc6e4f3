package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
)

func handleCascade(ctx context.Context, client *apiClient, args []string) error {
	if len(args) == 0 {
		fmt.Println(`Usage:
  rosterctl cascade delete-profile --id <userId>
  rosterctl cascade delete-organizer --id <organizerId>`)
		return nil
	}
	sub := args[0]
	fs := flag.NewFlagSet("cascade "+sub, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var id string
	fs.StringVar(&id, "id", "", "entity ID (required)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if id == "" {
		return errors.New("--id is required")
	}

	switch sub {
	case "delete-profile":
		data, err := client.request(ctx, http.MethodDelete, "/profiles/"+id, nil)
		if err != nil {
			return err
		}
		prettyPrint(data)
	case "delete-organizer":
		data, err := client.request(ctx, http.MethodDelete, "/organizers/"+id, nil)
		if err != nil {
			return err
		}
		prettyPrint(data)
	default:
		return fmt.Errorf("unknown cascade subcommand %q", sub)
	}
	return nil
}

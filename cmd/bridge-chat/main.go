// bridge-chat sends one message to a local bridge daemon and streams the
// response to stdout. Useful for checking a daemon without the web app.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/crewdesk/bridge-api/internal/bridge"
)

func main() {
	url := flag.String("url", "ws://localhost:8765/ws", "bridge daemon WebSocket URL")
	model := flag.String("model", "", "optional model hint")
	timezone := flag.String("tz", "UTC", "timezone to report in the message context")
	flag.Parse()

	message := strings.Join(flag.Args(), " ")
	if strings.TrimSpace(message) == "" {
		fmt.Fprintln(os.Stderr, "usage: bridge-chat [flags] <message>")
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		cancel()
	}()

	if !bridge.DetectBridge(ctx, *url) {
		log.Fatalf("no bridge daemon reachable at %s", *url)
	}

	transport := bridge.NewTransport(*url, *model)
	defer transport.Disconnect()

	if err := transport.EnsureConnected(ctx); err != nil {
		log.Fatalf("connect failed: %v", err)
	}
	if ident := transport.Identity(); ident != nil {
		log.Printf("authenticated as %s (%s)", ident.Name, ident.Role)
	}

	stream, err := transport.SendMessages(ctx, bridge.SendRequest{
		Trigger:  "cli",
		Messages: []bridge.Message{{Role: "user", Content: message}},
		Context: bridge.SendContext{
			Timezone:       *timezone,
			ConversationID: fmt.Sprintf("cli-%d", time.Now().Unix()),
		},
	})
	if err != nil {
		log.Fatalf("send failed: %v", err)
	}

	for chunk := range stream.Chunks() {
		var text string
		if err := json.Unmarshal(chunk, &text); err != nil {
			text = string(chunk)
		}
		fmt.Print(text)
	}
	fmt.Println()

	if err := stream.Err(); err != nil {
		log.Fatalf("stream failed: %v", err)
	}
}

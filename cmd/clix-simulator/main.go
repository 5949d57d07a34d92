// Package main is a local harness for exercising the SDK pipeline without
// a mobile host. It wires the Client with simulated platform collaborators
// and replays a scenario script from stdin, one JSON step per line:
//
//	{"action":"foreground","message":{"message_id":"t1","data":{"clix":{"message_id":"m1","title":"Hi"}}}}
//	{"action":"background","message":{...}}
//	{"action":"tap","message":{...}}
//	{"action":"token","token":"tok_abc"}
//	{"action":"app_state","state":"background"}
//	{"action":"sleep","duration":"2s"}
//
// Configuration comes from the environment (CLIX_PROJECT_ID, CLIX_API_KEY,
// CLIX_ENDPOINT, ...), optionally via a .env file.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	clix "github.com/clix-so/clix-go"
	"github.com/clix-so/clix-go/pkg/types"
)

// consoleDisplayer prints notifications instead of posting them to a
// platform shade.
type consoleDisplayer struct{}

func (consoleDisplayer) Display(_ context.Context, cfg types.DisplayConfig) error {
	fmt.Printf(">> NOTIFICATION [%s] %s: %s", cfg.ID, cfg.Title, cfg.Body)
	if cfg.HasImage() {
		fmt.Printf(" (image: %s)", cfg.ImageURL)
	}
	fmt.Println()
	for _, action := range cfg.Actions {
		fmt.Printf("   action: %s (%s)\n", action.Label, action.ID)
	}
	return nil
}

func (consoleDisplayer) RequestPermission(context.Context, types.PermissionOptions) (types.PermissionSettings, error) {
	return types.PermissionSettings{Status: types.PermissionAuthorized}, nil
}

// consoleNavigator prints the landing URL instead of opening it.
type consoleNavigator struct{}

func (consoleNavigator) OpenURL(_ context.Context, url string) error {
	fmt.Printf(">> NAVIGATE %s\n", url)
	return nil
}

// simChannel implements types.MessageChannel with directly drivable
// handlers.
type simChannel struct {
	background types.MessageHandler
	foreground types.MessageHandler
	tap        types.MessageHandler
	token      types.TokenHandler
}

func (c *simChannel) SetBackgroundHandler(h types.MessageHandler) { c.background = h }

func (c *simChannel) OnForegroundMessage(h types.MessageHandler) (types.Unsubscribe, error) {
	c.foreground = h
	return func() { c.foreground = nil }, nil
}

func (c *simChannel) OnNotificationTap(h types.MessageHandler) (types.Unsubscribe, error) {
	c.tap = h
	return func() { c.tap = nil }, nil
}

func (c *simChannel) OnTokenRefresh(h types.TokenHandler) (types.Unsubscribe, error) {
	c.token = h
	return func() { c.token = nil }, nil
}

func (c *simChannel) InitialNotification(context.Context) (*types.RawMessage, error) {
	return nil, nil
}

// simAppState implements types.AppStateSource with a settable state.
type simAppState struct {
	state    types.AppState
	handlers []func(types.AppState)
}

func (s *simAppState) CurrentState() types.AppState { return s.state }

func (s *simAppState) Subscribe(h func(types.AppState)) (types.Unsubscribe, error) {
	s.handlers = append(s.handlers, h)
	return func() {}, nil
}

func (s *simAppState) set(state types.AppState) {
	s.state = state
	for _, h := range s.handlers {
		h(state)
	}
}

// scenarioMessage is the script form of a raw channel message.
type scenarioMessage struct {
	MessageID    string `json:"message_id"`
	Notification *struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	} `json:"notification"`
	Data map[string]any `json:"data"`
}

func (m *scenarioMessage) toRaw() types.RawMessage {
	raw := types.RawMessage{MessageID: m.MessageID, Data: m.Data}
	if m.Notification != nil {
		raw.Notification = &types.TransportNotification{
			Title: m.Notification.Title,
			Body:  m.Notification.Body,
		}
	}
	return raw
}

// scenarioStep is one line of the stdin script.
type scenarioStep struct {
	Action   string           `json:"action"`
	Message  *scenarioMessage `json:"message"`
	Token    string           `json:"token"`
	State    string           `json:"state"`
	Duration string           `json:"duration"`
}

func main() {
	cfg, err := clix.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}

	channel := &simChannel{}
	appState := &simAppState{state: types.AppStateActive}

	client, err := clix.New(cfg, clix.Deps{
		Messages:  channel,
		AppState:  appState,
		Displayer: consoleDisplayer{},
		Navigator: consoleNavigator{},
		Device: clix.DeviceInfo{
			Platform:   "simulator",
			Model:      "clix-simulator",
			OSName:     "local",
			AppName:    "clix-simulator",
			AppVersion: clix.Version,
		},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build client:", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.Initialize(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize:", err)
		os.Exit(1)
	}

	deviceID, _ := client.GetDeviceID(ctx)
	fmt.Printf(">> READY device_id=%s\n", deviceID)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}

		var step scenarioStep
		if err := json.Unmarshal(text, &step); err != nil {
			fmt.Fprintf(os.Stderr, "line %d: invalid step: %v\n", line, err)
			continue
		}
		if err := run(ctx, client, channel, appState, step); err != nil {
			fmt.Fprintf(os.Stderr, "line %d: %v\n", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to read scenario:", err)
		os.Exit(1)
	}

	client.Cleanup()
}

// run executes a single scenario step against the wired SDK.
func run(ctx context.Context, client *clix.Client, channel *simChannel, appState *simAppState, step scenarioStep) error {
	switch step.Action {
	case "foreground":
		if step.Message == nil {
			return fmt.Errorf("foreground step requires a message")
		}
		channel.foreground(ctx, step.Message.toRaw())
	case "background":
		if step.Message == nil {
			return fmt.Errorf("background step requires a message")
		}
		channel.background(ctx, step.Message.toRaw())
	case "tap":
		if step.Message == nil {
			return fmt.Errorf("tap step requires a message")
		}
		channel.tap(ctx, step.Message.toRaw())
	case "token":
		channel.token(ctx, step.Token)
	case "app_state":
		appState.set(types.AppState(step.State))
	case "sleep":
		d, err := time.ParseDuration(step.Duration)
		if err != nil {
			return fmt.Errorf("invalid sleep duration %q: %w", step.Duration, err)
		}
		time.Sleep(d)
	case "track":
		return client.TrackEvent(ctx, "SIMULATED_EVENT", map[string]any{"source": "simulator"})
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
	return nil
}

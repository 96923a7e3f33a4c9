// Command sample is a headless demo host for the SDK. It launches against the
// application configured through the environment, prints every emitted event
// and drives the visibility lifecycle from stdin:
//
//	foreground | background | unload | enable | dismiss | inbox | user <id> [name] | quit
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/notificare/notificare-go"
	"github.com/notificare/notificare-go/geo"
	"github.com/notificare/notificare-go/inappmessaging"
	"github.com/notificare/notificare-go/inbox"
	"github.com/notificare/notificare-go/pkg/logger"
	"github.com/notificare/notificare-go/pkg/store"
	"github.com/notificare/notificare-go/push"
	"github.com/notificare/notificare-go/userinbox"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "sample:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	log := logger.New(
		logger.WithLevel(slog.LevelDebug),
		logger.WithTextFormatter(),
	)

	options, err := notificare.ConfigFromEnv()
	if err != nil {
		return err
	}

	fileStore, err := store.NewFileStore(".notificare.json")
	if err != nil {
		return err
	}

	client := notificare.New(
		notificare.WithLogger(log),
		notificare.WithStore(fileStore),
	)

	engine := inappmessaging.Attach(client, inappmessaging.WithPresenter(&consolePresenter{}))
	p := push.Attach(client, push.WithAdapter(&fakeAdapter{}))
	in := inbox.Attach(client)
	geo.Attach(client)
	userinbox.Attach(client)

	for _, event := range []string{
		notificare.EventReady,
		notificare.EventUnlaunched,
		notificare.EventDeviceRegistered,
		notificare.EventInboxUpdated,
		notificare.EventBadgeUpdated,
		notificare.EventMessagePresented,
		notificare.EventMessageFinishedPresenting,
		notificare.EventMessageFailedToPresent,
		notificare.EventNotificationPresented,
		notificare.EventNotificationFailedToPresent,
	} {
		event := event
		client.On(event, func(data any) {
			fmt.Printf("event %s: %+v\n", event, data)
		})
	}

	if err := client.Configure(ctx, *options); err != nil {
		return err
	}
	if err := client.Launch(ctx); err != nil {
		return err
	}

	fmt.Println("launched; commands: foreground | background | unload | enable | dismiss | inbox | user <id> [name] | quit")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "foreground":
			client.HandleForeground(ctx)
		case "background":
			client.HandleBackground(ctx)
		case "unload":
			client.HandleUnload(ctx)
		case "enable":
			if err := p.EnableRemoteNotifications(ctx); err != nil {
				fmt.Println("enable failed:", err)
			}
		case "dismiss":
			engine.DismissMessage(ctx)
		case "inbox":
			page, err := in.Fetch(ctx, inbox.FetchOptions{Limit: 10})
			if err != nil {
				fmt.Println("inbox fetch failed:", err)
				continue
			}
			fmt.Printf("inbox: %d items, %d unread\n", page.Count, page.Unread)
			for _, item := range page.Items {
				fmt.Printf("  [%s] %s\n", item.Time.Format("2006-01-02 15:04"), item.Notification.Message)
			}
		case "user":
			if len(fields) < 2 {
				fmt.Println("usage: user <id> [name]")
				continue
			}
			name := ""
			if len(fields) > 2 {
				name = strings.Join(fields[2:], " ")
			}
			if err := client.UpdateUser(ctx, fields[1], name); err != nil {
				fmt.Println("user update failed:", err)
			}
		case "quit":
			client.HandleUnload(ctx)
			return nil
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
	return scanner.Err()
}

// consolePresenter renders in-app messages as plain text.
type consolePresenter struct{}

func (consolePresenter) Present(ctx context.Context, message *inappmessaging.Message) error {
	fmt.Printf("message [%s] %s: %s\n", message.Type, message.Title, message.Message)
	return nil
}

func (consolePresenter) Dismiss(ctx context.Context) error {
	fmt.Println("message dismissed")
	return nil
}

// fakeAdapter simulates a push transport for hosts without one.
type fakeAdapter struct{}

func (fakeAdapter) IsSupported() bool { return true }

func (fakeAdapter) Subscribe(ctx context.Context) (*push.Subscription, error) {
	return &push.Subscription{
		Transport: notificare.TransportWebPush,
		Token:     "sample-token",
	}, nil
}

func (fakeAdapter) Unsubscribe(ctx context.Context) error { return nil }

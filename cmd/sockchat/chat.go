package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sockchat/sockchat-sdk-go/internal/cliconfig"
	"github.com/sockchat/sockchat-sdk-go/internal/logging"
	"github.com/sockchat/sockchat-sdk-go/sockchat"
)

type chatOptions struct {
	configPath string
	serverURL  string
	username   string
	logLevel   string
}

func runChat(parent context.Context, opts chatOptions) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootLogger := logging.New("info")
	cfg, _, err := cliconfig.Load(bootLogger, opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.serverURL != "" {
		cfg.ServerURL = opts.serverURL
	}
	if opts.username != "" {
		cfg.Username = opts.username
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	logger := logging.New(cfg.LogLevel)

	clientCfg := sockchat.DefaultConfig()
	clientCfg.URL = cfg.ServerURL
	if cfg.RefreshInterval > 0 {
		clientCfg.RefreshInterval = cfg.RefreshInterval
	}
	clientCfg.IdentityPath = cfg.IdentityFile
	if clientCfg.IdentityPath == "" {
		if path, pathErr := sockchat.DefaultIdentityPath(); pathErr == nil {
			clientCfg.IdentityPath = path
		}
	}

	client := sockchat.NewClient(clientCfg)
	client.SetLogger(logger)

	client.OnStateChanged(func(ev sockchat.StateEvent) {
		logger.Info().
			Stringer("from", ev.OldState).
			Stringer("to", ev.NewState).
			Msg("connection state changed")
	})
	client.OnMessage(printMessage)
	client.OnSessionRejected(func(message string) {
		fmt.Printf("!!! session rejected: %s — register again with /register <name>\n", message)
	})
	client.OnError(func(err error) {
		logger.Warn().Err(err).Msg("client error")
	})

	fmt.Printf("Connecting to %s...\n", cfg.ServerURL)
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close()

	if cfg.Username != "" && client.Identity() == "" {
		res := client.Register(ctx, cfg.Username)
		if !res.Success {
			fmt.Printf("register failed: %s\n", res.Message)
		}
	}
	if id := client.Identity(); id != "" {
		fmt.Printf("Registered as %s.\n", id)
	}
	fmt.Println("Type /help for commands, /quit to exit.")

	inputCh := make(chan string)
	go readInput(inputCh)

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nShutting down...")
			return nil
		case line, ok := <-inputCh:
			if !ok {
				return nil
			}
			if quit := handleLine(ctx, client, line); quit {
				return nil
			}
		}
	}
}

func handleLine(ctx context.Context, client *sockchat.Client, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	cmdCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit":
		fmt.Println("Bye!")
		return true
	case "/help":
		printHelp()
	case "/register":
		if len(fields) < 2 {
			fmt.Println("usage: /register <name>")
			return false
		}
		report(client.Register(cmdCtx, fields[1]))
	case "/users":
		for _, u := range client.Users() {
			fmt.Printf("  %s\n", u)
		}
	case "/groups":
		for _, g := range client.Groups() {
			fmt.Printf("  %s (%d members)\n", g.Name, g.MemberCount)
		}
	case "/join":
		if len(fields) < 2 {
			fmt.Println("usage: /join <group>")
			return false
		}
		report(client.JoinGroup(cmdCtx, fields[1]))
	case "/leave":
		if len(fields) < 2 {
			fmt.Println("usage: /leave <group>")
			return false
		}
		report(client.LeaveGroup(cmdCtx, fields[1]))
	case "/msg":
		if len(fields) < 3 {
			fmt.Println("usage: /msg <user> <text>")
			return false
		}
		report(client.SendPrivateMessage(cmdCtx, fields[1], strings.Join(fields[2:], " ")))
	case "/g":
		if len(fields) < 3 {
			fmt.Println("usage: /g <group> <text>")
			return false
		}
		report(client.SendGroupMessage(cmdCtx, fields[1], strings.Join(fields[2:], " ")))
	case "/refresh":
		report(client.RefreshDirectory(cmdCtx))
	case "/whoami":
		if id := client.Identity(); id != "" {
			fmt.Println(id)
		} else {
			fmt.Println("not registered")
		}
	case "/logout":
		client.Logout()
		fmt.Println("logged out")
	default:
		fmt.Println("unknown command; /help lists the available ones")
	}
	return false
}

func report(res sockchat.Result) {
	if res.Success {
		if res.Message != "" {
			fmt.Printf("ok: %s\n", res.Message)
		}
		return
	}
	fmt.Printf("failed: %s\n", res.Message)
}

func printMessage(msg sockchat.ChatMessage) {
	ts := msg.Timestamp.Format("15:04:05")
	switch msg.Kind {
	case sockchat.KindPrivateSent:
		fmt.Printf("[%s] -> %s: %s\n", ts, msg.To, msg.Content)
	case sockchat.KindPrivateReceived:
		fmt.Printf("[%s] %s: %s\n", ts, msg.From, msg.Content)
	case sockchat.KindGroup:
		fmt.Printf("[%s] #%s %s: %s\n", ts, msg.Group, msg.From, msg.Content)
	case sockchat.KindNotification:
		fmt.Printf("[%s] #%s * %s\n", ts, msg.Group, msg.Content)
	}
}

func printHelp() {
	fmt.Println(`commands:
  /register <name>     claim a username
  /users               list online users
  /groups              list groups
  /join <group>        join a group
  /leave <group>       leave a group
  /msg <user> <text>   send a private message
  /g <group> <text>    send a group message
  /refresh             refresh users and groups now
  /whoami              show current identity
  /logout              forget identity
  /quit                exit`)
}

func readInput(dst chan<- string) {
	defer close(dst)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		dst <- scanner.Text()
	}
}

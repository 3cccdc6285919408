package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"library/client"
)

type Config struct {
	ServerURL string
	WSURL     string
	Token     string
	Admin     bool
	BookID    int64
}

// toastPrinter выводит уведомления контроллера в терминал
type toastPrinter struct{}

func (toastPrinter) Notify(n client.Notification) {
	fmt.Printf("[%s] %s\n", strings.ToUpper(n.Type), n.Message)
}

// stubRefresher - на терминальной поверхности перерисовывать нечего,
// просто перечитываем очередь при следующем выводе
type stubRefresher struct{}

func (stubRefresher) Refresh() {}

func main() {
	config := parseFlags()

	log.Printf("Starting loan client with config: %+v", config)

	gateway := client.NewHTTPGateway(config.ServerURL, config.Token)

	wsPath := "/ws/loans"
	if config.Admin {
		wsPath = "/ws/admin/loans"
	}
	channel := client.NewWSChannel(config.WSURL+wsPath, config.Token, gateway.SetSocketID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\nReceived interrupt signal, shutting down...")
		cancel()
		os.Exit(0)
	}()

	if config.Admin {
		runAdmin(ctx, gateway, channel)
		return
	}
	if config.BookID != 0 {
		runBookPage(ctx, gateway, channel, config.BookID)
		return
	}
	runMember(ctx, gateway, channel)
}

func runBookPage(ctx context.Context, gateway *client.HTTPGateway, channel *client.WSChannel, bookID int64) {
	initial, err := gateway.FetchMyRequests()
	if err != nil {
		log.Fatalf("Failed to fetch loan requests: %v", err)
	}

	surface, err := client.OpenBookPage(ctx, gateway, channel, toastPrinter{}, bookID, initial)
	if err != nil {
		log.Fatalf("Failed to open surface: %v", err)
	}
	defer surface.Close()

	fmt.Println("Commands: status | request | cancel | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "status":
			if lr, ok := surface.Controller.Get(bookID); ok {
				fmt.Printf("request #%d: %s\n", lr.ID, lr.Status)
			} else {
				fmt.Println("no loan request for this book")
			}
		case "request":
			surface.RequestLoan()
		case "cancel":
			surface.CancelLoan()
		case "quit":
			return
		}
	}
}

func parseFlags() Config {
	config := Config{}

	flag.StringVar(&config.ServerURL, "url", "http://localhost:8080", "Library service URL")
	flag.StringVar(&config.WSURL, "ws-url", "ws://localhost:8080", "Library websocket URL")
	flag.StringVar(&config.Token, "token", "", "Session token")
	flag.BoolVar(&config.Admin, "admin", false, "Run the admin queue surface")
	flag.Int64Var(&config.BookID, "book", 0, "Open a single book page instead of the catalog")

	flag.Parse()
	return config
}

func runMember(ctx context.Context, gateway *client.HTTPGateway, channel *client.WSChannel) {
	initial, err := gateway.FetchMyRequests()
	if err != nil {
		log.Fatalf("Failed to fetch loan requests: %v", err)
	}

	surface, err := client.OpenBookList(ctx, gateway, channel, toastPrinter{}, initial)
	if err != nil {
		log.Fatalf("Failed to open surface: %v", err)
	}
	defer surface.Close()

	fmt.Println("Commands: books | mine | request <book_id> | cancel <book_id> | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "books":
			page, err := gateway.FetchCatalog(0, 20)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			for _, b := range page.Books {
				fmt.Printf("#%d %s - %s (available: %d)\n", b.ID, b.Title, b.Author, b.AvailableCopies)
			}
		case "mine":
			for _, lr := range surface.Controller.Snapshot() {
				fmt.Printf("request #%d book #%d: %s\n", lr.ID, lr.BookID, lr.Status)
			}
		case "request":
			if id := parseID(fields); id != 0 {
				surface.RequestLoan(id)
			}
		case "cancel":
			if id := parseID(fields); id != 0 {
				surface.CancelLoan(id)
			}
		case "quit":
			return
		}
	}
}

func runAdmin(ctx context.Context, gateway *client.HTTPGateway, channel *client.WSChannel) {
	surface, err := client.OpenAdminPanel(ctx, gateway, channel, toastPrinter{}, stubRefresher{})
	if err != nil {
		log.Fatalf("Failed to open admin surface: %v", err)
	}
	defer surface.Close()

	fmt.Println("Commands: queue | approve <request_id> | reject <request_id> | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "queue":
			for _, lr := range surface.Queue() {
				fmt.Printf("request #%d: %s wants %s\n", lr.ID, lr.RequesterName, lr.BookTitle)
			}
		case "approve":
			if id := parseID(fields); id != 0 {
				surface.Approve(id)
			}
		case "reject":
			if id := parseID(fields); id != 0 {
				surface.Reject(id)
			}
		case "quit":
			return
		}
	}
}

func parseID(fields []string) int64 {
	if len(fields) < 2 {
		fmt.Println("usage:", fields[0], "<id>")
		return 0
	}
	id, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		fmt.Println("invalid id:", fields[1])
		return 0
	}
	return id
}

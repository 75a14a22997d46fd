package main

import (
	"chat-board/domain"
	"chat-board/infrastructure/search"
	"chat-board/infrastructure/storage"
	"chat-board/internal"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

// inspect prints the stored transcript as a table, or serves it as HTML with -http.
func main() {
	config, err := internal.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	backend := flag.String("backend", config.StoreBackend, "Store backend: file, badger or sqlite")
	path := flag.String("path", "", "Store path, defaults to the configured path of the backend")
	author := flag.String("author", "", "Only show messages from this author")
	query := flag.String("query", "", "Only show text messages matching this full-text query")
	tail := flag.Int("tail", 0, "Only show the last n messages")
	addr := flag.String("http", "", "Serve the transcript as HTML on this address instead of printing it")
	flag.Parse()

	logger := logs.GetLoggerFromString(config.LogLevel)
	opts := storage.Options{
		Backend:        storage.Backend(*backend),
		TranscriptPath: config.TranscriptFilepath,
		BadgerPath:     config.BadgerFilepath,
		SQLitePath:     config.SQLiteFilepath,
		ReadOnly:       true,
	}
	if *path != "" {
		opts.TranscriptPath, opts.BadgerPath, opts.SQLitePath = *path, *path, *path
	}

	repository, err := storage.NewMessageRepository(opts, logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer repository.Close()

	load := func() ([]domain.Message, error) {
		messages, err := repository.Load()
		if err != nil {
			return nil, err
		}
		if *author != "" {
			messages = lo.Filter(messages, func(m domain.Message, _ int) bool { return m.Author == *author })
		}
		if *query != "" {
			if messages, err = search.Matching(context.Background(), messages, *query, logger); err != nil {
				return nil, err
			}
		}
		if *tail > 0 && len(messages) > *tail {
			messages = messages[len(messages)-*tail:]
		}
		return messages, nil
	}

	if *addr != "" {
		server := &http.Server{
			Addr:              *addr,
			Handler:           internal.NewInspectHandler(string(opts.Backend), load, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		fmt.Printf("Inspect server started at http://%s/\n", *addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
		return
	}

	messages, err := load()
	if err != nil {
		log.Fatalf("Failed to load transcript: %v", err)
	}
	render(messages)
}

func render(messages []domain.Message) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Timestamp", "Author", "Kind", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, row := range internal.ToRows(messages) {
		table.Append([]string{row.Seq, row.Timestamp, row.Author, row.Kind, row.Detail})
	}
	table.Render()
}

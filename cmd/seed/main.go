// Seed populates a local BadgerDB and Bluge index with demo users,
// conversations and messages, then prints a summary of each conversation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"

	"courier/cache"
	"courier/domain"
	"courier/internal"
	"courier/moderation"
	"courier/projection"
	"courier/repositories"
	"courier/sanitize"
	"courier/search"
	"courier/services"
)

func main() {
	if err := run(); err != nil {
		color.Red.Printf("seed failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: config.SlogLevel()}))
	ctx := context.Background()

	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("open badger: %w", err)
	}
	defer db.Close()

	index, err := search.Open(config.BlugeFilepath, log)
	if err != nil {
		return err
	}
	defer index.Close()

	var store cache.Cache = cache.NewMemory()
	if config.RedisURL != "" {
		redis, err := cache.NewRedis(ctx, config.RedisURL)
		if err != nil {
			return err
		}
		defer redis.Close()
		store = redis
	}

	replacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}
	filter, err := moderation.NewFilter(config.Words(), replacement)
	if err != nil {
		return err
	}

	users := repositories.NewUserRepository(db, log)
	conversations := repositories.NewConversationRepository(db, log)
	messages := repositories.NewMessageRepository(db, log)

	directory := services.NewDirectoryService(users, store, log)
	registry := services.NewRegistryService(users, conversations, log)
	ledger := services.NewLedgerService(conversations, messages, sanitize.New(), filter, index, log)
	projector := projection.NewProjector(users, conversations, messages, store, log)

	seeded := []services.RegisterInput{
		{Email: "alice@example.com", FirstName: "Alice", LastName: "Archer", Role: domain.RoleHost},
		{Email: "bob@example.com", FirstName: "Bob", LastName: "Baker"},
		{Email: "carol@example.com", FirstName: "Carol", LastName: "Crow"},
	}
	for _, input := range seeded {
		if _, err := directory.Register(ctx, input); err != nil {
			// Re-running against an existing store is fine.
			log.Warn("registration skipped", "email", input.Email, "error", err)
			continue
		}
		color.Green.Printf("registered %s\n", input.Email)
	}

	pairs := [][]string{
		{"bob@example.com"},
		{"carol@example.com"},
		{"bob@example.com", "carol@example.com"},
	}
	for _, others := range pairs {
		conversation, err := registry.Create(ctx, others, "alice@example.com")
		if err != nil {
			return err
		}
		color.Cyan.Printf("conversation %s (%d participants)\n",
			conversation.ID, len(conversation.ParticipantIDs))

		sender := conversation.ParticipantIDs[0]
		bodies := []string{
			"Hello! Is the flat still <b>available</b>?",
			"Yes, you can visit <i>tomorrow</i> afternoon.",
			"Great, see you then.",
		}
		for _, body := range bodies {
			if _, err := ledger.Append(ctx, conversation.ID, sender, body); err != nil {
				return err
			}
		}

		view, err := projector.ConversationSummary(ctx, conversation.ID)
		if err != nil {
			return err
		}
		last := "-"
		if view.LastMessage != nil {
			last = view.LastMessage.Body
		}
		fmt.Printf("  participants: %v\n  last message: %s\n", view.ParticipantNames, last)

		// LIMIT_MESSAGES bounds how much of each timeline gets printed.
		timelineFilter := domain.MessageFilter{}
		if config.LimitMessages != nil {
			timelineFilter.Limit = *config.LimitMessages
		}
		timeline, err := projector.Timeline(ctx, conversation.ID, timelineFilter)
		if err != nil {
			return err
		}
		for _, row := range timeline {
			fmt.Printf("  %s  %s: %s\n", row.SentAt.Format("15:04:05"), row.SenderName, row.Body)
		}
	}

	color.Green.Println("seed complete")
	return nil
}

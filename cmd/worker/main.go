package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"sktutorial/internal/config"
	"sktutorial/internal/fees"
	"sktutorial/internal/idcard"
	"sktutorial/internal/mailer"
	"sktutorial/internal/queue"
	"sktutorial/internal/store"
)

// Worker consumes fee-payment events and sends confirmation emails. Delivery
// failures are logged and the event dropped; a payment never blocks on mail.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPoolSize)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "fees:confirmations")
	}

	var mail mailer.Mailer
	if cfg.SendgridAPIKey != "" {
		mail = mailer.NewSendGrid(cfg.SendgridAPIKey, cfg.MailFromName, cfg.MailFromAddress)
		log.Println("SendGrid configured")
	} else {
		mail = mailer.Console{}
		log.Println("SENDGRID_API_KEY not set, emails go to the log")
	}

	cards := idcard.NewService(idcard.NewRepository(db.Client), nil)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != fees.MessageTypePaid {
			continue
		}

		var evt fees.PaidEvent
		if err := json.Unmarshal(msg.Body, &evt); err != nil {
			log.Printf("bad event payload: %v", err)
			continue
		}

		parentName, email, err := cards.EmailForContact(ctx, evt.Contact)
		if err != nil {
			log.Printf("email lookup failed for %s: %v", evt.StudentID, err)
			continue
		}
		if email == "" {
			log.Printf("no email on file for %s (%s), skipping confirmation", evt.StudentName, evt.StudentID)
			continue
		}

		if err := mail.Send(ctx, confirmationMessage(parentName, email, evt)); err != nil {
			log.Printf("confirmation email failed for %s: %v", evt.StudentID, err)
			continue
		}
		log.Printf("confirmation sent for %s, %s", evt.StudentName, evt.Label)
	}

	log.Println("worker stopped")
}

func confirmationMessage(parentName, email string, evt fees.PaidEvent) mailer.Message {
	amount := ""
	if evt.Amount != nil {
		amount = fmt.Sprintf(" of Rs. %.2f", *evt.Amount)
	}
	mode := ""
	if evt.PaymentMode != "" {
		mode = " via " + evt.PaymentMode
	}
	return mailer.Message{
		ToName:    parentName,
		ToAddress: email,
		Subject:   "Fee payment received for " + evt.StudentName,
		Text: fmt.Sprintf(
			"Dear %s,\n\nWe have received the fee payment%s for %s for %s%s.\n\nThank you,\nSK Tutorial",
			parentName, amount, evt.StudentName, evt.Label, mode),
	}
}

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"gopkg.in/gomail.v2"
)

// Mailer is the SMTP configuration for outgoing booking emails.
type Mailer struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// Consumer drains the booking event queues.  Confirmed bookings trigger
// a confirmation email, cancellations and expiries a notice; every
// event is appended to the activity file for back-office tooling.
// The consumer reconnects with backoff when the broker drops the
// connection, so a broker restart never requires a service restart.
type Consumer struct {
	url          string
	mailer       Mailer
	activityPath string
}

// NewConsumer returns a consumer for the given AMQP URL.  activityPath
// is the append-only event log file; empty disables it.
func NewConsumer(url string, mailer Mailer, activityPath string) *Consumer {
	return &Consumer{url: url, mailer: mailer, activityPath: activityPath}
}

// Run consumes all booking queues until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	queues := []string{
		QueueBookingCreated, QueueBookingConfirmed,
		QueueBookingCancelled, QueueBookingExpired, QueueBookingRefunded,
	}
	backoff := time.Second
	for {
		if err := c.consumeOnce(ctx, queues); err != nil {
			log.Printf("queue consumer: %v (retrying in %s)", err, backoff)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (c *Consumer) consumeOnce(ctx context.Context, queues []string) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(10, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}

	deliveries := make(chan delivery)
	for _, q := range queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("consume %s: %w", q, err)
		}
		go func(q string, msgs <-chan amqp.Delivery) {
			for m := range msgs {
				deliveries <- delivery{queue: q, msg: m}
			}
		}(q, msgs)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-closed:
			return fmt.Errorf("connection closed: %v", err)
		case d := <-deliveries:
			c.handle(d.queue, d.msg)
		}
	}
}

type delivery struct {
	queue string
	msg   amqp.Delivery
}

func (c *Consumer) handle(queueName string, m amqp.Delivery) {
	var ev BookingEvent
	if err := json.Unmarshal(m.Body, &ev); err != nil {
		log.Printf("queue consumer: bad payload on %s: %v", queueName, err)
		_ = m.Nack(false, false) // drop, redelivery will not fix it
		return
	}

	c.appendActivity(queueName, ev)

	var mailErr error
	switch queueName {
	case QueueBookingConfirmed:
		mailErr = c.send(ev.CustomerEmail, "Your Marine World tickets are confirmed",
			fmt.Sprintf("Hi %s,\n\nBooking %s is confirmed: %d ticket(s) for %s.\nShow this reference at the gate.\n\nSee you there!",
				ev.CustomerName, ev.BookingRef, ev.Tickets, ev.VisitDate))
	case QueueBookingCancelled:
		mailErr = c.send(ev.CustomerEmail, "Your Marine World booking was cancelled",
			fmt.Sprintf("Hi %s,\n\nBooking %s for %s has been cancelled.",
				ev.CustomerName, ev.BookingRef, ev.VisitDate))
	case QueueBookingExpired:
		mailErr = c.send(ev.CustomerEmail, "Your Marine World booking expired",
			fmt.Sprintf("Hi %s,\n\nBooking %s expired because payment was not completed in time. The slots have been released; feel free to book again.",
				ev.CustomerName, ev.BookingRef))
	case QueueBookingRefunded:
		mailErr = c.send(ev.CustomerEmail, "Your Marine World refund is on its way",
			fmt.Sprintf("Hi %s,\n\nA refund for booking %s has been issued. It should reach your account within a few business days.",
				ev.CustomerName, ev.BookingRef))
	}
	if mailErr != nil {
		log.Printf("queue consumer: email for %s (%s): %v", ev.BookingRef, queueName, mailErr)
		// Requeue once via the broker; a persistently failing SMTP
		// server should not wedge the queue.
		_ = m.Nack(false, !m.Redelivered)
		return
	}
	_ = m.Ack(false)
}

func (c *Consumer) send(to, subject, body string) error {
	if c.mailer.Host == "" || to == "" {
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", c.mailer.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	d := gomail.NewDialer(c.mailer.Host, c.mailer.Port, c.mailer.User, c.mailer.Pass)
	return d.DialAndSend(msg)
}

func (c *Consumer) appendActivity(queueName string, ev BookingEvent) {
	if c.activityPath == "" {
		return
	}
	f, err := os.OpenFile(c.activityPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("queue consumer: open activity file: %v", err)
		return
	}
	defer f.Close()
	line, _ := json.Marshal(map[string]interface{}{
		"queue": queueName, "event": ev,
	})
	if _, err := f.Write(append(line, '\n')); err != nil {
		log.Printf("queue consumer: write activity file: %v", err)
	}
}

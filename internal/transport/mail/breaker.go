package mail

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

type Sender interface {
	SendPasswordReset(ctx context.Context, email, token, resetURL string) error
}

// BreakerSender stops calling the SMTP server after repeated failures and
// retries it once the open window has passed.
type BreakerSender struct {
	next Sender
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerSender(next Sender, log logrus.FieldLogger) *BreakerSender {
	st := gobreaker.Settings{
		Name:        "SMTPCircuitBreaker",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("circuit breaker state changed")
		},
	}
	return &BreakerSender{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

func (b *BreakerSender) SendPasswordReset(ctx context.Context, email, token, resetURL string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.SendPasswordReset(ctx, email, token, resetURL)
	})
	return err
}

func (b *BreakerSender) State() gobreaker.State {
	return b.cb.State()
}

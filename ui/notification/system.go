// Package notification shows desktop notifications for submitted referenda.
package notification

import (
	"context"
	"fmt"
	"sync"

	"github.com/crypto-power/tipwizard/libtipper/chains"
	"github.com/crypto-power/tipwizard/libtipper/history"
	"github.com/crypto-power/tipwizard/libtipper/txprocess"
	"github.com/crypto-power/tipwizard/listeners"
	"github.com/decred/slog"
	"github.com/gen2brain/beeep"
)

const (
	title      = "Tip Wizard"
	listenerID = "system_notification"
)

var log = slog.Disabled

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger slog.Logger) {
	log = logger
}

// Publisher is the source of referenda notifications.
type Publisher interface {
	AddNotificationListener(listener history.NotificationListener, uniqueIdentifier string) error
	RemoveNotificationListener(uniqueIdentifier string)
}

type SystemNotification struct {
	iconPath string
	notify   func(title, message, appIcon string) error

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewSystemNotification returns a notifier showing iconPath, which may be
// empty.
func NewSystemNotification(iconPath string) *SystemNotification {
	return &SystemNotification{
		iconPath: iconPath,
		notify:   beeep.Notify,
	}
}

func (s *SystemNotification) Notify(message string) error {
	err := s.notify(title, message, s.iconPath)
	if err != nil {
		return err
	}

	return nil
}

// Start shows a notification for every referendum change published until
// Stop is called.
func (s *SystemNotification) Start(pub Publisher) error {
	listener := listeners.NewReferendaNotificationListener()
	if err := pub.AddNotificationListener(listener, listenerID); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = func() {
		pub.RemoveNotificationListener(listenerID)
		cancel()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-listener.ReferendaNotifChan:
				if err := s.Notify(Message(n)); err != nil {
					log.Warnf("Unable to show notification: %v", err)
				}
			}
		}
	}()
	return nil
}

func (s *SystemNotification) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Message is the notification text of n.
func Message(n listeners.ReferendumNotification) string {
	chainName := string(n.Chain)
	if params, err := chains.Lookup(n.Chain); err == nil {
		chainName = params.Name
	}

	switch n.Status {
	case listeners.Recorded:
		return fmt.Sprintf("Referendum #%d created on %s", n.Referendum.Index, chainName)
	case listeners.DepositPlaced:
		return fmt.Sprintf("Decision deposit placed for referendum #%d on %s", n.Referendum.Index, chainName)
	default:
		msg := fmt.Sprintf("%s transaction failed on %s", stepName(n.Step), chainName)
		if n.Message != "" {
			msg += ": " + n.Message
		}
		return msg
	}
}

func stepName(step string) string {
	switch txprocess.Step(step) {
	case txprocess.StepCreation:
		return "Referendum"
	case txprocess.StepDecisionDeposit:
		return "Decision deposit"
	default:
		return "Tip"
	}
}

package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// MatchUpdate is a scored match ready to be pushed. Match holds the match
// already converted to its API dict.
type MatchUpdate struct {
	MatchRef
	EventName string
	Match     any
}

// Dispatcher builds notification payloads and hands them to a Transport.
// Delivery is best effort.
type Dispatcher struct {
	transport Transport
	resolver  SubscriptionResolver
	logger    *zap.Logger
}

// NewDispatcher returns a dispatcher. A nil logger disables logging.
func NewDispatcher(transport Transport, resolver SubscriptionResolver, logger *zap.Logger) (*Dispatcher, error) {
	if transport == nil {
		return nil, errors.New("notify: nil transport")
	}
	if resolver == nil {
		return nil, errors.New("notify: nil subscription resolver")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{transport: transport, resolver: resolver, logger: logger}, nil
}

// SendMatchScoreUpdate notifies every Android client whose user follows the
// match or its event.
func (d *Dispatcher) SendMatchScoreUpdate(ctx context.Context, update MatchUpdate) error {
	users, err := d.resolver.UsersSubscribedToMatch(ctx, update.MatchRef, MatchScore)
	if err != nil {
		return err
	}
	clients, err := d.resolver.ClientIDs(ctx, OSAndroid, users)
	if err != nil {
		return err
	}
	if len(clients) == 0 {
		return nil
	}

	msg := NewMessage(clients, MatchScore, map[string]any{
		"event_name": update.EventName,
		"match":      update.Match,
	})
	return d.send(ctx, MatchScore, msg)
}

// SendFavoriteUpdate tells the user's other devices to resync favorites.
func (d *Dispatcher) SendFavoriteUpdate(ctx context.Context, userID, sendingDevice string) error {
	return d.sendUserUpdate(ctx, UpdateFavorites, userID, sendingDevice, "favorite_update")
}

// SendSubscriptionUpdate tells the user's other devices to resync subscriptions.
func (d *Dispatcher) SendSubscriptionUpdate(ctx context.Context, userID, sendingDevice string) error {
	return d.sendUserUpdate(ctx, UpdateSubscriptions, userID, sendingDevice, "subscription_update")
}

func (d *Dispatcher) sendUserUpdate(ctx context.Context, t NotificationType, userID, sendingDevice, suffix string) error {
	clients, err := d.resolver.ClientIDs(ctx, OSAndroid, []string{userID})
	if err != nil {
		return err
	}
	clients = without(clients, sendingDevice)
	if len(clients) == 0 {
		return nil
	}

	msg := NewMessage(clients, t, nil)
	msg.CollapseKey = fmt.Sprintf("%s_%s", userID, suffix)
	return d.send(ctx, t, msg)
}

func (d *Dispatcher) send(ctx context.Context, t NotificationType, msg *Message) error {
	d.logger.Info("sending notification",
		zap.Stringer("type", t),
		zap.Int("recipients", len(msg.RecipientIDs)),
		zap.String("collapse_key", msg.CollapseKey))
	return d.transport.Send(ctx, msg)
}

// without returns ids minus every occurrence of drop.
func without(ids []string, drop string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

package sender

import (
	"context"
	"fmt"

	"sarapul-news-bot/internal/domain"
)

// channelSender доставляет текст одному получателю своего транспорта.
type channelSender interface {
	Send(ctx context.Context, rawUserID, text string) error
}

// Router направляет сообщение отправителю нужного канала.
type Router struct {
	senders map[domain.ChannelType]channelSender
}

var _ domain.Sender = (*Router)(nil)

// NewRouter создаёт маршрутизатор. nil-отправители пропускаются, их каналы
// считаются неподдерживаемыми.
func NewRouter(telegram, max channelSender) *Router {
	senders := make(map[domain.ChannelType]channelSender, 2)
	if telegram != nil {
		senders[domain.ChannelTelegram] = telegram
	}
	if max != nil {
		senders[domain.ChannelMax] = max
	}
	return &Router{senders: senders}
}

// Send доставляет текст через транспорт указанного канала.
func (r *Router) Send(ctx context.Context, channel domain.ChannelType, rawUserID, text string) error {
	s, ok := r.senders[channel]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedChannel, channel)
	}
	return s.Send(ctx, rawUserID, text)
}

package mailout

import (
	"context"

	"auctionex.com/internal/auction"
	"auctionex.com/pkg/logger"
	"github.com/nats-io/nats.go"
	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"
)

// NatsSink 把邮件投递请求发布到 NATS，邮件服务订阅后落地
type NatsSink struct {
	conn    *nats.Conn
	subject string
}

func NewNatsSink(url, subject string) (*NatsSink, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &NatsSink{conn: conn, subject: subject}, nil
}

func (s *NatsSink) Send(m *auction.MailRequest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.conn.Publish(s.subject, data)
}

func (s *NatsSink) Close() {
	s.conn.Close()
}

// LogSink 本地开发/测试用，邮件只打日志
type LogSink struct{}

func (LogSink) Send(m *auction.MailRequest) error {
	logger.Info(context.Background(), "mail dispatched",
		zap.Uint8("house", uint8(m.HouseID)),
		zap.Uint64("receiver", m.Receiver.Guid),
		zap.String("subject", m.Subject),
		zap.Uint64("money", m.Money),
		zap.Int("items", len(m.Items)),
	)
	return nil
}

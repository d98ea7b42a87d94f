package bus

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kaganay/AygazSmartEnergy/internal/config"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Publisher 消息总线发布接口（尽力而为，失败不影响调用方）
type Publisher interface {
	Publish(queueName string, payload interface{})
	Close()
}

// AMQPPublisher RabbitMQ 发布器
// 连接按需建立并复用；每次发布前幂等声明交换机和队列
type AMQPPublisher struct {
	cfg    *config.AMQPConfig
	logger *zap.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

var _ Publisher = (*AMQPPublisher)(nil)

// NewAMQPPublisher 创建发布器（不立即连接）
func NewAMQPPublisher(cfg *config.AMQPConfig, logger *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		cfg:    cfg,
		logger: logger,
	}
}

// Publish 发布事件到指定队列，序列化为 camelCase JSON
// 任何失败只记日志，绝不向调用方传播
func (p *AMQPPublisher) Publish(queueName string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("Failed to marshal bus payload",
			zap.String("queue", queueName),
			zap.Error(err),
		)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	channel, err := p.ensureChannel()
	if err != nil {
		p.logger.Warn("Message bus unavailable, dropping event",
			zap.String("queue", queueName),
			zap.Error(err),
		)
		return
	}

	routingKey := "sensor." + queueName
	if err := p.declare(channel, queueName, routingKey); err != nil {
		p.logger.Warn("Failed to declare bus destination, dropping event",
			zap.String("queue", queueName),
			zap.Error(err),
		)
		p.reset()
		return
	}

	err = channel.Publish(
		p.cfg.Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Warn("Failed to publish to message bus, dropping event",
			zap.String("queue", queueName),
			zap.Error(err),
		)
		p.reset()
		return
	}

	p.logger.Debug("Published event to message bus",
		zap.String("queue", queueName),
		zap.String("routing_key", routingKey),
	)
}

// ensureChannel 懒连接；调用方需持有锁
func (p *AMQPPublisher) ensureChannel() (*amqp.Channel, error) {
	if p.channel != nil {
		return p.channel, nil
	}

	conn, err := amqp.Dial(p.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	p.conn = conn
	p.channel = channel
	return channel, nil
}

// declare 幂等声明交换机、队列和绑定（重复调用安全）
func (p *AMQPPublisher) declare(channel *amqp.Channel, queueName, routingKey string) error {
	if err := channel.ExchangeDeclare(
		p.cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if _, err := channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := channel.QueueBind(queueName, routingKey, p.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	return nil
}

// reset 丢弃失效连接，下次发布时重连
func (p *AMQPPublisher) reset() {
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

// Close 关闭连接
func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}

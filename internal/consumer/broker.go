package consumer

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection is the subset of *amqp.Connection used by the pipeline.
type Connection interface {
	Channel() (Channel, error)
	Close() error
}

// Channel is the subset of *amqp.Channel used by the pipeline.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Dialer opens a broker connection.
type Dialer func(url string) (Connection, error)

// DialAMQP connects to RabbitMQ at url.
func DialAMQP(url string) (Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return &amqpConnection{Connection: conn}, nil
}

type amqpConnection struct {
	*amqp.Connection
}

func (c *amqpConnection) Channel() (Channel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

package rmq

import (
	"text2phenotype.com/psyctx/logger"
	"fmt"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
	"time"
)

type Config struct {
	Host                    string `envconfig:"MDL_COMN_RMQ_HOST" required:"true"`
	Port                    string `envconfig:"MDL_COMN_RMQ_PORT" required:"true"`
	Username                string `envconfig:"MDL_COMN_RMQ_USERNAME" required:"true"`
	Password                string `envconfig:"MDL_COMN_RMQ_PASSWORD" required:"true"`
	Exchange                string `envconfig:"MDL_COMN_RMQ_DEFAULT_EXCHANGE" default:"text2phenotype-default-exchange"`
	MaxParallelRequestCount int    `envconfig:"PSYCTX_MQ_MAX_PARALLEL_REQUESTS" default:"5"`
	DialAttempts            int    `envconfig:"PSYCTX_MQ_DIAL_ATTEMPTS" default:"3"`
	ContextTaskQueue        string `envconfig:"MDL_COMN_OUTCOME_CONTEXT_TASK_QUEUE" required:"true"`
	SequencerTaskQueue      string `envconfig:"MDL_COMN_SEQUENCER_TASK_QUEUE" required:"true"`
}

// Client consumes the outcome context task queue on one connection and publishes
// to the sequencer on another, so a blocked publisher never stalls consumption.
type Client struct {
	Deliveries     <-chan amqp.Delivery
	ReqChanErrors  <-chan *amqp.Error
	RespChanErrors <-chan *amqp.Error
	config         Config
	reqConn        *amqp.Connection
	respConn       *amqp.Connection
	respChannel    *amqp.Channel
	rmqLogger      zerolog.Logger
}

func NewClient() (*Client, error) {
	rmqLogger := logger.NewLogger("RMQ client")
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		rmqLogger.Error().Err(err).Msg("Could not read env config")
		return nil, err
	}

	client := &Client{config: config, rmqLogger: rmqLogger}
	url := config.URL()

	var respChannel *amqp.Channel
	var err error
	client.respConn, respChannel, err = dial(url, config.DialAttempts, rmqLogger)
	if err != nil {
		return nil, fmt.Errorf("response connection: %w", err)
	}
	reqConn, reqChannel, err := dial(url, config.DialAttempts, rmqLogger)
	if err != nil {
		_ = client.respConn.Close()
		return nil, fmt.Errorf("request connection: %w", err)
	}
	client.reqConn = reqConn
	client.respChannel = respChannel

	deliveries, err := consume(reqChannel, config)
	if err != nil {
		client.Close()
		return nil, err
	}
	client.Deliveries = deliveries
	client.ReqChanErrors = reqChannel.NotifyClose(make(chan *amqp.Error))
	client.RespChanErrors = respChannel.NotifyClose(make(chan *amqp.Error))
	rmqLogger.Info().Str("queue", config.ContextTaskQueue).Msg("Consuming task queue")
	return client, nil
}

func consume(ch *amqp.Channel, config Config) (<-chan amqp.Delivery, error) {
	q, err := ch.QueueDeclarePassive(
		config.ContextTaskQueue, // name
		true,                    // durable
		false,                   // delete when unused
		false,                   // exclusive
		false,                   // no-wait
		nil,                     // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("declare %s: %w", config.ContextTaskQueue, err)
	}
	if err = ch.QueueBind(q.Name, q.Name, config.Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind %s: %w", q.Name, err)
	}
	if err = ch.Qos(config.MaxParallelRequestCount, 0, false); err != nil {
		return nil, fmt.Errorf("qos: %w", err)
	}
	deliveries, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume deliveries: %w", err)
	}
	return deliveries, nil
}

func (c *Client) SendMessageToSequencer(msg amqp.Publishing) error {
	return c.respChannel.Publish(
		c.config.Exchange,
		c.config.SequencerTaskQueue,
		false,
		false,
		msg)
}

func (c *Client) Close() {
	if c.reqConn != nil {
		_ = c.reqConn.Close()
	}
	if c.respConn != nil {
		_ = c.respConn.Close()
	}
}

func (config Config) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s", config.Username, config.Password, config.Host, config.Port)
}

// dial retries with a linear backoff, the broker often starts after the service.
func dial(url string, attempts int, rmqLogger zerolog.Logger) (*amqp.Connection, *amqp.Channel, error) {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var conn *amqp.Connection
		conn, err = amqp.Dial(url)
		if err == nil {
			var ch *amqp.Channel
			if ch, err = conn.Channel(); err == nil {
				return conn, ch, nil
			}
			_ = conn.Close()
		}
		rmqLogger.Warn().Err(err).Int("attempt", attempt).Msg("Could not connect to RMQ")
		if attempt < attempts {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}
	return nil, nil, err
}

package worker

import (
	"text2phenotype.com/psyctx/logger"
	"text2phenotype.com/psyctx/metrics"
	"text2phenotype.com/psyctx/pipeline"
	"text2phenotype.com/psyctx/rmq"
	"text2phenotype.com/psyctx/s3client"
	"text2phenotype.com/psyctx/tasks"
	"fmt"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
	"sync"
	"time"
)

type Config struct {
	// attempts of a chunk before it is marked failed
	TaskMaxRetries int `envconfig:"MDL_COMN_RETRY_TASK_COUNT_MAX" default:"3"`
	// attempts to reconnect a client before the worker gives up
	RefreshAttempts int           `envconfig:"PSYCTX_WORKER_REFRESH_ATTEMPTS" default:"3"`
	RefreshBackoff  time.Duration `envconfig:"PSYCTX_WORKER_REFRESH_BACKOFF" default:"2s"`
}

const (
	outcomeAcknowledged = "acknowledged"
	outcomeRejected     = "rejected"
)

type Worker struct {
	config    Config
	redis     redisTransactions
	s3        s3Transactions
	rmq       rmqTransactions
	ctxLogger *zerolog.Logger
	ppln      pipeline.Pipeline
	inFlight  sync.WaitGroup
}

func New(ppln pipeline.Pipeline) (*Worker, error) {
	ctxLogger := logger.NewLogger("Outcome Context Worker")

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		ctxLogger.Error().Err(err).Msg("Could not read config")
		return nil, err
	}

	worker := &Worker{
		config:    config,
		ctxLogger: &ctxLogger,
		ppln:      ppln,
	}
	for _, refresh := range []func() error{worker.refreshRMQClient, worker.refreshS3Client, worker.refreshRedisClients} {
		if err := refresh(); err != nil {
			worker.Close()
			return nil, err
		}
	}
	return worker, nil
}

// StartWorker handles deliveries until the RMQ connection is lost for good. Every delivery
// runs in its own goroutine; Close waits for the running ones.
func (worker *Worker) StartWorker() error {
	defer worker.Close()
	for {
		var reason string
		var cause error
		select {
		case delivery, ok := <-worker.rmq.getDeliveriesCh():
			if ok {
				worker.dispatch(delivery)
				continue
			}
			reason = "deliveries channel closed"
		case rmqErr := <-worker.rmq.getRespChanErrorsCh():
			if rmqErr == nil {
				continue
			}
			reason, cause = "response connection received error", rmqErr
		case rmqErr := <-worker.rmq.getReqChanErrorsCh():
			if rmqErr == nil {
				continue
			}
			reason, cause = "request connection received error", rmqErr
		}
		worker.ctxLogger.Err(cause).Msgf("%s, trying to refresh RMQ client", reason)
		if err := worker.withRetries(worker.refreshRMQClient); err != nil {
			return fmt.Errorf("%s and refresh failed with: %w", reason, err)
		}
	}
}

func (worker *Worker) dispatch(delivery amqp.Delivery) {
	worker.inFlight.Add(1)
	metrics.DeliveriesInFlight.Inc()
	go func() {
		defer func() {
			metrics.DeliveriesInFlight.Dec()
			worker.inFlight.Done()
		}()
		worker.processMessage(&delivery)
	}()
}

func (worker *Worker) Close() {
	worker.inFlight.Wait()
	for _, client := range []interface{ close() }{worker.redis, worker.s3, worker.rmq} {
		if client != nil {
			client.close()
		}
	}
}

// withRetries calls refresh until it succeeds, sleeping a growing backoff in between.
func (worker *Worker) withRetries(refresh func() error) (err error) {
	attempts := worker.config.RefreshAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = refresh(); err == nil {
			return nil
		}
		if attempt < attempts {
			time.Sleep(time.Duration(attempt) * worker.config.RefreshBackoff)
		}
	}
	return err
}

func (worker *Worker) refreshRedisClients() error {
	return worker.refreshClient("Redis", worker.redis, func() error {
		tasksClient, err := tasks.NewClient()
		if err != nil {
			return err
		}
		worker.redis = &redisClientWrapper{&tasksClient}
		return nil
	})
}

func (worker *Worker) refreshRMQClient() error {
	return worker.refreshClient("RMQ", worker.rmq, func() error {
		rmqClient, err := rmq.NewClient()
		if err != nil {
			return err
		}
		worker.rmq = &rmqClientWrapper{rmqClient}
		return nil
	})
}

func (worker *Worker) refreshS3Client() error {
	return worker.refreshClient("S3", worker.s3, func() error {
		s3Client, err := s3client.New()
		if err != nil {
			return err
		}
		worker.s3 = &s3ClientWrapper{s3Client}
		return nil
	})
}

// refreshClient replaces a client and closes the old one only once the new one is up.
func (worker *Worker) refreshClient(name string, old interface{ close() }, create func() error) error {
	clientLogger := worker.ctxLogger.With().Str("client", name).Logger()
	clientLogger.Info().Msg("Refreshing client")
	if err := create(); err != nil {
		clientLogger.Err(err).Msg("Failed to refresh client")
		return err
	}
	if old != nil {
		old.close()
	}
	clientLogger.Info().Msg("Refreshed client")
	return nil
}

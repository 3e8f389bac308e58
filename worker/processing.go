package worker

import (
	"text2phenotype.com/psyctx/metrics"
	"text2phenotype.com/psyctx/pipeline"
	"text2phenotype.com/psyctx/tasks"
	"text2phenotype.com/psyctx/utils"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

var ErrPipelineClosed = errors.New("pipeline channel was closed before returning anything")

type Message struct {
	WorkType string `json:"work_type"`
	RedisKey string `json:"redis_key"`
	Sender   string `json:"sender"`
	Version  string `json:"version"`
}

type Task struct {
	delivery  *amqp.Delivery
	chunkTask *tasks.ChunkTask
	message   *Message
	redisKey  string
	summary   summary
	ctxLogger *zerolog.Logger
}

func (task *Task) info() tasks.ChunkTaskInfo {
	return task.chunkTask.TaskStatuses.Context
}

// processMessage acknowledges a delivery only after the sequencer has been told about it.
// Anything else rejects it, which requeues a first delivery and drops a redelivered one.
func (worker *Worker) processMessage(delivery *amqp.Delivery) {
	rejectLogger := worker.ctxLogger.With().Str("message_id", delivery.MessageId).Logger()
	reject := func() {
		metrics.DeliveriesProcessed.WithLabelValues(outcomeRejected).Inc()
		worker.rmq.rejectDelivery(delivery, &rejectLogger)
	}
	task, err := worker.createTask(delivery)
	if err != nil {
		rejectLogger.Err(err).
			Str("body", string(delivery.Body)).
			Msg("Failed to create task for delivery")
		reject()
		return
	}
	if err = worker.processTask(task); err != nil {
		reject()
		return
	}
	if err = worker.rmq.pingSequencer(task, *task.message); err != nil {
		task.ctxLogger.Err(err).Msg("Got error while sending message to sequencer queue")
		reject()
		return
	}
	metrics.DeliveriesProcessed.WithLabelValues(outcomeAcknowledged).Inc()
	if err = worker.rmq.acknowledgeDelivery(delivery); err != nil {
		task.ctxLogger.Err(err).Msg("Failed to acknowledge delivery")
	}
	task.ctxLogger.Info().Msg("Finished processing RMQ message")
}

func (worker *Worker) createTask(delivery *amqp.Delivery) (*Task, error) {
	var message Message
	if err := json.Unmarshal(delivery.Body, &message); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	chunkTask, err := worker.redis.getChunkTask(message.RedisKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk task %q: %w", message.RedisKey, err)
	}
	taskLogger := worker.ctxLogger.With().Str("tid", message.RedisKey).Logger()
	return &Task{
		delivery:  delivery,
		chunkTask: chunkTask,
		redisKey:  message.RedisKey,
		message:   &message,
		ctxLogger: &taskLogger,
	}, nil
}

func (worker *Worker) processTask(task *Task) error {
	shouldPerform, err := worker.shouldPerformTask(task)
	if err != nil {
		task.ctxLogger.Err(err).Msg("Got error while trying to decide whether to run task")
		return err
	}
	if !shouldPerform {
		return nil
	}
	if err = worker.redis.onTaskStarted(task); err != nil {
		task.ctxLogger.Err(err).Msg("Failed to update task info")
		return fmt.Errorf("failed to update task info: %w", err)
	}
	if err = worker.runPipeline(task); err != nil {
		task.ctxLogger.Err(err).Msg("Got error while running pipeline")
		return worker.redis.onTaskFailedWithError(task, err)
	}
	task.ctxLogger.Info().
		Int("sentences", task.summary.sentences).
		Int("failed_rows", task.summary.failedRows).
		Msg("Saved results, marking task as complete")
	if err = worker.redis.onTaskComplete(task); err != nil {
		task.ctxLogger.Err(err).Msg("Got error while trying to mark task as complete")
		return err
	}
	metrics.ChunkRows.WithLabelValues(string(pipeline.StatusOK)).Add(float64(task.summary.sentences - task.summary.failedRows))
	metrics.ChunkRows.WithLabelValues(string(pipeline.StatusFailed)).Add(float64(task.summary.failedRows))
	return nil
}

func (worker *Worker) runPipeline(task *Task) (err error) {
	defer utils.RecoverWithError(&err)
	task.ctxLogger.Info().Msgf("Processing message from RMQ, attempt # %d", task.info().Attempts)
	data, err := worker.s3.getSentences(task)
	if err != nil {
		return fmt.Errorf("failed to fetch sentences from s3: %w", err)
	}
	result, ok := <-worker.ppln(pipeline.Request{Tid: task.redisKey, Text: string(data)})
	if !ok {
		return ErrPipelineClosed
	}
	if task.summary, err = summarize(result); err != nil {
		return err
	}
	task.ctxLogger.Info().Msg("Finished pipeline, saving results to s3")
	if err = worker.s3.saveResultsFile(task, result); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	return nil
}

func (worker *Worker) shouldPerformTask(task *Task) (bool, error) {
	taskInfo := task.info()
	taskLogger := task.ctxLogger

	if taskInfo.Status.Complete() {
		taskLogger.Info().Msg("Task is already done (might indicate an issue acking the RMQ message). Sending back to Sequencer.")
		return false, nil
	}
	jobTask, err := worker.redis.getJobTask(task)
	if err != nil {
		taskLogger.Err(err).Msg("Failed to query job task for chunk task")
		return false, err
	}
	if jobTask.UserCanceled {
		taskLogger.Info().Msg("Job was canceled, no need to perform this task. Sending back to Sequencer.")
		return false, worker.redis.onTaskCancelled(task)
	}
	if jobTask.StopDocumentsOnFailure {
		docTask, err := worker.redis.getDocTask(task)
		if err != nil {
			return false, err
		}
		if docTask == nil {
			return false, errors.New("document task not found")
		}
		if len(docTask.FailedTasks) > 0 {
			failedTask := docTask.FailedTasks[0]
			taskLogger.Info().Msgf("Task is not required because %q already failed "+
				"and the document won't be processed successfully. Sending back to Sequencer.", failedTask)
			return false, worker.redis.onTaskCancelled(
				task,
				fmt.Sprintf(
					"Task was marked as %q because the document has failed in the %q worker.",
					tasks.TaskStatusCanceled,
					failedTask,
				),
			)
		}
	}
	if taskInfo.Attempts >= worker.config.TaskMaxRetries {
		taskLogger.Info().Msg("Outcome context task has exceeded retries. Sending back to Sequencer.")
		return false, worker.redis.onTaskExceededRetries(task, worker.config.TaskMaxRetries)
	}
	return true, nil
}

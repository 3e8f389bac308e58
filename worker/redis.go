package worker

import (
	"text2phenotype.com/psyctx/tasks"
	"fmt"
)

type redisTransactions interface {
	getChunkTask(redisKey string) (*tasks.ChunkTask, error)
	getJobTask(task *Task) (*tasks.JobTask, error)
	getDocTask(task *Task) (*tasks.DocumentTaskCached, error)
	onTaskStarted(task *Task) error
	onTaskCancelled(task *Task, errorMessages ...string) error
	onTaskExceededRetries(task *Task, maxRetries int) error
	onTaskFailedWithError(task *Task, err error) error
	onTaskComplete(task *Task) error
	close()
}

type redisClientWrapper struct {
	tasksClient *tasks.Client
}

func (wrapper *redisClientWrapper) close() {
	wrapper.tasksClient.Close()
}

// updateInfo changes only this service's entry of the chunk task statuses.
func (wrapper *redisClientWrapper) updateInfo(task *Task, updateFunc func(info *tasks.ChunkTaskInfo)) error {
	return wrapper.tasksClient.Chunks.Update(task.redisKey, func(chunkTask *tasks.ChunkTask) {
		updateFunc(&chunkTask.TaskStatuses.Context)
	})
}

func (wrapper *redisClientWrapper) onTaskStarted(task *Task) error {
	return wrapper.updateInfo(task, func(info *tasks.ChunkTaskInfo) {
		info.Status = tasks.TaskStatusStarted
		info.Attempts++
		info.StartedAt = getFormattedNow()
		info.CompletedAt = nil
	})
}

func (wrapper *redisClientWrapper) onTaskCancelled(task *Task, errorMessages ...string) error {
	return wrapper.updateInfo(task, func(info *tasks.ChunkTaskInfo) {
		now := getFormattedNow()
		info.Status = tasks.TaskStatusCanceled
		info.StartedAt = now
		info.CompletedAt = now
		info.Attempts++
		info.ErrorMessages = append(info.ErrorMessages, errorMessages...)
	})
}

func (wrapper *redisClientWrapper) onTaskExceededRetries(task *Task, maxRetries int) error {
	err := wrapper.tasksClient.Documents.Update(task.chunkTask.DocID, func(docTask *tasks.DocumentTask) {
		docTask.MarkFailed(task.redisKey)
	})
	if err != nil {
		return err
	}
	return wrapper.updateInfo(task, func(info *tasks.ChunkTaskInfo) {
		now := getFormattedNow()
		info.Status = tasks.TaskStatusCompletedFailure
		info.StartedAt = now
		info.CompletedAt = now
		info.Attempts++
		info.ErrorMessages = append(info.ErrorMessages, fmt.Sprintf(
			"Task has exceeded retries. (Attempts: %d, max retries: %d )",
			info.Attempts,
			maxRetries,
		))
	})
}

func (wrapper *redisClientWrapper) onTaskFailedWithError(task *Task, err error) error {
	return wrapper.updateInfo(task, func(info *tasks.ChunkTaskInfo) {
		info.Status = tasks.TaskStatusFailed
		info.CompletedAt = getFormattedNow()
		info.ErrorMessages = append(info.ErrorMessages, err.Error())
	})
}

func (wrapper *redisClientWrapper) onTaskComplete(task *Task) error {
	return wrapper.updateInfo(task, func(info *tasks.ChunkTaskInfo) {
		markComplete(task, info)
	})
}

func markComplete(task *Task, info *tasks.ChunkTaskInfo) {
	if !info.Status.Complete() {
		info.Status = tasks.TaskStatusCompletedSuccess
	}
	info.CompletedAt = getFormattedNow()
	info.ResultsFileKey = getResultsFileKey(task)
	info.Sentences = task.summary.sentences
	info.FailedRows = task.summary.failedRows
}

func (wrapper *redisClientWrapper) getChunkTask(redisKey string) (*tasks.ChunkTask, error) {
	return wrapper.tasksClient.Chunks.Get(redisKey)
}

func (wrapper *redisClientWrapper) getJobTask(task *Task) (*tasks.JobTask, error) {
	return wrapper.tasksClient.Jobs.GetCached(task.chunkTask.JobID)
}

func (wrapper *redisClientWrapper) getDocTask(task *Task) (*tasks.DocumentTaskCached, error) {
	return wrapper.tasksClient.Documents.GetCached(task.chunkTask.DocID)
}

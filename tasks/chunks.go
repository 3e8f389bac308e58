package tasks

import (
	"text2phenotype.com/psyctx/redis"
	"text2phenotype.com/psyctx/utils/maps"
)

const ChunksDB redis.DB = 2

// ContextTaskName is the key of this service in task statuses and failure lists.
const ContextTaskName = "outcome_context"

type TaskStatus string

const (
	TaskStatusProcessing       TaskStatus = "processing"
	TaskStatusSubmitted        TaskStatus = "submitted"
	TaskStatusStarted          TaskStatus = "started"
	TaskStatusFailed           TaskStatus = "failed"
	TaskStatusCompletedSuccess TaskStatus = "completed - success"
	TaskStatusCompletedFailure TaskStatus = "completed - failure"
	TaskStatusCanceled         TaskStatus = "canceled"
)

func (s TaskStatus) Complete() bool {
	return s == TaskStatusCompletedSuccess || s == TaskStatusCompletedFailure || s == TaskStatusCanceled
}

func (s TaskStatus) Submitted() bool {
	return s == TaskStatusSubmitted || s == TaskStatusStarted || s == TaskStatusProcessing
}

// ChunkTask is the part of a chunk document this service reads and writes. SentencesFileKey
// points to the JSON lines rows (sentence plus detected phrases) produced upstream.
type ChunkTask struct {
	maps.BaseDocument
	DocID            string            `json:"document_id"`
	JobID            string            `json:"job_id"`
	SentencesFileKey string            `json:"sentences_file_key"`
	TaskStatuses     ChunkTaskStatuses `json:"task_statuses"`
}

type ChunkTaskStatuses struct {
	Context ChunkTaskInfo `json:"outcome_context"`
}

type ChunkTaskInfo struct {
	ResultsFileKey string     `json:"results_file_key"`
	StartedAt      *string    `json:"started_at"`
	CompletedAt    *string    `json:"completed_at"`
	Attempts       int        `json:"attempts"`
	Status         TaskStatus `json:"status"`
	Dependencies   []string   `json:"dependencies"`
	ErrorMessages  []string   `json:"error_messages"`
	Sentences      int        `json:"sentences"`
	FailedRows     int        `json:"failed_rows"`
}

type ChunkTasks struct {
	client *redis.Client
}

func (tasks ChunkTasks) Get(redisKey string) (*ChunkTask, error) {
	var task ChunkTask
	if err := tasks.client.GetPartialDocument(redisKey, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (tasks ChunkTasks) Update(redisKey string, updateFunc func(task *ChunkTask)) error {
	return redis.UpdatePartialDocument(tasks.client, redisKey, &ChunkTask{}, updateFunc)
}

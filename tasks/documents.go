package tasks

import (
	"text2phenotype.com/psyctx/redis"
	"text2phenotype.com/psyctx/utils/maps"
	"sync"
)

const DocumentsDB redis.DB = 0

type DocumentTask struct {
	maps.BaseDocument
	FailedTasks  []string            `json:"failed_tasks"`
	FailedChunks map[string][]string `json:"failed_chunks"`
}

// MarkFailed records that this service gave up on the chunk.
func (task *DocumentTask) MarkFailed(chunkKey string) {
	task.FailedTasks = append(task.FailedTasks, ContextTaskName)
	if task.FailedChunks == nil {
		task.FailedChunks = make(map[string][]string)
	}
	task.FailedChunks[chunkKey] = append(task.FailedChunks[chunkKey], ContextTaskName)
}

// DocumentTaskCached is the copy other services read without taking the document lock.
type DocumentTaskCached struct {
	maps.BaseDocument
	DocInfo     map[string]interface{} `json:"document_info"`
	FailedTasks []string               `json:"failed_tasks"`
	JobID       string                 `json:"job_id"`
	WorkType    string                 `json:"work_type"`
}

type DocumentTasks struct {
	client *redis.Client
}

func (tasks DocumentTasks) Get(redisKey string) (*DocumentTask, error) {
	var task DocumentTask
	if err := tasks.client.GetPartialDocument(redisKey, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (tasks DocumentTasks) GetCached(redisKey string) (*DocumentTaskCached, error) {
	var task DocumentTaskCached
	if err := tasks.client.GetPartialDocument(cachedPropertiesKey(redisKey), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Update changes the document and its cached copy under one lock.
func (tasks DocumentTasks) Update(redisKey string, updateFunc func(task *DocumentTask)) (err error) {
	releaseLock, err := tasks.client.Lock(redisKey)
	if err != nil {
		return err
	}
	defer func() {
		releaseErr := releaseLock()
		if err == nil {
			err = releaseErr
		}
	}()

	var task DocumentTask
	if err = tasks.client.GetPartialDocument(redisKey, &task); err != nil {
		return err
	}
	if err = maps.ApplyUpdates(&task, updateFunc); err != nil {
		return err
	}
	var cached DocumentTaskCached
	if err = maps.CopyValues(&task, &cached); err != nil {
		return err
	}

	errChan := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		errChan <- tasks.client.SaveDoc(redisKey, &task)
	}()
	go func() {
		defer wg.Done()
		errChan <- tasks.client.SaveDoc(cachedPropertiesKey(redisKey), &cached)
	}()
	wg.Wait()
	close(errChan)
	for saveErr := range errChan {
		if saveErr != nil {
			return saveErr
		}
	}
	return nil
}

package worker

import (
	"text2phenotype.com/psyctx/pipeline"
	"text2phenotype.com/psyctx/tasks"
	"encoding/json"
	"errors"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

type failingMethod struct {
	fail bool
}

var defaultPipelineResult = mustMarshal(map[string]pipeline.Response{
	"base": {
		DocID:  "chunk-1",
		Labels: []string{"negation", "temporality"},
		Records: []pipeline.Record{
			{
				ID:          "1",
				Rules:       "phrase",
				Texts:       "angst",
				StartTokens: "1",
				Contexts:    map[string]string{"negation": "negated", "temporality": "current"},
				Status:      pipeline.StatusOK,
			},
			{ID: "2", Status: pipeline.StatusFailed, Error: "line 2: malformed row"},
		},
	},
})

func mustMarshal(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

type pipelineMock struct {
	ppln    pipeline.Pipeline
	config  pipelineMockConfig
	calls   pipelineCall
	request pipeline.Request
}

type pipelineMockConfig struct {
	fail   bool
	result string
}

type pipelineCall struct {
	pipeline bool
}

func getPipelineMock(config pipelineMockConfig) *pipelineMock {
	mock := pipelineMock{config: config}
	mock.ppln = func(request pipeline.Request) <-chan string {
		mock.calls.pipeline = true
		mock.request = request
		ch := make(chan string, 1)
		if !mock.config.fail {
			result := mock.config.result
			if result == "" {
				result = defaultPipelineResult
			}
			ch <- result
		}
		close(ch)
		return ch
	}
	return &mock
}

type redisMock struct {
	config    redisMockConfig
	calls     redisMockCalls
	completed *Task
}

type redisMockConfig struct {
	getChunkTask          failingMethod
	getJobTask            failingMethod
	getDocTask            failingMethod
	onTaskCancelled       failingMethod
	onTaskStarted         failingMethod
	onTaskExceededRetries failingMethod
	onTaskFailedWithError failingMethod
	onTaskComplete        failingMethod

	chunkTask tasks.ChunkTask
	jobTask   tasks.JobTask
	docTask   tasks.DocumentTaskCached
}

type redisMockCalls struct {
	getChunkTask          bool
	getJobTask            bool
	getDocTask            bool
	onTaskCancelled       bool
	onTaskStarted         bool
	onTaskExceededRetries bool
	onTaskFailedWithError bool
	onTaskComplete        bool
}

func (mock *redisMock) close() {}

func (mock *redisMock) getChunkTask(redisKey string) (*tasks.ChunkTask, error) {
	mock.calls.getChunkTask = true
	if mock.config.getChunkTask.fail {
		return nil, errors.New("failed to get chunk task")
	}
	chunkTask := mock.config.chunkTask
	return &chunkTask, nil
}

func (mock *redisMock) getJobTask(task *Task) (*tasks.JobTask, error) {
	mock.calls.getJobTask = true
	if mock.config.getJobTask.fail {
		return nil, errors.New("failed to get job task")
	}
	jobTask := mock.config.jobTask
	return &jobTask, nil
}

func (mock *redisMock) getDocTask(task *Task) (*tasks.DocumentTaskCached, error) {
	mock.calls.getDocTask = true
	if mock.config.getDocTask.fail {
		return nil, errors.New("failed to get doc task")
	}
	docTask := mock.config.docTask
	return &docTask, nil
}

func (mock *redisMock) onTaskStarted(task *Task) error {
	mock.calls.onTaskStarted = true
	if mock.config.onTaskStarted.fail {
		return errors.New("failed to update chunk task on start")
	}
	return nil
}

func (mock *redisMock) onTaskCancelled(task *Task, errorMessages ...string) error {
	mock.calls.onTaskCancelled = true
	if mock.config.onTaskCancelled.fail {
		return errors.New("failed to update chunk task on cancel")
	}
	return nil
}

func (mock *redisMock) onTaskExceededRetries(task *Task, maxRetries int) error {
	mock.calls.onTaskExceededRetries = true
	if mock.config.onTaskExceededRetries.fail {
		return errors.New("failed to update chunk task on exceeded retries")
	}
	return nil
}

func (mock *redisMock) onTaskFailedWithError(task *Task, err error) error {
	mock.calls.onTaskFailedWithError = true
	if mock.config.onTaskFailedWithError.fail {
		return errors.New("failed to update chunk task on fail with error")
	}
	return nil
}

func (mock *redisMock) onTaskComplete(task *Task) error {
	mock.calls.onTaskComplete = true
	mock.completed = task
	if mock.config.onTaskComplete.fail {
		return errors.New("failed to update chunk task on complete")
	}
	return nil
}

type rmqMock struct {
	config rmqMockConfig
	calls  rmqMockCalls
	closed bool
}

type rmqMockConfig struct {
	pingSequencer       failingMethod
	acknowledgeDelivery failingMethod
}

type rmqMockCalls struct {
	pingSequencer       bool
	acknowledgeDelivery bool
	rejectDelivery      bool
}

func (mock *rmqMock) close() { mock.closed = true }

func (mock *rmqMock) rejectDelivery(delivery *amqp.Delivery, ctxLogger *zerolog.Logger) {
	mock.calls.rejectDelivery = true
}

func (mock *rmqMock) getDeliveriesCh() <-chan amqp.Delivery {
	return nil
}

func (mock *rmqMock) getReqChanErrorsCh() <-chan *amqp.Error {
	return nil
}

func (mock *rmqMock) getRespChanErrorsCh() <-chan *amqp.Error {
	return nil
}

func (mock *rmqMock) pingSequencer(task *Task, message Message) error {
	mock.calls.pingSequencer = true
	if mock.config.pingSequencer.fail {
		return errors.New("failed to ping sequencer")
	}
	return nil
}

func (mock *rmqMock) acknowledgeDelivery(delivery *amqp.Delivery) error {
	mock.calls.acknowledgeDelivery = true
	if mock.config.acknowledgeDelivery.fail {
		return errors.New("failed to acknowledge delivery")
	}
	return nil
}

type s3Mock struct {
	config s3MockConfig
	calls  s3MockCalls
	saved  string
}

type s3MockConfig struct {
	getSentences    failingMethod
	saveResultsFile failingMethod
	sentences       []byte
}

type s3MockCalls struct {
	getSentences    bool
	saveResultsFile bool
}

func (mock *s3Mock) close() {}

func (mock *s3Mock) getSentences(task *Task) ([]byte, error) {
	mock.calls.getSentences = true
	if mock.config.getSentences.fail {
		return nil, errors.New("mock: failed to load from s3")
	}
	if mock.config.sentences == nil {
		return []byte(`{"id":"1","text":"geen angst","phrases":"angst"}`), nil
	}
	return mock.config.sentences, nil
}

func (mock *s3Mock) saveResultsFile(task *Task, result string) error {
	mock.calls.saveResultsFile = true
	if mock.config.saveResultsFile.fail {
		return errors.New("failed to upload results")
	}
	mock.saved = result
	return nil
}

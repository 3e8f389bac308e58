package worker

import (
	"text2phenotype.com/psyctx/s3client"
	"errors"
)

var errNoSentencesFile = errors.New("chunk task has no sentences file")

type s3Transactions interface {
	saveResultsFile(task *Task, result string) error
	getSentences(task *Task) ([]byte, error)
	close()
}

type s3ClientWrapper struct {
	s3Client *s3client.Client
}

func (wrapper *s3ClientWrapper) close() {
	wrapper.s3Client.Close()
}

func (wrapper *s3ClientWrapper) saveResultsFile(task *Task, result string) error {
	return wrapper.s3Client.Upload(result, getResultsFileKey(task), s3client.ContentTypeJSON)
}

func (wrapper *s3ClientWrapper) getSentences(task *Task) ([]byte, error) {
	if task.chunkTask.SentencesFileKey == "" {
		return nil, errNoSentencesFile
	}
	return wrapper.s3Client.Download(task.chunkTask.SentencesFileKey)
}

package s3client

import (
	"text2phenotype.com/psyctx/logger"
	"errors"
	"fmt"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"strings"
)

const ContentTypeJSON = "application/json"

var ErrNoSession = errors.New("no S3 session available")

type EnvironmentConfig struct {
	BucketName  string `envconfig:"MDL_COMN_STORAGE_CONTAINER_NAME" required:"true"`
	T2PEnv      string `envconfig:"T2P_ENV" required:"true"`
	Region      string `envconfig:"MDL_COMN_AWS_REGION_NAME" required:"true"`
	AwsEndpoint string `envconfig:"MDL_COMN_AWS_ENDPOINT_URL" default:""`
	AccessKeyID string `envconfig:"MDL_COMN_AWS_ACCESS_ID" default:""`
	AccessKey   string `envconfig:"MDL_COMN_AWS_ACCESS_KEY" default:""`
}

// Client reads sentence batches and writes context results in one bucket. A failed call
// refreshes the shared session once and is retried.
type Client struct {
	bucketName string
	sessions   *sessionKeeper
}

var clientLogger = logger.NewLogger("S3 client")
var sdkLogger = logger.NewLogger("S3 SDK")

func New() (*Client, error) {
	var env EnvironmentConfig
	if err := envconfig.Process("", &env); err != nil {
		clientLogger.Err(err).Caller().Msg("Failed to get proper variables from environment")
		return nil, err
	}
	keeper, err := newSessionKeeper(env)
	if err != nil {
		return nil, err
	}
	return &Client{bucketName: env.BucketName, sessions: keeper}, nil
}

func (client *Client) Upload(data string, key string, contentType string) error {
	params := &s3manager.UploadInput{
		Bucket:      aws.String(client.bucketName),
		Key:         aws.String(key),
		Body:        strings.NewReader(data),
		ContentType: aws.String(contentType),
	}
	return client.withSession(key, func(sess *session.Session, sdkLog aws.Logger) error {
		uploader := s3manager.NewUploader(sess.Copy(&aws.Config{Logger: sdkLog}))
		_, err := uploader.Upload(params)
		return err
	})
}

func (client *Client) Download(key string) ([]byte, error) {
	params := &s3.GetObjectInput{
		Bucket: aws.String(client.bucketName),
		Key:    aws.String(key),
	}
	var data []byte
	err := client.withSession(key, func(sess *session.Session, sdkLog aws.Logger) error {
		downloader := s3manager.NewDownloader(sess.Copy(&aws.Config{Logger: sdkLog}))
		buf := aws.NewWriteAtBuffer([]byte{})
		size, err := downloader.Download(buf, params)
		if err != nil {
			return err
		}
		clientLogger.Debug().Str("key", key).Msgf("Downloaded %v bytes", size)
		data = buf.Bytes()
		return nil
	})
	return data, err
}

func (client *Client) Close() {
	client.sessions.close()
}

func (client *Client) withSession(key string, call func(sess *session.Session, sdkLog aws.Logger) error) error {
	sdkLog := &s3Logger{sdkLogger.With().Str("key", key).Str("bucket", client.bucketName).Logger()}
	sess, err := client.sessions.get()
	if err != nil {
		return err
	}
	if err = call(sess, sdkLog); err == nil {
		return nil
	}
	clientLogger.Warn().Err(err).Str("key", key).Msg("S3 call failed, retrying with a fresh session")
	if sess, err = client.sessions.refresh(err); err != nil {
		return err
	}
	if err = call(sess, sdkLog); err != nil {
		return fmt.Errorf("s3 %s/%s: %w", client.bucketName, key, err)
	}
	return nil
}

type s3Logger struct {
	sdkLog zerolog.Logger
}

func (l *s3Logger) Log(v ...interface{}) {
	l.sdkLog.Debug().Msg(fmt.Sprint(v...))
}

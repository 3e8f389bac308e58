package s3client

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sts"
)

// sessionKeeper owns the current session in one goroutine. Callers receive it on
// requestCh and report failures on errorCh, which makes the goroutine acquire a new one.
type sessionKeeper struct {
	env       EnvironmentConfig
	curr      *session.Session
	requestCh chan *session.Session
	errorCh   chan error
	closeCh   chan struct{}
}

func newSessionKeeper(env EnvironmentConfig) (*sessionKeeper, error) {
	keeper := &sessionKeeper{
		env:       env,
		requestCh: make(chan *session.Session),
		errorCh:   make(chan error),
		closeCh:   make(chan struct{}, 1),
	}
	if err := keeper.acquire(); err != nil {
		return nil, err
	}
	go keeper.run()
	return keeper, nil
}

func (keeper *sessionKeeper) run() {
	for {
		select {
		case keeper.requestCh <- keeper.curr:
		case err := <-keeper.errorCh:
			clientLogger.Error().Err(err).Msg("Caught error while using S3 session, trying to refresh it")
			if err = keeper.acquire(); err != nil {
				clientLogger.Error().Err(err).Msg("Caught error while refreshing S3 session")
				continue
			}
			clientLogger.Info().Msg("Successfully refreshed session")
		case <-keeper.closeCh:
			clientLogger.Info().Msg("Closing client")
			return
		}
	}
}

func (keeper *sessionKeeper) get() (*session.Session, error) {
	sess := <-keeper.requestCh
	if sess == nil {
		return nil, ErrNoSession
	}
	return sess, nil
}

// refresh reports err unless another caller already did, then waits for the next session.
func (keeper *sessionKeeper) refresh(err error) (*session.Session, error) {
	var sess *session.Session
	select {
	case keeper.errorCh <- err:
		sess = <-keeper.requestCh
	case sess = <-keeper.requestCh:
	}
	if sess == nil {
		return nil, ErrNoSession
	}
	return sess, nil
}

func (keeper *sessionKeeper) close() {
	keeper.closeCh <- struct{}{}
}

// acquire tries the instance role first and falls back to static credentials from the environment.
func (keeper *sessionKeeper) acquire() error {
	for _, cfg := range []*aws.Config{keeper.instanceConfig(), keeper.staticConfig()} {
		if cfg == nil {
			continue
		}
		sess, err := session.NewSession(cfg)
		if err != nil {
			clientLogger.Error().Err(err).Msg("Could not initialize S3 session")
			continue
		}
		if _, err = sts.New(sess).GetCallerIdentity(&sts.GetCallerIdentityInput{}); err != nil {
			clientLogger.Info().Err(err).Msg("S3 session credentials were rejected")
			continue
		}
		keeper.curr = sess
		clientLogger.Info().Msg("S3 session successfully initialized")
		return nil
	}
	keeper.curr = nil
	return ErrNoSession
}

func (keeper *sessionKeeper) instanceConfig() *aws.Config {
	return aws.NewConfig().
		WithRegion(keeper.env.Region).
		WithMaxRetries(4).
		WithLogLevel(aws.LogDebug)
}

func (keeper *sessionKeeper) staticConfig() *aws.Config {
	if keeper.env.AccessKeyID == "" {
		return nil
	}
	cfg := aws.NewConfig().
		WithRegion(keeper.env.Region).
		WithMaxRetries(4).
		WithCredentials(credentials.NewStaticCredentials(keeper.env.AccessKeyID, keeper.env.AccessKey, "")).
		WithLogLevel(aws.LogDebug)
	if keeper.env.T2PEnv == "dev" && keeper.env.AwsEndpoint != "" {
		cfg = cfg.WithEndpoint(keeper.env.AwsEndpoint).WithS3ForcePathStyle(true)
	}
	return cfg
}

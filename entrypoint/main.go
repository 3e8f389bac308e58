package main

import (
	"text2phenotype.com/psyctx/api"
	"text2phenotype.com/psyctx/logger"
	"text2phenotype.com/psyctx/parse"
	"text2phenotype.com/psyctx/pipeline"
	"text2phenotype.com/psyctx/redis"
	"text2phenotype.com/psyctx/types"
	"text2phenotype.com/psyctx/worker"
	"errors"
	"flag"
	"fmt"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"
)

type Config struct {
	ConfigPath    string        `envconfig:"PSYCTX_CONFIG_PATH" required:"true"`
	RestAPIActive bool          `envconfig:"PSYCTX_REST_API_ACTIVE" default:"false"`
	RestAPIPort   string        `envconfig:"PSYCTX_REST_API_PORT" default:"10000"`
	WorkerActive  bool          `envconfig:"PSYCTX_WORKER_ACTIVE" default:"true"`
	RedisParses   bool          `envconfig:"PSYCTX_REDIS_PARSES" default:"false"`
	ParseCacheTTL time.Duration `envconfig:"PSYCTX_PARSE_CACHE_TTL" default:"10m"`
}

const pipelineStartMaxRetries = 5

func main() {
	wrap := flag.Bool("wrap", false, "run the service as a child process and log its panics")
	inPath := flag.String("in", "", "JSON lines rows to annotate locally instead of serving")
	outPath := flag.String("out", "", "TSV output of a local run (stdout when empty)")
	configName := flag.String("config", "", "configuration used by a local run (first one when empty)")
	flag.Parse()

	if *wrap && !logger.IsWrapped() {
		logger.WrapProcess(os.Args[0], withoutWrapFlag(os.Args[1:])...)
	}

	logger.SetupLogging()
	ctxLogger := logger.NewLogger("Main")
	fatalErrLogger := ctxLogger.Fatal().Caller()

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		fatalErrLogger.Err(err).Msg("Failed to read environment")
		os.Exit(1)
	}

	provider, closeProvider, err := newProvider(config, ctxLogger)
	if err != nil {
		fatalErrLogger.Err(err).Msg("Failed to create parse provider")
		os.Exit(1)
	}
	defer closeProvider()

	if *inPath != "" {
		if err = runLocal(config, *configName, *inPath, *outPath, provider); err != nil {
			closeProvider()
			fatalErrLogger.Err(err).Msg("Local run failed")
			os.Exit(1)
		}
		ctxLogger.Info().Str("in", *inPath).Msg("Local run finished")
		return
	}

	ppln := loadPipeline(config, provider, ctxLogger)

	if config.RestAPIActive {
		go func() {
			host := fmt.Sprintf(":%s", config.RestAPIPort)
			ctxLogger.Info().Msgf("REST API on %s", host)
			err := http.ListenAndServe(host, api.NewHandler(ppln))
			fatalErrLogger.Err(err).Msg("REST API stopped with error")
			os.Exit(1)
		}()
	}

	if !config.WorkerActive {
		select {}
	}

	ctxLogger.Info().Msg("Start outcome context worker")
	for {
		rmqWorker, err := worker.New(ppln)
		if err != nil {
			fatalErrLogger.Err(err).Msg("Could not initialize RMQ worker")
			os.Exit(1)
		}
		if err = rmqWorker.StartWorker(); err != nil {
			ctxLogger.Err(err).Msg("Worker returned with error. Launching new in 5 seconds")
			time.Sleep(5 * time.Second)
		}
	}
}

func withoutWrapFlag(args []string) []string {
	res := make([]string, 0, len(args))
	for _, arg := range args {
		if arg != "-wrap" && arg != "--wrap" {
			res = append(res, arg)
		}
	}
	return res
}

// newProvider chains the parses stored by the upstream parser with the tokenizer fallback.
func newProvider(config Config, ctxLogger zerolog.Logger) (parse.Provider, func(), error) {
	providers := []parse.Provider{}
	closeFunc := func() {}
	if config.RedisParses {
		client, err := redis.NewClient(parse.ParsesDB)
		if err != nil {
			return nil, nil, err
		}
		providers = append(providers, parse.NewRedisStore(&client))
		closeFunc = func() { _ = client.Close() }
		ctxLogger.Info().Msg("Reading dependency parses from Redis")
	}
	providers = append(providers, parse.Tokenizer{})
	return parse.NewCache(parse.Chain(providers...), config.ParseCacheTTL), closeFunc, nil
}

// loadPipeline waits for the configuration directory to appear. Broken configurations are
// fatal at once.
func loadPipeline(config Config, provider parse.Provider, ctxLogger zerolog.Logger) pipeline.Pipeline {
	for retry := 0; retry < pipelineStartMaxRetries; retry++ {
		cfgs, err := types.LoadConfigurations(config.ConfigPath)
		if err == nil && len(cfgs) == 0 {
			err = fmt.Errorf("%w: no configurations found", fs.ErrNotExist)
		}
		if errors.Is(err, fs.ErrNotExist) {
			ctxLogger.Err(err).Msg("Failed to load configurations. Retrying in 5 sec")
			time.Sleep(5 * time.Second)
			continue
		}
		if err != nil {
			ctxLogger.Fatal().Err(err).Msg("Invalid configurations")
			os.Exit(1)
		}
		ctxLogger.Info().Msgf("Loaded %d configurations", len(cfgs))
		ppln, err := pipeline.New(cfgs, provider)
		if err != nil {
			ctxLogger.Fatal().Err(err).Msg("Failed to start outcome context pipeline")
			os.Exit(1)
		}
		ctxLogger.Info().Msg("Pipelines loaded")
		return ppln
	}
	ctxLogger.Fatal().Msgf("Could not start pipelines after %d retries, exiting", pipelineStartMaxRetries)
	os.Exit(1)
	return nil
}

func runLocal(config Config, configName string, inPath string, outPath string, provider parse.Provider) error {
	cfgs, err := types.LoadConfigurations(config.ConfigPath)
	if err != nil {
		return err
	}
	cfg, err := pickConfiguration(cfgs, configName)
	if err != nil {
		return err
	}
	if cfg.CheckFeature(types.RelationFeature) && !parse.HasDependencies(provider) {
		return fmt.Errorf("configuration %s: %w", cfg.Name, pipeline.ErrNoDependencies)
	}
	engine, err := pipeline.NewEngine(cfg)
	if err != nil {
		return err
	}

	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()
	rows, err := pipeline.ReadRows(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", inPath, err)
	}

	var out io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return pipeline.WriteTSV(out, engine.Labels(), engine.Batch(rows, provider))
}

func pickConfiguration(cfgs []types.Configuration, name string) (types.Configuration, error) {
	if len(cfgs) == 0 {
		return types.Configuration{}, errors.New("no configurations found")
	}
	if name == "" {
		return cfgs[0], nil
	}
	for _, cfg := range cfgs {
		if cfg.Name == name {
			return cfg, nil
		}
	}
	return types.Configuration{}, fmt.Errorf("configuration %q not found", name)
}

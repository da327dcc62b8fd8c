// Package config loads schemacrawler's runtime configuration from
// flags, environment variables (SCHEMACRAWLER_ prefixed), an optional
// config file, and defaults, in that priority order, using viper over
// a pflag.FlagSet.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// QueueBackend selects which pkg/queue implementation Load wires up.
type QueueBackend string

const (
	QueueFile        QueueBackend = "file"
	QueueServiceBus  QueueBackend = "servicebus"
	QueueStorage     QueueBackend = "storage"
)

// Config is the full set of options recognized by schemacrawler
// (spec.md §6's configuration table).
type Config struct {
	// Queue
	QueueType             QueueBackend
	QueueDir              string
	QueueConnectionString string
	QueueName             string
	// QueueDepthWarnAt is the backlog size at or above which /ready
	// reports "degraded" (see pkg/metrics.SetQueueDepthWarnThreshold).
	// 0 disables the check.
	QueueDepthWarnAt int

	// Store (relational backend; see DB_DIALECT for mysql/postgres)
	DBDialect  string
	DBServer   string
	DBDatabase string
	DBUser     string
	DBPassword string
	// BoltPath, when set, selects the embedded bbolt Store instead of
	// the relational one — there is no spec.md config key for this
	// because the original has no embedded-store mode; it's a
	// dev/single-node convenience this port adds.
	BoltPath string

	// Indexer
	EmbeddingEndpoint   string
	EmbeddingAPIKey     string
	EmbeddingDeployment string
	SearchEndpoint      string
	SearchAPIKey        string
	SearchIndex         string

	// Scheduler / worker
	SchedulerInterval    time.Duration
	SchedulerConcurrency int
	WorkerPoolSize       int
	HTTPTimeout          time.Duration

	// Reconciler
	ReconcileInterval time.Duration
	ReconcileRepair   bool

	// Logging
	LogLevel string
	LogJSON  bool
}

const envPrefix = "SCHEMACRAWLER"

// Load reads configuration from flags, SCHEMACRAWLER_*-prefixed
// environment variables, configFile (if non-empty), and defaults, in
// that order of precedence. flags may be nil, in which case only
// environment variables, configFile and defaults apply; cmd/schemacrawler
// passes the pflag.FlagSet it registered via BindFlags.
func Load(flags *pflag.FlagSet, configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	if flags != nil {
		// Flag names use "-" (worker.pool-size) while keys are read with
		// "_" (worker.pool_size), so bind each flag under its "_" key.
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("config: bind flags: %w", bindErr)
		}
	}

	return &Config{
		QueueType:             QueueBackend(v.GetString("queue.type")),
		QueueDir:              v.GetString("queue.dir"),
		QueueConnectionString: v.GetString("queue.connection_string"),
		QueueName:             v.GetString("queue.name"),
		QueueDepthWarnAt:      v.GetInt("queue.depth_warn_at"),

		DBDialect:  v.GetString("db.dialect"),
		DBServer:   v.GetString("db.server"),
		DBDatabase: v.GetString("db.database"),
		DBUser:     v.GetString("db.user"),
		DBPassword: v.GetString("db.password"),
		BoltPath:   v.GetString("db.bolt_path"),

		EmbeddingEndpoint:   v.GetString("embedding.endpoint"),
		EmbeddingAPIKey:     v.GetString("embedding.api_key"),
		EmbeddingDeployment: v.GetString("embedding.deployment"),
		SearchEndpoint:      v.GetString("search.endpoint"),
		SearchAPIKey:        v.GetString("search.api_key"),
		SearchIndex:         v.GetString("search.index"),

		SchedulerInterval:    v.GetDuration("scheduler.interval"),
		SchedulerConcurrency: v.GetInt("scheduler.concurrency"),
		WorkerPoolSize:       v.GetInt("worker.pool_size"),
		HTTPTimeout:          v.GetDuration("http.timeout"),

		ReconcileInterval: v.GetDuration("reconcile.interval"),
		ReconcileRepair:   v.GetBool("reconcile.repair"),

		LogLevel: v.GetString("log.level"),
		LogJSON:  v.GetBool("log.json"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("queue.type", string(QueueFile))
	v.SetDefault("queue.dir", "./data/queue")
	v.SetDefault("queue.depth_warn_at", 0)

	v.SetDefault("db.dialect", "mysql")
	v.SetDefault("db.bolt_path", "")

	v.SetDefault("scheduler.interval", 60*time.Second)
	v.SetDefault("scheduler.concurrency", 4)
	v.SetDefault("worker.pool_size", 4)
	v.SetDefault("http.timeout", 30*time.Second)

	v.SetDefault("reconcile.interval", 10*time.Minute)
	v.SetDefault("reconcile.repair", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// BindFlags registers the flags Load understands on fs, so cmd/
// callers can expose them on the cobra command while still falling
// back to SCHEMACRAWLER_* env vars and defaults.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("queue.type", string(QueueFile), "queue backend: file, servicebus, storage")
	fs.String("queue.dir", "./data/queue", "file-queue spool directory")
	fs.String("queue.connection-string", "", "cloud queue connection string")
	fs.String("queue.name", "", "cloud queue/topic name")
	fs.Int("queue.depth-warn-at", 0, "queue backlog size at or above which /ready reports degraded (0 disables)")

	fs.String("db.dialect", "mysql", "store SQL dialect: mysql, postgres")
	fs.String("db.server", "", "store DB server address")
	fs.String("db.database", "", "store DB name")
	fs.String("db.user", "", "store DB user")
	fs.String("db.password", "", "store DB password")
	fs.String("db.bolt-path", "", "use the embedded bbolt store at this path instead of SQL")

	fs.String("embedding.endpoint", "", "embedding API endpoint")
	fs.String("embedding.api-key", "", "embedding API key")
	fs.String("embedding.deployment", "", "embedding model deployment name")
	fs.String("search.endpoint", "", "vector search endpoint")
	fs.String("search.api-key", "", "vector search API key")
	fs.String("search.index", "", "vector search index name")

	fs.Duration("scheduler.interval", 60*time.Second, "scheduler tick interval")
	fs.Int("scheduler.concurrency", 4, "max sites discovered concurrently per tick")
	fs.Int("worker.pool-size", 4, "number of concurrent worker loops")
	fs.Duration("http.timeout", 30*time.Second, "HTTP client timeout for fetches")

	fs.Duration("reconcile.interval", 10*time.Minute, "consistency-sweep interval")
	fs.Bool("reconcile.repair", true, "auto-repair drifted number_of_items counts")

	fs.String("log.level", "info", "log level: debug, info, warn, error")
	fs.Bool("log.json", false, "emit JSON logs instead of console format")
}

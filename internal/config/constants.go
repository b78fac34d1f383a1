package config

import (
	"log/slog"
	"time"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	CacheSimilarityCutoff = 0.97

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	//every remote call gets a bounded deadline
	QueryTimeout  = 60 * time.Second
	IngestTimeout = 10 * time.Minute

	//rate-limited ingestion: one chunk every IngestThrottleInterval, and a
	//chunk that still hits the provider limit is retried after IngestRetryDelay
	IngestThrottleInterval = 2 * time.Second
	IngestRetryDelay       = 5 * time.Second
	IngestMaxRetries       = 3
	IngestStoreBatchSize   = 100

	//in-flight guard TTL, so a crashed worker cannot wedge a session
	SessionBusyTTL = 2 * time.Minute

	//vectorDB
	QdrantConnectionTimeout = 30 * time.Second
	QdrantGrpcPort          = 6334

	PostgresMaxOpenConns = 25
	PostgresMaxIdleConns = 5

	//redis has 16 DBs we can use
	RedisJobStore     = 0
	RedisSessionStore = 1

	RedisJobStoreTTL     = 24 * time.Hour
	RedisSessionStoreTTL = 24 * time.Hour
)

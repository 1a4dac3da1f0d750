package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/lookalike/pkg/e"
	"github.com/DRSN-tech/lookalike/pkg/logger"
	"github.com/jimlawless/whereami"
)

// Режимы конвейера рекомендаций
const (
	PipelineFlat     = "flat"
	PipelineTwoStage = "two_stage"
)

// Бэкенды кэша средних категорий
const (
	CacheBackendFile   = "file"
	CacheBackendSQLite = "sqlite"
	CacheBackendRedis  = "redis"
	CacheBackendNone   = "none"
)

// Бэкенды поиска
const (
	SearchBackendMemory = "memory"
	SearchBackendQdrant = "qdrant"
)

type Config struct {
	Dataset  *DatasetCfg
	Pipeline *PipelineCfg
	Http     *HTTPConfig
	Grpc     *GRPCConfig
	Ml       *MLServiceCfg
	Cache    *CacheCfg
	Redis    *RedisCfg
	Minio    *MinIOCfg
	Qdrant   *QdrantCfg
	Kafka    *KafkaCfg
}

type DatasetCfg struct {
	Root      string // Корень датасета <root>/<category>/<style>/<image>
	Workers   int    // Количество параллельных извлечений при индексации
	Namespace string // Имя датасета в ключах внешних хранилищ
}

type PipelineCfg struct {
	Mode          string // flat | two_stage
	TopN          int    // Количество рекомендаций по умолчанию
	MaxTopN       int    // Верхняя граница top_n из запроса
	SearchBackend string // memory | qdrant
}

type HTTPConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration // Таймаут извлечения и поиска на один запрос
	MaxUploadSize  int64
}

type GRPCConfig struct {
	Port        string // Пустой порт отключает gRPC API
	NetworkMode string
}

// Enabled сообщает, нужно ли поднимать gRPC API.
func (g *GRPCConfig) Enabled() bool {
	return g != nil && g.Port != ""
}

type MLServiceCfg struct {
	Addr           string
	MaxConcurrent  int
	MaxRetries     int
	CallTimeout    time.Duration
	InputSize      int
	PreprocessMode string
	Serialize      bool // Сериализовать вызовы модели, если рантайм не потокобезопасен
}

type CacheCfg struct {
	Backend           string
	Path              string // Путь к файлу кэша (file, sqlite)
	VerifyFingerprint bool
	TTL               time.Duration // Только для redis, 0 — без истечения
}

type RedisCfg struct {
	Addr        string
	Password    string
	User        string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
}

type MinIOCfg struct {
	MinioEndpoint     string // Адрес MinIO; пустой отключает архив загрузок
	BucketName        string
	MinioRootUser     string
	MinioRootPassword string
	MinioUseSSL       bool
	UploadPrefix      string
}

// Enabled сообщает, настроен ли архив загрузок.
func (m *MinIOCfg) Enabled() bool {
	return m != nil && m.MinioEndpoint != ""
}

type QdrantCfg struct {
	Port                 int
	Host                 string
	ApiKey               string
	QdrantCollectionName string
	UseTLS               bool
	UpsertBatchSize      int
}

type KafkaCfg struct {
	Topic   string
	Brokers []string
}

// Enabled сообщает, настроена ли публикация событий.
func (k *KafkaCfg) Enabled() bool {
	return k != nil && len(k.Brokers) > 0
}

// Load загружает конфигурацию из переменных окружения и проверяет её.
func Load(log logger.Logger) (*Config, error) {
	dataset, err := loadDatasetCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	pipeline, err := loadPipelineCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	http, err := loadHTTPConfig(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	ml, err := loadMLServiceCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	cache, err := loadCacheCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redis, err := loadRedisCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minio, err := loadMinIOCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	qdrant, err := loadQdrantCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if pipeline.SearchBackend == SearchBackendQdrant && qdrant.Host == "" {
		return nil, e.Wrap("SEARCH_BACKEND=qdrant requires QDRANT_HOST", e.ErrIncorrectEnvVariable)
	}

	return &Config{
		Dataset:  dataset,
		Pipeline: pipeline,
		Http:     http,
		Grpc:     loadGRPCConfig(),
		Ml:       ml,
		Cache:    cache,
		Redis:    redis,
		Minio:    minio,
		Qdrant:   qdrant,
		Kafka:    loadKafkaCfg(),
	}, nil
}

func loadDatasetCfg(log logger.Logger) (*DatasetCfg, error) {
	const (
		defaultRoot      = "dataset/test"
		defaultWorkers   = 4
		defaultNamespace = "lookalike"
	)

	workers, err := parseIntEnv("DATASET_WORKERS", defaultWorkers)
	if err != nil || workers <= 0 {
		log.Errorf(err, "invalid DATASET_WORKERS")
		return nil, e.Wrap("DATASET_WORKERS", e.ErrIncorrectEnvVariable)
	}

	return &DatasetCfg{
		Root:      getEnvOrDefault("DATASET_ROOT", defaultRoot),
		Workers:   workers,
		Namespace: getEnvOrDefault("DATASET_NAMESPACE", defaultNamespace),
	}, nil
}

func loadPipelineCfg(log logger.Logger) (*PipelineCfg, error) {
	const (
		defaultTopN    = 10
		defaultMaxTopN = 100
	)

	mode := getEnvOrDefault("PIPELINE_MODE", PipelineFlat)
	if mode != PipelineFlat && mode != PipelineTwoStage {
		err := fmt.Errorf("PIPELINE_MODE must be %q or %q, got %q", PipelineFlat, PipelineTwoStage, mode)
		log.Errorf(err, "invalid PIPELINE_MODE")
		return nil, e.Wrap(err.Error(), e.ErrIncorrectEnvVariable)
	}

	topN, err := parseIntEnv("TOP_N", defaultTopN)
	if err != nil || topN <= 0 {
		log.Errorf(err, "invalid TOP_N")
		return nil, e.Wrap("TOP_N", e.ErrIncorrectEnvVariable)
	}

	maxTopN, err := parseIntEnv("MAX_TOP_N", defaultMaxTopN)
	if err != nil || maxTopN < topN {
		log.Errorf(err, "invalid MAX_TOP_N")
		return nil, e.Wrap("MAX_TOP_N", e.ErrIncorrectEnvVariable)
	}

	backend := getEnvOrDefault("SEARCH_BACKEND", SearchBackendMemory)
	if backend != SearchBackendMemory && backend != SearchBackendQdrant {
		err := fmt.Errorf("SEARCH_BACKEND must be %q or %q, got %q", SearchBackendMemory, SearchBackendQdrant, backend)
		log.Errorf(err, "invalid SEARCH_BACKEND")
		return nil, e.Wrap(err.Error(), e.ErrIncorrectEnvVariable)
	}

	return &PipelineCfg{
		Mode:          mode,
		TopN:          topN,
		MaxTopN:       maxTopN,
		SearchBackend: backend,
	}, nil
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort           = "8080"
		defaultReadTimeout    = 15 * time.Second
		defaultWriteTimeout   = 60 * time.Second
		defaultIdleTimeout    = 60 * time.Second
		defaultRequestTimeout = 30 * time.Second
		defaultMaxUploadSize  = 15 << 20
	)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid KEEP_ALIVE")
		return nil, err
	}

	requestTimeout, err := parseDurationEnv("HTTP_REQUEST_TIMEOUT", defaultRequestTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_REQUEST_TIMEOUT")
		return nil, err
	}

	maxUpload, err := parseIntEnv("MAX_UPLOAD_SIZE", defaultMaxUploadSize)
	if err != nil || maxUpload <= 0 {
		log.Errorf(err, "invalid MAX_UPLOAD_SIZE")
		return nil, e.Wrap("MAX_UPLOAD_SIZE", e.ErrIncorrectEnvVariable)
	}

	return &HTTPConfig{
		Port:           getEnvOrDefault("HTTP_PORT", defaultPort),
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    idleTimeout,
		RequestTimeout: requestTimeout,
		MaxUploadSize:  int64(maxUpload),
	}, nil
}

func loadGRPCConfig() *GRPCConfig {
	return &GRPCConfig{
		Port:        getEnv("GRPC_PORT"),
		NetworkMode: getEnvOrDefault("GRPC_NETWORK", "tcp"),
	}
}

func loadMLServiceCfg(log logger.Logger) (*MLServiceCfg, error) {
	const (
		defaultHost           = "ml-service"
		defaultPort           = "50051"
		defaultMaxConcurrent  = 8
		defaultMaxRetries     = 3
		defaultCallTimeout    = 10 * time.Second
		defaultInputSize      = 224
		defaultPreprocessMode = "raw"
	)

	maxConcurrent, err := parseIntEnv("ML_MAX_CONCURRENT", defaultMaxConcurrent)
	if err != nil || maxConcurrent <= 0 {
		log.Errorf(err, "invalid ML_MAX_CONCURRENT")
		return nil, e.Wrap("ML_MAX_CONCURRENT", e.ErrIncorrectEnvVariable)
	}

	maxRetries, err := parseIntEnv("ML_MAX_RETRIES", defaultMaxRetries)
	if err != nil || maxRetries <= 0 {
		log.Errorf(err, "invalid ML_MAX_RETRIES")
		return nil, e.Wrap("ML_MAX_RETRIES", e.ErrIncorrectEnvVariable)
	}

	callTimeout, err := parseDurationEnv("ML_CALL_TIMEOUT", defaultCallTimeout)
	if err != nil {
		log.Errorf(err, "invalid ML_CALL_TIMEOUT")
		return nil, err
	}

	inputSize, err := parseIntEnv("ML_INPUT_SIZE", defaultInputSize)
	if err != nil || inputSize <= 0 {
		log.Errorf(err, "invalid ML_INPUT_SIZE")
		return nil, e.Wrap("ML_INPUT_SIZE", e.ErrIncorrectEnvVariable)
	}

	serialize, err := parseBoolEnv("ML_SERIALIZE_INFERENCE", false)
	if err != nil {
		log.Errorf(err, "invalid ML_SERIALIZE_INFERENCE")
		return nil, err
	}

	host := getEnvOrDefault("ML_HOST", defaultHost)
	port := getEnvOrDefault("ML_PORT", defaultPort)

	return &MLServiceCfg{
		Addr:           host + ":" + port,
		MaxConcurrent:  maxConcurrent,
		MaxRetries:     maxRetries,
		CallTimeout:    callTimeout,
		InputSize:      inputSize,
		PreprocessMode: getEnvOrDefault("ML_PREPROCESS_MODE", defaultPreprocessMode),
		Serialize:      serialize,
	}, nil
}

func loadCacheCfg(log logger.Logger) (*CacheCfg, error) {
	const (
		defaultPath = "cache/category_averages.json"
	)

	backend := getEnvOrDefault("CACHE_BACKEND", CacheBackendFile)
	switch backend {
	case CacheBackendFile, CacheBackendSQLite, CacheBackendRedis, CacheBackendNone:
	default:
		err := fmt.Errorf("unknown CACHE_BACKEND %q", backend)
		log.Errorf(err, "invalid CACHE_BACKEND")
		return nil, e.Wrap(err.Error(), e.ErrIncorrectEnvVariable)
	}

	verify, err := parseBoolEnv("CACHE_VERIFY_FINGERPRINT", true)
	if err != nil {
		log.Errorf(err, "invalid CACHE_VERIFY_FINGERPRINT")
		return nil, err
	}

	ttl, err := parseDurationEnv("CACHE_TTL", 0)
	if err != nil {
		log.Errorf(err, "invalid CACHE_TTL")
		return nil, err
	}

	return &CacheCfg{
		Backend:           backend,
		Path:              getEnvOrDefault("CACHE_PATH", defaultPath),
		VerifyFingerprint: verify,
		TTL:               ttl,
	}, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultAddr         = "localhost:6379"
		defaultDB           = 0
		defaultMaxRetries   = 3
		defaultDialTimeout  = 5 * time.Second
		defaultReadTimeout  = 3 * time.Second
		defaultWriteTimeout = 3 * time.Second
	)

	db, err := parseIntEnv("REDIS_DB_ID", defaultDB)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetries, err := parseIntEnv("REDIS_MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid REDIS_MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := parseDurationEnv("REDIS_DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := parseDurationEnv("REDIS_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid REDIS_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("REDIS_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid REDIS_WRITE_TIMEOUT")
		return nil, err
	}

	return &RedisCfg{
		Addr:        getEnvOrDefault("REDIS_ADDR", defaultAddr),
		Password:    getEnv("REDIS_PASSWORD"),
		User:        getEnv("REDIS_USER"),
		DB:          db,
		MaxRetries:  maxRetries,
		DialTimeout: dialTimeout,
		Timeout:     max(readTimeout, writeTimeout),
	}, nil
}

func loadMinIOCfg(log logger.Logger) (*MinIOCfg, error) {
	const (
		defaultBucket       = "lookalike-uploads"
		defaultUploadPrefix = "uploads"
	)

	useSSL, err := parseBoolEnv("MINIO_USE_SSL", false)
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	return &MinIOCfg{
		MinioEndpoint:     getEnv("MINIO_ENDPOINT"),
		BucketName:        getEnvOrDefault("BUCKET_NAME", defaultBucket),
		MinioRootUser:     getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
		UploadPrefix:      getEnvOrDefault("MINIO_UPLOAD_PREFIX", defaultUploadPrefix),
	}, nil
}

func loadQdrantCfg(log logger.Logger) (*QdrantCfg, error) {
	const (
		defaultQdrantGRPCPort = 6334
		defaultCollection     = "lookalike_images"
		defaultBatchSize      = 256
	)

	port, err := parseIntEnv("QDRANT_GRPC_PORT", defaultQdrantGRPCPort)
	if err != nil {
		log.Errorf(err, "invalid QDRANT_GRPC_PORT")
		return nil, err
	}

	useTLS, err := parseBoolEnv("QDRANT_USE_TLS", false)
	if err != nil {
		log.Errorf(err, "invalid QDRANT_USE_TLS")
		return nil, err
	}

	batch, err := parseIntEnv("QDRANT_UPSERT_BATCH", defaultBatchSize)
	if err != nil || batch <= 0 {
		log.Errorf(err, "invalid QDRANT_UPSERT_BATCH")
		return nil, e.Wrap("QDRANT_UPSERT_BATCH", e.ErrIncorrectEnvVariable)
	}

	return &QdrantCfg{
		Host:                 getEnv("QDRANT_HOST"),
		Port:                 port,
		ApiKey:               getEnv("QDRANT__SERVICE__API_KEY"),
		QdrantCollectionName: getEnvOrDefault("COLLECTION_NAME", defaultCollection),
		UseTLS:               useTLS,
		UpsertBatchSize:      batch,
	}, nil
}

func loadKafkaCfg() *KafkaCfg {
	const defaultTopic = "lookalike.recommendations"

	var brokers []string
	for _, b := range strings.Split(getEnv("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	return &KafkaCfg{
		Brokers: brokers,
		Topic:   getEnvOrDefault("KAFKA_TOPIC", defaultTopic),
	}
}

// getEnv возвращает значение переменной окружения.
// Возвращает пустую строку, если переменная не задана.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.Wrap(key, e.ErrIncorrectEnvVariable)
	}

	return intValue, nil
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue, e.Wrap(key, e.ErrIncorrectEnvVariable)
	}

	return b, nil
}

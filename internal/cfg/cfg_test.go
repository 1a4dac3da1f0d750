package cfg

import (
	"testing"
	"time"

	"github.com/DRSN-tech/lookalike/pkg/e"
	"github.com/DRSN-tech/lookalike/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(logger.Nop{})
	require.NoError(t, err)

	assert.Equal(t, PipelineFlat, c.Pipeline.Mode)
	assert.Equal(t, 10, c.Pipeline.TopN)
	assert.Equal(t, SearchBackendMemory, c.Pipeline.SearchBackend)
	assert.Equal(t, 4, c.Dataset.Workers)
	assert.Equal(t, CacheBackendFile, c.Cache.Backend)
	assert.True(t, c.Cache.VerifyFingerprint)
	assert.Equal(t, 224, c.Ml.InputSize)
	assert.Equal(t, "raw", c.Ml.PreprocessMode)
	assert.False(t, c.Ml.Serialize)
	assert.Equal(t, 30*time.Second, c.Http.RequestTimeout)
	assert.False(t, c.Minio.Enabled())
	assert.False(t, c.Kafka.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PIPELINE_MODE", "two_stage")
	t.Setenv("TOP_N", "5")
	t.Setenv("DATASET_WORKERS", "16")
	t.Setenv("CACHE_BACKEND", "sqlite")
	t.Setenv("CACHE_PATH", "/tmp/avg.db")
	t.Setenv("CACHE_VERIFY_FINGERPRINT", "false")
	t.Setenv("ML_HOST", "model")
	t.Setenv("ML_PORT", "9000")
	t.Setenv("ML_SERIALIZE_INFERENCE", "true")
	t.Setenv("HTTP_REQUEST_TIMEOUT", "5s")
	t.Setenv("MINIO_ENDPOINT", "minio:9000")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	c, err := Load(logger.Nop{})
	require.NoError(t, err)

	assert.Equal(t, PipelineTwoStage, c.Pipeline.Mode)
	assert.Equal(t, 5, c.Pipeline.TopN)
	assert.Equal(t, 16, c.Dataset.Workers)
	assert.Equal(t, CacheBackendSQLite, c.Cache.Backend)
	assert.Equal(t, "/tmp/avg.db", c.Cache.Path)
	assert.False(t, c.Cache.VerifyFingerprint)
	assert.Equal(t, "model:9000", c.Ml.Addr)
	assert.True(t, c.Ml.Serialize)
	assert.Equal(t, 5*time.Second, c.Http.RequestTimeout)
	assert.True(t, c.Minio.Enabled())
	assert.True(t, c.Kafka.Enabled())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "unknown pipeline mode", key: "PIPELINE_MODE", val: "hierarchical"},
		{name: "zero top n", key: "TOP_N", val: "0"},
		{name: "non numeric workers", key: "DATASET_WORKERS", val: "many"},
		{name: "negative workers", key: "DATASET_WORKERS", val: "-1"},
		{name: "unknown cache backend", key: "CACHE_BACKEND", val: "memcached"},
		{name: "unknown search backend", key: "SEARCH_BACKEND", val: "faiss"},
		{name: "bad bool", key: "ML_SERIALIZE_INFERENCE", val: "maybe"},
		{name: "bad duration", key: "HTTP_REQUEST_TIMEOUT", val: "soon"},
		{name: "zero input size", key: "ML_INPUT_SIZE", val: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)

			_, err := Load(logger.Nop{})
			assert.Error(t, err)
		})
	}
}

func TestLoad_QdrantBackendRequiresHost(t *testing.T) {
	t.Setenv("SEARCH_BACKEND", "qdrant")

	_, err := Load(logger.Nop{})
	require.Error(t, err)
	assert.ErrorIs(t, err, e.ErrIncorrectEnvVariable)

	t.Setenv("QDRANT_HOST", "qdrant")
	c, err := Load(logger.Nop{})
	require.NoError(t, err)
	assert.Equal(t, SearchBackendQdrant, c.Pipeline.SearchBackend)
}

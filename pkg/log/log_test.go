package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlweb-ai/schemacrawler/pkg/types"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestWithSite_AttachesSiteAndUserFields(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})

	log := WithSite(WithComponent("scheduler"), "https://example.com", "u1")
	log.Info().Msg("discovery failed")

	out := decodeLine(t, &buf)
	assert.Equal(t, "scheduler", out["component"])
	assert.Equal(t, "https://example.com", out["site_url"])
	assert.Equal(t, "u1", out["user_id"])
}

func TestWithJob_OmitsJobIDWhenBlank(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})

	job := types.JobBody{Type: types.JobProcessFile, Site: "https://example.com", FileURL: "https://example.com/f.json", UserID: "u1"}
	log := WithJob(WithComponent("worker"), "", job)
	log.Info().Msg("job failed")

	out := decodeLine(t, &buf)
	assert.Equal(t, string(types.JobProcessFile), out["job_type"])
	assert.Equal(t, "https://example.com/f.json", out["file_url"])
	_, hasJobID := out["job_id"]
	assert.False(t, hasJobID, "job_id must be omitted, not logged empty, when msgID is blank")
}

func TestWithJob_IncludesJobIDWhenSet(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})

	job := types.JobBody{Type: types.JobProcessRemovedFile, Site: "https://example.com", UserID: "u1"}
	log := WithJob(WithComponent("worker"), "msg-123", job)
	log.Info().Msg("job failed")

	out := decodeLine(t, &buf)
	assert.Equal(t, "msg-123", out["job_id"])
}

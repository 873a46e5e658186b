package queue

import (
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/omnigo/internal/dispatch"
	"github.com/dharsanguruparan/omnigo/internal/model"
)

func TestDeliverTaskPayload(t *testing.T) {
	in := dispatch.Task{
		JobID:     "job",
		FileID:    "file",
		FileName:  "a.pdf",
		Channel:   model.ChannelKivra,
		Recipient: "User1000",
	}
	task, err := NewDeliverTask(in)
	require.NoError(t, err)
	assert.Equal(t, DeliverTask, task.Type())
	assert.JSONEq(t, `{"job_id":"job","file_id":"file","file_name":"a.pdf","channel":"kivra","recipient":"User1000"}`, string(task.Payload()))

	out, err := ParseDeliverTask(task)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestParseDeliverTaskRejectsGarbage(t *testing.T) {
	_, err := ParseDeliverTask(asynq.NewTask(DeliverTask, []byte("{")))
	assert.Error(t, err)
}

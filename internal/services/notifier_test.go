package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	input    *ses.SendEmailInput
	deadline time.Time
	err      error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	f.deadline, _ = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESNotifier_Notify(t *testing.T) {
	client := &fakeSES{}
	n := newSESNotifier(client, "security@nexus.example", 5*time.Second, discardLogger())

	before := time.Now()
	require.NoError(t, n.Notify(context.Background(), "ana@example.com", NoticePasswordChanged))

	require.NotNil(t, client.input)
	assert.Equal(t, "security@nexus.example", aws.ToString(client.input.Source))
	assert.Equal(t, []string{"ana@example.com"}, client.input.Destination.ToAddresses)
	assert.Equal(t, NoticePasswordChanged.Subject, aws.ToString(client.input.Message.Subject.Data))
	assert.Equal(t, NoticePasswordChanged.Body, aws.ToString(client.input.Message.Body.Text.Data))

	// Every send carries the outbound timeout.
	assert.False(t, client.deadline.IsZero())
	assert.WithinDuration(t, before.Add(5*time.Second), client.deadline, time.Second)
}

func TestSESNotifier_Error(t *testing.T) {
	client := &fakeSES{err: errors.New("throttled")}
	n := newSESNotifier(client, "security@nexus.example", time.Second, discardLogger())

	err := n.Notify(context.Background(), "ana@example.com", NoticeAccessRevoked)
	assert.ErrorContains(t, err, "throttled")
}

func TestNoopNotifier(t *testing.T) {
	assert.NoError(t, NoopNotifier{}.Notify(context.Background(), "x@example.com", NoticePasswordReset))
}

package s3

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/access-atlas/pkg/models/domain"
)

type fakeObjectAPI struct {
	objects      map[string][]byte
	contentTypes map[string]string
}

func newFakeObjectAPI() *fakeObjectAPI {
	return &fakeObjectAPI{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

func (f *fakeObjectAPI) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*params.Key] = data
	if params.ContentType != nil {
		f.contentTypes[*params.Key] = *params.ContentType
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectAPI) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*params.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestReportSink_Write(t *testing.T) {
	client := newFakeObjectAPI()
	sink := NewReportSink(client, "reports", "csv", func(result domain.ReviewResult) ([]byte, error) {
		return []byte("identity_id,score\nu-1,75\n"), nil
	})

	result := domain.ReviewResult{
		GeneratedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, sink.Write(context.Background(), result))

	data, ok := client.objects["access_review_2024-03-01.csv"]
	require.True(t, ok, "expected report object, got keys %v", client.objects)
	assert.Contains(t, string(data), "u-1,75")
	assert.Equal(t, "text/csv", client.contentTypes["access_review_2024-03-01.csv"])
}

func TestStateStore_Roundtrip(t *testing.T) {
	client := newFakeObjectAPI()
	store := NewStateStore(client, "reports")
	ctx := context.Background()

	missing, err := store.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	alerted := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put(ctx, domain.AlertState{
		IdentityID:  "u-1",
		Level:       domain.RiskLevelCritical,
		LastAlerted: alerted,
	}))

	_, ok := client.objects["alerts/u-1.json"]
	require.True(t, ok, "expected state object, got keys %v", client.objects)

	state, err := store.Get(ctx, "u-1")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "u-1", state.IdentityID)
	assert.Equal(t, domain.RiskLevelCritical, state.Level)
	assert.True(t, state.LastAlerted.Equal(alerted))
}

package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/de-tools/access-atlas/pkg/models/domain"
)

type alertStateObject struct {
	IdentityId  string    `json:"identity_id"`
	Level       string    `json:"level"`
	LastAlerted time.Time `json:"last_alerted"`
}

// StateStore keeps one JSON alert state object per identity under alerts/.
type StateStore struct {
	client ObjectAPI
	bucket string
}

func NewStateStore(client ObjectAPI, bucket string) *StateStore {
	return &StateStore{
		client: client,
		bucket: bucket,
	}
}

func (s *StateStore) key(identityID string) string {
	return path.Join("alerts", identityID+".json")
}

func (s *StateStore) Get(ctx context.Context, identityID string) (*domain.AlertState, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: awssdk.String(s.bucket),
		Key:    awssdk.String(s.key(identityID)),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get alert state %s: %w", identityID, err)
	}
	defer out.Body.Close()

	var obj alertStateObject
	if err := json.NewDecoder(out.Body).Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode alert state %s: %w", identityID, err)
	}

	level, err := domain.ParseRiskLevel(obj.Level)
	if err != nil {
		return nil, err
	}
	return &domain.AlertState{
		IdentityID:  obj.IdentityId,
		Level:       level,
		LastAlerted: obj.LastAlerted,
	}, nil
}

func (s *StateStore) Put(ctx context.Context, state domain.AlertState) error {
	data, err := json.Marshal(alertStateObject{
		IdentityId:  state.IdentityID,
		Level:       state.Level.String(),
		LastAlerted: state.LastAlerted,
	})
	if err != nil {
		return fmt.Errorf("marshal alert state %s: %w", state.IdentityID, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      awssdk.String(s.bucket),
		Key:         awssdk.String(s.key(state.IdentityID)),
		Body:        bytes.NewReader(data),
		ContentType: awssdk.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put alert state %s: %w", state.IdentityID, err)
	}
	return nil
}

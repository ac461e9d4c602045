package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// AppendPipelineArtifact records an artefact emitted by a pipeline stage,
// ordered by (created_at_ms, stage_index) so downstream stages can read
// exactly the artefacts produced upstream of them.
func (s *Store) AppendPipelineArtifact(ctx context.Context, a *PipelineArtifact) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal pipeline artifact: %w", err)
	}
	member := fmt.Sprintf("%d:%s", a.StageIndex, a.ArtifactType)
	score := float64(a.CreatedAtMs)*1000 + float64(a.StageIndex)

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, fmt.Sprintf("%s:%s", PipelineArtifactStreamKey(s.instanceName, a.PipelineID), member), map[string]interface{}{
		"payload": payload,
	})
	pipe.ZAdd(ctx, PipelineArtifactStreamKey(s.instanceName, a.PipelineID), redis.Z{
		Score:  score,
		Member: member,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append pipeline artifact: %w", err)
	}
	return nil
}

// ReadPipelineArtifacts returns every artefact produced by stages strictly
// below upToStageIndex (exclusive), in production order — the view a stage
// sees of its upstream outputs.
func (s *Store) ReadPipelineArtifacts(ctx context.Context, pipelineID string, upToStageIndex int) ([]*PipelineArtifact, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	streamKey := PipelineArtifactStreamKey(s.instanceName, pipelineID)
	members, err := s.rdb.ZRange(ctx, streamKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read pipeline artifacts for %s: %w", pipelineID, err)
	}

	out := make([]*PipelineArtifact, 0, len(members))
	for _, member := range members {
		hash, err := s.rdb.HGetAll(ctx, fmt.Sprintf("%s:%s", streamKey, member)).Result()
		if err != nil {
			return nil, fmt.Errorf("read pipeline artifact %s: %w", member, err)
		}
		raw, ok := hash["payload"]
		if !ok {
			continue
		}
		var a PipelineArtifact
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, fmt.Errorf("unmarshal pipeline artifact %s: %w", member, err)
		}
		if a.StageIndex < upToStageIndex {
			out = append(out, &a)
		}
	}
	return out, nil
}

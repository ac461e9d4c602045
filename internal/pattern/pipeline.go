package pattern

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dyluth/clan/pkg/store"
)

// Pipeline implements the pipeline pattern (§4.5.b): stages are ordered by
// STAGE_INDEX and consume artifacts produced by every earlier stage.
type Pipeline struct {
	deps Deps
}

// NewPipeline builds a Pipeline engine over deps.
func NewPipeline(deps Deps) *Pipeline { return &Pipeline{deps: deps} }

func (p *Pipeline) OnEvent(ctx context.Context, env Env, event Event, nowMs int64) (Decision, error) {
	switch event.HookEventName {
	case EventSubagentStart:
		return p.onSubagentStart(ctx, env)
	case EventSubagentStop:
		return p.onSubagentStop(ctx, env, event, nowMs)
	default:
		return NoOp(), nil
	}
}

func (p *Pipeline) onSubagentStart(ctx context.Context, env Env) (Decision, error) {
	upstream, err := p.deps.Store.ReadPipelineArtifacts(ctx, env.PipelineID, env.StageIndex)
	if err != nil {
		return NoOp(), nil
	}
	if env.StageIndex == 0 {
		return NoOp(), nil
	}
	if env.PipelineMandatory {
		missing := missingStages(upstream, env.StageIndex)
		if len(missing) > 0 {
			return Block(fmt.Sprintf("missing artifacts from upstream stage(s) %v; cannot start stage %d", missing, env.StageIndex)), nil
		}
	}
	if len(upstream) == 0 {
		return NoOp(), nil
	}
	sort.Slice(upstream, func(i, j int) bool {
		if upstream[i].StageIndex != upstream[j].StageIndex {
			return upstream[i].StageIndex < upstream[j].StageIndex
		}
		return upstream[i].CreatedAtMs < upstream[j].CreatedAtMs
	})
	msg := "upstream pipeline artifacts:\n"
	for _, a := range upstream {
		content := a.ArtifactPath
		if content == "" {
			content = a.ArtifactContent
		}
		msg += fmt.Sprintf("stage %d [%s]: %s\n", a.StageIndex, a.ArtifactType, content)
	}
	return Continue(msg), nil
}

// missingStages reports which stage indices below stageIndex produced no
// artifact at all.
func missingStages(upstream []*store.PipelineArtifact, stageIndex int) []int {
	seen := make(map[int]bool, stageIndex)
	for _, a := range upstream {
		seen[a.StageIndex] = true
	}
	var missing []int
	for i := 0; i < stageIndex; i++ {
		if !seen[i] {
			missing = append(missing, i)
		}
	}
	return missing
}

// pipelineArtifactResponse is the shape a SubagentStop tool_response
// carries when it declares a stage output.
type pipelineArtifactResponse struct {
	ArtifactType    string `json:"artifact_type"`
	ArtifactPath    string `json:"artifact_path"`
	ArtifactContent string `json:"artifact_content"`
}

func (p *Pipeline) onSubagentStop(ctx context.Context, env Env, event Event, nowMs int64) (Decision, error) {
	var resp pipelineArtifactResponse
	_ = json.Unmarshal([]byte(event.ToolResponse), &resp)

	if resp.ArtifactType == "" && resp.ArtifactPath == "" && resp.ArtifactContent == "" {
		if env.PipelineMandatory {
			return Block(fmt.Sprintf("stage %d produced no artifact; downstream stages require one", env.StageIndex)), nil
		}
		return NoOp(), nil
	}

	artifact := &store.PipelineArtifact{
		PipelineID:      env.PipelineID,
		StageIndex:      env.StageIndex,
		ArtifactType:    resp.ArtifactType,
		ArtifactPath:    resp.ArtifactPath,
		ArtifactContent: resp.ArtifactContent,
		CreatedAtMs:     nowMs,
	}
	if err := p.deps.Store.AppendPipelineArtifact(ctx, artifact); err != nil {
		return NoOp(), nil
	}
	return Continue(fmt.Sprintf("artifact recorded for stage %d", env.StageIndex)), nil
}

package builders

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/quadra-commerce/hybridrec/config"
	"github.com/quadra-commerce/hybridrec/core"
	"github.com/quadra-commerce/hybridrec/pipeline"
)

const pipelineYAML = `
pipeline:
  name: related_postprocess
  nodes:
    - type: filter
      config:
        filters:
          - type: self
          - type: blacklist
            ids: ["banned"]
          - type: rule
            expr: "item.score < 0.1"
    - type: rerank.diversity
      config:
        max_per_category: 1
        limit: 10
    - type: rerank.topn
      config:
        n: 3
`

func TestBuildPipelineFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte(pipelineYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := pipeline.LoadFromYAML(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := config.ValidatePipelineConfig(cfg); err != nil {
		t.Fatal(err)
	}

	pl, err := cfg.BuildPipeline(config.DefaultFactory())
	if err != nil {
		t.Fatal(err)
	}
	if len(pl.Nodes) != 3 {
		t.Fatalf("want 3 nodes, got %d", len(pl.Nodes))
	}

	mk := func(id, cat string, score float64) *core.Item {
		it := core.NewItem(id)
		it.Score = score
		if cat != "" {
			it.Meta["category"] = cat
		}
		return it
	}
	items := []*core.Item{
		mk("q", "toys", 0.9),      // 被 self 过滤
		mk("banned", "toys", 0.8), // 被黑名单过滤
		mk("weak", "toys", 0.05),  // 被规则过滤
		mk("a1", "toys", 0.7),
		mk("a2", "toys", 0.6), // 类目上限 1，被多样性截掉
		mk("b1", "books", 0.5),
	}

	got, err := pl.Run(context.Background(), &core.RecommendContext{ProductID: "q"}, items)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "a1" || got[1].ID != "b1" {
		t.Fatalf("want [a1 b1], got %v", got)
	}
}

func TestValidatePipelineConfig_UnknownType(t *testing.T) {
	cfg := &pipeline.Config{}
	cfg.Pipeline.Nodes = []pipeline.NodeConfig{{Type: "rerank.nonexistent"}}
	if err := config.ValidatePipelineConfig(cfg); err == nil {
		t.Fatal("unknown node type must fail validation")
	}
}

func TestSupportedTypesIncludeBuiltins(t *testing.T) {
	types := make(map[string]bool)
	for _, typeName := range config.SupportedTypes() {
		types[typeName] = true
	}
	for _, want := range []string{"filter", "rank.trend_boost", "rerank.diversity", "rerank.preferred_category", "rerank.topn"} {
		if !types[want] {
			t.Errorf("builtin node %s must be registered", want)
		}
	}
}

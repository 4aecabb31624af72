package encoding

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/hypermem/hypermem-go/pkg/classify"
	"github.com/hypermem/hypermem-go/pkg/codebook"
	"github.com/hypermem/hypermem-go/pkg/hdc"
	"github.com/hypermem/hypermem-go/pkg/memory"
)

// defaultImportance is assumed for content remembered without an explicit
// importance score.
const defaultImportance = 0.5

// Pipeline chains a pluggable embedder with codebook projection to produce
// new memory records.
//
// When a classifier is attached, each record is tagged with its category and
// coordinates, and its wave frequency and phase are drawn from the
// category's frequency band instead of the flat defaults.
type Pipeline struct {
	codebook   *codebook.Codebook
	embedder   Embedder
	classifier classify.Classifier
	node       *snowflake.Node
}

// NewPipeline creates an encoding pipeline.
//
// The embedder's output width must match the codebook's input dimension.
// classifier may be nil; records then keep the default wave parameters and
// stay unlabeled.
func NewPipeline(cb *codebook.Codebook, embedder Embedder, classifier classify.Classifier, node *snowflake.Node) (*Pipeline, error) {
	if embedder != nil && embedder.Dimensions() != cb.InputDim() {
		return nil, fmt.Errorf("NewPipeline: embedder width %d does not match codebook input %d",
			embedder.Dimensions(), cb.InputDim())
	}
	return &Pipeline{
		codebook:   cb,
		embedder:   embedder,
		classifier: classifier,
		node:       node,
	}, nil
}

// Codebook returns the pipeline's projection codebook.
func (p *Pipeline) Codebook() *codebook.Codebook {
	return p.codebook
}

// Embedder returns the pipeline's embedder, nil for feature-only pipelines.
func (p *Pipeline) Embedder() Embedder {
	return p.embedder
}

// Encode turns text into a fresh memory record at layer 0 with amplitude 1.0.
//
// Returns ErrEmptyInput for empty or whitespace-only text, and the
// embedder's or codebook's error otherwise.
func (p *Pipeline) Encode(ctx context.Context, text string) (*memory.Memory, error) {
	embedding, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	vector, err := p.codebook.Project(embedding)
	if err != nil {
		return nil, err
	}

	return p.wrap(vector, text), nil
}

// EncodeQuery projects text into hypervector space without wrapping it in a
// record. Used for retrieval, where the query is transient.
func (p *Pipeline) EncodeQuery(ctx context.Context, text string) ([]float64, error) {
	embedding, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return p.codebook.Project(embedding)
}

// EncodeFeatures wraps an already-extracted numeric feature vector (e.g. the
// audio front end's output) in a record, bypassing the text embedder. The
// feature width must match the codebook's input dimension.
func (p *Pipeline) EncodeFeatures(features []float64, tag string) (*memory.Memory, error) {
	vector, err := p.codebook.Project(features)
	if err != nil {
		return nil, err
	}
	return p.wrap(vector, tag), nil
}

// Synthesize wraps an already-built hypervector in a record. Used by
// consolidation for summary bundles and hallucinated syntheses, where the
// vector is derived from existing records rather than projected from an
// embedding.
func (p *Pipeline) Synthesize(vector []float64, content string) *memory.Memory {
	return p.wrap(vector, content)
}

// wrap builds the record around a projected hypervector: wave defaults,
// classification, differentiation signature, and a fresh snowflake ID.
func (p *Pipeline) wrap(vector []float64, content string) *memory.Memory {
	m := &memory.Memory{
		ID:          p.node.Generate().Int64(),
		Vector:      vector,
		Wave:        hdc.DefaultWave(),
		CreatedAt:   time.Now(),
		Layer:       0,
		Content:     content,
		XiSignature: hdc.XiSignature(vector),
	}

	if p.classifier != nil {
		hash := classify.ContentHash(content)
		label := p.classifier.Classify(content, hash, defaultImportance)
		freq, phase := p.classifier.FrequencyBand(label.Category, hash)

		m.Category = label.Category
		coords := label.Coordinates
		m.Coordinates = &coords
		m.Wave.Frequency = freq
		m.Wave.Phase = phase
	}

	return m
}

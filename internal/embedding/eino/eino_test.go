package eino

import (
	"context"
	"errors"
	"testing"

	einoEmbedding "github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEino struct {
	model string
	out   [][]float64
	err   error
}

func (f *fakeEino) EmbedStrings(_ context.Context, texts []string, opts ...einoEmbedding.Option) ([][]float64, error) {
	o := einoEmbedding.GetCommonOptions(nil, opts...)
	if o.Model != nil {
		f.model = *o.Model
	}
	return f.out, f.err
}

func TestEmbedder_Embed(t *testing.T) {
	f := &fakeEino{out: [][]float64{{1, 0}, {0, 1}}}
	vecs, err := Wrap(f).Embed(context.Background(), "bge-base-en-v1.5", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "bge-base-en-v1.5", f.model)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
}

func TestEmbedder_Errors(t *testing.T) {
	_, err := Wrap(&fakeEino{err: errors.New("down")}).Embed(context.Background(), "m", []string{"a"})
	assert.Error(t, err)

	_, err = Wrap(&fakeEino{out: [][]float64{{1}}}).Embed(context.Background(), "m", []string{"a", "b"})
	assert.Error(t, err)

	_, err = NewEmbedder(context.Background(), Config{})
	assert.Error(t, err)
}

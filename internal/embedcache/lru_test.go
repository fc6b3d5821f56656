package embedcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func TestWrap_CachesByText(t *testing.T) {
	next := new(MockEmbedder)
	next.On("GenerateEmbedding", mock.Anything, "refund").Return([]float32{1, 2}, nil).Once()
	next.On("GenerateEmbedding", mock.Anything, "shipping").Return([]float32{3}, nil).Once()
	e := Wrap(next, "m", 10, time.Minute)

	first, err := e.GenerateEmbedding(context.Background(), "refund")
	require.NoError(t, err)
	second, err := e.GenerateEmbedding(context.Background(), "refund")
	require.NoError(t, err)
	other, err := e.GenerateEmbedding(context.Background(), "shipping")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []float32{3}, other)
	next.AssertNumberOfCalls(t, "GenerateEmbedding", 2)
}

func TestWrap_ReturnsCopies(t *testing.T) {
	next := new(MockEmbedder)
	next.On("GenerateEmbedding", mock.Anything, "q").Return([]float32{1}, nil).Once()
	e := Wrap(next, "m", 10, time.Minute)

	first, _ := e.GenerateEmbedding(context.Background(), "q")
	first[0] = 99
	second, _ := e.GenerateEmbedding(context.Background(), "q")

	assert.Equal(t, []float32{1}, second)
}

func TestWrap_ErrorsNotCached(t *testing.T) {
	next := new(MockEmbedder)
	next.On("GenerateEmbedding", mock.Anything, "q").Return(nil, errors.New("boom")).Once()
	next.On("GenerateEmbedding", mock.Anything, "q").Return([]float32{1}, nil).Once()
	e := Wrap(next, "m", 10, time.Minute)

	_, err := e.GenerateEmbedding(context.Background(), "q")
	require.Error(t, err)
	got, err := e.GenerateEmbedding(context.Background(), "q")

	require.NoError(t, err)
	assert.Equal(t, []float32{1}, got)
}

func TestWrap_DisabledPassesThrough(t *testing.T) {
	next := new(MockEmbedder)

	assert.Same(t, next, Wrap(next, "m", 0, time.Minute))
	assert.Same(t, next, Wrap(next, "m", 10, 0))
}

package domain_test

import (
	"context"
	"sync"
	"testing"

	"github.com/comfforts/logger"
	"github.com/stretchr/testify/require"

	"github.com/hankgalt/partition-orchestra/pkg/domain"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestBatchCount(t *testing.T) {
	require.Equal(t, 100, domain.BatchCount(10000, 100))
	require.Equal(t, 101, domain.BatchCount(10005, 100))
	require.Equal(t, uint(1), domain.BatchCount(uint(3), uint(10)))
	require.Equal(t, int64(3), domain.BatchCount(int64(7), int64(3)))
	require.Equal(t, 0, domain.BatchCount(10, 0))
	require.Equal(t, 0, domain.BatchCount(0, 10))
	require.Equal(t, 0, domain.BatchCount(10, -1))
}

func TestPartition_Errors(t *testing.T) {
	_, err := domain.Partition[int](nil, 10)
	require.ErrorIs(t, err, domain.ErrEmptyList)

	_, err = domain.Partition([]int{}, 10)
	require.ErrorIs(t, err, domain.ErrEmptyList)

	_, err = domain.Partition([]int{1}, 0)
	require.ErrorIs(t, err, domain.ErrNonPositiveSize)
}

func TestPartition_Properties(t *testing.T) {
	l := logger.GetSlogLogger()

	for _, n := range []int{1, 2, 7, 99, 100, 101, 1000, 10005} {
		for _, size := range []int{1, 3, 10, 100, 2000} {
			list := seq(n)
			batches, err := domain.Partition(list, size)
			require.NoError(t, err)

			want := domain.BatchCount(n, size)
			require.Len(t, batches, want, "n=%d size=%d", n, size)

			var union []int
			for i, b := range batches {
				e := b.Entity
				require.Equal(t, i+1, e.BatchNo())
				require.Equal(t, want, e.BatchCount())
				require.Equal(t, n, e.Total())
				require.Equal(t, len(b.Elements), e.Size())
				require.Equal(t, len(union), e.Start())
				require.Equal(t, e.Start()+e.Size(), e.End())

				if i < len(batches)-1 {
					require.Equal(t, size, e.Size())
				} else if n%size == 0 {
					require.Equal(t, size, e.Size())
				} else {
					require.Equal(t, n%size, e.Size())
				}
				union = append(union, b.Elements...)
			}
			require.Equal(t, list, union)
			l.Debug("partition checked", "n", n, "size", size, "batches", len(batches))
		}
	}
}

func TestPartition_Scenarios(t *testing.T) {
	batches, err := domain.Partition(seq(10000), 100)
	require.NoError(t, err)
	require.Len(t, batches, 100)
	require.Equal(t, seq(100), batches[0].Elements)
	require.Equal(t, 9901, batches[99].Elements[0])
	require.Equal(t, 10000, batches[99].Elements[99])

	batches, err = domain.Partition(seq(10005), 100)
	require.NoError(t, err)
	require.Len(t, batches, 101)
	require.Equal(t, []int{10001, 10002, 10003, 10004, 10005}, batches[100].Elements)
	require.Equal(t, "batch-101-of-101", batches[100].Entity.Name())
}

func TestPartition_BatchesDoNotOverlapOnAppend(t *testing.T) {
	list := seq(10)
	batches, err := domain.Partition(list, 5)
	require.NoError(t, err)

	// appending to a batch must not clobber the next one
	_ = append(batches[0].Elements, 99)
	require.Equal(t, []int{6, 7, 8, 9, 10}, batches[1].Elements)
}

func TestParamsMap(t *testing.T) {
	var nilParams domain.ParamsMap
	_, ok := nilParams.Get("any")
	require.False(t, ok)
	require.Equal(t, domain.DefaultLogKey, nilParams.LogKey(domain.DefaultLogKey))

	p := domain.ParamsMap{domain.LogKeyParam: "import-agents", "n": 3}
	require.Equal(t, "import-agents", p.LogKey(domain.DefaultLogKey))
	v, ok := p.Get("n")
	require.True(t, ok)
	require.Equal(t, 3, v)

	require.Equal(t, "fallback", domain.ParamsMap{domain.LogKeyParam: 42}.LogKey("fallback"))
	require.Equal(t, "fallback", domain.ParamsMap{domain.LogKeyParam: ""}.LogKey("fallback"))
}

func TestCounter_Concurrent(t *testing.T) {
	c := domain.NewCounter()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.IncrementAndGet()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int64(10000), c.Get())
}

func TestBatchStats_Context(t *testing.T) {
	ctx := context.Background()
	require.Nil(t, domain.BatchStatsFromContext(ctx))

	// nil stats are a no-op
	var none *domain.BatchStats
	none.AddProcessed()
	none.AddFailed()
	require.Equal(t, 0, none.Processed())

	stats := &domain.BatchStats{}
	ctx = domain.WithBatchStats(ctx, stats)
	got := domain.BatchStatsFromContext(ctx)
	got.AddProcessed()
	got.AddProcessed()
	got.AddFailed()
	require.Equal(t, 2, stats.Processed())
	require.Equal(t, 1, stats.Failed())
}

func TestNamedBuilder(t *testing.T) {
	require.Nil(t, domain.NewNamedBuilder[int]("nil", nil))

	b := domain.NewNamedBuilder("named", func(elements []int, entity domain.PartitionEntity, params domain.ParamsMap) domain.Runnable {
		return func(ctx context.Context) error { return nil }
	})
	require.Equal(t, "named", b.Name)
	require.NoError(t, b.Build([]int{1}, domain.NewPartitionEntity(1, 1, 0, 1, 1), nil)(context.Background()))
}

func TestNewBatchResult(t *testing.T) {
	e := domain.NewPartitionEntity(2, 3, 10, 10, 25)
	res := domain.NewBatchResult("run", e)
	require.Equal(t, domain.BatchResult{RunID: "run", BatchNo: 2, BatchCount: 3, Start: 10, Size: 10}, res)
	require.Equal(t, []any{"batch-no", 2, "batch-count", 3, "batch-start", 10, "batch-size", 10, "total", 25}, e.LogAttrs())
}

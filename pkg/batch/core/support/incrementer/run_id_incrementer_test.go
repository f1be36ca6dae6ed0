package incrementer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
)

func TestRunIDIncrementer_DistinctWithinSameMillisecond(t *testing.T) {
	frozen := time.UnixMilli(1729000000000)
	inc := NewRunIDIncrementer("")
	inc.now = func() time.Time { return frozen }

	base := model.NewJobParameters()
	base.Put("input", "coffee.csv")

	first := inc.GetNext(base)
	second := inc.GetNext(base)

	id1, ok := first.GetInt64(DefaultRunIDKey)
	require.True(t, ok)
	id2, _ := second.GetInt64(DefaultRunIDKey)
	assert.Equal(t, int64(1729000000000), id1)
	assert.Equal(t, id1+1, id2)
	assert.False(t, first.Equal(second))

	_, touched := base.GetInt64(DefaultRunIDKey)
	assert.False(t, touched, "the input parameters are not modified")
	in, _ := second.GetString("input")
	assert.Equal(t, "coffee.csv", in)
}

func TestRunIDIncrementer_ConcurrentCallersNeverCollide(t *testing.T) {
	inc := NewRunIDIncrementer(DefaultRunIDKey)
	const callers = 64
	ids := make(chan int64, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, _ := inc.GetNext(model.NewJobParameters()).GetInt64(DefaultRunIDKey)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate run id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, callers)
}

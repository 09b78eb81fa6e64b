package monitoring

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	rec := &Recorder{}
	SetLogger(rec.Logf)
	Logf("generated %d PPAs for %s", 3, "T1")
	assert.Equal(t, []string{"generated 3 PPAs for T1"}, rec.Lines())

	SetLogger(nil)
	assert.NotPanics(t, func() { Logf("muted %d", 1) })
	assert.Len(t, rec.Lines(), 1, "muted logger must not reach the old recorder")
}

func TestRecorderConcurrent(t *testing.T) {
	t.Parallel()

	rec := &Recorder{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec.Logf("pair %d", i)
		}(i)
	}
	wg.Wait()
	assert.Len(t, rec.Lines(), 8)
}

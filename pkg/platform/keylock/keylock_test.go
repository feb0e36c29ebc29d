package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap_SerializesSameKey(t *testing.T) {
	m := New()
	counter := 0

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("user-1")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
	assert.Equal(t, 0, m.Len(), "released keys are forgotten")
}

func TestMap_DistinctKeysDoNotBlock(t *testing.T) {
	m := New()
	unlockA := m.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := m.Lock("b")
		unlock()
		close(done)
	}()
	<-done
}

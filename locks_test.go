package leaflink

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOwnerLocksSerializeAndRelease(t *testing.T) {
	assert := assert.New(t)

	var locks ownerLocks
	var wg sync.WaitGroup
	inside := 0
	maxInside := 0
	var counter sync.Mutex
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("alice")
			defer unlock()

			counter.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			counter.Unlock()

			counter.Lock()
			inside--
			counter.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(1, maxInside)
	assert.Len(locks.held, 0)

	unlockAlice := locks.lock("alice")
	unlockBob := locks.lock("bob")
	assert.Len(locks.held, 2)
	unlockAlice()
	unlockBob()
	assert.Len(locks.held, 0)
}

package pool

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/records"
)

func TestKeyCache_Key(t *testing.T) {
	cache := NewKeyCache(0)

	key, err := cache.Key("Acme S.r.l.")
	require.NoError(t, err)
	assert.Equal(t, "acme", key)
	assert.Equal(t, 1, cache.Size())

	key, err = cache.Key("Acme S.r.l.")
	require.NoError(t, err)
	assert.Equal(t, "acme", key)
	assert.Equal(t, 1, cache.Size())
}

func TestKeyCache_MalformedNotCached(t *testing.T) {
	cache := NewKeyCache(0)

	_, err := cache.Key("...")
	assert.ErrorIs(t, err, ErrMalformedCounterparty)
	assert.Equal(t, 0, cache.Size())
}

func TestKeyCache_ResetsWhenFull(t *testing.T) {
	cache := NewKeyCache(2)

	for _, name := range []string{"Alfa", "Beta", "Gamma"} {
		_, err := cache.Key(name)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, cache.Size())

	cache.Clear()
	assert.Equal(t, 0, cache.Size())
}

func TestKeyCache_Concurrent(t *testing.T) {
	cache := NewKeyCache(0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				key, err := cache.Key(fmt.Sprintf("Fornitore %d SRL", j))
				assert.NoError(t, err)
				assert.Equal(t, fmt.Sprintf("fornitore %d", j), key)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, cache.Size())
}

func TestBuildWithCache_MatchesBuild(t *testing.T) {
	sources := []records.Source{
		{ID: "s1", Counterparty: "ACME SRL", Amount: eur(1000)},
		{ID: "s2", Counterparty: "Acme S.r.l.", Amount: eur(500)},
		{ID: "s3", Counterparty: "???", Amount: eur(700)},
	}
	targets := []records.Target{
		{ID: "t1", Counterparty: "acme", Amount: eur(1000)},
		{ID: "t2", Counterparty: "Lonely Ltd", Amount: eur(300)},
	}

	plain, plainRejected := Build(sources, targets)
	cached, cachedRejected := BuildWithCache(sources, targets, NewKeyCache(0))

	assert.Equal(t, plainRejected, cachedRejected)
	require.Equal(t, len(plain.Groups()), len(cached.Groups()))
	for i, g := range plain.Groups() {
		assert.Equal(t, g.Key, cached.Groups()[i].Key)
		assert.Len(t, cached.Groups()[i].Sources, len(g.Sources))
		assert.Len(t, cached.Groups()[i].Targets, len(g.Targets))
	}
}

package persistent

import (
	"testing"

	"github.com/tidwall/buntdb"
)

func TestBuntProfileStore(t *testing.T) {
	bdb, err := buntdb.Open(":memory:")
	if err != nil {
		panic(err)
	}
	defer bdb.Close()

	testProfileStore(t, &BuntProfileStore{Buntdb: bdb}, "alice.near", "bob.near")
}

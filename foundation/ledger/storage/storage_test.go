package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/greenledger/greenledger/foundation/ledger"
	"github.com/greenledger/greenledger/foundation/ledger/storage"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_FileStorage(t *testing.T) {
	t.Log("Given the need to keep the snapshot document on disk.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen saving and loading a snapshot.", testID)
		{
			path := filepath.Join(t.TempDir(), "data", "ledger.json")

			store, err := storage.NewFile(path)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct the storage: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to construct the storage.", success, testID)

			if _, exists, err := store.Load(); err != nil || exists {
				t.Fatalf("\t%s\tTest %d:\tShould report no snapshot before the first save: exists %v err %v", failed, testID, exists, err)
			}
			t.Logf("\t%s\tTest %d:\tShould report no snapshot before the first save.", success, testID)

			snapshot := ledger.Snapshot{
				Chain: []ledger.Block{
					{Index: 0, PreviousHash: ledger.ZeroHash, Hash: "00aa", Payload: ledger.Payload{Type: ledger.TypeGenesis}},
				},
				TotalBlocks: 1,
			}
			if err := store.Save(snapshot); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to save the snapshot: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to save the snapshot.", success, testID)

			loaded, exists, err := store.Load()
			if err != nil || !exists {
				t.Fatalf("\t%s\tTest %d:\tShould be able to load the snapshot: exists %v err %v", failed, testID, exists, err)
			}
			if len(loaded.Chain) != 1 || loaded.Chain[0].Hash != "00aa" || loaded.TotalBlocks != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould round-trip the document: got %+v", failed, testID, loaded)
			}
			t.Logf("\t%s\tTest %d:\tShould round-trip the document.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen resetting the storage.", testID)
		{
			path := filepath.Join(t.TempDir(), "ledger.json")

			store, err := storage.NewFile(path)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct the storage: %v", failed, testID, err)
			}

			if err := store.Save(ledger.Snapshot{TotalBlocks: 1}); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to save the snapshot: %v", failed, testID, err)
			}

			if err := store.Reset(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to reset the storage: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to reset the storage.", success, testID)

			if _, exists, err := store.Load(); err != nil || exists {
				t.Fatalf("\t%s\tTest %d:\tShould report no snapshot after the reset: exists %v err %v", failed, testID, exists, err)
			}
			t.Logf("\t%s\tTest %d:\tShould report no snapshot after the reset.", success, testID)

			if err := store.Reset(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould tolerate resetting twice: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould tolerate resetting twice.", success, testID)
		}
	}
}

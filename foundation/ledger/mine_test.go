package ledger_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/greenledger/greenledger/foundation/ledger"
)

func Test_Seal(t *testing.T) {
	t.Log("Given the need to seal blocks with proof of work.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen sealing a payload at difficulty 2.", testID)
		{
			payload := ledger.Payload{
				Type:          ledger.TypeCertificate,
				CertificateID: "cert-1",
				SellerID:      "seller-1",
			}

			block, err := ledger.Seal(context.Background(), 1, time.Now().Unix(), payload, "abc123", 2, nil)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to seal the block: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to seal the block.", success, testID)

			if !strings.HasPrefix(block.Hash, "00") {
				t.Fatalf("\t%s\tTest %d:\tShould produce a hash with the difficulty prefix: got %s", failed, testID, block.Hash)
			}
			t.Logf("\t%s\tTest %d:\tShould produce a hash with the difficulty prefix.", success, testID)

			if block.ContentHash() != block.Hash {
				t.Fatalf("\t%s\tTest %d:\tShould record a hash that recomputes from the content.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould record a hash that recomputes from the content.", success, testID)

			if len(block.Hash) != 64 {
				t.Fatalf("\t%s\tTest %d:\tShould produce a 64 character hex hash: got %d", failed, testID, len(block.Hash))
			}
			t.Logf("\t%s\tTest %d:\tShould produce a 64 character hex hash.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen the context is cancelled during sealing.", testID)
		{
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			// High difficulty guarantees the cancellation wins the race.
			if _, err := ledger.Seal(ctx, 1, time.Now().Unix(), ledger.Payload{Type: ledger.TypeCertificate}, "abc123", 16, nil); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould abandon the sealing.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould abandon the sealing.", success, testID)
		}
	}
}

package ledger_test

import (
	"context"
	"testing"

	"github.com/greenledger/greenledger/foundation/ledger"
)

func Test_Queries(t *testing.T) {
	t.Log("Given the need to query the chain as flattened transaction records.")
	{
		ctx := context.Background()
		lgr, _ := newTestLedger(t)

		solar := solarData()

		wind := solarData()
		wind.SellerID = "seller-7"
		wind.FacilityName = "North Sea Wind H2"
		wind.RenewableSource = "wind"
		wind.Location = "Norway"

		if _, err := lgr.Issue(ctx, solar); err != nil {
			t.Fatalf("\t%s\tShould be able to issue the solar certificate: %v", failed, err)
		}
		windHash, err := lgr.Issue(ctx, wind)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to issue the wind certificate: %v", failed, err)
		}
		if ok, err := lgr.Retire(ctx, windHash); err != nil || !ok {
			t.Fatalf("\t%s\tShould be able to retire the wind certificate: ok %v err %v", failed, ok, err)
		}

		windCert, _ := lgr.CertificateByHash(windHash)

		testID := 0
		t.Logf("\tTest %d:\tWhen reading the full transaction history.", testID)
		{
			txs := lgr.TransactionHistory(0)
			if len(txs) != 4 {
				t.Fatalf("\t%s\tTest %d:\tShould flatten every block: exp 4 got %d", failed, testID, len(txs))
			}
			t.Logf("\t%s\tTest %d:\tShould flatten every block.", success, testID)

			for i := 1; i < len(txs); i++ {
				if txs[i-1].Timestamp < txs[i].Timestamp {
					t.Fatalf("\t%s\tTest %d:\tShould order records newest first.", failed, testID)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould order records newest first.", success, testID)

			if got := lgr.TransactionHistory(2); len(got) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould honor the limit: got %d", failed, testID, len(got))
			}
			t.Logf("\t%s\tTest %d:\tShould honor the limit.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen reading one seller's transactions.", testID)
		{
			txs := lgr.UserTransactions("seller-7")
			if len(txs) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould attribute the issuance and the retirement: got %d", failed, testID, len(txs))
			}
			t.Logf("\t%s\tTest %d:\tShould attribute the issuance and the retirement.", success, testID)

			if lgr.UserTransactions("nobody") != nil {
				t.Fatalf("\t%s\tTest %d:\tShould return nothing for an unknown seller.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould return nothing for an unknown seller.", success, testID)
		}

		testID = 2
		t.Logf("\tTest %d:\tWhen reading one certificate's transactions.", testID)
		{
			txs := lgr.CertificateTransactions(windCert.ID)
			if len(txs) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould return issuance then retirement: got %d", failed, testID, len(txs))
			}
			if txs[0].Type != ledger.TxCertificateIssued || txs[1].Type != ledger.TxCertificateRetired {
				t.Fatalf("\t%s\tTest %d:\tShould return issuance then retirement in chain order.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould return issuance then retirement in chain order.", success, testID)
		}

		testID = 3
		t.Logf("\tTest %d:\tWhen searching issuance records.", testID)
		{
			if got := lgr.Search("north sea"); len(got) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould match the facility case-insensitively: got %d", failed, testID, len(got))
			}
			t.Logf("\t%s\tTest %d:\tShould match the facility case-insensitively.", success, testID)

			if got := lgr.Search("solar"); len(got) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould match the renewable source: got %d", failed, testID, len(got))
			}
			t.Logf("\t%s\tTest %d:\tShould match the renewable source.", success, testID)

			if got := lgr.Search("geothermal"); got != nil {
				t.Fatalf("\t%s\tTest %d:\tShould return nothing without a match.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould return nothing without a match.", success, testID)
		}

		testID = 4
		t.Logf("\tTest %d:\tWhen reading the recent activity window.", testID)
		{
			txs := lgr.RecentActivity(24)
			if len(txs) != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould include everything but the genesis block: got %d", failed, testID, len(txs))
			}
			t.Logf("\t%s\tTest %d:\tShould include everything but the genesis block.", success, testID)
		}

		testID = 5
		t.Logf("\tTest %d:\tWhen reading a certificate's condensed history.", testID)
		{
			history := lgr.CertificateHistory(windCert.ID)
			if len(history) != 2 || history[0].Action != "issued" || history[1].Action != "retired" {
				t.Fatalf("\t%s\tTest %d:\tShould list issued then retired: got %+v", failed, testID, history)
			}
			t.Logf("\t%s\tTest %d:\tShould list issued then retired.", success, testID)

			if lgr.CertificateHistory("unknown") != nil {
				t.Fatalf("\t%s\tTest %d:\tShould return nothing for an unknown certificate.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould return nothing for an unknown certificate.", success, testID)
		}

		testID = 6
		t.Logf("\tTest %d:\tWhen reading the chain info and analytics.", testID)
		{
			info := lgr.ChainInfo()
			if info.TotalBlocks != 4 || info.TotalCertificates != 2 || info.ActiveCertificates != 1 || info.RetiredCertificates != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould count blocks and certificates: got %+v", failed, testID, info)
			}
			if !info.ChainValid {
				t.Fatalf("\t%s\tTest %d:\tShould report the chain as valid.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould count blocks and certificates.", success, testID)

			a := lgr.Analytics()
			if a.Tokens.TotalTokensIssued != 100 || a.Tokens.TotalTokensRetired != 50 || a.Tokens.ActiveTokens != 50 {
				t.Fatalf("\t%s\tTest %d:\tShould total the token volumes: got %+v", failed, testID, a.Tokens)
			}
			t.Logf("\t%s\tTest %d:\tShould total the token volumes.", success, testID)

			if a.Tokens.AveragePricePerToken != 2.5 {
				t.Fatalf("\t%s\tTest %d:\tShould compute the token-weighted average price: got %v", failed, testID, a.Tokens.AveragePricePerToken)
			}
			t.Logf("\t%s\tTest %d:\tShould compute the token-weighted average price.", success, testID)

			if a.Breakdown.BySource["solar"] != 1 || a.Breakdown.BySource["wind"] != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould break certificates down by source: got %v", failed, testID, a.Breakdown.BySource)
			}
			t.Logf("\t%s\tTest %d:\tShould break certificates down by source.", success, testID)
		}
	}
}

package exchange

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/spotdex/pkg/app/core"
	"github.com/uhyunpark/spotdex/pkg/app/core/token"
	"github.com/uhyunpark/spotdex/pkg/events"
	"github.com/uhyunpark/spotdex/pkg/util"
)

var (
	feeAccount = common.HexToAddress("0xfee0000000000000000000000000000000000000")
	maker      = common.HexToAddress("0x1111111111111111111111111111111111111111")
	taker      = common.HexToAddress("0x2222222222222222222222222222222222222222")
	stranger   = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func newTestExchange(t *testing.T) *Exchange {
	t.Helper()
	clock := &util.FixedClock{Time: time.UnixMilli(1_700_000_000_000), Step: time.Millisecond}
	return New(Config{FeeAccount: feeAccount, FeePercent: 10}, WithClock(clock))
}

// newTestToken registers a fresh token funded to holder and pre-approved for
// the vault, ready to deposit.
func newTestToken(t *testing.T, x *Exchange, holder common.Address, supply core.Amount) *token.Standard {
	t.Helper()
	tok := token.NewStandard("Test Token", "TEST", supply, holder)
	tok.Approve(holder, Vault, supply)
	x.RegisterToken(tok)
	return tok
}

func TestDepositEther(t *testing.T) {
	x := newTestExchange(t)

	balance, err := x.DepositEther(maker, 100)
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if balance != 100 {
		t.Errorf("balance = %d, want 100", balance)
	}
	if got := x.BalanceOf(core.NativeAsset, maker); got != 100 {
		t.Errorf("BalanceOf = %d, want 100", got)
	}
}

func TestWithdrawEther(t *testing.T) {
	x := newTestExchange(t)
	if _, err := x.DepositEther(maker, 100); err != nil {
		t.Fatal(err)
	}

	balance, err := x.WithdrawEther(maker, 60)
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if balance != 40 {
		t.Errorf("balance = %d, want 40", balance)
	}

	if _, err := x.WithdrawEther(maker, 41); !core.ErrInsufficientBalance.Has(err) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := x.BalanceOf(core.NativeAsset, maker); got != 40 {
		t.Errorf("failed withdraw touched the balance: %d", got)
	}
}

func TestDepositToken(t *testing.T) {
	x := newTestExchange(t)
	tok := newTestToken(t, x, taker, 1000)

	balance, err := x.DepositToken(tok.Address(), taker, 400)
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if balance != 400 {
		t.Errorf("balance = %d, want 400", balance)
	}
	if got := tok.BalanceOf(Vault); got != 400 {
		t.Errorf("vault holds %d, want 400", got)
	}
	if got := tok.BalanceOf(taker); got != 600 {
		t.Errorf("taker keeps %d on the contract, want 600", got)
	}
}

func TestDepositTokenWithoutApproval(t *testing.T) {
	x := newTestExchange(t)
	tok := token.NewStandard("Test Token", "TEST", 1000, taker)
	x.RegisterToken(tok)

	_, err := x.DepositToken(tok.Address(), taker, 400)
	if !core.ErrExternalTransfer.Has(err) {
		t.Fatalf("expected ErrExternalTransfer, got %v", err)
	}
	if got := x.BalanceOf(tok.Address(), taker); got != 0 {
		t.Errorf("refused pull credited the ledger: %d", got)
	}
	if got := tok.BalanceOf(taker); got != 1000 {
		t.Errorf("refused pull moved contract funds: %d", got)
	}
}

func TestDepositTokenZeroAmount(t *testing.T) {
	// depositing zero needs no allowance and succeeds as a no-op credit
	x := newTestExchange(t)
	tok := token.NewStandard("Test Token", "TEST", 1000, taker)
	x.RegisterToken(tok)

	balance, err := x.DepositToken(tok.Address(), taker, 0)
	if err != nil {
		t.Fatalf("zero deposit failed: %v", err)
	}
	if balance != 0 {
		t.Errorf("balance = %d, want 0", balance)
	}
	if got := tok.BalanceOf(taker); got != 1000 {
		t.Errorf("contract balance = %d, want 1000", got)
	}
}

func TestDepositTokenUnknownAsset(t *testing.T) {
	x := newTestExchange(t)

	unknown := common.HexToAddress("0x4444444444444444444444444444444444444444")
	if _, err := x.DepositToken(unknown, taker, 1); !core.ErrInvalidAsset.Has(err) {
		t.Errorf("unregistered asset: expected ErrInvalidAsset, got %v", err)
	}
	if _, err := x.DepositToken(core.NativeAsset, taker, 1); !core.ErrInvalidAsset.Has(err) {
		t.Errorf("native sentinel: expected ErrInvalidAsset, got %v", err)
	}
}

func TestWithdrawToken(t *testing.T) {
	x := newTestExchange(t)
	tok := newTestToken(t, x, taker, 1000)
	if _, err := x.DepositToken(tok.Address(), taker, 400); err != nil {
		t.Fatal(err)
	}

	balance, err := x.WithdrawToken(tok.Address(), taker, 150)
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if balance != 250 {
		t.Errorf("balance = %d, want 250", balance)
	}
	if got := tok.BalanceOf(taker); got != 750 {
		t.Errorf("contract balance = %d, want 750", got)
	}

	if _, err := x.WithdrawToken(tok.Address(), taker, 251); !core.ErrInsufficientBalance.Has(err) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
	if _, err := x.WithdrawToken(core.NativeAsset, taker, 1); !core.ErrInvalidAsset.Has(err) {
		t.Errorf("native sentinel: expected ErrInvalidAsset, got %v", err)
	}
}

func TestMakeOrderAssignsDenseIDs(t *testing.T) {
	x := newTestExchange(t)
	tokenAsset := common.HexToAddress("0x4444444444444444444444444444444444444444")

	for want := uint64(1); want <= 3; want++ {
		id, err := x.MakeOrder(maker, tokenAsset, 100, core.NativeAsset, 50)
		if err != nil {
			t.Fatalf("make order %d: %v", want, err)
		}
		if id != want {
			t.Errorf("id = %d, want %d", id, want)
		}
	}
	if got := x.OrderCount(); got != 3 {
		t.Errorf("OrderCount = %d, want 3", got)
	}

	o, err := x.Order(2)
	if err != nil {
		t.Fatal(err)
	}
	if o.Maker != maker || o.WantedAmount != 100 || o.OfferedAmount != 50 {
		t.Errorf("stored order mismatch: %+v", o)
	}
	if o.CreatedAt == 0 {
		t.Error("order has no timestamp")
	}
}

func TestMakeOrderWithoutFunds(t *testing.T) {
	// Creation never checks balances; the order exists and fails at fill time.
	x := newTestExchange(t)
	tokenAsset := common.HexToAddress("0x4444444444444444444444444444444444444444")

	id, err := x.MakeOrder(maker, tokenAsset, 100, core.NativeAsset, 50)
	if err != nil {
		t.Fatalf("underfunded make refused: %v", err)
	}

	if _, err := x.DepositToken(tokenAsset, taker, 1); !core.ErrInvalidAsset.Has(err) {
		t.Fatalf("sanity: %v", err)
	}
	if err := x.FillOrder(taker, id); !core.ErrInsufficientBalance.Has(err) {
		t.Errorf("expected ErrInsufficientBalance at fill time, got %v", err)
	}
}

// fundedOrder sets up the canonical trade: maker offers 50 native for 100
// token units, both sides funded, fee rate 10%.
func fundedOrder(t *testing.T, x *Exchange) (tokenAsset core.Asset, id uint64) {
	t.Helper()
	tok := newTestToken(t, x, taker, 1000)
	if _, err := x.DepositEther(maker, 50); err != nil {
		t.Fatal(err)
	}
	if _, err := x.DepositToken(tok.Address(), taker, 200); err != nil {
		t.Fatal(err)
	}
	id, err := x.MakeOrder(maker, tok.Address(), 100, core.NativeAsset, 50)
	if err != nil {
		t.Fatal(err)
	}
	return tok.Address(), id
}

func TestFillOrder(t *testing.T) {
	x := newTestExchange(t)
	tokenAsset, id := fundedOrder(t, x)

	if err := x.FillOrder(taker, id); err != nil {
		t.Fatalf("fill failed: %v", err)
	}

	// Maker paid 50 native, received the 100 wanted tokens.
	if got := x.BalanceOf(core.NativeAsset, maker); got != 0 {
		t.Errorf("maker native = %d, want 0", got)
	}
	if got := x.BalanceOf(tokenAsset, maker); got != 100 {
		t.Errorf("maker token = %d, want 100", got)
	}
	// Taker paid 100 + 10 fee, received 50 native.
	if got := x.BalanceOf(core.NativeAsset, taker); got != 50 {
		t.Errorf("taker native = %d, want 50", got)
	}
	if got := x.BalanceOf(tokenAsset, taker); got != 90 {
		t.Errorf("taker token = %d, want 90", got)
	}
	if got := x.BalanceOf(tokenAsset, feeAccount); got != 10 {
		t.Errorf("fee account token = %d, want 10", got)
	}

	if !x.OrderFilled(id) {
		t.Error("order not marked filled")
	}
	if x.OrderCancelled(id) {
		t.Error("filled order marked cancelled")
	}
}

func TestFillOrderTwice(t *testing.T) {
	x := newTestExchange(t)
	_, id := fundedOrder(t, x)

	if err := x.FillOrder(taker, id); err != nil {
		t.Fatal(err)
	}
	if err := x.FillOrder(taker, id); !core.ErrAlreadyFilled.Has(err) {
		t.Errorf("expected ErrAlreadyFilled, got %v", err)
	}
}

func TestFillCancelledOrder(t *testing.T) {
	x := newTestExchange(t)
	_, id := fundedOrder(t, x)

	if err := x.CancelOrder(maker, id); err != nil {
		t.Fatal(err)
	}
	if err := x.FillOrder(taker, id); !core.ErrAlreadyCancelled.Has(err) {
		t.Errorf("expected ErrAlreadyCancelled, got %v", err)
	}
}

func TestFillUnknownOrder(t *testing.T) {
	x := newTestExchange(t)
	if err := x.FillOrder(taker, 99); !core.ErrUnknownOrder.Has(err) {
		t.Errorf("expected ErrUnknownOrder, got %v", err)
	}
}

func TestFillOrderInsufficientTaker(t *testing.T) {
	x := newTestExchange(t)
	tokenAsset, id := fundedOrder(t, x)

	// Drain the taker below wanted+fee. 200 deposited, 109 < 110 needed.
	if _, err := x.WithdrawToken(tokenAsset, taker, 91); err != nil {
		t.Fatal(err)
	}

	if err := x.FillOrder(taker, id); !core.ErrInsufficientBalance.Has(err) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// Nothing moved and the order is still open.
	if got := x.BalanceOf(tokenAsset, taker); got != 109 {
		t.Errorf("taker token = %d, want 109", got)
	}
	if got := x.BalanceOf(core.NativeAsset, maker); got != 50 {
		t.Errorf("maker native = %d, want 50", got)
	}
	if got := x.BalanceOf(tokenAsset, feeAccount); got != 0 {
		t.Errorf("fee account = %d, want 0", got)
	}
	if x.OrderFilled(id) {
		t.Error("failed fill marked the order filled")
	}
	if err := x.FillOrder(stranger, id); !core.ErrInsufficientBalance.Has(err) {
		t.Errorf("order should still be fillable in principle: %v", err)
	}
}

func TestFillOrderInsufficientMaker(t *testing.T) {
	x := newTestExchange(t)
	_, id := fundedOrder(t, x)

	// The maker drains their offered funds after making the order.
	if _, err := x.WithdrawEther(maker, 50); err != nil {
		t.Fatal(err)
	}

	if err := x.FillOrder(taker, id); !core.ErrInsufficientBalance.Has(err) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
	if x.OrderFilled(id) {
		t.Error("failed fill marked the order filled")
	}
}

func TestSelfFill(t *testing.T) {
	// The maker filling their own order is legal and costs them the fee.
	x := newTestExchange(t)
	tok := newTestToken(t, x, maker, 1000)
	if _, err := x.DepositEther(maker, 50); err != nil {
		t.Fatal(err)
	}
	if _, err := x.DepositToken(tok.Address(), maker, 110); err != nil {
		t.Fatal(err)
	}
	id, err := x.MakeOrder(maker, tok.Address(), 100, core.NativeAsset, 50)
	if err != nil {
		t.Fatal(err)
	}

	if err := x.FillOrder(maker, id); err != nil {
		t.Fatalf("self-fill refused: %v", err)
	}
	if got := x.BalanceOf(core.NativeAsset, maker); got != 50 {
		t.Errorf("native round-tripped to %d, want 50", got)
	}
	if got := x.BalanceOf(tok.Address(), maker); got != 0 {
		t.Errorf("maker token = %d, want 0 after paying the fee", got)
	}
	if got := x.BalanceOf(tok.Address(), feeAccount); got != 10 {
		t.Errorf("fee account = %d, want 10", got)
	}
}

func TestCancelOrder(t *testing.T) {
	x := newTestExchange(t)
	_, id := fundedOrder(t, x)

	if err := x.CancelOrder(maker, id); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if !x.OrderCancelled(id) {
		t.Error("order not marked cancelled")
	}

	if err := x.CancelOrder(maker, id); !core.ErrAlreadyCancelled.Has(err) {
		t.Errorf("second cancel: expected ErrAlreadyCancelled, got %v", err)
	}
}

func TestCancelOrderNotOwner(t *testing.T) {
	x := newTestExchange(t)
	_, id := fundedOrder(t, x)

	if err := x.CancelOrder(stranger, id); !core.ErrNotOrderOwner.Has(err) {
		t.Errorf("expected ErrNotOrderOwner, got %v", err)
	}
	if x.OrderCancelled(id) {
		t.Error("stranger's cancel stuck")
	}
}

func TestCancelFilledOrder(t *testing.T) {
	x := newTestExchange(t)
	_, id := fundedOrder(t, x)

	if err := x.FillOrder(taker, id); err != nil {
		t.Fatal(err)
	}
	if err := x.CancelOrder(maker, id); !core.ErrAlreadyFilled.Has(err) {
		t.Errorf("expected ErrAlreadyFilled, got %v", err)
	}
}

func TestCancelUnknownOrder(t *testing.T) {
	x := newTestExchange(t)
	if err := x.CancelOrder(maker, 7); !core.ErrUnknownOrder.Has(err) {
		t.Errorf("expected ErrUnknownOrder, got %v", err)
	}
}

func TestStatusProbesAreTotal(t *testing.T) {
	x := newTestExchange(t)
	if x.OrderFilled(0) || x.OrderFilled(42) {
		t.Error("OrderFilled should be false for unknown ids")
	}
	if x.OrderCancelled(0) || x.OrderCancelled(42) {
		t.Error("OrderCancelled should be false for unknown ids")
	}
}

func TestEventStream(t *testing.T) {
	x := newTestExchange(t)
	tokenAsset, id := fundedOrder(t, x)
	if err := x.FillOrder(taker, id); err != nil {
		t.Fatal(err)
	}

	recs := x.Feed().Replay()
	wantTypes := []events.Type{
		events.TypeDeposit, // maker native
		events.TypeDeposit, // taker token
		events.TypeOrder,
		events.TypeTrade,
	}
	if len(recs) != len(wantTypes) {
		t.Fatalf("got %d records, want %d", len(recs), len(wantTypes))
	}
	for i, rec := range recs {
		if rec.Type != wantTypes[i] {
			t.Errorf("record %d type = %s, want %s", i, rec.Type, wantTypes[i])
		}
		if rec.Seq != uint64(i+1) {
			t.Errorf("record %d seq = %d, want %d", i, rec.Seq, i+1)
		}
	}

	trade, ok := recs[3].Data.(events.Trade)
	if !ok {
		t.Fatalf("trade payload is %T", recs[3].Data)
	}
	if trade.ID != id || trade.Taker != taker || trade.Maker != maker {
		t.Errorf("trade payload mismatch: %+v", trade)
	}
	if trade.WantedAsset != tokenAsset || trade.WantedAmount != 100 || trade.OfferedAmount != 50 {
		t.Errorf("trade terms mismatch: %+v", trade)
	}
}

func TestFailedOperationsEmitNothing(t *testing.T) {
	x := newTestExchange(t)
	before := x.Feed().Len()

	x.WithdrawEther(maker, 1)
	x.FillOrder(taker, 99)
	x.CancelOrder(maker, 99)

	if got := x.Feed().Len(); got != before {
		t.Errorf("failed operations emitted %d records", got-before)
	}
}

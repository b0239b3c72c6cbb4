package circles

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mr-tron/base58"

	"github.com/naveenspark/circlespay/pkg/domain"
	"github.com/naveenspark/circlespay/pkg/jsonrpc"
)

// fakeWallet answers eth_sendTransaction and eth_getTransactionReceipt.
type fakeWallet struct {
	mu            sync.Mutex
	sent          []map[string]string
	sendErr       error
	pendingPolls  int
	receiptStatus string
}

func (w *fakeWallet) Request(_ context.Context, method string, params []any, out any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch method {
	case "eth_sendTransaction":
		if w.sendErr != nil {
			return w.sendErr
		}
		w.sent = append(w.sent, params[0].(map[string]string))
		return json.Unmarshal([]byte(`"0x00000000000000000000000000000000000000000000000000000000000000aa"`), out)
	case "eth_getTransactionReceipt":
		if w.pendingPolls > 0 {
			w.pendingPolls--
			return json.Unmarshal([]byte("null"), out)
		}
		return json.Unmarshal([]byte(fmt.Sprintf(`{"status":%q}`, w.receiptStatus)), out)
	}
	return &jsonrpc.Error{Code: jsonrpc.CodeUnsupportedMethod, Message: method}
}

var (
	hubAddr    = common.HexToAddress("0xc12C1E50ABB450d6205Ea2C3Fa861b3B834d13e8")
	walletAddr = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	targetAddr = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func newSigningClient(w *fakeWallet, cfg Config) *Client {
	cfg.V2Hub = hubAddr
	return New(cfg, WithWallet(w, walletAddr), WithReceiptPollInterval(time.Millisecond))
}

func TestTrust(t *testing.T) {
	w := &fakeWallet{pendingPolls: 2, receiptStatus: "0x1"}
	c := newSigningClient(w, Config{})

	hash, err := c.Trust(context.Background(), targetAddr)
	if err != nil {
		t.Fatalf("Trust() error: %v", err)
	}
	if hash == (common.Hash{}) {
		t.Error("Trust() returned zero hash")
	}
	if len(w.sent) != 1 {
		t.Fatalf("sent %d transactions, want 1", len(w.sent))
	}
	tx := w.sent[0]
	if tx["from"] != walletAddr.Hex() || tx["to"] != hubAddr.Hex() {
		t.Errorf("tx from/to = %s/%s", tx["from"], tx["to"])
	}
	data := hexutil.MustDecode(tx["data"])
	method := hubABI.Methods["trust"]
	if !bytes.Equal(data[:4], method.ID) {
		t.Fatalf("selector = %x, want %x", data[:4], method.ID)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if args[0].(common.Address) != targetAddr {
		t.Errorf("trust receiver = %v", args[0])
	}
	if fmt.Sprint(args[1]) != maxExpiry.String() {
		t.Errorf("expiry = %v, want max uint96", args[1])
	}
}

func TestUntrustReverted(t *testing.T) {
	w := &fakeWallet{receiptStatus: "0x0"}
	c := newSigningClient(w, Config{})

	_, err := c.Untrust(context.Background(), targetAddr)
	if !errors.Is(err, ErrTransactionReverted) {
		t.Fatalf("Untrust() error = %v, want ErrTransactionReverted", err)
	}
}

func TestMutationWithoutWallet(t *testing.T) {
	c := New(Config{})
	if c.CanSign() {
		t.Fatal("CanSign() = true without wallet")
	}
	if _, err := c.Trust(context.Background(), targetAddr); !errors.Is(err, ErrNoWallet) {
		t.Errorf("Trust() error = %v, want ErrNoWallet", err)
	}
	if _, err := c.RegisterOrganization(context.Background(), domain.Profile{Name: "x"}); !errors.Is(err, ErrNoWallet) {
		t.Errorf("RegisterOrganization() error = %v, want ErrNoWallet", err)
	}
}

func TestRegisterOrganization(t *testing.T) {
	digest := bytes.Repeat([]byte{0x42}, 32)
	cid := base58.Encode(append([]byte{0x12, 0x20}, digest...))

	var pinned domain.Profile
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/profiles/pin" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&pinned)                  //nolint:errcheck
		json.NewEncoder(w).Encode(map[string]string{"cid": cid}) //nolint:errcheck
	}))
	defer srv.Close()

	w := &fakeWallet{receiptStatus: "0x1"}
	c := newSigningClient(w, Config{ProfileServiceURL: srv.URL + "/profiles/"})

	addr, err := c.RegisterOrganization(context.Background(), domain.Profile{Name: "Circles Café", Description: "coffee"})
	if err != nil {
		t.Fatalf("RegisterOrganization() error: %v", err)
	}
	if addr != walletAddr {
		t.Errorf("address = %s, want wallet %s", addr.Hex(), walletAddr.Hex())
	}
	if pinned.Name != "Circles Café" || pinned.Description != "coffee" {
		t.Errorf("pinned profile = %+v", pinned)
	}

	data := hexutil.MustDecode(w.sent[0]["data"])
	method := hubABI.Methods["registerOrganization"]
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if args[0].(string) != "Circles Café" {
		t.Errorf("name arg = %v", args[0])
	}
	got := args[1].([32]byte)
	if !bytes.Equal(got[:], digest) {
		t.Errorf("digest = %x, want %x", got, digest)
	}
}

func TestRegisterOrganizationRequiresName(t *testing.T) {
	c := newSigningClient(&fakeWallet{}, Config{})
	if _, err := c.RegisterOrganization(context.Background(), domain.Profile{Name: "  "}); err == nil {
		t.Fatal("expected error for blank name")
	}
}

func TestCidV0Digest(t *testing.T) {
	if _, err := cidV0Digest("not-base58-0OIl"); err == nil {
		t.Error("expected error for invalid base58")
	}
	short := base58.Encode([]byte{0x12, 0x20, 0x01})
	if _, err := cidV0Digest(short); err == nil {
		t.Error("expected error for truncated multihash")
	}
}

func avatarExistsRevert(t *testing.T, code uint8) string {
	t.Helper()
	def := hubABI.Errors["CirclesErrorOneAddressArg"]
	packed, err := def.Inputs.Pack(walletAddr, code)
	if err != nil {
		t.Fatalf("pack revert: %v", err)
	}
	return hexutil.Encode(append(def.ID[:4:4], packed...))
}

func TestIsAvatarAlreadyExists(t *testing.T) {
	exists := avatarExistsRevert(t, 128)
	other := avatarExistsRevert(t, 1)

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"hex data", &jsonrpc.Error{Code: 3, Message: "execution reverted", Data: json.RawMessage(fmt.Sprintf("%q", exists))}, true},
		{"nested original error", &jsonrpc.Error{Code: -32603, Message: "internal", Data: json.RawMessage(fmt.Sprintf(`{"originalError":{"code":3,"data":%q}}`, exists))}, true},
		{"wrapped", fmt.Errorf("send transaction: %w", &jsonrpc.Error{Code: 3, Data: json.RawMessage(fmt.Sprintf("%q", exists))}), true},
		{"other code", &jsonrpc.Error{Code: 3, Data: json.RawMessage(fmt.Sprintf("%q", other))}, false},
		{"no data", &jsonrpc.Error{Code: 3, Message: "execution reverted"}, false},
		{"garbage data", &jsonrpc.Error{Code: 3, Data: json.RawMessage(`"0xdeadbeef"`)}, false},
		{"plain error", errors.New("CirclesErrorOneAddressArg 128"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAvatarAlreadyExists(tt.err); got != tt.want {
				t.Errorf("IsAvatarAlreadyExists() = %v, want %v", got, tt.want)
			}
		})
	}
}

package security_test

import (
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/security"
)

func TestMessageSignerRoundTrip(t *testing.T) {
	signer := security.NewMessageSigner("secret")
	sig := signer.Sign("order_1", "pay_1")
	if len(sig) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(sig))
	}
	if !signer.Verify(sig, "order_1", "pay_1") {
		t.Fatal("expected signature to verify")
	}
	if !signer.Verify("  "+strings.ToUpper(sig)+"\n", "order_1", "pay_1") {
		t.Fatal("expected case and whitespace to be ignored")
	}
}

func TestMessageSignerRejects(t *testing.T) {
	signer := security.NewMessageSigner("secret")
	sig := signer.Sign("order_1", "pay_1")

	cases := []struct {
		name   string
		signer security.MessageSigner
		sig    string
		fields []string
	}{
		{"other payment", signer, sig, []string{"order_1", "pay_2"}},
		{"fields swapped", signer, sig, []string{"pay_1", "order_1"}},
		{"other secret", security.NewMessageSigner("nope"), sig, []string{"order_1", "pay_1"}},
		{"zero signer", security.MessageSigner{}, sig, []string{"order_1", "pay_1"}},
		{"not hex", signer, "zz", []string{"order_1", "pay_1"}},
		{"truncated", signer, sig[:62], []string{"order_1", "pay_1"}},
		{"empty", signer, "", []string{"order_1", "pay_1"}},
	}
	for _, tc := range cases {
		if tc.signer.Verify(tc.sig, tc.fields...) {
			t.Fatalf("%s: expected verification failure", tc.name)
		}
	}
}

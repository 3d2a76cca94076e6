package types

import "testing"

func TestAddressDriverRoundTrip(t *testing.T) {
	line2 := "Flat 4B"
	addr := Address{Line1: "12 MG Road", Line2: &line2, City: "Bengaluru", State: "KA", PostalCode: "560001", Country: "IN"}

	value, err := addr.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var decoded Address
	if err := decoded.Scan([]byte(value.(string))); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if decoded.City != "Bengaluru" || decoded.Line2 == nil || *decoded.Line2 != line2 {
		t.Fatalf("unexpected decoded address %+v", decoded)
	}
}

func TestAddressScanEdgeCases(t *testing.T) {
	decoded := Address{City: "stale"}
	if err := decoded.Scan(nil); err != nil || !decoded.IsZero() {
		t.Fatalf("nil scan should reset address, err=%v got %+v", err, decoded)
	}
	if err := decoded.Scan(""); err != nil || !decoded.IsZero() {
		t.Fatalf("empty scan should reset address, err=%v", err)
	}
	if err := decoded.Scan(42); err == nil {
		t.Fatal("expected error for int scan")
	}
	if err := decoded.Scan(`{"city":`); err == nil {
		t.Fatal("expected error for truncated json")
	}
}

func TestAddressNormalize(t *testing.T) {
	blank := "   "
	got := Address{Line1: " 1 Main ", Line2: &blank, City: "Pune ", Country: " in"}.Normalize()
	if got.Line1 != "1 Main" || got.City != "Pune" || got.Country != "IN" {
		t.Fatalf("unexpected normalized address %+v", got)
	}
	if got.Line2 != nil {
		t.Fatal("blank line2 should be dropped")
	}
	if !(Address{Line2: &blank}).IsZero() {
		t.Fatal("whitespace-only address should be zero")
	}
}

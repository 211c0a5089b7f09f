package domain

import "testing"

func TestChangePayloadDefinedAndEmpty(t *testing.T) {
	undef := UndefinedChangePayload()
	if undef.Defined() {
		t.Fatal("undefined payload must not report Defined")
	}
	empty := NewChangePayload(nil)
	if !empty.Defined() || !empty.IsEmpty() {
		t.Fatal("nil raw payload is defined but empty")
	}
	payload, err := NewChangePayloadFromValue(Alias{Context: "CDASH", Name: "VS"})
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	if !payload.Defined() || payload.IsEmpty() {
		t.Fatal("encoded payload must be defined and non-empty")
	}
}

func TestDecodeChangePayload(t *testing.T) {
	payload, err := NewChangePayloadFromValue(Form{Name: "Vitals", OID: "F.V"})
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	decoded, ok := DecodeChangePayload[Form](payload)
	if !ok {
		t.Fatal("decode failed")
	}
	if decoded.Name != "Vitals" || decoded.OID != "F.V" {
		t.Fatalf("decoded %+v", decoded)
	}
	if _, ok := DecodeChangePayload[Form](UndefinedChangePayload()); ok {
		t.Fatal("undefined payload must not decode")
	}
}

package validator

import "testing"

func TestGiftCodeValidation(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{"NOVA-X7K2-M9QD-R4TX", true},
		{"NOVA-1234", true},
		{"ABC123", true},
		{"nova-x7k2-m9qd-r4tx", false},
		{"NOVA_X7K2", false},
		{"SHORT", false},
		{"", false},
	}

	for _, tt := range tests {
		err := ValidateVar(tt.code, "gift_code")
		if tt.valid && err != nil {
			t.Errorf("code %q: expected valid, got %v", tt.code, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("code %q: expected invalid", tt.code)
		}
	}
}

func TestTxTypeValidation(t *testing.T) {
	for _, valid := range []string{"earned", "spent", "shared", "received", "refund", ""} {
		if err := ValidateVar(valid, "tx_type"); err != nil {
			t.Errorf("type %q: expected valid, got %v", valid, err)
		}
	}
	for _, invalid := range []string{"bonus", "EARNED", "spent "} {
		if err := ValidateVar(invalid, "tx_type"); err == nil {
			t.Errorf("type %q: expected invalid", invalid)
		}
	}
}

func TestValidateStructUsesJSONNames(t *testing.T) {
	type redeemPayload struct {
		Code string `json:"code" validate:"required,gift_code"`
	}

	errs := Validate(redeemPayload{})
	if errs == nil {
		t.Fatal("expected validation errors")
	}
	if _, ok := errs["code"]; !ok {
		t.Fatalf("expected error keyed by json name, got %v", errs)
	}
}

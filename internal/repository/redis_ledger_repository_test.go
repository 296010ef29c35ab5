package repository

import (
	"errors"
	"testing"
)

func TestParseScriptResult(t *testing.T) {
	tests := []struct {
		name        string
		val         interface{}
		err         error
		wantOK      bool
		wantErrCode string
		wantValue   int64
		wantErr     bool
	}{
		{
			name:      "granted",
			val:       []interface{}{int64(1), "", int64(7)},
			wantOK:    true,
			wantValue: 7,
		},
		{
			name:        "denied with code",
			val:         []interface{}{int64(0), "INSUFFICIENT_SEATS", int64(2)},
			wantOK:      false,
			wantErrCode: "INSUFFICIENT_SEATS",
			wantValue:   2,
		},
		{
			name:        "missing ledger",
			val:         []interface{}{int64(0), "LEDGER_NOT_FOUND", int64(0)},
			wantOK:      false,
			wantErrCode: "LEDGER_NOT_FOUND",
		},
		{
			name:    "transport error",
			err:     errors.New("connection refused"),
			wantErr: true,
		},
		{
			name:    "malformed reply",
			val:     "OK",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, errCode, value, err := parseScriptResult(tt.val, tt.err)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
			if errCode != tt.wantErrCode {
				t.Errorf("errCode = %q, want %q", errCode, tt.wantErrCode)
			}
			if value != tt.wantValue {
				t.Errorf("value = %d, want %d", value, tt.wantValue)
			}
		})
	}
}

func TestLedgerKey(t *testing.T) {
	if got := ledgerKey("svc-123"); got != "svc:ledger:svc-123" {
		t.Fatalf("unexpected ledger key: %s", got)
	}
}

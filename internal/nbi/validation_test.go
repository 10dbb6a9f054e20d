package nbi

import (
	"errors"
	"testing"
)

func TestValidateRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "network ok", err: ValidateNetworkRequest(&NetworkRequest{NetworkID: "net_001"})},
		{name: "network nil", err: ValidateNetworkRequest(nil), wantErr: true},
		{name: "network blank", err: ValidateNetworkRequest(&NetworkRequest{NetworkID: "  "}), wantErr: true},
		{name: "member ok", err: ValidateMemberRequest(&MemberRequest{NetworkID: "net_001", MemberID: "f16"})},
		{name: "member missing", err: ValidateMemberRequest(&MemberRequest{NetworkID: "net_001"}), wantErr: true},
		{name: "type ok", err: ValidateSetTypeRequest(&SetTypeRequest{NetworkID: "net_001", Type: "multihop"})},
		{name: "type unknown", err: ValidateSetTypeRequest(&SetTypeRequest{NetworkID: "net_001", Type: "ring"}), wantErr: true},
		{name: "link ok", err: ValidateCustomLinkRequest(&CustomLinkRequest{NetworkID: "net_001", From: "a", To: "b"})},
		{name: "link missing end", err: ValidateCustomLinkRequest(&CustomLinkRequest{NetworkID: "net_001", From: "a"}), wantErr: true},
		{name: "preset ok", err: ValidateApplyPresetRequest(&ApplyPresetRequest{NetworkID: "net_001", LinkType: "laser"})},
		{name: "preset unknown", err: ValidateApplyPresetRequest(&ApplyPresetRequest{NetworkID: "net_001", LinkType: "smoke"}), wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if tc.wantErr {
				if !errors.Is(tc.err, ErrInvalidRequest) {
					t.Fatalf("err = %v, want ErrInvalidRequest", tc.err)
				}
				return
			}
			if tc.err != nil {
				t.Fatalf("err = %v, want nil", tc.err)
			}
		})
	}
}

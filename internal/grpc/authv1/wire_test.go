package authv1

import (
	"bytes"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestRequestMatchesProtobufEncoding(t *testing.T) {
	want, err := proto.Marshal(wrapperspb.String("alice-token"))
	if err != nil {
		t.Fatal(err)
	}

	got, err := (&ValidateTokenRequest{Token: "alice-token"}).MarshalWire()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("encoding = %x, want %x", got, want)
	}
}

func TestResponseReadableByProtobuf(t *testing.T) {
	b, err := (&ValidateTokenResponse{IsValid: true, Message: "valid", UserID: "u1"}).MarshalWire()
	if err != nil {
		t.Fatal(err)
	}

	var out wrapperspb.BoolValue
	if err := proto.Unmarshal(b, &out); err != nil {
		t.Fatalf("proto.Unmarshal: %v", err)
	}
	if !out.GetValue() {
		t.Fatal("is_valid lost")
	}

	var back ValidateTokenResponse
	if err := back.UnmarshalWire(b); err != nil {
		t.Fatal(err)
	}
	if back != (ValidateTokenResponse{IsValid: true, Message: "valid", UserID: "u1"}) {
		t.Fatalf("decoded %+v", back)
	}
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 9, protowire.VarintType)
	b = protowire.AppendVarint(b, 42)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, "tok")
	// user_id sent with the wrong wire type is ignored
	b = protowire.AppendTag(b, 1, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 7)

	var req UserRequest
	if err := req.UnmarshalWire(b); err != nil {
		t.Fatalf("UnmarshalWire: %v", err)
	}
	if req.Token != "tok" || req.UserID != "" {
		t.Fatalf("decoded %+v", req)
	}
}

func TestUnmarshalTruncated(t *testing.T) {
	b, _ := (&UserRequest{UserID: "0192"}).MarshalWire()

	var req UserRequest
	if err := req.UnmarshalWire(b[:len(b)-1]); err == nil {
		t.Fatal("truncated message accepted")
	}
}

func TestListMembershipKeepsEmptyTeams(t *testing.T) {
	in := ListMembershipResponse{Teams: []Team{
		{TeamID: "t1", Name: "core", OwnerID: "o1", Role: "owner"},
		{},
		{TeamID: "t3", Role: "member"},
	}}

	b, err := in.MarshalWire()
	if err != nil {
		t.Fatal(err)
	}

	var out ListMembershipResponse
	if err := out.UnmarshalWire(b); err != nil {
		t.Fatal(err)
	}
	if len(out.Teams) != 3 || out.Teams[0] != in.Teams[0] || out.Teams[1] != (Team{}) || out.Teams[2] != in.Teams[2] {
		t.Fatalf("decoded %+v", out.Teams)
	}
}

func TestCodecFallsBackToProtobuf(t *testing.T) {
	var c Codec

	b, err := c.Marshal(wrapperspb.String("x"))
	if err != nil {
		t.Fatal(err)
	}
	var req ValidateTokenRequest
	if err := c.Unmarshal(b, &req); err != nil {
		t.Fatal(err)
	}
	if req.Token != "x" {
		t.Fatalf("token = %q", req.Token)
	}

	if _, err := c.Marshal(struct{}{}); err == nil {
		t.Fatal("plain struct marshalled")
	}
	if c.Name() != "proto" {
		t.Fatalf("name = %q", c.Name())
	}
}

package authv1

import (
	"google.golang.org/protobuf/encoding/protowire"
)

func (m *ValidateTokenRequest) MarshalWire() ([]byte, error) {
	return appendString(nil, 1, m.Token), nil
}

func (m *ValidateTokenRequest) UnmarshalWire(b []byte) error {
	*m = ValidateTokenRequest{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 {
			return consumeString(typ, b, &m.Token)
		}
		return 0
	})
}

func (m *ValidateTokenResponse) MarshalWire() ([]byte, error) {
	b := appendBool(nil, 1, m.IsValid)
	b = appendString(b, 2, m.Message)
	return appendString(b, 3, m.UserID), nil
}

func (m *ValidateTokenResponse) UnmarshalWire(b []byte) error {
	*m = ValidateTokenResponse{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeBool(typ, b, &m.IsValid)
		case 2:
			return consumeString(typ, b, &m.Message)
		case 3:
			return consumeString(typ, b, &m.UserID)
		}
		return 0
	})
}

func (m *UserRequest) MarshalWire() ([]byte, error) {
	b := appendString(nil, 1, m.UserID)
	return appendString(b, 2, m.Token), nil
}

func (m *UserRequest) UnmarshalWire(b []byte) error {
	*m = UserRequest{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeString(typ, b, &m.UserID)
		case 2:
			return consumeString(typ, b, &m.Token)
		}
		return 0
	})
}

func (m *Team) MarshalWire() ([]byte, error) {
	return m.appendFields(nil), nil
}

func (m *Team) UnmarshalWire(b []byte) error {
	*m = Team{}
	return walk(b, m.consumeField)
}

func (m *Team) appendFields(b []byte) []byte {
	b = appendString(b, 1, m.TeamID)
	b = appendString(b, 2, m.Name)
	b = appendString(b, 3, m.OwnerID)
	return appendString(b, 4, m.Role)
}

func (m *Team) consumeField(num protowire.Number, typ protowire.Type, b []byte) int {
	switch num {
	case 1:
		return consumeString(typ, b, &m.TeamID)
	case 2:
		return consumeString(typ, b, &m.Name)
	case 3:
		return consumeString(typ, b, &m.OwnerID)
	case 4:
		return consumeString(typ, b, &m.Role)
	}
	return 0
}

func (m *GetUserTeamResponse) MarshalWire() ([]byte, error) {
	return m.Team.MarshalWire()
}

func (m *GetUserTeamResponse) UnmarshalWire(b []byte) error {
	return m.Team.UnmarshalWire(b)
}

func (m *ListMembershipResponse) MarshalWire() ([]byte, error) {
	var b []byte
	for i := range m.Teams {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Teams[i].appendFields(nil))
	}
	return b, nil
}

func (m *ListMembershipResponse) UnmarshalWire(b []byte) error {
	*m = ListMembershipResponse{}

	var inner error
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num != 1 || typ != protowire.BytesType {
			return 0
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n
		}
		var team Team
		if err := team.UnmarshalWire(v); err != nil {
			inner = err
			return -1
		}
		m.Teams = append(m.Teams, team)
		return n
	})
	if inner != nil {
		return inner
	}
	return err
}

// walk hands every field of b to field, which returns the bytes it consumed,
// zero for a field it does not know, or a negative protowire error code.
// Unknown fields are skipped.
func walk(b []byte, field func(num protowire.Number, typ protowire.Type, b []byte) int) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n = field(num, typ, b)
		if n == 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
	}
	return nil
}

// Zero values are left out, as proto3 does.
func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func consumeString(typ protowire.Type, b []byte, dst *string) int {
	if typ != protowire.BytesType {
		return 0
	}
	v, n := protowire.ConsumeString(b)
	if n >= 0 {
		*dst = v
	}
	return n
}

func consumeBool(typ protowire.Type, b []byte, dst *bool) int {
	if typ != protowire.VarintType {
		return 0
	}
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = protowire.DecodeBool(v)
	}
	return n
}

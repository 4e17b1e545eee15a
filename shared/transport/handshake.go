package transport

import (
	"errors"
	"fmt"

	"github.com/automoto/netsnap/shared/identity"
	"github.com/automoto/netsnap/shared/wire"
)

var (
	ErrWrongPassword = errors.New("transport: wrong password")
	ErrBadHandshake  = errors.New("transport: malformed handshake reply")
	ErrNotIdle       = errors.New("transport: connect while already connecting or connected")
)

// The connection bid is the password as a length-prefixed string.
func encodeBid(password string) []byte {
	w := wire.NewWriter(8 + len(password))
	w.String(password)
	return w.Bytes()
}

func checkBid(payload []byte, password string) error {
	r := wire.NewReader(payload)
	got := r.String()
	if err := r.Finish(); err != nil {
		return fmt.Errorf("decode bid: %w", err)
	}
	if password != "" && got != password {
		return ErrWrongPassword
	}
	return nil
}

// The reply is the assigned id as a single byte.
func encodeReply(id identity.NetID) []byte {
	return []byte{byte(id)}
}

func decodeReply(payload []byte) (identity.NetID, error) {
	if len(payload) != 1 {
		return 0, fmt.Errorf("%d byte reply: %w", len(payload), ErrBadHandshake)
	}
	return identity.NetID(payload[0]), nil
}

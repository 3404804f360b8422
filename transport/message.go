package transport

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Message kinds exchanged between driver and device.
const (
	// KindCommand is a command text sent by the driver to a device.
	KindCommand = "command"
	// KindResponse is a reply text sent by a device to the driver.
	KindResponse = "response"
)

// Message is one discrete transport message.
type Message struct {
	Kind    string `cbor:"1,keyasint"`
	Payload string `cbor:"2,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// EncodeMessage encodes msg to its CBOR representation.
func EncodeMessage(msg Message) ([]byte, error) {
	if msg.Kind == "" {
		return nil, ErrInvalidKind
	}

	return encMode.Marshal(msg)
}

// DecodeMessage decodes a CBOR encoded Message.
func DecodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := decMode.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("transport: decode message: %w", err)
	}

	if msg.Kind == "" {
		return Message{}, ErrInvalidKind
	}

	return msg, nil
}
